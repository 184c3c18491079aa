package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wsanchor/wsanchor/internal/correlate"
	"github.com/wsanchor/wsanchor/internal/host"
	"github.com/wsanchor/wsanchor/internal/logging"
	"github.com/wsanchor/wsanchor/internal/runtimepath"
	"github.com/wsanchor/wsanchor/internal/toolkit"
	"github.com/wsanchor/wsanchor/internal/watcher"
)

var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Run the placement host on stdin/stdout",
	Long: `Run the placement host. It reads length-framed JSON requests on stdin,
answers on stdout and talks to the i3/sway IPC socket in between. The
agent spawns it automatically; running it by hand is only useful for
debugging or for registering it as a browser native-messaging host.

Stdout carries protocol frames, so the host logs to a file.`,
	Args: cobra.NoArgs,
	RunE: runHost,
}

func init() {
	rootCmd.AddCommand(hostCmd)
}

func runHost(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logFile := cfg.Log.File
	if logFile == "" {
		logFile, err = runtimepath.HostLogPath()
		if err != nil {
			return err
		}
	}
	log, err := logging.New(logging.FileConfig(logFile, cfg.Log.Level))
	if err != nil {
		return err
	}
	defer log.Sync()

	tracker := correlate.NewTracker()
	w := watcher.New(
		watcher.DefaultDialer(cfg.WM.Socket, log),
		tracker,
		toolkit.NewMatcher(cfg.App.Classes),
		cfg.WM.RetryDelay.Std(),
		log,
	)
	corr := correlate.New(tracker, cfg.WM.SettleDelay.Std(), log)

	h := host.New(w, corr, os.Stdin, os.Stdout, log)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return h.Run(ctx)
}

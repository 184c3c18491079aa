package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wsanchor/wsanchor/internal/agent"
	"github.com/wsanchor/wsanchor/internal/logging"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run the agent daemon",
	Long: `Run the agent daemon. It owns the window store, watches the tracked
application's windows, keeps the placement host subprocess alive and
serves the control socket. Run one agent per session.`,
	Args: cobra.NoArgs,
	RunE: runAgent,
}

func init() {
	rootCmd.AddCommand(agentCmd)
}

func runAgent(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Log.Level
	log, err := logging.New(logCfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	d, err := agent.New(cfg, log)
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return d.Run(ctx)
}

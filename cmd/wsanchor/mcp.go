package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wsanchor/wsanchor/internal/control"
	"github.com/wsanchor/wsanchor/internal/logging"
	"github.com/wsanchor/wsanchor/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve MCP tools on stdio",
	Long: `Serve the Model Context Protocol on stdio. Exposes the anchor_status,
anchor_windows and anchor_sync tools, each relaying to the running
agent's control socket. Register this command in an MCP client's server
list; logs go to stderr because stdout belongs to the protocol.`,
	Args: cobra.NoArgs,
	RunE: runMCPServer,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServer(cmd *cobra.Command, _ []string) error {
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

	srv := mcp.NewServer(control.NewClient(), log)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}

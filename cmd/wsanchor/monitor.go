package main

import (
	"github.com/spf13/cobra"

	"github.com/wsanchor/wsanchor/internal/control"
	"github.com/wsanchor/wsanchor/internal/tui"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch tracked windows live",
	Long:  "Show a live view of the agent and its tracked windows, refreshed every second.",
	Args:  cobra.NoArgs,
	RunE:  runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(_ *cobra.Command, _ []string) error {
	return tui.RunMonitor(control.NewClient())
}

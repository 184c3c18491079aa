package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wsanchor/wsanchor/internal/control"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show agent status",
	Long:  "Show the running agent's status via the control socket.",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(_ *cobra.Command, _ []string) error {
	status, err := control.NewClient().Status()
	if err != nil {
		return err
	}

	fmt.Printf("agent_running:   %v\n", status.AgentRunning)
	fmt.Printf("uptime_seconds:  %d\n", status.UptimeSeconds)
	fmt.Printf("host_running:    %v\n", status.HostRunning)
	fmt.Printf("host_restarts:   %d\n", status.HostRestarts)
	fmt.Printf("tracked_classes: %s\n", strings.Join(status.TrackedClasses, ", "))
	fmt.Printf("live_windows:    %d\n", status.LiveWindows)
	fmt.Printf("stored_windows:  %d\n", status.StoredWindows)
	fmt.Printf("syncs_in_flight: %d\n", status.SyncsInFlight)
	fmt.Printf("store_path:      %s\n", status.StorePath)
	return nil
}

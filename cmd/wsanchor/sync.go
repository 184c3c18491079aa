package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wsanchor/wsanchor/internal/control"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Trigger a full placement sync",
	Long: `Ask the agent to sync every tracked window with the window manager now
instead of waiting for the next window event. Placement results land
asynchronously; watch them with "wsanchor monitor".`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(_ *cobra.Command, _ []string) error {
	if err := control.NewClient().Sync(); err != nil {
		return err
	}
	fmt.Println("sync triggered")
	return nil
}

package main

import (
	"github.com/spf13/cobra"

	"github.com/wsanchor/wsanchor/internal/tui"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive first-run configuration",
	Long: `Walk through the configuration interactively and write the config file.
Existing settings are offered as defaults, so setup also works for
editing a config in place.`,
	Args: cobra.NoArgs,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	return tui.RunSetup(configPath)
}

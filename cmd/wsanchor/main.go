// Command wsanchor keeps the windows of a tracked application anchored to
// their i3/sway workspaces across restarts of either side.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/wsanchor/wsanchor/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "wsanchor",
	Short: "Anchor application windows to i3/sway workspaces",
	Long: `wsanchor gives every window of a tracked application a durable identity
and remembers which i3/sway workspace that identity was last seen on, so
windows return to their workspace after the application or the window
manager restarts.

The agent daemon owns identities and watches windows; it spawns the host
helper, which talks to the window manager. The remaining commands inspect
or nudge the running agent over its control socket.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"config file (default ~/.config/wsanchor/config.yaml)")
}

// loadConfig honors the --config flag, falling back to the standard path.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromPath(configPath)
	}
	return config.Load()
}

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wsanchor/wsanchor/internal/control"
	"github.com/wsanchor/wsanchor/internal/identity"
)

var (
	windowsJSON bool
	windowsLive bool
)

var windowsCmd = &cobra.Command{
	Use:   "windows",
	Short: "List tracked windows",
	Long: `List every tracked window identity with its recorded workspace. Stored
identities whose window has closed are listed too; --live hides them.`,
	Args: cobra.NoArgs,
	RunE: runWindows,
}

func init() {
	rootCmd.AddCommand(windowsCmd)
	windowsCmd.Flags().BoolVar(&windowsJSON, "json", false, "print as JSON")
	windowsCmd.Flags().BoolVar(&windowsLive, "live", false, "only windows currently on screen")
}

func runWindows(_ *cobra.Command, _ []string) error {
	windows, err := control.NewClient().Windows()
	if err != nil {
		return err
	}

	if windowsLive {
		live := make([]identity.WindowStatus, 0, len(windows))
		for _, w := range windows {
			if w.Live {
				live = append(live, w)
			}
		}
		windows = live
	}

	if windowsJSON {
		data, err := json.MarshalIndent(windows, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	if len(windows) == 0 {
		fmt.Println("no tracked windows")
		return nil
	}

	fmt.Printf("%-12s %-38s %-18s %-5s %s\n", "WINDOW", "IDENTITY", "WORKSPACE", "LIVE", "TITLE")
	for _, w := range windows {
		workspace := w.Workspace
		if workspace == "" {
			workspace = "-"
		}
		fmt.Printf("0x%-10x %-38s %-18s %-5v %s\n",
			w.Handle, w.Identity, workspace, w.Live, w.Title)
	}
	return nil
}

package tui

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/wsanchor/wsanchor/internal/config"
)

// RunSetup walks through the handful of choices a first run needs and
// writes the config file. Existing values are offered as defaults.
func RunSetup(path string) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("setup requires an interactive terminal")
	}

	if path == "" {
		var err error
		path, err = config.DefaultConfigPath()
		if err != nil {
			return err
		}
	}

	cfg, err := config.LoadFromPath(path)
	if err != nil {
		// A broken file must not lock the user out of the wizard.
		cfg = config.DefaultConfig()
	}

	classes := strings.Join(cfg.App.Classes, ", ")
	storePath := cfg.Store.Path
	wmSocket := cfg.WM.Socket
	logLevel := cfg.Log.Level
	syncInterval := ""
	if cfg.Agent.SyncInterval.Std() > 0 {
		syncInterval = cfg.Agent.SyncInterval.Std().String()
	}
	confirmed := true

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Tracked window classes").
				Description("WM_CLASS values of the application to anchor, comma separated").
				Validate(func(s string) error {
					if len(splitClasses(s)) == 0 {
						return fmt.Errorf("at least one class is required")
					}
					return nil
				}).
				Value(&classes),

			huh.NewInput().
				Title("Window store").
				Description("SQLite file holding window identities; empty uses the default data directory").
				Value(&storePath),

			huh.NewInput().
				Title("i3/sway socket").
				Description("Explicit IPC socket path; empty discovers it from the environment").
				Value(&wmSocket),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Log level").
				Options(
					huh.NewOption("debug", "debug"),
					huh.NewOption("info", "info"),
					huh.NewOption("warn", "warn"),
					huh.NewOption("error", "error"),
				).
				Value(&logLevel),

			huh.NewInput().
				Title("Periodic sync").
				Description("Full sync interval such as 5m; empty syncs only on window events").
				Validate(validateInterval).
				Value(&syncInterval),

			huh.NewConfirm().
				Title(fmt.Sprintf("Write %s?", path)).
				Value(&confirmed),
		),
	)

	if err := form.Run(); err != nil {
		return fmt.Errorf("setup aborted: %w", err)
	}
	if !confirmed {
		return nil
	}

	cfg.App.Classes = splitClasses(classes)
	cfg.Store.Path = strings.TrimSpace(storePath)
	cfg.WM.Socket = strings.TrimSpace(wmSocket)
	cfg.Log.Level = logLevel
	cfg.Agent.SyncInterval = 0
	if s := strings.TrimSpace(syncInterval); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid sync interval: %w", err)
		}
		cfg.Agent.SyncInterval = config.Duration(d)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.SaveTo(path); err != nil {
		return err
	}

	fmt.Printf("wrote %s\n", path)
	return nil
}

// splitClasses parses a comma separated class list, dropping empty entries.
func splitClasses(s string) []string {
	parts := strings.Split(s, ",")
	classes := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			classes = append(classes, p)
		}
	}
	return classes
}

func validateInterval(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("not a duration: %v", err)
	}
	if d < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}

package config

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from "100ms"-style strings in
// YAML and environment variables.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err == nil {
		*d = Duration(time.Duration(n))
		return nil
	}
	return fmt.Errorf("invalid duration value")
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalText lets envconfig parse duration overrides.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// AppConfig identifies the tracked application.
type AppConfig struct {
	// Classes lists WM_CLASS values whose windows are tracked.
	Classes []string `yaml:"classes" envconfig:"APP_CLASSES"`
}

// StoreConfig locates the identity store.
type StoreConfig struct {
	// Path to the sqlite database. Empty selects the default data dir.
	Path string `yaml:"path" envconfig:"STORE_PATH"`
}

// HostConfig controls the host subprocess the agent spawns.
type HostConfig struct {
	// Command is the argv used to start the host. Empty runs the current
	// executable with the "host" subcommand.
	Command      []string `yaml:"command" envconfig:"HOST_COMMAND"`
	RespawnDelay Duration `yaml:"respawn_delay" envconfig:"HOST_RESPAWN_DELAY"`
}

// WMConfig controls the window-manager transport.
type WMConfig struct {
	// Socket pins the i3/sway IPC socket path. Empty uses discovery.
	Socket string `yaml:"socket" envconfig:"WM_SOCKET"`
	// SettleDelay is the pause before reading the tree during correlation,
	// giving freshly written title markers time to propagate.
	SettleDelay Duration `yaml:"settle_delay" envconfig:"WM_SETTLE_DELAY"`
	// RetryDelay is the pause between reconnection attempts.
	RetryDelay Duration `yaml:"retry_delay" envconfig:"WM_RETRY_DELAY"`
}

// AgentConfig controls the agent daemon.
type AgentConfig struct {
	// SyncInterval triggers periodic full syncs. Zero disables them.
	SyncInterval Duration `yaml:"sync_interval" envconfig:"AGENT_SYNC_INTERVAL"`
}

// LogConfig controls logging for both daemons.
type LogConfig struct {
	Level string `yaml:"level" envconfig:"LOG_LEVEL"`
	// File receives host logs. The host must keep stdout clean for protocol
	// frames; empty selects a file under the state directory.
	File string `yaml:"file" envconfig:"LOG_FILE"`
}

// Config is the root configuration.
type Config struct {
	App   AppConfig   `yaml:"app"`
	Store StoreConfig `yaml:"store"`
	Host  HostConfig  `yaml:"host"`
	WM    WMConfig    `yaml:"wm"`
	Agent AgentConfig `yaml:"agent"`
	Log   LogConfig   `yaml:"log"`
}

// ValidationError reports an invalid configuration value with its YAML path.
type ValidationError struct {
	Path string
	Err  error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Classes: []string{"firefox"},
		},
		Store: StoreConfig{},
		Host: HostConfig{
			RespawnDelay: Duration(time.Second),
		},
		WM: WMConfig{
			SettleDelay: Duration(100 * time.Millisecond),
			RetryDelay:  Duration(100 * time.Millisecond),
		},
		Agent: AgentConfig{},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks the configuration for values the daemons cannot run with.
func (c *Config) Validate() error {
	if len(c.App.Classes) == 0 {
		return &ValidationError{Path: "app.classes", Err: fmt.Errorf("at least one window class is required")}
	}
	for _, class := range c.App.Classes {
		if strings.TrimSpace(class) == "" {
			return &ValidationError{Path: "app.classes", Err: fmt.Errorf("window classes must not be empty")}
		}
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return &ValidationError{Path: "log.level", Err: fmt.Errorf("log level must be one of: debug, info, warn, error")}
	}
	if c.Host.RespawnDelay < 0 {
		return &ValidationError{Path: "host.respawn_delay", Err: fmt.Errorf("respawn_delay must be >= 0")}
	}
	if c.WM.SettleDelay < 0 {
		return &ValidationError{Path: "wm.settle_delay", Err: fmt.Errorf("settle_delay must be >= 0")}
	}
	if c.WM.RetryDelay < 0 {
		return &ValidationError{Path: "wm.retry_delay", Err: fmt.Errorf("retry_delay must be >= 0")}
	}
	if c.Agent.SyncInterval < 0 {
		return &ValidationError{Path: "agent.sync_interval", Err: fmt.Errorf("sync_interval must be >= 0")}
	}
	return nil
}

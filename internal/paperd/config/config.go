// Package config provides configuration management for the paperd renderer
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "30s"
// as well as bare nanosecond integers
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
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
		*d = Duration(n)
		return nil
	}
	return fmt.Errorf("invalid duration %q", value.Value)
}

// Config holds all configuration for the renderer daemon
type Config struct {
	Panel    PanelConfig    `yaml:"panel"`
	Content  ContentConfig  `yaml:"content"`
	Mailbox  MailboxConfig  `yaml:"mailbox"`
	Store    StoreConfig    `yaml:"store"`
	Display  DisplayConfig  `yaml:"display"`
	Timing   TimingConfig   `yaml:"timing"`
	Playlist PlaylistConfig `yaml:"playlist"`
}

// PanelConfig selects and wires the e-paper panel
type PanelConfig struct {
	// Variant names the panel driver; "memory" selects the in-memory panel
	Variant  string `yaml:"variant"`
	SPIPort  string `yaml:"spiPort"`
	DCPin    string `yaml:"dcPin"`
	ResetPin string `yaml:"resetPin"`
	BusyPin  string `yaml:"busyPin"`
}

// ContentConfig holds watched-folder settings
type ContentConfig struct {
	WatchDir string `yaml:"watchDir"`
	// InitialFile, when set, is displayed at startup as an explicit selection
	InitialFile string `yaml:"initialFile"`
}

// MailboxConfig holds command mailbox settings
type MailboxConfig struct {
	Dir string `yaml:"dir"`
}

// StoreConfig holds the settings database location shared with the front end
type StoreConfig struct {
	Path string `yaml:"path"`
}

// DisplayConfig holds presentation settings
type DisplayConfig struct {
	Orientation string `yaml:"orientation"`
	AutoDisplay bool   `yaml:"autoDisplay"`
}

// TimingConfig holds the refresh protection policy
type TimingConfig struct {
	ThrottleEnabled     bool     `yaml:"throttleEnabled"`
	MinInterval         Duration `yaml:"minInterval"`
	StartupTimerEnabled bool     `yaml:"startupTimerEnabled"`
	StartupDelay        Duration `yaml:"startupDelay"`
	RefreshTimerEnabled bool     `yaml:"refreshTimerEnabled"`
	RefreshInterval     Duration `yaml:"refreshInterval"`
	SleepMode           bool     `yaml:"sleepMode"`
	ClearOnStart        bool     `yaml:"clearOnStart"`
	ClearOnExit         bool     `yaml:"clearOnExit"`
}

// PlaylistConfig holds rotation settings
type PlaylistConfig struct {
	Enabled          bool     `yaml:"enabled"`
	RotationInterval Duration `yaml:"rotationInterval"`
	// OverrideTimeout zero means a suspended rotation never resumes on its own
	OverrideTimeout Duration `yaml:"overrideTimeout"`
}

// Default returns the configuration used when a field is absent from the
// config file. YAML and environment values overlay these.
func Default() *Config {
	return &Config{
		Panel: PanelConfig{
			Variant: "memory",
		},
		Content: ContentConfig{
			WatchDir: "/var/lib/paperfeed/content",
		},
		Mailbox: MailboxConfig{
			Dir: "/var/lib/paperfeed/mailbox",
		},
		Store: StoreConfig{
			Path: "/var/lib/paperfeed/paperfeed.db",
		},
		Display: DisplayConfig{
			Orientation: "landscape",
			AutoDisplay: true,
		},
		Timing: TimingConfig{
			ThrottleEnabled:     true,
			MinInterval:         Duration(30 * time.Second),
			StartupTimerEnabled: true,
			StartupDelay:        Duration(60 * time.Second),
			RefreshTimerEnabled: true,
			RefreshInterval:     Duration(24 * time.Hour),
			SleepMode:           true,
			ClearOnStart:        false,
			ClearOnExit:         true,
		},
		Playlist: PlaylistConfig{
			Enabled:          false,
			RotationInterval: Duration(time.Hour),
			OverrideTimeout:  Duration(30 * time.Minute),
		},
	}
}

// overlayEnv overlays environment variables on top of file-based config
func (c *Config) overlayEnv() {
	// Panel config
	if variant := getEnv("PAPERD_PANEL_VARIANT", ""); variant != "" {
		c.Panel.Variant = variant
	}
	if port := getEnv("PAPERD_PANEL_SPI_PORT", ""); port != "" {
		c.Panel.SPIPort = port
	}
	if pin := getEnv("PAPERD_PANEL_DC_PIN", ""); pin != "" {
		c.Panel.DCPin = pin
	}
	if pin := getEnv("PAPERD_PANEL_RESET_PIN", ""); pin != "" {
		c.Panel.ResetPin = pin
	}
	if pin := getEnv("PAPERD_PANEL_BUSY_PIN", ""); pin != "" {
		c.Panel.BusyPin = pin
	}

	// Content config
	if dir := getEnv("PAPERD_WATCH_DIR", ""); dir != "" {
		c.Content.WatchDir = dir
	}
	if file := getEnv("PAPERD_INITIAL_FILE", ""); file != "" {
		c.Content.InitialFile = file
	}

	// Mailbox and store config
	if dir := getEnv("PAPERD_MAILBOX_DIR", ""); dir != "" {
		c.Mailbox.Dir = dir
	}
	if path := getEnv("PAPERD_STORE_PATH", ""); path != "" {
		c.Store.Path = path
	}

	// Display config
	if orientation := getEnv("PAPERD_ORIENTATION", ""); orientation != "" {
		c.Display.Orientation = orientation
	}
	if auto, ok := getEnvAsBool("PAPERD_AUTO_DISPLAY"); ok {
		c.Display.AutoDisplay = auto
	}

	// Timing config
	if enabled, ok := getEnvAsBool("PAPERD_THROTTLE_ENABLED"); ok {
		c.Timing.ThrottleEnabled = enabled
	}
	if interval := getEnvAsDuration("PAPERD_MIN_INTERVAL", 0); interval != 0 {
		c.Timing.MinInterval = Duration(interval)
	}
	if enabled, ok := getEnvAsBool("PAPERD_STARTUP_TIMER_ENABLED"); ok {
		c.Timing.StartupTimerEnabled = enabled
	}
	if delay := getEnvAsDuration("PAPERD_STARTUP_DELAY", 0); delay != 0 {
		c.Timing.StartupDelay = Duration(delay)
	}
	if enabled, ok := getEnvAsBool("PAPERD_REFRESH_TIMER_ENABLED"); ok {
		c.Timing.RefreshTimerEnabled = enabled
	}
	if interval := getEnvAsDuration("PAPERD_REFRESH_INTERVAL", 0); interval != 0 {
		c.Timing.RefreshInterval = Duration(interval)
	}
	if sleep, ok := getEnvAsBool("PAPERD_SLEEP_MODE"); ok {
		c.Timing.SleepMode = sleep
	}

	// Playlist config
	if enabled, ok := getEnvAsBool("PAPERD_PLAYLIST_ENABLED"); ok {
		c.Playlist.Enabled = enabled
	}
	if interval := getEnvAsDuration("PAPERD_ROTATION_INTERVAL", 0); interval != 0 {
		c.Playlist.RotationInterval = Duration(interval)
	}
	if timeout := getEnvAsDuration("PAPERD_OVERRIDE_TIMEOUT", 0); timeout != 0 {
		c.Playlist.OverrideTimeout = Duration(timeout)
	}
}

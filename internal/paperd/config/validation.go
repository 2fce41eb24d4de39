package config

import (
	"fmt"
	"time"
)

var validOrientations = map[string]bool{
	"landscape":         true,
	"portrait":          true,
	"landscape-flipped": true,
	"portrait-flipped":  true,
}

func (c *Config) validate() error {
	if c.Panel.Variant == "" {
		return fmt.Errorf("panel variant is required")
	}
	if c.Content.WatchDir == "" {
		return fmt.Errorf("watched folder path is required")
	}
	if c.Mailbox.Dir == "" {
		return fmt.Errorf("mailbox directory is required")
	}
	if !validOrientations[c.Display.Orientation] {
		return fmt.Errorf("invalid orientation: %q", c.Display.Orientation)
	}
	if c.Timing.ThrottleEnabled && c.Timing.MinInterval < Duration(time.Second) {
		return fmt.Errorf("minimum interval must be at least 1 second")
	}
	if c.Timing.StartupTimerEnabled && c.Timing.StartupDelay < Duration(time.Second) {
		return fmt.Errorf("startup delay must be at least 1 second")
	}
	if c.Timing.RefreshTimerEnabled && c.Timing.RefreshInterval < Duration(time.Minute) {
		return fmt.Errorf("refresh interval must be at least 1 minute")
	}
	if c.Playlist.Enabled && c.Playlist.RotationInterval < Duration(10*time.Second) {
		return fmt.Errorf("rotation interval must be at least 10 seconds")
	}
	if c.Playlist.OverrideTimeout < 0 {
		return fmt.Errorf("override timeout cannot be negative")
	}
	return nil
}

// Package config provides configuration management for the paperctl CLI
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds the CLI configuration
type Config struct {
	// MailboxDir is the renderer's command mailbox directory
	MailboxDir string `mapstructure:"mailbox-dir"`
	// ContentDir is the watched content folder
	ContentDir string `mapstructure:"content-dir"`
	// ResponseTimeout bounds the wait for a renderer response
	ResponseTimeout time.Duration `mapstructure:"response-timeout"`
}

// defaultConfigPath returns the default config file path
func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".paperctl/config.yaml"
	}
	return filepath.Join(home, ".paperctl/config.yaml")
}

// Load loads the configuration from disk, creating a default file on first
// use
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("PAPERCTL_CONFIG")
	}
	if path == "" {
		path = defaultConfigPath()
	}

	viper.SetDefault("mailbox-dir", "/var/lib/paperfeed/mailbox")
	viper.SetDefault("content-dir", "/var/lib/paperfeed/content")
	viper.SetDefault("response-timeout", 90*time.Second)

	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			configDir := filepath.Dir(path)
			if err := os.MkdirAll(configDir, 0o755); err != nil {
				return nil, fmt.Errorf("error creating config directory: %w", err)
			}
			if err := viper.SafeWriteConfig(); err != nil {
				return nil, fmt.Errorf("error writing default config: %w", err)
			}
		} else {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return &config, nil
}

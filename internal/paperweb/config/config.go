// Package config provides configuration management for the paperweb front end
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
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

// Config holds all configuration for the upload front end
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Content   ContentConfig   `yaml:"content"`
	Mailbox   MailboxConfig   `yaml:"mailbox"`
	Store     StoreConfig     `yaml:"store"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host         string   `yaml:"host"`
	Port         int      `yaml:"port"`
	ReadTimeout  Duration `yaml:"readTimeout"`
	WriteTimeout Duration `yaml:"writeTimeout"`
	IdleTimeout  Duration `yaml:"idleTimeout"`
}

// ContentConfig holds upload handling settings
type ContentConfig struct {
	// WatchDir is the folder shared with the renderer
	WatchDir string `yaml:"watchDir"`
	// MaxUploadSize bounds a single upload in bytes
	MaxUploadSize int64 `yaml:"maxUploadSize"`
}

// MailboxConfig holds command mailbox settings
type MailboxConfig struct {
	Dir string `yaml:"dir"`
	// ResponseTimeout bounds the wait for a renderer response
	ResponseTimeout Duration `yaml:"responseTimeout"`
}

// StoreConfig holds the settings database location shared with the renderer
type StoreConfig struct {
	Path string `yaml:"path"`
}

// RateLimitConfig selects the rate limit backend. An empty Redis address
// selects the in-process store.
type RateLimitConfig struct {
	Enabled   bool   `yaml:"enabled"`
	RedisAddr string `yaml:"redisAddr"`
}

// Default returns the configuration used when a field is absent from the
// config file
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "",
			Port:         8080,
			ReadTimeout:  Duration(30 * time.Second),
			WriteTimeout: Duration(60 * time.Second),
			IdleTimeout:  Duration(120 * time.Second),
		},
		Content: ContentConfig{
			WatchDir:      "/var/lib/paperfeed/content",
			MaxUploadSize: 32 << 20,
		},
		Mailbox: MailboxConfig{
			Dir:             "/var/lib/paperfeed/mailbox",
			ResponseTimeout: Duration(90 * time.Second),
		},
		Store: StoreConfig{
			Path: "/var/lib/paperfeed/paperfeed.db",
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
		},
	}
}

// LoadFile loads configuration from a YAML file, overlaying defaults. An
// empty path yields the defaults with environment overlays applied.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if !strings.HasSuffix(strings.ToLower(path), ".yaml") && !strings.HasSuffix(strings.ToLower(path), ".yml") {
			return nil, fmt.Errorf("config file must have .yaml or .yml extension")
		}
		data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied path
		if err != nil {
			return nil, fmt.Errorf("error accessing config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	cfg.overlayEnv()
	return cfg, cfg.validate()
}

func (c *Config) overlayEnv() {
	if host, ok := os.LookupEnv("PAPERWEB_HOST"); ok {
		c.Server.Host = host
	}
	if port := os.Getenv("PAPERWEB_PORT"); port != "" {
		if parsed, err := strconv.Atoi(port); err == nil {
			c.Server.Port = parsed
		}
	}
	if dir := os.Getenv("PAPERWEB_WATCH_DIR"); dir != "" {
		c.Content.WatchDir = dir
	}
	if size := os.Getenv("PAPERWEB_MAX_UPLOAD_SIZE"); size != "" {
		if parsed, err := strconv.ParseInt(size, 10, 64); err == nil {
			c.Content.MaxUploadSize = parsed
		}
	}
	if dir := os.Getenv("PAPERWEB_MAILBOX_DIR"); dir != "" {
		c.Mailbox.Dir = dir
	}
	if timeout := os.Getenv("PAPERWEB_RESPONSE_TIMEOUT"); timeout != "" {
		if parsed, err := time.ParseDuration(timeout); err == nil {
			c.Mailbox.ResponseTimeout = Duration(parsed)
		}
	}
	if path := os.Getenv("PAPERWEB_STORE_PATH"); path != "" {
		c.Store.Path = path
	}
	if addr := os.Getenv("PAPERWEB_REDIS_ADDR"); addr != "" {
		c.RateLimit.RedisAddr = addr
	}
	if enabled := os.Getenv("PAPERWEB_RATELIMIT_ENABLED"); enabled != "" {
		if parsed, err := strconv.ParseBool(enabled); err == nil {
			c.RateLimit.Enabled = parsed
		}
	}
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Content.WatchDir == "" {
		return fmt.Errorf("watched folder path is required")
	}
	if c.Content.MaxUploadSize < 1024 {
		return fmt.Errorf("max upload size must be at least 1KB")
	}
	if c.Mailbox.Dir == "" {
		return fmt.Errorf("mailbox directory is required")
	}
	if c.Mailbox.ResponseTimeout < Duration(time.Second) {
		return fmt.Errorf("response timeout must be at least 1 second")
	}
	return nil
}

package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// allowedExtensions lists the allowed config file extensions
var allowedExtensions = []string{".yaml", ".yml"}

// LoadFile loads configuration from a YAML file, overlaying defaults. An
// empty path yields the defaults with environment overlays applied.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		validExt := false
		for _, ext := range allowedExtensions {
			if strings.HasSuffix(strings.ToLower(path), ext) {
				validExt = true
				break
			}
		}
		if !validExt {
			return nil, fmt.Errorf("config file must have .yaml or .yml extension")
		}

		fi, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing config file: %w", err)
		}
		if !fi.Mode().IsRegular() {
			return nil, fmt.Errorf("config path must be a regular file")
		}

		data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied path
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	cfg.overlayEnv()
	return cfg, cfg.validate()
}

// Package config loads CLI defaults from ~/.config/gridpaper/config.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds defaults that flags and report descriptors override.
type Config struct {
	// Default drawing backend (canvas, fpdf)
	Backend string `yaml:"backend,omitempty"`

	// Log handler format (text, json)
	LogFormat string `yaml:"log_format,omitempty"`

	// Report descriptor applied when --descriptor is not given
	Descriptor string `yaml:"descriptor,omitempty"`

	// Text for missing cells
	Placeholder string `yaml:"placeholder,omitempty"`

	// Listen address for `gridpaper serve`
	Addr string `yaml:"addr,omitempty"`
}

// configPathFunc can be overridden for testing.
var configPathFunc = defaultConfigPath

// SetConfigPathFunc sets the config path function for testing.
// Returns the original function so it can be restored.
func SetConfigPathFunc(fn func() (string, error)) func() (string, error) {
	orig := configPathFunc
	configPathFunc = fn
	return orig
}

func defaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "gridpaper", "config.yaml"), nil
}

// DefaultConfigPath returns ~/.config/gridpaper/config.yaml
func DefaultConfigPath() (string, error) {
	return configPathFunc()
}

// Load loads config from the default path, returns empty config if not found
func Load() (*Config, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return &Config{}, nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	// relative descriptor paths are resolved against the config directory
	if cfg.Descriptor != "" && !filepath.IsAbs(cfg.Descriptor) {
		cfg.Descriptor = filepath.Join(filepath.Dir(path), cfg.Descriptor)
	}
	return &cfg, nil
}

// SaveToPath writes the config, creating the directory if needed.
func (c *Config) SaveToPath(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

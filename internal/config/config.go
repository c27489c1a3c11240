package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/bamsammich/splitcp/internal/size"
)

// Config represents the optional splitcp configuration file.
type Config struct {
	Defaults DefaultsConfig `toml:"defaults"`
	Theme    ThemeConfig    `toml:"theme"`
}

// DefaultsConfig holds persistent flag defaults. Nil fields are unset.
type DefaultsConfig struct {
	Workers    *int    `toml:"workers"`
	BufferSize *string `toml:"buffer_size"`
	BWLimit    *string `toml:"bwlimit"`
	Verify     *bool   `toml:"verify"`
}

// ThemeConfig holds optional color overrides.
type ThemeConfig struct {
	Accent *string `toml:"accent"`
}

// Path returns the resolved path to the config file.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "splitcp", "config.toml")
}

// Load reads the config file from the XDG path. Returns a zero Config
// (no error) if the file does not exist. Config is always optional.
func Load() (Config, error) {
	path := Path()
	if path == "" {
		return Config{}, nil
	}
	return LoadFile(path)
}

// LoadFile reads and validates the config file at path. A missing file
// yields a zero Config.
func LoadFile(path string) (Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	d := c.Defaults
	if d.Workers != nil && *d.Workers < 1 {
		return fmt.Errorf("defaults.workers must be at least 1, got %d", *d.Workers)
	}
	if d.BufferSize != nil {
		n, err := size.Parse(*d.BufferSize)
		if err != nil {
			return fmt.Errorf("defaults.buffer_size: %w", err)
		}
		if n < 1 {
			return fmt.Errorf("defaults.buffer_size must be positive")
		}
	}
	if d.BWLimit != nil {
		if _, err := size.Parse(*d.BWLimit); err != nil {
			return fmt.Errorf("defaults.bwlimit: %w", err)
		}
	}
	return nil
}

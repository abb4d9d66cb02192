// Package config resolves the runtime configuration of propath.
//
// Precedence, highest first: command-line flags, environment variables
// (optionally seeded from a .env file), the YAML config file, defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"propath/internal/search"
)

// Config is the resolved runtime configuration.
type Config struct {
	Root              string        `yaml:"stec_root"`
	Addr              string        `yaml:"address"`
	LogLevel          string        `yaml:"log_level"`
	ExcludeExtensions []string      `yaml:"exclude_extensions"`
	RequireExtension  bool          `yaml:"require_extension"`
	SearchTimeout     time.Duration `yaml:"search_timeout"`
	WatchManifest     bool          `yaml:"watch_manifest"`
	FindRateLimit     int           `yaml:"find_rate_limit"` // requests per minute per client, 0 disables
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() Config {
	return Config{
		Addr:              "127.0.0.1:8000",
		LogLevel:          "info",
		ExcludeExtensions: append([]string(nil), search.DefaultExcludeExtensions...),
		SearchTimeout:     30 * time.Second,
		WatchManifest:     true,
		FindRateLimit:     120,
	}
}

// SearchOptions converts the configuration into search engine options.
func (c Config) SearchOptions() search.Options {
	return search.Options{
		ExcludeExtensions: append([]string(nil), c.ExcludeExtensions...),
		RequireExtension:  c.RequireExtension,
	}
}

// ErrNoRoot is returned when no stec root was configured.
var ErrNoRoot = errors.New("no stec root configured (use --root, STEC_ROOT or stec_root in the config file)")

// Validate checks that the configuration can be served.
func Validate(c Config) error {
	if c.Root == "" {
		return ErrNoRoot
	}
	info, err := os.Stat(c.Root)
	if err != nil {
		return fmt.Errorf("stec root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("stec root %s is not a directory", c.Root)
	}
	if c.Addr == "" {
		return errors.New("listen address is empty")
	}
	if c.SearchTimeout < 0 {
		return fmt.Errorf("search timeout must not be negative, got %s", c.SearchTimeout)
	}
	if c.FindRateLimit < 0 {
		return fmt.Errorf("find rate limit must not be negative, got %d", c.FindRateLimit)
	}
	return nil
}

// absRoot makes the configured root absolute so resolved paths are too.
func absRoot(c *Config) error {
	if c.Root == "" {
		return nil
	}
	abs, err := filepath.Abs(c.Root)
	if err != nil {
		return fmt.Errorf("stec root: %w", err)
	}
	c.Root = abs
	return nil
}

// Package config loads memctl settings from MEMKIT_* environment variables.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/kelseyhightower/envconfig"

	"github.com/joshuapare/memkit/mem/raw"
)

const envPrefix = "MEMKIT"

// Provider names accepted in MEMKIT_PROVIDER.
const (
	ProviderHeap = "heap"
	ProviderMmap = "mmap"
)

// Config holds the environment-driven settings.
type Config struct {
	// Provider selects the raw memory provider: "heap" or "mmap".
	Provider string `envconfig:"PROVIDER" default:"heap"`

	// Limit caps live bytes for the heap provider; 0 means unlimited.
	Limit int64 `envconfig:"LIMIT" default:"0"`

	// LogLevel is the minimum level written when file logging is enabled.
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads MEMKIT_* variables over the defaults.
func Load() (Config, error) {
	var c Config
	if err := envconfig.Process(envPrefix, &c); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return c, nil
}

// NewProvider builds the configured raw provider.
func (c Config) NewProvider() (raw.Provider, error) {
	switch strings.ToLower(c.Provider) {
	case ProviderHeap, "":
		return raw.NewHeap(c.Limit), nil
	case ProviderMmap:
		m, err := raw.NewMmap()
		if err != nil {
			return nil, fmt.Errorf("config: mmap provider: %w", err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("config: unknown provider %q (want %q or %q)",
			c.Provider, ProviderHeap, ProviderMmap)
	}
}

// Level parses LogLevel, falling back to info.
func (c Config) Level() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

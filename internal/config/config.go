// Package config loads the pool's YAML configuration file: how many frames
// to allocate and at what macroblock resolution, plus the log level for the
// slog handler the pool logs through.
package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// PoolConfig is the on-disk configuration for a framepool.Pool.
type PoolConfig struct {
	NumFrames int    `yaml:"num_frames"`
	MBWidth   int    `yaml:"mb_width"`
	MBHeight  int    `yaml:"mb_height"`
	LogLevel  string `yaml:"log_level"` // debug, info, warn, error; default info
}

// Load reads and parses a YAML configuration file, then validates it.
func Load(path string) (*PoolConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg PoolConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// SlogLevel translates LogLevel into a slog.Level. "info", an empty value
// and an unrecognized value all map to Info (after Validate, LogLevel is
// never empty or unrecognized).
func (c *PoolConfig) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

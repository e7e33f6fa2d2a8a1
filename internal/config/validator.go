package config

import "fmt"

// Validate checks PoolConfig for values the pool cannot start with (zero or
// negative frame count and macroblock dimensions are rejected), and fills in
// "info" when LogLevel is left empty.
func Validate(cfg *PoolConfig) error {
	if cfg.NumFrames <= 0 {
		return fmt.Errorf("num_frames must be > 0")
	}
	if cfg.MBWidth <= 0 {
		return fmt.Errorf("mb_width must be > 0")
	}
	if cfg.MBHeight <= 0 {
		return fmt.Errorf("mb_height must be > 0")
	}

	switch cfg.LogLevel {
	case "", "debug", "info", "warn", "error":
		if cfg.LogLevel == "" {
			cfg.LogLevel = "info"
		}
	default:
		return fmt.Errorf("log_level must be one of debug/info/warn/error, got %q", cfg.LogLevel)
	}

	return nil
}

package polling

import (
	"os"
	"time"
)

// Config holds the polling configuration
type Config struct {
	Interval time.Duration
}

// NewConfig returns a config using def, overridden by the duration in the
// environment variable env (format like "5m", "1h", "30s") when it parses.
func NewConfig(env string, def time.Duration) *Config {
	if intervalStr := os.Getenv(env); intervalStr != "" {
		interval, err := time.ParseDuration(intervalStr)
		if err == nil && interval > 0 {
			return &Config{Interval: interval}
		}
	}
	return &Config{Interval: def}
}

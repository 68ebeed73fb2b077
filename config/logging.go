package config

import (
	"fmt"
	"strings"
)

// LoggingConfig defines log verbosity.
type LoggingConfig struct {
	// Level is one of trace, debug, info, warn, error or disabled.
	Level string `json:"level"`
}

// SetDefaults applies sane defaults.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
}

// Validate checks the level name.
func (c LoggingConfig) Validate() error {
	switch strings.ToLower(c.Level) {
	case "trace", "debug", "info", "warn", "error", "disabled":
		return nil
	}
	return fmt.Errorf("unknown log level %s", c.Level)
}

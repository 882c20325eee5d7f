package config

import (
	"os"
	"time"
)

// Default values for configuration.
const (
	DefaultOutput         = "text"
	DefaultTopAuthors     = 5
	DefaultServerAddr     = ":8080"
	DefaultMaxUploadBytes = 32 << 20
	DefaultWebhookTimeout = 10 * time.Second
)

// Environment variable names.
const (
	EnvTimezone = "CHATWRAP_TIMEZONE"
	EnvOutput   = "CHATWRAP_OUTPUT"
)

// Output formats.
const (
	OutputText = "text"
	OutputJSON = "json"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Output:     DefaultOutput,
		TopAuthors: DefaultTopAuthors,
		Server: ServerConfig{
			Addr:           DefaultServerAddr,
			MaxUploadBytes: DefaultMaxUploadBytes,
		},
	}
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
func (c *Config) applyEnvironmentOverrides() {
	if tz := os.Getenv(EnvTimezone); tz != "" {
		c.Timezone = tz
	}
	if out := os.Getenv(EnvOutput); out != "" {
		c.Output = out
	}
}

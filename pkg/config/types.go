// Package config provides profile loading and validation for chatwrap.
package config

import (
	"time"
)

// Config is the root configuration structure loaded from YAML.
type Config struct {
	// Timezone is the IANA zone that export wall-clock times are read in.
	// Empty or "Local" means the host zone.
	Timezone string `yaml:"timezone,omitempty"`

	// Output is the default report format: text or json.
	Output string `yaml:"output,omitempty"`

	// TopAuthors is how many authors the text report lists.
	TopAuthors int `yaml:"top_authors,omitempty"`

	Server   ServerConfig    `yaml:"server,omitempty"`
	Webhooks []WebhookConfig `yaml:"webhooks,omitempty"`

	location *time.Location
}

// Location returns the zone resolved during validation, or time.Local if
// the config has not been validated.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

// ServerConfig configures the HTTP service.
type ServerConfig struct {
	Addr           string `yaml:"addr,omitempty"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes,omitempty"`
}

// WebhookTrigger determines when a webhook fires.
type WebhookTrigger string

const (
	// WebhookTriggerOnSuccess fires only when statistics were produced (default).
	WebhookTriggerOnSuccess WebhookTrigger = "on_success"
	// WebhookTriggerAlways fires after every analysis, including empty ones.
	WebhookTriggerAlways WebhookTrigger = "always"
	// WebhookTriggerNever disables the webhook.
	WebhookTriggerNever WebhookTrigger = "never"
)

// WebhookConfig defines a webhook endpoint for sending reports.
type WebhookConfig struct {
	// Name is an optional identifier for the webhook.
	Name string `yaml:"name,omitempty"`

	// URL is the webhook endpoint (required).
	URL string `yaml:"url"`

	// Token is an optional bearer token for authentication.
	Token string `yaml:"token,omitempty"`

	// Trigger determines when the webhook fires.
	// Defaults to "on_success" if not specified.
	Trigger WebhookTrigger `yaml:"trigger,omitempty"`

	// Timeout is the HTTP request timeout.
	// Defaults to 10s if not specified.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

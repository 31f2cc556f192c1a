// Package config handles YAML configuration loading, environment variable
// expansion, and validation for looma-agent.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Supported store drivers.
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	Store     StoreConfig     `yaml:"store"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Gemini    GeminiConfig    `yaml:"gemini"`
	Cron      CronConfig      `yaml:"cron"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// StoreConfig selects and configures the persistence driver.
type StoreConfig struct {
	// Driver is "sqlite" (default) or "memory".
	Driver string `yaml:"driver"`

	// Path is the SQLite database file. Ignored by the memory driver.
	Path string `yaml:"path"`
}

// GatewayConfig configures the HTTP gateway.
type GatewayConfig struct {
	// Bind is the listen address, e.g. ":8080".
	Bind string `yaml:"bind"`

	// WebhookSecret enables HMAC verification of message hooks when set.
	WebhookSecret string `yaml:"webhook_secret"`
}

// GeminiConfig configures the Gemini generation backend.
type GeminiConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// CronConfig configures background maintenance jobs.
type CronConfig struct {
	// DailyResetSchedule overrides the midnight counter reset, 5-field
	// cron syntax.
	DailyResetSchedule string `yaml:"daily_reset_schedule"`
}

// TelemetryConfig configures trace export.
type TelemetryConfig struct {
	// OTLPEndpoint is the OTLP/HTTP collector endpoint (host:port).
	// Tracing is disabled when empty.
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// defaults fills in zero-valued fields.
func (c *Config) defaults() {
	if c.Version == "" {
		c.Version = "1"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = DriverSQLite
	}
	if c.Store.Path == "" {
		c.Store.Path = "looma-agent.db"
	}
	if c.Gateway.Bind == "" {
		c.Gateway.Bind = ":8080"
	}
}

// validate checks the structural validity of the configuration. It returns
// all problems at once rather than the first one.
func (c *Config) validate() error {
	var errs []error

	if c.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", c.Version))
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("config: unknown log_level %q", c.LogLevel))
	}

	switch c.Store.Driver {
	case DriverSQLite, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("config: unknown store driver %q (supported: sqlite, memory)", c.Store.Driver))
	}

	if c.Store.Driver == DriverSQLite && c.Store.Path == "" {
		errs = append(errs, errors.New("config: store.path is required for the sqlite driver"))
	}

	if c.Gemini.Timeout < 0 {
		errs = append(errs, errors.New("config: gemini.timeout must not be negative"))
	}

	// gemini.api_key may be empty: the provider fails per call and the
	// pipeline degrades to silence rather than the service refusing to
	// start.

	return errors.Join(errs...)
}

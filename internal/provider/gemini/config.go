package gemini

import (
	"errors"
	"time"
)

// Generation parameters are fixed, not runtime-tunable: the persona is
// calibrated against them.
const (
	temperature     = 0.7
	maxOutputTokens = 1024
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-2.5-flash"
	defaultTimeout = 30 * time.Second
)

// Config holds the Gemini client settings.
type Config struct {
	// APIKey authenticates against the generative language API. An
	// empty key is allowed at construction; Generate fails with
	// ErrNoCredentials instead, so a misconfigured agent degrades to
	// silence rather than refusing to start.
	APIKey string `yaml:"api_key"`

	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

func (c *Config) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
}

func (c *Config) validate() error {
	if c.Model == "" {
		return errors.New("gemini: model is required")
	}
	if c.BaseURL == "" {
		return errors.New("gemini: base_url is required")
	}
	return nil
}

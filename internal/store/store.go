// Package store defines the persistence interfaces the agent pipeline
// depends on, plus thread-safe in-memory implementations. A SQLite-backed
// implementation lives in the sqlite subpackage.
package store

import (
	"context"
	"errors"

	"github.com/ronitrai27/looma-agent/pkg/message"
)

// Sentinel errors for store operations.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrNoConfig indicates settings were updated for a project that has
	// never had its agent enabled.
	ErrNoConfig = errors.New("store: agent config not found, enable the agent first")

	// ErrThresholdRange indicates an engagement threshold outside [0, 1].
	ErrThresholdRange = errors.New("store: engagement threshold must be between 0 and 1")
)

// Response frequency tiers. The tiers only matter once rate limiting is
// re-enabled; today they are carried through unchanged.
const (
	FrequencyConservative = "conservative"
	FrequencyModerate     = "moderate"
	FrequencyActive       = "active"
)

// ValidFrequency reports whether tier is a known frequency tier.
func ValidFrequency(tier string) bool {
	switch tier {
	case FrequencyConservative, FrequencyModerate, FrequencyActive:
		return true
	}
	return false
}

// AgentConfig holds the per-project agent settings and response counters.
// Counter updates are last-writer-wins patches; concurrent bumps can lose
// increments, which is an accepted limitation of the original design.
type AgentConfig struct {
	ProjectID           string  `json:"project_id"`
	Enabled             bool    `json:"enabled"`
	Frequency           string  `json:"response_frequency"`
	EngagementThreshold float64 `json:"engagement_threshold"`
	LastResponseAtMs    int64   `json:"last_response_at_ms,omitempty"`
	ResponsesToday      int     `json:"responses_today"`
	CreatedAtMs         int64   `json:"created_at_ms,omitempty"`
	UpdatedAtMs         int64   `json:"updated_at_ms,omitempty"`
}

// DefaultConfig is the config a project gets before anyone has touched the
// agent settings: disabled, moderate frequency, 0.5 threshold.
func DefaultConfig(projectID string) AgentConfig {
	return AgentConfig{
		ProjectID:           projectID,
		Enabled:             false,
		Frequency:           FrequencyModerate,
		EngagementThreshold: 0.5,
	}
}

// SettingsPatch is a partial update to an AgentConfig. Nil fields are
// left unchanged.
type SettingsPatch struct {
	Frequency           *string  `json:"response_frequency,omitempty"`
	EngagementThreshold *float64 `json:"engagement_threshold,omitempty"`
}

// AgentUser is the system-owned pseudo-user that authors generated
// messages. Exactly one exists per deployment.
type AgentUser struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	AvatarURL   string `json:"avatar_url"`
	CreatedAtMs int64  `json:"created_at_ms"`
}

// Fixed identity of the agent user. The email is the lookup key for the
// idempotent get-or-create.
const (
	AgentEmail     = "ai@looma.system"
	AgentName      = "AI Assistant"
	AgentAvatarURL = "https://api.dicebear.com/7.x/bottts/svg?seed=ai-assistant"
)

// MessageStore provides access to project chat messages. ListRecent is an
// internal, trusted read: no authorization is applied.
type MessageStore interface {
	// ListRecent returns up to limit of the newest messages for a
	// project, ordered oldest to newest.
	ListRecent(ctx context.Context, projectID string, limit int) ([]message.Message, error)

	// Insert persists a new message and returns its assigned ID.
	Insert(ctx context.Context, msg message.Message) (string, error)

	// Get returns the message with the given ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*message.Message, error)
}

// ConfigStore manages per-project agent configuration.
type ConfigStore interface {
	// Get returns the project's config, or DefaultConfig if none has
	// been created yet. It never returns ErrNotFound.
	Get(ctx context.Context, projectID string) (AgentConfig, error)

	// Toggle enables or disables the agent, creating the config with
	// defaults on first use.
	Toggle(ctx context.Context, projectID string, enabled bool) (AgentConfig, error)

	// UpdateSettings applies a partial settings update. Returns
	// ErrNoConfig if the project has no config yet, ErrThresholdRange
	// for an out-of-range threshold.
	UpdateSettings(ctx context.Context, projectID string, patch SettingsPatch) (AgentConfig, error)

	// BumpAfterResponse records a sent response: sets LastResponseAtMs
	// to now and increments ResponsesToday. A no-op if no config exists.
	BumpAfterResponse(ctx context.Context, projectID string) error

	// ResetDailyCounters zeroes ResponsesToday on every config and
	// returns the number of configs touched.
	ResetDailyCounters(ctx context.Context) (int, error)
}

// IdentityStore manages the agent's pseudo-user record.
type IdentityStore interface {
	// FindAgentUser returns the agent user, or ErrNotFound if it has
	// not been created yet.
	FindAgentUser(ctx context.Context) (*AgentUser, error)

	// CreateAgentUser creates the agent user with the fixed identity
	// constants and returns it.
	CreateAgentUser(ctx context.Context) (AgentUser, error)
}

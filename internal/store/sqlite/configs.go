package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ronitrai27/looma-agent/internal/store"
)

// configStore implements store.ConfigStore backed by SQLite.
type configStore struct {
	db  *sql.DB
	now func() int64
}

const configColumns = "project_id, enabled, frequency, engagement_threshold, last_response_at_ms, responses_today, created_at_ms, updated_at_ms"

// Get implements store.ConfigStore: returns the stored config or the
// default when the project has none.
func (s *configStore) Get(ctx context.Context, projectID string) (store.AgentConfig, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+configColumns+" FROM agent_configs WHERE project_id = ?", projectID)

	cfg, err := scanConfig(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.DefaultConfig(projectID), nil
	}
	if err != nil {
		return store.AgentConfig{}, fmt.Errorf("sqlite: get agent config: %w", err)
	}
	return cfg, nil
}

// Toggle implements store.ConfigStore. The config row is created with
// defaults on first use.
func (s *configStore) Toggle(ctx context.Context, projectID string, enabled bool) (store.AgentConfig, error) {
	nowMs := s.now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO agent_configs (project_id, enabled, frequency, engagement_threshold, created_at_ms, updated_at_ms)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id) DO UPDATE SET
			enabled = excluded.enabled,
			updated_at_ms = excluded.updated_at_ms`,
		projectID, boolToInt(enabled), store.FrequencyModerate, 0.5, nowMs, nowMs,
	)
	if err != nil {
		return store.AgentConfig{}, fmt.Errorf("sqlite: toggle agent: %w", err)
	}
	return s.Get(ctx, projectID)
}

// UpdateSettings implements store.ConfigStore.
func (s *configStore) UpdateSettings(ctx context.Context, projectID string, patch store.SettingsPatch) (store.AgentConfig, error) {
	if patch.EngagementThreshold != nil &&
		(*patch.EngagementThreshold < 0 || *patch.EngagementThreshold > 1) {
		return store.AgentConfig{}, store.ErrThresholdRange
	}

	row := s.db.QueryRowContext(ctx,
		"SELECT "+configColumns+" FROM agent_configs WHERE project_id = ?", projectID)
	cfg, err := scanConfig(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.AgentConfig{}, store.ErrNoConfig
	}
	if err != nil {
		return store.AgentConfig{}, fmt.Errorf("sqlite: read agent config: %w", err)
	}

	if patch.Frequency != nil {
		cfg.Frequency = *patch.Frequency
	}
	if patch.EngagementThreshold != nil {
		cfg.EngagementThreshold = *patch.EngagementThreshold
	}
	cfg.UpdatedAtMs = s.now()

	_, err = s.db.ExecContext(ctx, `
		UPDATE agent_configs
		SET frequency = ?, engagement_threshold = ?, updated_at_ms = ?
		WHERE project_id = ?`,
		cfg.Frequency, cfg.EngagementThreshold, cfg.UpdatedAtMs, projectID,
	)
	if err != nil {
		return store.AgentConfig{}, fmt.Errorf("sqlite: update agent settings: %w", err)
	}
	return cfg, nil
}

// BumpAfterResponse implements store.ConfigStore. A no-op when the project
// has no config row.
func (s *configStore) BumpAfterResponse(ctx context.Context, projectID string) error {
	nowMs := s.now()
	_, err := s.db.ExecContext(ctx, `
		UPDATE agent_configs
		SET last_response_at_ms = ?, responses_today = responses_today + 1, updated_at_ms = ?
		WHERE project_id = ?`,
		nowMs, nowMs, projectID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: bump response counters: %w", err)
	}
	return nil
}

// ResetDailyCounters implements store.ConfigStore.
func (s *configStore) ResetDailyCounters(ctx context.Context) (int, error) {
	result, err := s.db.ExecContext(ctx,
		"UPDATE agent_configs SET responses_today = 0, updated_at_ms = ?", s.now())
	if err != nil {
		return 0, fmt.Errorf("sqlite: reset daily counters: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: rows affected: %w", err)
	}
	return int(n), nil
}

func scanConfig(row rowScanner) (store.AgentConfig, error) {
	var (
		cfg     store.AgentConfig
		enabled int
	)
	if err := row.Scan(&cfg.ProjectID, &enabled, &cfg.Frequency, &cfg.EngagementThreshold,
		&cfg.LastResponseAtMs, &cfg.ResponsesToday, &cfg.CreatedAtMs, &cfg.UpdatedAtMs); err != nil {
		return store.AgentConfig{}, err
	}
	cfg.Enabled = enabled != 0
	return cfg, nil
}

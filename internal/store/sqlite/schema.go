package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaVersion = 1

// schemaStatements are executed in order to create the database schema.
// All use IF NOT EXISTS for idempotent re-application.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS messages (
		id            TEXT    PRIMARY KEY,
		project_id    TEXT    NOT NULL,
		author_id     TEXT    NOT NULL DEFAULT '',
		author_name   TEXT    NOT NULL DEFAULT '',
		text          TEXT    NOT NULL DEFAULT '',
		timestamp_ms  INTEGER NOT NULL,
		is_from_agent INTEGER NOT NULL DEFAULT 0,
		agent_meta    TEXT    NOT NULL DEFAULT ''
	)`,

	`CREATE INDEX IF NOT EXISTS idx_messages_project ON messages(project_id, timestamp_ms)`,

	`CREATE TABLE IF NOT EXISTS agent_configs (
		project_id           TEXT    PRIMARY KEY,
		enabled              INTEGER NOT NULL DEFAULT 0,
		frequency            TEXT    NOT NULL DEFAULT 'moderate',
		engagement_threshold REAL    NOT NULL DEFAULT 0.5,
		last_response_at_ms  INTEGER NOT NULL DEFAULT 0,
		responses_today      INTEGER NOT NULL DEFAULT 0,
		created_at_ms        INTEGER NOT NULL DEFAULT 0,
		updated_at_ms        INTEGER NOT NULL DEFAULT 0
	)`,

	`CREATE TABLE IF NOT EXISTS agent_users (
		id            TEXT PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		name          TEXT NOT NULL DEFAULT '',
		avatar_url    TEXT NOT NULL DEFAULT '',
		created_at_ms INTEGER NOT NULL DEFAULT 0
	)`,
}

// migrate creates or updates the database schema to the latest version.
// All DDL uses IF NOT EXISTS, making migration idempotent.
func migrate(db *sql.DB) error {
	ctx := context.TODO()

	// Ensure schema_version table exists first.
	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("sqlite: create schema_version: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("sqlite: read schema version: %w", err)
	}

	if current >= schemaVersion {
		return nil
	}

	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: migrate: %w\nstatement: %s", err, stmt)
		}
	}

	if _, err := db.ExecContext(ctx, "INSERT OR REPLACE INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("sqlite: record schema version: %w", err)
	}

	return nil
}

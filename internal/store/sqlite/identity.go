package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ronitrai27/looma-agent/internal/store"
)

// identityStore implements store.IdentityStore backed by SQLite. The
// agent_users email UNIQUE constraint makes creation idempotent even
// across processes.
type identityStore struct {
	db  *sql.DB
	now func() int64
}

// FindAgentUser implements store.IdentityStore.
func (s *identityStore) FindAgentUser(ctx context.Context) (*store.AgentUser, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, name, avatar_url, created_at_ms
		FROM agent_users WHERE email = ?`, store.AgentEmail)

	var user store.AgentUser
	err := row.Scan(&user.ID, &user.Email, &user.Name, &user.AvatarURL, &user.CreatedAtMs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: find agent user: %w", err)
	}
	return &user, nil
}

// CreateAgentUser implements store.IdentityStore.
func (s *identityStore) CreateAgentUser(ctx context.Context) (store.AgentUser, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO agent_users (id, email, name, avatar_url, created_at_ms)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(email) DO NOTHING`,
		newID("user"), store.AgentEmail, store.AgentName, store.AgentAvatarURL, s.now(),
	)
	if err != nil {
		return store.AgentUser{}, fmt.Errorf("sqlite: create agent user: %w", err)
	}

	user, err := s.FindAgentUser(ctx)
	if err != nil {
		return store.AgentUser{}, err
	}
	return *user, nil
}

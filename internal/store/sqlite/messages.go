package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ronitrai27/looma-agent/internal/store"
	"github.com/ronitrai27/looma-agent/pkg/message"
)

// messageStore implements store.MessageStore backed by SQLite.
type messageStore struct {
	db  *sql.DB
	now func() int64
}

const messageColumns = "id, project_id, author_id, author_name, text, timestamp_ms, is_from_agent, agent_meta"

// ListRecent implements store.MessageStore. The query fetches newest-first
// and the result is reversed so callers see oldest-first.
func (s *messageStore) ListRecent(ctx context.Context, projectID string, limit int) ([]message.Message, error) {
	q := "SELECT " + messageColumns + " FROM messages WHERE project_id = ? ORDER BY timestamp_ms DESC, id DESC"
	args := []any{projectID}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list recent messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	msgs, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// Insert implements store.MessageStore.
func (s *messageStore) Insert(ctx context.Context, msg message.Message) (string, error) {
	if msg.ID == "" {
		msg.ID = newID("msg")
	}
	if msg.TimestampMs == 0 {
		msg.TimestampMs = s.now()
	}

	metaJSON := ""
	if msg.AgentMeta != nil {
		b, err := json.Marshal(msg.AgentMeta)
		if err != nil {
			return "", fmt.Errorf("sqlite: marshal agent metadata: %w", err)
		}
		metaJSON = string(b)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, project_id, author_id, author_name, text, timestamp_ms, is_from_agent, agent_meta)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.ProjectID, msg.AuthorID, msg.AuthorName,
		msg.Text, msg.TimestampMs, boolToInt(msg.IsFromAgent), metaJSON,
	)
	if err != nil {
		return "", fmt.Errorf("sqlite: insert message: %w", err)
	}
	return msg.ID, nil
}

// Get implements store.MessageStore.
func (s *messageStore) Get(ctx context.Context, id string) (*message.Message, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+messageColumns+" FROM messages WHERE id = ?", id)

	msg, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return msg, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*message.Message, error) {
	var (
		msg         message.Message
		isFromAgent int
		metaJSON    string
	)
	if err := row.Scan(&msg.ID, &msg.ProjectID, &msg.AuthorID, &msg.AuthorName,
		&msg.Text, &msg.TimestampMs, &isFromAgent, &metaJSON); err != nil {
		return nil, err
	}
	msg.IsFromAgent = isFromAgent != 0

	if metaJSON != "" {
		var meta message.AgentMetadata
		if err := json.Unmarshal([]byte(metaJSON), &meta); err != nil {
			return nil, fmt.Errorf("sqlite: unmarshal agent metadata: %w", err)
		}
		msg.AgentMeta = &meta
	}
	return &msg, nil
}

func scanMessages(rows *sql.Rows) ([]message.Message, error) {
	var msgs []message.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan message: %w", err)
		}
		msgs = append(msgs, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: scan message rows: %w", err)
	}
	return msgs, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Package sqlite implements the store interfaces on a SQLite database
// using modernc.org/sqlite (pure Go, no CGO) with WAL mode. It is the
// default persistence driver.
package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ronitrai27/looma-agent/internal/store"

	_ "modernc.org/sqlite" // SQLite driver registration
)

// defaultBusyTimeout is the SQLite busy timeout in milliseconds.
const defaultBusyTimeout = 5000

// Compile-time interface guards.
var (
	_ store.MessageStore  = (*messageStore)(nil)
	_ store.ConfigStore   = (*configStore)(nil)
	_ store.IdentityStore = (*identityStore)(nil)
)

// DB bundles the three store implementations sharing one database handle.
type DB struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time

	messages   *messageStore
	configs    *configStore
	identities *identityStore
}

// Open opens (creating if needed) a SQLite database at the given path and
// migrates its schema.
//
// The database uses WAL mode, a 5 s busy timeout, and a single connection
// (SQLite serialises writes).
func Open(path string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("sqlite: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}

	// SQLite handles one writer at a time; limit pool to 1 connection
	// so PRAGMAs apply consistently.
	db.SetMaxOpenConns(1)

	ctx := context.TODO()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: enable WAL: %w", err)
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", defaultBusyTimeout)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: set busy_timeout: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	d := &DB{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
	d.messages = &messageStore{db: db, now: d.nowMs}
	d.configs = &configStore{db: db, now: d.nowMs}
	d.identities = &identityStore{db: db, now: d.nowMs}

	logger.Info("sqlite store opened", "path", path)
	return d, nil
}

// Close closes the underlying database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Messages returns the MessageStore implementation.
func (d *DB) Messages() store.MessageStore { return d.messages }

// Configs returns the ConfigStore implementation.
func (d *DB) Configs() store.ConfigStore { return d.configs }

// Identities returns the IdentityStore implementation.
func (d *DB) Identities() store.IdentityStore { return d.identities }

// SetClock replaces the clock used for timestamps. Only for testing.
func (d *DB) SetClock(now func() time.Time) { d.now = now }

func (d *DB) nowMs() int64 { return d.now().UnixMilli() }

// newID returns a random identifier with the given prefix.
func newID(prefix string) string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
	}
	return prefix + "_" + hex.EncodeToString(b[:])
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/claude/ironlog/internal/models"
	_ "modernc.org/sqlite"
)

// DB is the durable session store: a local SQLite database holding at most
// one serialized active session plus a minimized visibility flag. It exists
// so an in-progress workout survives process restarts.
type DB struct {
	db  *sql.DB
	log *slog.Logger
}

// Open opens (or creates) the session store at dir/session.db.
func Open(dir string, log *slog.Logger) (*DB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state dir %s: %w", dir, err)
	}

	dbPath := filepath.Join(dir, "session.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening session db: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS active_session (
		slot       INTEGER PRIMARY KEY CHECK (slot = 1),
		payload    BLOB NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS session_flags (
		name  TEXT PRIMARY KEY,
		value INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating session tables: %w", err)
	}

	return &DB{db: db, log: log}, nil
}

// SaveSession serializes the full session into the single slot. Called
// write-through on every engine mutation.
func (s *DB) SaveSession(ctx context.Context, sess *models.Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO active_session (slot, payload, updated_at)
		 VALUES (1, ?, CURRENT_TIMESTAMP)`, payload)
	if err != nil {
		return fmt.Errorf("writing session slot: %w", err)
	}
	return nil
}

// LoadSession reads the session slot. An absent or corrupt slot yields
// (nil, nil): no active session, never a crash.
func (s *DB) LoadSession(ctx context.Context) (*models.Session, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM active_session WHERE slot = 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session slot: %w", err)
	}

	var sess models.Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		s.log.Warn("discarding corrupt session slot", "error", err)
		return nil, nil
	}
	return &sess, nil
}

// ClearSession deletes the session slot and the minimized flag. Called on
// every terminal transition; no session record outlives it.
func (s *DB) ClearSession(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM active_session WHERE slot = 1`); err != nil {
		return fmt.Errorf("clearing session slot: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session_flags WHERE name = 'minimized'`); err != nil {
		return fmt.Errorf("clearing minimized flag: %w", err)
	}
	return nil
}

// SetMinimized records the visibility flag. Meaningful only while a
// session exists.
func (s *DB) SetMinimized(ctx context.Context, minimized bool) error {
	v := 0
	if minimized {
		v = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO session_flags (name, value) VALUES ('minimized', ?)`, v)
	if err != nil {
		return fmt.Errorf("writing minimized flag: %w", err)
	}
	return nil
}

// Minimized reads the visibility flag. Absent means not minimized.
func (s *DB) Minimized(ctx context.Context) (bool, error) {
	var v int
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM session_flags WHERE name = 'minimized'`).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading minimized flag: %w", err)
	}
	return v != 0, nil
}

// Close closes the session store.
func (s *DB) Close() error {
	return s.db.Close()
}

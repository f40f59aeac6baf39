package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Registers the pure-Go "sqlite" driver.
	_ "modernc.org/sqlite"

	"github.com/jsamuelsen/daily-quote/internal/domain"
)

const kvSchema = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at TEXT NOT NULL
)`

// SQLiteStore keeps every key as a row in a single-file SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database at path and creates the kv table.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range append(pragmas, kvSchema) {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite init %q: %w", p, err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// Get reads key.
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var v []byte

	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("key", key)
	}

	if err != nil {
		return nil, fmt.Errorf("sqlite get %s: %w", key, err)
	}

	return v, nil
}

// Set upserts key.
func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("sqlite set %s: %w", key, err)
	}

	return nil
}

// Delete removes key.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("sqlite delete %s: %w", key, err)
	}

	return nil
}

// Name implements ports.HealthChecker.
func (s *SQLiteStore) Name() string { return "storage:sqlite" }

// Check pings the database.
func (s *SQLiteStore) Check(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

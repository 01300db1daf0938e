// Package sqlitekv provides a SQLite-backed implementation of storage.Store.
package sqlitekv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/kweku/susu/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using a single kv table. Expirations
// are an expires_at column checked on every read, so lapsed keys become
// invisible immediately even if the row lingers until the next sweep.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path. It creates the
// parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get retrieves the value for key, treating expired rows as absent.
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM kv WHERE key = ? AND (expires_at IS NULL OR expires_at > ?)",
		key, time.Now().Unix(),
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get %q: %w", key, err)
	}
	return value, true, nil
}

// Set writes the value for key and clears any expiration.
func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, expires_at) VALUES (?, ?, NULL)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = NULL`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to set %q: %w", key, err)
	}
	return nil
}

// Has reports whether key exists and has not expired.
func (s *SQLiteStore) Has(ctx context.Context, key string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM kv WHERE key = ? AND (expires_at IS NULL OR expires_at > ?)",
		key, time.Now().Unix(),
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check %q: %w", key, err)
	}
	return true, nil
}

// ExtendTTL sets the key's expiration to now+ttl.
func (s *SQLiteStore) ExtendTTL(ctx context.Context, key string, ttl time.Duration) error {
	now := time.Now()
	res, err := s.db.ExecContext(ctx,
		"UPDATE kv SET expires_at = ? WHERE key = ? AND (expires_at IS NULL OR expires_at > ?)",
		now.Add(ttl).Unix(), key, now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to extend ttl for %q: %w", key, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to extend ttl for %q: %w", key, err)
	}
	if affected == 0 {
		return storage.ErrKeyNotFound
	}
	return nil
}

// Sweep deletes rows whose expiration has lapsed. Reads already ignore them;
// this just reclaims space. Safe to call at any time.
func (s *SQLiteStore) Sweep(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM kv WHERE expires_at IS NOT NULL AND expires_at <= ?",
		time.Now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired keys: %w", err)
	}
	return res.RowsAffected()
}

// Package badgerkv provides a Badger-backed implementation of storage.Store.
package badgerkv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/kweku/susu/internal/storage"
)

// Ensure BadgerStore implements storage.Store
var _ storage.Store = (*BadgerStore)(nil)

// BadgerStore implements storage.Store on a Badger database. Expirations map
// directly onto Badger's per-entry TTL support.
type BadgerStore struct {
	db *badger.DB
}

// New opens (or creates) a Badger database rooted at dataDir.
func New(dataDir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dataDir).
		WithLogger(nil).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	slog.Debug("badger store opened", "dir", dataDir)
	return &BadgerStore{db: db}, nil
}

// NewInMemory opens an ephemeral store, used by tests and local tooling.
func NewInMemory() (*BadgerStore, error) {
	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLogger(nil).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory badger database: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// Get retrieves the value for key. Badger hides expired entries, so TTL
// handling comes for free here.
func (s *BadgerStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get %q: %w", key, err)
	}
	return value, true, nil
}

// Set writes the value for key with no expiration.
func (s *BadgerStore) Set(ctx context.Context, key string, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("failed to set %q: %w", key, err)
	}
	return nil
}

// Has reports whether key exists and has not expired.
func (s *BadgerStore) Has(ctx context.Context, key string) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check %q: %w", key, err)
	}
	return true, nil
}

// ExtendTTL rewrites the entry with a fresh TTL. Badger has no in-place
// expiration update, so the value is read and re-set inside one transaction.
func (s *BadgerStore) ExtendTTL(ctx context.Context, key string, ttl time.Duration) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		entry := badger.NewEntry([]byte(key), value).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return storage.ErrKeyNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to extend ttl for %q: %w", key, err)
	}
	return nil
}

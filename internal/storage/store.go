// Package storage provides the persistent key-value store abstraction.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound is returned by ExtendTTL when the key does not exist (or has
// already expired).
var ErrKeyNotFound = errors.New("key not found")

// Store is the narrow contract every persistence backend implements. Records
// are opaque byte slices; the engines marshal their own models. Keys carry
// per-entry expirations: a key written with Set never expires until ExtendTTL
// assigns it a time-to-live, after which Get and Has treat it as absent once
// the TTL lapses.
//
// This abstraction allows swapping storage backends (Badger, SQLite, ...)
// without changing the engine layer.
type Store interface {
	// Get retrieves the value for key. The second return is false when the
	// key is absent or expired; that case is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set writes the value for key with no expiration, replacing any previous
	// value and clearing any previous TTL.
	Set(ctx context.Context, key string, value []byte) error

	// Has reports whether key exists and has not expired.
	Has(ctx context.Context, key string) (bool, error)

	// ExtendTTL sets the key's expiration to now+ttl. Extending an absent or
	// expired key returns ErrKeyNotFound.
	ExtendTTL(ctx context.Context, key string, ttl time.Duration) error

	// Close releases any resources held by the store.
	Close() error
}

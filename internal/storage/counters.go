package storage

import (
	"context"
	"fmt"
	"strconv"
)

// Counters are stored as decimal strings so they stay readable in backend
// tooling. Operations are serialized by the host (one operation at a time),
// so read-modify-write is safe here.

// ReadCounter returns the counter at key, or 0 if it has never been written.
func ReadCounter(ctx context.Context, store Store, key string) (uint64, error) {
	value, ok, err := store.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	n, err := strconv.ParseUint(string(value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt counter at %q: %w", key, err)
	}
	return n, nil
}

// IncrementCounter adds one to the counter at key and returns the new value.
func IncrementCounter(ctx context.Context, store Store, key string) (uint64, error) {
	n, err := ReadCounter(ctx, store, key)
	if err != nil {
		return 0, err
	}
	n++
	if err := store.Set(ctx, key, []byte(strconv.FormatUint(n, 10))); err != nil {
		return 0, err
	}
	return n, nil
}

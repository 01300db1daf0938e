// Package identity manages the permanent principal <-> unique-ID binding
// registry. Each unique ID (derived off-platform from KYC data) binds to
// exactly one principal and vice versa; a binding can never be changed or
// removed, only kept alive.
package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/kweku/susu/internal/auth"
	"github.com/kweku/susu/internal/events"
	"github.com/kweku/susu/internal/storage"
)

var (
	// ErrIDAlreadyBound means the unique ID is bound to another principal.
	ErrIDAlreadyBound = errors.New("unique id already bound")
	// ErrWalletAlreadyBound means the principal is bound to another unique ID.
	ErrWalletAlreadyBound = errors.New("principal already bound")
	// ErrWalletNotBound means the principal has no binding.
	ErrWalletNotBound = errors.New("principal not bound to any identity")
	// ErrIDNotBound means the unique ID has no binding.
	ErrIDNotBound = errors.New("unique id not bound to any principal")
	// ErrInvalidID means the unique ID is not a 32-byte hex string.
	ErrInvalidID = errors.New("invalid unique id")
)

// Resolver is the port the circle engine consumes: principal in, durable
// unique identifier out.
type Resolver interface {
	Resolve(ctx context.Context, principal string) (string, error)
}

// Registry is the production Resolver, backed by the persistent store.
type Registry struct {
	store    storage.Store
	approver auth.Approver
	events   events.Publisher

	// bindingTTL is the keep-alive window applied by ExtendBindingTTL.
	bindingTTL time.Duration
}

// NewRegistry creates a Registry.
func NewRegistry(store storage.Store, approver auth.Approver, publisher events.Publisher, bindingTTL time.Duration) *Registry {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Registry{
		store:      store,
		approver:   approver,
		events:     publisher,
		bindingTTL: bindingTTL,
	}
}

// Bind permanently binds uniqueID to principal. Requires approval from the
// principal being bound. Both directions must be free.
func (r *Registry) Bind(ctx context.Context, uniqueID, principal string) error {
	if !validUniqueID(uniqueID) {
		return ErrInvalidID
	}
	if err := r.approver.Require(ctx, principal); err != nil {
		return err
	}

	idKey := storage.IDToWalletKey(uniqueID)
	if ok, err := r.store.Has(ctx, idKey); err != nil {
		return err
	} else if ok {
		return ErrIDAlreadyBound
	}

	walletKey := storage.WalletToIDKey(principal)
	if ok, err := r.store.Has(ctx, walletKey); err != nil {
		return err
	} else if ok {
		return ErrWalletAlreadyBound
	}

	if err := r.store.Set(ctx, idKey, []byte(principal)); err != nil {
		return err
	}
	if err := r.store.Set(ctx, walletKey, []byte(uniqueID)); err != nil {
		return err
	}

	if _, err := storage.IncrementCounter(ctx, r.store, storage.KeyBindingCount); err != nil {
		return err
	}

	r.events.Publish(events.TopicWalletBound, map[string]string{
		"unique_id": uniqueID,
		"principal": principal,
	})
	return nil
}

// Resolve returns the unique ID bound to principal, implementing Resolver.
func (r *Registry) Resolve(ctx context.Context, principal string) (string, error) {
	value, ok, err := r.store.Get(ctx, storage.WalletToIDKey(principal))
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrWalletNotBound
	}
	return string(value), nil
}

// ResolveWallet returns the principal bound to uniqueID.
func (r *Registry) ResolveWallet(ctx context.Context, uniqueID string) (string, error) {
	value, ok, err := r.store.Get(ctx, storage.IDToWalletKey(uniqueID))
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrIDNotBound
	}
	return string(value), nil
}

// IsBound reports whether principal has a binding.
func (r *Registry) IsBound(ctx context.Context, principal string) (bool, error) {
	return r.store.Has(ctx, storage.WalletToIDKey(principal))
}

// BindingCount returns the total number of bindings created.
func (r *Registry) BindingCount(ctx context.Context) (uint64, error) {
	return storage.ReadCounter(ctx, r.store, storage.KeyBindingCount)
}

// ExtendBindingTTL refreshes the expiration of both directions of a binding.
// Anyone can call this to keep a binding alive.
func (r *Registry) ExtendBindingTTL(ctx context.Context, principal string) error {
	uniqueID, err := r.Resolve(ctx, principal)
	if err != nil {
		return err
	}
	if err := r.store.ExtendTTL(ctx, storage.IDToWalletKey(uniqueID), r.bindingTTL); err != nil {
		return err
	}
	return r.store.ExtendTTL(ctx, storage.WalletToIDKey(principal), r.bindingTTL)
}

func validUniqueID(uniqueID string) bool {
	raw, err := hex.DecodeString(uniqueID)
	return err == nil && len(raw) == 32
}

// Derived resolves principals to deterministic identifiers by hashing. It
// exists for environments without a KYC pipeline (local development, tests);
// production wires the Registry instead.
type Derived struct{}

// Resolve implements Resolver.
func (Derived) Resolve(_ context.Context, principal string) (string, error) {
	sum := sha256.Sum256([]byte("susu-identity:" + principal))
	return hex.EncodeToString(sum[:]), nil
}

// Fallback resolves through the primary resolver and falls back to the
// secondary when the principal has no binding. The server wires Registry over
// Derived so unbound users can still participate under a derived identifier.
type Fallback struct {
	Primary   Resolver
	Secondary Resolver
}

// Resolve implements Resolver.
func (f Fallback) Resolve(ctx context.Context, principal string) (string, error) {
	uniqueID, err := f.Primary.Resolve(ctx, principal)
	if errors.Is(err, ErrWalletNotBound) {
		return f.Secondary.Resolve(ctx, principal)
	}
	return uniqueID, err
}

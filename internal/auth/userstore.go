package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kweku/susu/internal/models"
	"github.com/kweku/susu/internal/storage"
)

// ErrUserNotFound is returned when no account exists for a lookup.
var ErrUserNotFound = errors.New("user not found")

// Ensure UserStore implements UserStorage
var _ UserStorage = (*UserStore)(nil)

// UserStore persists accounts in the key-value store: the full record keyed
// by email, plus an id -> email pointer for ID lookups.
type UserStore struct {
	store storage.Store
}

// NewUserStore creates a UserStore over the given backend.
func NewUserStore(store storage.Store) *UserStore {
	return &UserStore{store: store}
}

// CreateUser persists a new account.
func (s *UserStore) CreateUser(ctx context.Context, user *models.User) error {
	value, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	if err := s.store.Set(ctx, storage.UserByEmailKey(user.Email), value); err != nil {
		return err
	}
	return s.store.Set(ctx, storage.UserByIDKey(user.ID), []byte(user.Email))
}

// GetUserByEmail retrieves an account by login email.
func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	value, ok, err := s.store.Get(ctx, storage.UserByEmailKey(email))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUserNotFound
	}
	var user models.User
	if err := json.Unmarshal(value, &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	return &user, nil
}

// GetUserByID retrieves an account by user ID.
func (s *UserStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	email, ok, err := s.store.Get(ctx, storage.UserByIDKey(id))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUserNotFound
	}
	return s.GetUserByEmail(ctx, string(email))
}

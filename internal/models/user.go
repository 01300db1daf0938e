package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered account. The user ID is the principal used
// everywhere else in the system: circle membership, ledger balances, and
// identity bindings are all keyed by it.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string `json:"id"`

	// Name is the display name of the user.
	Name string `json:"name"`

	// Email is the user's email address (unique). Used for login.
	Email string `json:"email"`

	// PasswordHash is the bcrypt hash of the user's password. The API layer
	// must never echo this field; handlers return trimmed response structs.
	PasswordHash string `json:"password_hash"`

	// CreatedAt is the Unix timestamp when the account was created.
	CreatedAt int64 `json:"created_at"`
}

// NewUser creates a user with a fresh ID and creation timestamp.
func NewUser(email, name, passwordHash string) *User {
	return &User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().Unix(),
	}
}

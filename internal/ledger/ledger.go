// Package ledger provides the value-transfer collaborator: integer balances
// per account, with transfers that fail atomically when the source balance is
// insufficient.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/kweku/susu/internal/storage"
)

var (
	// ErrInsufficientBalance means the source account cannot cover the amount.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInvalidAmount means the amount is zero or negative.
	ErrInvalidAmount = errors.New("amount must be positive")
)

// Ledger is the port the circle engine consumes.
type Ledger interface {
	// Transfer moves amount from one account to another. Fails with
	// ErrInsufficientBalance before any mutation if from cannot cover it.
	Transfer(ctx context.Context, from, to string, amount int64) error

	// Balance returns the current balance of an account; absent accounts have
	// balance 0.
	Balance(ctx context.Context, account string) (int64, error)
}

// PoolAccount is the ledger account holding a circle's pooled contributions.
func PoolAccount(circleID string) string { return "pool:" + circleID }

// KV is a Ledger backed by the persistent key-value store.
type KV struct {
	store storage.Store
}

// NewKV creates a store-backed ledger.
func NewKV(store storage.Store) *KV {
	return &KV{store: store}
}

// Transfer implements Ledger.
func (l *KV) Transfer(ctx context.Context, from, to string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	fromBalance, err := l.Balance(ctx, from)
	if err != nil {
		return err
	}
	if fromBalance < amount {
		return ErrInsufficientBalance
	}
	toBalance, err := l.Balance(ctx, to)
	if err != nil {
		return err
	}
	if err := l.setBalance(ctx, from, fromBalance-amount); err != nil {
		return err
	}
	return l.setBalance(ctx, to, toBalance+amount)
}

// Balance implements Ledger.
func (l *KV) Balance(ctx context.Context, account string) (int64, error) {
	value, ok, err := l.store.Get(ctx, storage.BalanceKey(account))
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	n, err := strconv.ParseInt(string(value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt balance for %q: %w", account, err)
	}
	return n, nil
}

// Mint credits an account out of thin air. Admin funding and tests only; the
// production deployment funds accounts through deposits upstream of this
// service.
func (l *KV) Mint(ctx context.Context, account string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	balance, err := l.Balance(ctx, account)
	if err != nil {
		return err
	}
	return l.setBalance(ctx, account, balance+amount)
}

func (l *KV) setBalance(ctx context.Context, account string, balance int64) error {
	return l.store.Set(ctx, storage.BalanceKey(account), []byte(strconv.FormatInt(balance, 10)))
}

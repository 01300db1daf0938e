package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/kweku/susu/internal/storage/badgerkv"
)

func newTestLedger(t *testing.T) *KV {
	t.Helper()
	store, err := badgerkv.NewInMemory()
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewKV(store)
}

func TestBalanceDefaultsToZero(t *testing.T) {
	l := newTestLedger(t)
	balance, err := l.Balance(context.Background(), "alice")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 0 {
		t.Errorf("fresh account balance = %d, want 0", balance)
	}
}

func TestMintAndTransfer(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	if err := l.Mint(ctx, "alice", 500); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := l.Transfer(ctx, "alice", "bob", 200); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	aliceBalance, err := l.Balance(ctx, "alice")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	bobBalance, err := l.Balance(ctx, "bob")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if aliceBalance != 300 || bobBalance != 200 {
		t.Errorf("balances = %d/%d, want 300/200", aliceBalance, bobBalance)
	}
}

func TestTransferInsufficient(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	if err := l.Mint(ctx, "alice", 100); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := l.Transfer(ctx, "alice", "bob", 101); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("overdraft = %v, want ErrInsufficientBalance", err)
	}

	// A failed transfer moves nothing.
	aliceBalance, _ := l.Balance(ctx, "alice")
	bobBalance, _ := l.Balance(ctx, "bob")
	if aliceBalance != 100 || bobBalance != 0 {
		t.Errorf("balances after failed transfer = %d/%d, want 100/0", aliceBalance, bobBalance)
	}
}

func TestInvalidAmounts(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	if err := l.Transfer(ctx, "alice", "bob", 0); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero transfer = %v, want ErrInvalidAmount", err)
	}
	if err := l.Transfer(ctx, "alice", "bob", -5); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("negative transfer = %v, want ErrInvalidAmount", err)
	}
	if err := l.Mint(ctx, "alice", 0); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero mint = %v, want ErrInvalidAmount", err)
	}
}

func TestPoolAccountNaming(t *testing.T) {
	if got := PoolAccount("abc"); got != "pool:abc" {
		t.Errorf("PoolAccount = %q, want pool:abc", got)
	}
}

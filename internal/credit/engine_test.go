package credit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kweku/susu/internal/auth"
	"github.com/kweku/susu/internal/clock"
	"github.com/kweku/susu/internal/storage/badgerkv"
)

const (
	testUID    = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	testCircle = "c1"
	reporter   = "circle-engine"
)

func newTestEngine(t *testing.T) (*Engine, *clock.Fixed) {
	t.Helper()
	store, err := badgerkv.NewInMemory()
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	clk := clock.NewFixed(time.Unix(1_700_000_000, 0))
	engine := NewEngine(store, auth.AllowAll{}, Options{Clock: clk})

	ctx := context.Background()
	if err := engine.Init(ctx, "admin"); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := engine.AuthorizeCaller(ctx, reporter); err != nil {
		t.Fatalf("authorize caller: %v", err)
	}
	return engine, clk
}

func TestInitOnce(t *testing.T) {
	engine, _ := newTestEngine(t)
	if err := engine.Init(context.Background(), "other"); !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("second Init = %v, want ErrAlreadyInitialized", err)
	}
}

func TestCallerAllowList(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	if err := engine.AuthorizeCaller(ctx, reporter); !errors.Is(err, ErrCallerAlreadyAuthorized) {
		t.Errorf("duplicate authorize = %v, want ErrCallerAlreadyAuthorized", err)
	}

	if _, err := engine.RecordPayment(ctx, "rogue", testUID, testCircle, 1, 100, true); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("unlisted caller = %v, want ErrUnauthorized", err)
	}

	if err := engine.AuthorizeCaller(ctx, "reconciler"); err != nil {
		t.Fatalf("authorize second caller: %v", err)
	}
	callers, err := engine.AuthorizedCallers(ctx)
	if err != nil {
		t.Fatalf("list callers: %v", err)
	}
	if len(callers) != 2 {
		t.Fatalf("callers = %v, want 2 entries", callers)
	}

	if err := engine.RevokeCaller(ctx, "reconciler"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := engine.RecordPayment(ctx, "reconciler", testUID, testCircle, 1, 100, true); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("revoked caller = %v, want ErrUnauthorized", err)
	}
}

func TestRecordPaymentCreatesProfile(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	score, err := engine.RecordPayment(ctx, reporter, testUID, testCircle, 1, 100_000_000, true)
	if err != nil {
		t.Fatalf("record payment: %v", err)
	}
	// 300 base + 220 payment + 68 completion + 33 volume + 0 tenure + 27 attestation.
	if score != 648 {
		t.Errorf("score after first on-time payment = %d, want 648", score)
	}

	profile, err := engine.Profile(ctx, testUID)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.TotalPayments != 1 || profile.OnTimePayments != 1 {
		t.Errorf("counters = %d total / %d on-time, want 1/1", profile.TotalPayments, profile.OnTimePayments)
	}
	if profile.TotalVolume != 100_000_000 {
		t.Errorf("volume = %d, want 100000000", profile.TotalVolume)
	}

	count, err := engine.UserCount(ctx)
	if err != nil {
		t.Fatalf("user count: %v", err)
	}
	if count != 1 {
		t.Errorf("user count = %d, want 1", count)
	}
}

func TestMissedPaymentCountsTowardTotal(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := engine.RecordPayment(ctx, reporter, testUID, testCircle, 1, 100, true); err != nil {
			t.Fatalf("record payment: %v", err)
		}
	}
	if _, err := engine.RecordMissedPayment(ctx, reporter, testUID, testCircle, 4); err != nil {
		t.Fatalf("record missed: %v", err)
	}

	profile, err := engine.Profile(ctx, testUID)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.TotalPayments != 4 || profile.MissedPayments != 1 {
		t.Errorf("counters = %d total / %d missed, want 4/1", profile.TotalPayments, profile.MissedPayments)
	}

	rate, err := engine.OnTimeRate(ctx, testUID)
	if err != nil {
		t.Fatalf("on-time rate: %v", err)
	}
	if rate != 75 {
		t.Errorf("on-time rate = %d, want 75", rate)
	}
}

func TestOnTimeRateNoPayments(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	// Completion creates the profile without any payment counters.
	if _, err := engine.RecordCircleCompletion(ctx, reporter, testUID, testCircle, true); err != nil {
		t.Fatalf("record completion: %v", err)
	}
	rate, err := engine.OnTimeRate(ctx, testUID)
	if err != nil {
		t.Fatalf("on-time rate: %v", err)
	}
	if rate != 100 {
		t.Errorf("rate with no payments = %d, want 100", rate)
	}
}

func TestCircleCompletionAndDefault(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.RecordCircleCompletion(ctx, reporter, testUID, testCircle, true); err != nil {
		t.Fatalf("completion: %v", err)
	}
	if _, err := engine.RecordCircleCompletion(ctx, reporter, testUID, "c2", false); err != nil {
		t.Fatalf("default: %v", err)
	}
	profile, err := engine.Profile(ctx, testUID)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.CirclesCompleted != 1 || profile.CirclesDefaulted != 1 {
		t.Errorf("circles = %d completed / %d defaulted, want 1/1",
			profile.CirclesCompleted, profile.CirclesDefaulted)
	}
}

func TestApplyDecayIdempotent(t *testing.T) {
	engine, clk := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.RecordPayment(ctx, reporter, testUID, testCircle, 1, 100_000_000, true); err != nil {
		t.Fatalf("record payment: %v", err)
	}

	clk.Advance(37 * 24 * time.Hour)
	// Recomputed at day 37 the score gains 5 tenure points (653) and loses
	// one decay point.
	first, err := engine.ApplyDecay(ctx, testUID)
	if err != nil {
		t.Fatalf("first decay: %v", err)
	}
	if first != 652 {
		t.Errorf("decayed score = %d, want 652", first)
	}

	second, err := engine.ApplyDecay(ctx, testUID)
	if err != nil {
		t.Fatalf("second decay: %v", err)
	}
	if second != first {
		t.Errorf("repeated decay = %d, want %d (idempotent)", second, first)
	}
}

func TestApplyDecayInsideWindow(t *testing.T) {
	engine, clk := newTestEngine(t)
	ctx := context.Background()

	score, err := engine.RecordPayment(ctx, reporter, testUID, testCircle, 1, 100_000_000, true)
	if err != nil {
		t.Fatalf("record payment: %v", err)
	}

	clk.Advance(20 * 24 * time.Hour)
	after, err := engine.ApplyDecay(ctx, testUID)
	if err != nil {
		t.Fatalf("decay: %v", err)
	}
	if after != score {
		t.Errorf("decay inside window changed score %d -> %d", score, after)
	}
}

func TestApplyDecayMissingProfile(t *testing.T) {
	engine, _ := newTestEngine(t)
	if _, err := engine.ApplyDecay(context.Background(), testUID); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("decay on missing profile = %v, want ErrUserNotFound", err)
	}
}

func TestPaymentHistoryCap(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	for round := 1; round <= historyCap+5; round++ {
		if _, err := engine.RecordPayment(ctx, reporter, testUID, testCircle, round, 100, true); err != nil {
			t.Fatalf("record payment %d: %v", round, err)
		}
	}

	history, err := engine.PaymentHistory(ctx, testUID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != historyCap {
		t.Fatalf("history length = %d, want %d", len(history), historyCap)
	}
	if history[0].Round != 6 {
		t.Errorf("oldest retained round = %d, want 6 (oldest evicted first)", history[0].Round)
	}
	if history[len(history)-1].Round != historyCap+5 {
		t.Errorf("newest round = %d, want %d", history[len(history)-1].Round, historyCap+5)
	}
}

func TestHistoryEmptyForUnknownID(t *testing.T) {
	engine, _ := newTestEngine(t)
	history, err := engine.PaymentHistory(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("history = %d records, want 0", len(history))
	}
}

// Package credit implements the reputation engine: per-identity payment and
// circle-outcome counters folded into a bounded composite score.
package credit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/kweku/susu/internal/auth"
	"github.com/kweku/susu/internal/clock"
	"github.com/kweku/susu/internal/events"
	"github.com/kweku/susu/internal/models"
	"github.com/kweku/susu/internal/storage"
)

// historyCap bounds the per-identity payment history ring.
const historyCap = 100

// Engine owns all credit profiles. Mutating operations except ApplyDecay are
// restricted to an allow-list of callers maintained by the administrator; the
// circle engine is the usual entry on that list.
type Engine struct {
	store    storage.Store
	approver auth.Approver
	events   events.Publisher
	clock    clock.Clock

	// recordTTL is applied to profile and history keys on every write so
	// active profiles never expire while abandoned data eventually can.
	recordTTL time.Duration
}

// Options configures optional Engine collaborators.
type Options struct {
	Events    events.Publisher
	Clock     clock.Clock
	RecordTTL time.Duration
}

// NewEngine creates a credit engine over the given store.
func NewEngine(store storage.Store, approver auth.Approver, opts Options) *Engine {
	if opts.Events == nil {
		opts.Events = events.Nop{}
	}
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	if opts.RecordTTL == 0 {
		opts.RecordTTL = 100 * 24 * time.Hour
	}
	return &Engine{
		store:     store,
		approver:  approver,
		events:    opts.Events,
		clock:     opts.Clock,
		recordTTL: opts.RecordTTL,
	}
}

// Init records the administrator principal and an empty caller allow-list.
// Callable once.
func (e *Engine) Init(ctx context.Context, admin string) error {
	if ok, err := e.store.Has(ctx, storage.KeyCreditAdmin); err != nil {
		return err
	} else if ok {
		return ErrAlreadyInitialized
	}
	if err := e.store.Set(ctx, storage.KeyCreditAdmin, []byte(admin)); err != nil {
		return err
	}
	if err := e.saveCallers(ctx, []string{}); err != nil {
		return err
	}
	slog.Info("credit engine initialized", "admin", admin)
	return nil
}

// Admin returns the administrator principal.
func (e *Engine) Admin(ctx context.Context) (string, error) {
	value, ok, err := e.store.Get(ctx, storage.KeyCreditAdmin)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNotInitialized
	}
	return string(value), nil
}

// AuthorizeCaller adds a principal to the allow-list. Admin only.
func (e *Engine) AuthorizeCaller(ctx context.Context, caller string) error {
	if err := e.requireAdmin(ctx); err != nil {
		return err
	}
	callers, err := e.loadCallers(ctx)
	if err != nil {
		return err
	}
	for _, c := range callers {
		if c == caller {
			return ErrCallerAlreadyAuthorized
		}
	}
	return e.saveCallers(ctx, append(callers, caller))
}

// RevokeCaller removes a principal from the allow-list. Admin only.
func (e *Engine) RevokeCaller(ctx context.Context, caller string) error {
	if err := e.requireAdmin(ctx); err != nil {
		return err
	}
	callers, err := e.loadCallers(ctx)
	if err != nil {
		return err
	}
	kept := callers[:0]
	for _, c := range callers {
		if c != caller {
			kept = append(kept, c)
		}
	}
	return e.saveCallers(ctx, kept)
}

// AuthorizedCallers returns the allow-list.
func (e *Engine) AuthorizedCallers(ctx context.Context) ([]string, error) {
	return e.loadCallers(ctx)
}

// RecordPayment folds one contribution into the payer's profile: counters and
// volume move, the score is recomputed in full, and the payment joins the
// capped history. Returns the new score.
func (e *Engine) RecordPayment(ctx context.Context, caller, uniqueID, circleID string, round int, amount int64, onTime bool) (int, error) {
	if err := e.verifyCaller(ctx, caller); err != nil {
		return 0, err
	}

	now := e.clock.Now().Unix()
	profile, err := e.loadOrNewProfile(ctx, uniqueID, now)
	if err != nil {
		return 0, err
	}

	profile.TotalPayments++
	if onTime {
		profile.OnTimePayments++
	} else {
		profile.LatePayments++
	}
	profile.TotalVolume += amount
	profile.LastUpdated = now
	profile.Score = ComputeBreakdown(profile, now).Total

	if err := e.saveProfile(ctx, profile); err != nil {
		return 0, err
	}

	record := models.PaymentRecord{
		CircleID:  circleID,
		Round:     round,
		Amount:    amount,
		OnTime:    onTime,
		Timestamp: now,
	}
	if err := e.appendHistory(ctx, uniqueID, record); err != nil {
		return 0, err
	}

	e.events.Publish(events.TopicPaymentRecorded, map[string]any{
		"unique_id": uniqueID,
		"on_time":   onTime,
		"score":     profile.Score,
	})
	slog.Debug("payment recorded",
		"unique_id", uniqueID,
		"circle_id", circleID,
		"round", round,
		"on_time", onTime,
		"score", profile.Score,
	)
	return profile.Score, nil
}

// RecordMissedPayment counts a payment that never arrived. No amount moves,
// so volume is untouched, but the payment enters the totals and draws the
// missed-payment penalty.
func (e *Engine) RecordMissedPayment(ctx context.Context, caller, uniqueID, circleID string, round int) (int, error) {
	if err := e.verifyCaller(ctx, caller); err != nil {
		return 0, err
	}

	now := e.clock.Now().Unix()
	profile, err := e.loadOrNewProfile(ctx, uniqueID, now)
	if err != nil {
		return 0, err
	}

	profile.TotalPayments++
	profile.MissedPayments++
	profile.LastUpdated = now
	profile.Score = ComputeBreakdown(profile, now).Total

	if err := e.saveProfile(ctx, profile); err != nil {
		return 0, err
	}

	e.events.Publish(events.TopicPaymentMissed, map[string]any{
		"unique_id": uniqueID,
		"circle_id": circleID,
		"round":     round,
		"score":     profile.Score,
	})
	return profile.Score, nil
}

// RecordCircleCompletion counts a finished circle for one member, as a
// success or a default.
func (e *Engine) RecordCircleCompletion(ctx context.Context, caller, uniqueID, circleID string, success bool) (int, error) {
	if err := e.verifyCaller(ctx, caller); err != nil {
		return 0, err
	}

	now := e.clock.Now().Unix()
	profile, err := e.loadOrNewProfile(ctx, uniqueID, now)
	if err != nil {
		return 0, err
	}

	if success {
		profile.CirclesCompleted++
	} else {
		profile.CirclesDefaulted++
	}
	profile.LastUpdated = now
	profile.Score = ComputeBreakdown(profile, now).Total

	if err := e.saveProfile(ctx, profile); err != nil {
		return 0, err
	}

	e.events.Publish(events.TopicCircleCompleted, map[string]any{
		"unique_id": uniqueID,
		"circle_id": circleID,
		"success":   success,
		"score":     profile.Score,
	})
	return profile.Score, nil
}

// ApplyDecay reduces an inactive profile's score: one point per full week
// past 30 days without activity, never below the base score. Open to any
// caller. The score is recomputed from counters before the subtraction, so
// repeated calls without further inactivity settle on the same value.
func (e *Engine) ApplyDecay(ctx context.Context, uniqueID string) (int, error) {
	profile, err := e.Profile(ctx, uniqueID)
	if err != nil {
		return 0, err
	}

	now := e.clock.Now().Unix()
	points := decayPoints(now, profile.LastUpdated)
	if points == 0 {
		return profile.Score, nil
	}

	score := ComputeBreakdown(profile, now).Total - points
	if score < BaseScore {
		score = BaseScore
	}
	profile.Score = score

	if err := e.saveProfile(ctx, profile); err != nil {
		return 0, err
	}

	e.events.Publish(events.TopicScoreDecayed, map[string]any{
		"unique_id": uniqueID,
		"points":    points,
		"score":     score,
	})
	return score, nil
}

// Profile returns the full credit profile for a unique ID.
func (e *Engine) Profile(ctx context.Context, uniqueID string) (*models.CreditProfile, error) {
	value, ok, err := e.store.Get(ctx, storage.CreditKey(uniqueID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUserNotFound
	}
	var profile models.CreditProfile
	if err := json.Unmarshal(value, &profile); err != nil {
		return nil, fmt.Errorf("corrupt credit profile for %q: %w", uniqueID, err)
	}
	return &profile, nil
}

// Score returns just the current score.
func (e *Engine) Score(ctx context.Context, uniqueID string) (int, error) {
	profile, err := e.Profile(ctx, uniqueID)
	if err != nil {
		return 0, err
	}
	return profile.Score, nil
}

// Tier returns the coarse bucket for the current score.
func (e *Engine) Tier(ctx context.Context, uniqueID string) (models.ScoreTier, error) {
	profile, err := e.Profile(ctx, uniqueID)
	if err != nil {
		return "", err
	}
	return TierForScore(profile.Score), nil
}

// Breakdown recomputes and returns the per-component score breakdown.
func (e *Engine) Breakdown(ctx context.Context, uniqueID string) (models.ScoreBreakdown, error) {
	profile, err := e.Profile(ctx, uniqueID)
	if err != nil {
		return models.ScoreBreakdown{}, err
	}
	return ComputeBreakdown(profile, e.clock.Now().Unix()), nil
}

// PaymentHistory returns the capped payment history, oldest first. A missing
// profile yields an empty history, not an error.
func (e *Engine) PaymentHistory(ctx context.Context, uniqueID string) ([]models.PaymentRecord, error) {
	return e.loadHistory(ctx, uniqueID)
}

// OnTimeRate returns the percentage of payments made on time, 0-100. With no
// payments at all the rate is 100 (nothing was ever late).
func (e *Engine) OnTimeRate(ctx context.Context, uniqueID string) (int, error) {
	profile, err := e.Profile(ctx, uniqueID)
	if err != nil {
		return 0, err
	}
	if profile.TotalPayments == 0 {
		return 100, nil
	}
	return (profile.OnTimePayments * 100) / profile.TotalPayments, nil
}

// UserCount returns the number of profiles ever created.
func (e *Engine) UserCount(ctx context.Context) (uint64, error) {
	return storage.ReadCounter(ctx, e.store, storage.KeyCreditUserCount)
}

// ---- internals ----

func (e *Engine) requireAdmin(ctx context.Context) error {
	admin, err := e.Admin(ctx)
	if err != nil {
		return err
	}
	if err := e.approver.Require(ctx, admin); err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return nil
}

func (e *Engine) verifyCaller(ctx context.Context, caller string) error {
	callers, err := e.loadCallers(ctx)
	if err != nil {
		return err
	}
	for _, c := range callers {
		if c == caller {
			return nil
		}
	}
	return ErrUnauthorized
}

func (e *Engine) loadCallers(ctx context.Context) ([]string, error) {
	value, ok, err := e.store.Get(ctx, storage.KeyAuthorizedCallers)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInitialized
	}
	var callers []string
	if err := json.Unmarshal(value, &callers); err != nil {
		return nil, fmt.Errorf("corrupt caller allow-list: %w", err)
	}
	return callers, nil
}

func (e *Engine) saveCallers(ctx context.Context, callers []string) error {
	value, err := json.Marshal(callers)
	if err != nil {
		return err
	}
	return e.store.Set(ctx, storage.KeyAuthorizedCallers, value)
}

// loadOrNewProfile fetches a profile, lazily creating one at the base score
// on first activity.
func (e *Engine) loadOrNewProfile(ctx context.Context, uniqueID string, now int64) (*models.CreditProfile, error) {
	profile, err := e.Profile(ctx, uniqueID)
	if err == nil {
		return profile, nil
	}
	if err != ErrUserNotFound {
		return nil, err
	}

	if _, err := storage.IncrementCounter(ctx, e.store, storage.KeyCreditUserCount); err != nil {
		return nil, err
	}
	return &models.CreditProfile{
		UniqueID:      uniqueID,
		Score:         BaseScore,
		LastUpdated:   now,
		FirstActivity: now,
		ScoreVersion:  ScoreVersion,
	}, nil
}

func (e *Engine) saveProfile(ctx context.Context, profile *models.CreditProfile) error {
	value, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	key := storage.CreditKey(profile.UniqueID)
	if err := e.store.Set(ctx, key, value); err != nil {
		return err
	}
	return e.store.ExtendTTL(ctx, key, e.recordTTL)
}

func (e *Engine) loadHistory(ctx context.Context, uniqueID string) ([]models.PaymentRecord, error) {
	value, ok, err := e.store.Get(ctx, storage.HistoryKey(uniqueID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var history []models.PaymentRecord
	if err := json.Unmarshal(value, &history); err != nil {
		return nil, fmt.Errorf("corrupt payment history for %q: %w", uniqueID, err)
	}
	return history, nil
}

func (e *Engine) appendHistory(ctx context.Context, uniqueID string, record models.PaymentRecord) error {
	history, err := e.loadHistory(ctx, uniqueID)
	if err != nil {
		return err
	}
	history = append(history, record)
	if len(history) > historyCap {
		history = history[len(history)-historyCap:]
	}
	value, err := json.Marshal(history)
	if err != nil {
		return err
	}
	key := storage.HistoryKey(uniqueID)
	if err := e.store.Set(ctx, key, value); err != nil {
		return err
	}
	return e.store.ExtendTTL(ctx, key, e.recordTTL)
}

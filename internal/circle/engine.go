// Package circle implements the rotating-savings state machine: a fixed-size
// group contributes a fixed amount each round and one member per round takes
// the pool, in join order, until everyone has been paid once.
package circle

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/kweku/susu/internal/auth"
	"github.com/kweku/susu/internal/clock"
	"github.com/kweku/susu/internal/events"
	"github.com/kweku/susu/internal/identity"
	"github.com/kweku/susu/internal/ledger"
	"github.com/kweku/susu/internal/models"
	"github.com/kweku/susu/internal/storage"
)

const (
	minMembers   = 3
	maxMembers   = 10
	minPeriod    = 86400 // one day in seconds
	maxLateFee   = 50
	completedTTL = 90 * 24 * time.Hour
)

// CreditReporter receives payment and completion facts from the engine. The
// credit engine satisfies this; tests substitute a recorder.
type CreditReporter interface {
	RecordPayment(ctx context.Context, caller, uniqueID, circleID string, round int, amount int64, onTime bool) (int, error)
	RecordCircleCompletion(ctx context.Context, caller, uniqueID, circleID string, success bool) (int, error)
}

// Engine drives every circle through Forming, Active and Completed, with
// Cancelled as the only exit before activation.
type Engine struct {
	store    storage.Store
	credit   CreditReporter
	ledger   ledger.Ledger
	identity identity.Resolver
	approver auth.Approver
	events   events.Publisher
	clock    clock.Clock

	// principal is the identity this engine reports to the credit engine
	// under; it must be on the credit engine's caller allow-list.
	principal string
}

// Options configures optional Engine collaborators.
type Options struct {
	Events events.Publisher
	Clock  clock.Clock
}

// NewEngine creates a circle engine. principal is the caller identity used
// when reporting to the credit engine.
func NewEngine(
	store storage.Store,
	credit CreditReporter,
	lgr ledger.Ledger,
	resolver identity.Resolver,
	approver auth.Approver,
	principal string,
	opts Options,
) *Engine {
	if opts.Events == nil {
		opts.Events = events.Nop{}
	}
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	return &Engine{
		store:     store,
		credit:    credit,
		ledger:    lgr,
		identity:  resolver,
		approver:  approver,
		events:    opts.Events,
		clock:     opts.Clock,
		principal: principal,
	}
}

// Init records the administrator principal and zeroes the circle counter.
// Callable once.
func (e *Engine) Init(ctx context.Context, admin string) error {
	if ok, err := e.store.Has(ctx, storage.KeyCircleAdmin); err != nil {
		return err
	} else if ok {
		return ErrAlreadyInitialized
	}
	if err := e.store.Set(ctx, storage.KeyCircleAdmin, []byte(admin)); err != nil {
		return err
	}
	if err := e.store.Set(ctx, storage.KeyCircleCount, []byte("0")); err != nil {
		return err
	}
	slog.Info("circle engine initialized", "admin", admin)
	return nil
}

// Admin returns the administrator principal.
func (e *Engine) Admin(ctx context.Context) (string, error) {
	value, ok, err := e.store.Get(ctx, storage.KeyCircleAdmin)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNotInitialized
	}
	return string(value), nil
}

// Create validates the configuration, allocates a circle ID and invite code,
// and admits the creator as member #1. Returns the new circle's ID.
func (e *Engine) Create(ctx context.Context, creator string, config models.CircleConfig) (string, error) {
	if err := validateConfig(config); err != nil {
		return "", err
	}
	if err := e.approver.Require(ctx, creator); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	counter, err := storage.IncrementCounter(ctx, e.store, storage.KeyCircleCount)
	if err != nil {
		return "", err
	}

	now := e.clock.Now().Unix()
	id := deriveCircleID(counter, now)
	invite := deriveInviteCode(id, now)

	circle := &models.Circle{
		ID:         id,
		Config:     config,
		Creator:    creator,
		Status:     models.StatusForming,
		Members:    []string{},
		CreatedAt:  now,
		InviteCode: invite,
	}
	if err := e.saveCircle(ctx, circle); err != nil {
		return "", err
	}
	if err := e.store.Set(ctx, storage.InviteKey(invite), []byte(id)); err != nil {
		return "", err
	}

	// The creator takes position 1 through the ordinary join path.
	if _, err := e.admit(ctx, circle, creator); err != nil {
		return "", err
	}

	e.events.Publish(events.TopicCircleCreated, map[string]any{
		"circle_id": id,
		"creator":   creator,
		"capacity":  config.TotalMembers,
	})
	slog.Info("circle created",
		"circle_id", id,
		"creator", creator,
		"capacity", config.TotalMembers,
		"amount", config.ContributionAmount,
	)
	return id, nil
}

// Join adds an authorized member to a forming circle. Returns the assigned
// payout position, 1-indexed. Filling the last seat activates the circle.
func (e *Engine) Join(ctx context.Context, member, circleID string) (int, error) {
	if err := e.approver.Require(ctx, member); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	circle, err := e.GetCircle(ctx, circleID)
	if err != nil {
		return 0, err
	}
	return e.admit(ctx, circle, member)
}

// JoinByInvite joins via the invite code instead of the circle ID.
func (e *Engine) JoinByInvite(ctx context.Context, member, code string) (int, error) {
	circleID, err := e.resolveInvite(ctx, code)
	if err != nil {
		return 0, err
	}
	return e.Join(ctx, member, circleID)
}

// Start activates a forming circle before it fills. Creator only, at least
// three members.
func (e *Engine) Start(ctx context.Context, caller, circleID string) error {
	circle, err := e.GetCircle(ctx, circleID)
	if err != nil {
		return err
	}
	if caller != circle.Creator {
		return ErrUnauthorized
	}
	if err := e.approver.Require(ctx, caller); err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if circle.Status != models.StatusForming {
		return ErrCircleNotForming
	}
	if len(circle.Members) < minMembers {
		return ErrNotEnoughMembers
	}
	return e.activate(ctx, circle)
}

// Cancel terminates a forming circle. Creator or administrator only. No funds
// move: contributions only happen while Active.
func (e *Engine) Cancel(ctx context.Context, caller, circleID string) error {
	circle, err := e.GetCircle(ctx, circleID)
	if err != nil {
		return err
	}
	admin, err := e.Admin(ctx)
	if err != nil {
		return err
	}
	if caller != circle.Creator && caller != admin {
		return ErrUnauthorized
	}
	if err := e.approver.Require(ctx, caller); err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if circle.Status != models.StatusForming {
		return ErrCircleNotForming
	}

	circle.Status = models.StatusCancelled
	if err := e.saveCircle(ctx, circle); err != nil {
		return err
	}
	if err := e.expireCircle(ctx, circle); err != nil {
		return err
	}

	e.events.Publish(events.TopicCircleCancelled, map[string]any{
		"circle_id": circleID,
		"caller":    caller,
	})
	slog.Info("circle cancelled", "circle_id", circleID, "caller", caller)
	return nil
}

// Contribute records the member's payment for the current round: amount plus
// any late fee moves to the pool, and the payment fact is forwarded to the
// credit engine.
func (e *Engine) Contribute(ctx context.Context, member, circleID string) (*models.ContributionRecord, error) {
	if err := e.approver.Require(ctx, member); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	circle, err := e.GetCircle(ctx, circleID)
	if err != nil {
		return nil, err
	}
	if circle.Status != models.StatusActive {
		return nil, ErrCircleNotActive
	}
	record, err := e.GetMember(ctx, circleID, member)
	if err != nil {
		return nil, err
	}
	if record.ContributedTo(circle.CurrentRound) {
		return nil, ErrAlreadyContributed
	}

	now := e.clock.Now().Unix()
	roundStart := circle.StartedAt + int64(circle.CurrentRound-1)*circle.Config.PeriodLength
	due := roundStart + circle.Config.PeriodLength

	// The grace window only softens classification downstream; any payment
	// past due draws the flat fee.
	late := now > due
	var fee int64
	if late {
		fee = circle.Config.ContributionAmount * circle.Config.LateFeePercent / 100
	}
	total := circle.Config.ContributionAmount + fee

	if err := e.ledger.Transfer(ctx, member, ledger.PoolAccount(circleID), total); err != nil {
		return nil, err
	}

	record.TotalContributed += total
	record.RoundsContributed = append(record.RoundsContributed, circle.CurrentRound)
	if err := e.saveMember(ctx, circleID, member, record); err != nil {
		return nil, err
	}

	circle.TotalContributed += total
	if err := e.saveCircle(ctx, circle); err != nil {
		return nil, err
	}

	if _, err := e.credit.RecordPayment(ctx, e.principal, record.UniqueID, circleID, circle.CurrentRound, circle.Config.ContributionAmount, !late); err != nil {
		return nil, fmt.Errorf("credit report failed: %w", err)
	}

	contribution := &models.ContributionRecord{
		Member:    member,
		Round:     circle.CurrentRound,
		Amount:    circle.Config.ContributionAmount,
		LateFee:   fee,
		OnTime:    !late,
		Timestamp: now,
	}
	e.events.Publish(events.TopicContribution, map[string]any{
		"circle_id": circleID,
		"member":    member,
		"round":     circle.CurrentRound,
		"late_fee":  fee,
		"on_time":   !late,
	})
	slog.Debug("contribution recorded",
		"circle_id", circleID,
		"member", member,
		"round", circle.CurrentRound,
		"on_time", !late,
	)
	return contribution, nil
}

// Payout disburses the pooled round to the member whose position matches the
// current round. Anyone may trigger it once every member has contributed.
// Advancing past the final round completes the circle and reports completion
// for every member.
func (e *Engine) Payout(ctx context.Context, circleID string) (*models.PayoutRecord, error) {
	circle, err := e.GetCircle(ctx, circleID)
	if err != nil {
		return nil, err
	}
	if circle.Status != models.StatusActive {
		return nil, ErrCircleNotActive
	}

	count, _, err := e.ContributionStatus(ctx, circleID)
	if err != nil {
		return nil, err
	}
	if count < circle.Config.TotalMembers {
		return nil, ErrRoundIncomplete
	}

	recipient := circle.Members[circle.CurrentRound-1]
	// Fees stay in the pool; the payout is the fixed round amount.
	amount := circle.Config.ContributionAmount * int64(circle.Config.TotalMembers)

	if err := e.ledger.Transfer(ctx, ledger.PoolAccount(circleID), recipient, amount); err != nil {
		return nil, err
	}

	record, err := e.GetMember(ctx, circleID, recipient)
	if err != nil {
		return nil, err
	}
	record.HasReceivedPayout = true
	if err := e.saveMember(ctx, circleID, recipient, record); err != nil {
		return nil, err
	}

	now := e.clock.Now().Unix()
	round := circle.CurrentRound
	circle.TotalPaidOut += amount
	circle.CurrentRound++

	completed := circle.CurrentRound > circle.Config.TotalMembers
	if completed {
		circle.Status = models.StatusCompleted
	}
	if err := e.saveCircle(ctx, circle); err != nil {
		return nil, err
	}

	payout := &models.PayoutRecord{
		Recipient: recipient,
		Round:     round,
		Amount:    amount,
		Timestamp: now,
	}
	e.events.Publish(events.TopicPayout, map[string]any{
		"circle_id": circleID,
		"recipient": recipient,
		"round":     round,
		"amount":    amount,
	})
	slog.Info("payout disbursed",
		"circle_id", circleID,
		"recipient", recipient,
		"round", round,
		"amount", amount,
	)

	if completed {
		if err := e.complete(ctx, circle); err != nil {
			return nil, err
		}
	}
	return payout, nil
}

// GetCircle returns a circle by ID.
func (e *Engine) GetCircle(ctx context.Context, circleID string) (*models.Circle, error) {
	value, ok, err := e.store.Get(ctx, storage.CircleKey(circleID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrCircleNotFound
	}
	var circle models.Circle
	if err := json.Unmarshal(value, &circle); err != nil {
		return nil, fmt.Errorf("corrupt circle %q: %w", circleID, err)
	}
	return &circle, nil
}

// GetCircleByInvite resolves an invite code to its circle.
func (e *Engine) GetCircleByInvite(ctx context.Context, code string) (*models.Circle, error) {
	circleID, err := e.resolveInvite(ctx, code)
	if err != nil {
		return nil, err
	}
	return e.GetCircle(ctx, circleID)
}

// GetMember returns one member's record within a circle.
func (e *Engine) GetMember(ctx context.Context, circleID, principal string) (*models.Member, error) {
	value, ok, err := e.store.Get(ctx, storage.MemberKey(circleID, principal))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotMember
	}
	var member models.Member
	if err := json.Unmarshal(value, &member); err != nil {
		return nil, fmt.Errorf("corrupt member %q in circle %q: %w", principal, circleID, err)
	}
	return &member, nil
}

// IsMember reports whether principal belongs to the circle.
func (e *Engine) IsMember(ctx context.Context, circleID, principal string) (bool, error) {
	return e.store.Has(ctx, storage.MemberKey(circleID, principal))
}

// ContributionStatus returns how many members have contributed to the current
// round and the total amount they moved, fees included.
func (e *Engine) ContributionStatus(ctx context.Context, circleID string) (int, int64, error) {
	circle, err := e.GetCircle(ctx, circleID)
	if err != nil {
		return 0, 0, err
	}
	var count int
	var total int64
	for _, principal := range circle.Members {
		member, err := e.GetMember(ctx, circleID, principal)
		if err != nil {
			return 0, 0, err
		}
		if member.ContributedTo(circle.CurrentRound) {
			count++
			total += circle.Config.ContributionAmount
		}
	}
	return count, total, nil
}

// CircleCount returns the number of circles ever created.
func (e *Engine) CircleCount(ctx context.Context) (uint64, error) {
	return storage.ReadCounter(ctx, e.store, storage.KeyCircleCount)
}

// ---- internals ----

func validateConfig(config models.CircleConfig) error {
	switch {
	case config.TotalMembers < minMembers || config.TotalMembers > maxMembers:
		return fmt.Errorf("%w: capacity must be %d to %d", ErrInvalidConfig, minMembers, maxMembers)
	case config.ContributionAmount <= 0:
		return fmt.Errorf("%w: contribution amount must be positive", ErrInvalidConfig)
	case config.PeriodLength < minPeriod:
		return fmt.Errorf("%w: period must be at least one day", ErrInvalidConfig)
	case config.GracePeriod < 0:
		return fmt.Errorf("%w: grace period cannot be negative", ErrInvalidConfig)
	case config.LateFeePercent < 0 || config.LateFeePercent > maxLateFee:
		return fmt.Errorf("%w: late fee must be 0 to %d percent", ErrInvalidConfig, maxLateFee)
	}
	return nil
}

// deriveCircleID hashes the monotonic counter and creation time. The counter
// makes collisions impossible by construction, so the ID is not re-checked.
func deriveCircleID(counter uint64, timestamp int64) string {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], counter)
	binary.BigEndian.PutUint64(buf[8:], uint64(timestamp))
	sum := sha256.Sum256(buf[:])
	return hex.EncodeToString(sum[:])
}

// deriveInviteCode takes the first 16 bytes of a hash over the circle ID and
// creation time.
func deriveInviteCode(circleID string, timestamp int64) string {
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(timestamp))
	sum := sha256.Sum256(append([]byte(circleID), ts[:]...))
	return hex.EncodeToString(sum[:16])
}

// admit appends member at the next payout position, activating the circle
// when the last seat fills.
func (e *Engine) admit(ctx context.Context, circle *models.Circle, member string) (int, error) {
	if circle.Status != models.StatusForming {
		return 0, ErrCircleNotForming
	}
	if len(circle.Members) >= circle.Config.TotalMembers {
		return 0, ErrCircleFull
	}
	if ok, err := e.IsMember(ctx, circle.ID, member); err != nil {
		return 0, err
	} else if ok {
		return 0, ErrAlreadyMember
	}

	uniqueID, err := e.identity.Resolve(ctx, member)
	if err != nil {
		return 0, err
	}

	position := len(circle.Members) + 1
	record := &models.Member{
		UniqueID:       uniqueID,
		PayoutPosition: position,
		JoinedAt:       e.clock.Now().Unix(),
	}
	if err := e.saveMember(ctx, circle.ID, member, record); err != nil {
		return 0, err
	}

	circle.Members = append(circle.Members, member)
	if err := e.saveCircle(ctx, circle); err != nil {
		return 0, err
	}

	e.events.Publish(events.TopicMemberJoined, map[string]any{
		"circle_id": circle.ID,
		"member":    member,
		"position":  position,
	})

	if len(circle.Members) == circle.Config.TotalMembers {
		if err := e.activate(ctx, circle); err != nil {
			return 0, err
		}
	}
	return position, nil
}

func (e *Engine) activate(ctx context.Context, circle *models.Circle) error {
	circle.Status = models.StatusActive
	circle.CurrentRound = 1
	circle.StartedAt = e.clock.Now().Unix()
	if err := e.saveCircle(ctx, circle); err != nil {
		return err
	}
	e.events.Publish(events.TopicCircleStarted, map[string]any{
		"circle_id": circle.ID,
		"members":   len(circle.Members),
	})
	slog.Info("circle activated", "circle_id", circle.ID, "members", len(circle.Members))
	return nil
}

// complete reports a successful completion for every member and schedules the
// terminal records for eventual expiry.
func (e *Engine) complete(ctx context.Context, circle *models.Circle) error {
	for _, principal := range circle.Members {
		member, err := e.GetMember(ctx, circle.ID, principal)
		if err != nil {
			return err
		}
		if _, err := e.credit.RecordCircleCompletion(ctx, e.principal, member.UniqueID, circle.ID, true); err != nil {
			return fmt.Errorf("completion report for %s failed: %w", principal, err)
		}
	}
	if err := e.expireCircle(ctx, circle); err != nil {
		return err
	}
	e.events.Publish(events.TopicCircleCompleted, map[string]any{
		"circle_id": circle.ID,
		"members":   len(circle.Members),
	})
	slog.Info("circle completed", "circle_id", circle.ID)
	return nil
}

// expireCircle puts a TTL on a terminal circle's records. Terminal circles
// are kept for audit, not forever.
func (e *Engine) expireCircle(ctx context.Context, circle *models.Circle) error {
	if err := e.store.ExtendTTL(ctx, storage.CircleKey(circle.ID), completedTTL); err != nil {
		return err
	}
	if err := e.store.ExtendTTL(ctx, storage.InviteKey(circle.InviteCode), completedTTL); err != nil {
		return err
	}
	for _, principal := range circle.Members {
		if err := e.store.ExtendTTL(ctx, storage.MemberKey(circle.ID, principal), completedTTL); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) resolveInvite(ctx context.Context, code string) (string, error) {
	value, ok, err := e.store.Get(ctx, storage.InviteKey(code))
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrInviteNotFound
	}
	return string(value), nil
}

func (e *Engine) saveCircle(ctx context.Context, circle *models.Circle) error {
	value, err := json.Marshal(circle)
	if err != nil {
		return err
	}
	return e.store.Set(ctx, storage.CircleKey(circle.ID), value)
}

func (e *Engine) saveMember(ctx context.Context, circleID, principal string, member *models.Member) error {
	value, err := json.Marshal(member)
	if err != nil {
		return err
	}
	return e.store.Set(ctx, storage.MemberKey(circleID, principal), value)
}

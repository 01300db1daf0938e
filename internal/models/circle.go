package models

// CircleStatus is the lifecycle state of a circle.
//
// Transitions are monotonic: Forming -> Active -> Completed, with
// Forming -> Cancelled as the only exit before activation. Nothing leaves
// Completed or Cancelled.
type CircleStatus string

const (
	// StatusForming means the circle is accepting members.
	StatusForming CircleStatus = "forming"
	// StatusActive means contributions and payouts are in progress.
	StatusActive CircleStatus = "active"
	// StatusCompleted means every member has received a payout.
	StatusCompleted CircleStatus = "completed"
	// StatusCancelled means the circle was cancelled before activation.
	StatusCancelled CircleStatus = "cancelled"
)

// CircleConfig is the immutable configuration chosen at creation.
type CircleConfig struct {
	// Name is the display name of the circle.
	Name string `json:"name"`

	// ContributionAmount is the per-period contribution in the settlement
	// asset's smallest unit. Must be positive.
	ContributionAmount int64 `json:"contribution_amount"`

	// Asset identifies the settlement asset the circle transacts in.
	Asset string `json:"asset"`

	// TotalMembers is the member capacity, 3 to 10 inclusive. It also equals
	// the number of rounds.
	TotalMembers int `json:"total_members"`

	// PeriodLength is the seconds between contribution periods, >= 1 day.
	PeriodLength int64 `json:"period_length"`

	// GracePeriod is the seconds after the due date during which a late
	// contribution still counts toward the round.
	GracePeriod int64 `json:"grace_period"`

	// LateFeePercent is the flat percentage fee applied to contributions made
	// after the due date, 0 to 50.
	LateFeePercent int64 `json:"late_fee_percent"`
}

// Circle is one savings group. Payout order is join order: round 1 pays the
// creator, round k pays the k-th joiner.
type Circle struct {
	// ID is the hex-encoded 32-byte circle identifier.
	ID string `json:"id"`

	Config CircleConfig `json:"config"`

	// Creator is the principal that created the circle (always member #1).
	Creator string `json:"creator"`

	Status CircleStatus `json:"status"`

	// Members lists member principals in payout order.
	Members []string `json:"members"`

	// CurrentRound is 0 while Forming, 1-indexed while Active, and
	// TotalMembers+1 once Completed.
	CurrentRound int `json:"current_round"`

	// CreatedAt and StartedAt are Unix timestamps; StartedAt is 0 until the
	// circle activates.
	CreatedAt int64 `json:"created_at"`
	StartedAt int64 `json:"started_at"`

	// TotalContributed and TotalPaidOut are cumulative across all rounds.
	// TotalContributed includes late fees; TotalPaidOut does not, so the two
	// can legitimately diverge over the life of a circle.
	TotalContributed int64 `json:"total_contributed"`
	TotalPaidOut     int64 `json:"total_paid_out"`

	// InviteCode is the hex-encoded 16-byte token granting join rights.
	InviteCode string `json:"invite_code"`
}

// Member is one participant's state within a circle, keyed by
// circle x principal. PayoutPosition is fixed at join time.
type Member struct {
	// UniqueID is the member's durable identity identifier.
	UniqueID string `json:"unique_id"`

	// PayoutPosition is 1-indexed; the member receives the pool in the round
	// matching this position.
	PayoutPosition int `json:"payout_position"`

	JoinedAt int64 `json:"joined_at"`

	// TotalContributed includes any late fees paid.
	TotalContributed int64 `json:"total_contributed"`

	HasReceivedPayout bool `json:"has_received_payout"`

	// RoundsContributed is the set of rounds this member has paid into.
	RoundsContributed []int `json:"rounds_contributed"`
}

// ContributedTo reports whether the member already paid into the given round.
func (m *Member) ContributedTo(round int) bool {
	for _, r := range m.RoundsContributed {
		if r == round {
			return true
		}
	}
	return false
}

// ContributionRecord is the fact returned by a successful contribution. It is
// not stored separately; the durable state lives on Circle and Member.
type ContributionRecord struct {
	Member    string `json:"member"`
	Round     int    `json:"round"`
	Amount    int64  `json:"amount"`
	LateFee   int64  `json:"late_fee"`
	OnTime    bool   `json:"on_time"`
	Timestamp int64  `json:"timestamp"`
}

// PayoutRecord is the fact returned by a successful payout.
type PayoutRecord struct {
	Recipient string `json:"recipient"`
	Round     int    `json:"round"`
	Amount    int64  `json:"amount"`
	Timestamp int64  `json:"timestamp"`
}

package models

// ScoreTier is the coarse bucket derived from a credit score.
type ScoreTier string

const (
	// TierBuilding covers scores 300-449.
	TierBuilding ScoreTier = "building"
	// TierFair covers scores 450-599.
	TierFair ScoreTier = "fair"
	// TierGood covers scores 600-749.
	TierGood ScoreTier = "good"
	// TierExcellent covers scores 750-850.
	TierExcellent ScoreTier = "excellent"
)

// CreditProfile holds the reputation counters for one durable identity.
// Score is always a deterministic function of the counters and elapsed time;
// it is recomputed in full on every event, never patched incrementally.
type CreditProfile struct {
	// UniqueID is the hex-encoded 32-byte identity identifier.
	UniqueID string `json:"unique_id"`

	// Score is the composite credit score, 300-850.
	Score int `json:"score"`

	TotalPayments  int `json:"total_payments"`
	OnTimePayments int `json:"on_time_payments"`
	LatePayments   int `json:"late_payments"`
	MissedPayments int `json:"missed_payments"`

	CirclesCompleted int `json:"circles_completed"`
	CirclesDefaulted int `json:"circles_defaulted"`

	// TotalVolume is the cumulative contribution volume in smallest units.
	TotalVolume int64 `json:"total_volume"`

	// LastUpdated and FirstActivity are Unix timestamps.
	LastUpdated   int64 `json:"last_updated"`
	FirstActivity int64 `json:"first_activity"`

	// ScoreVersion tags the algorithm that produced Score.
	ScoreVersion int `json:"score_version"`
}

// PaymentRecord is one entry in a profile's payment history. The history is a
// bounded ring: only the most recent 100 records are retained.
type PaymentRecord struct {
	CircleID  string `json:"circle_id"`
	Round     int    `json:"round"`
	Amount    int64  `json:"amount"`
	OnTime    bool   `json:"on_time"`
	Timestamp int64  `json:"timestamp"`
}

// ScoreBreakdown itemizes a score by component. Component maxima: payment
// history 220, circle completion 137, volume 83, tenure 55, attestation 55.
type ScoreBreakdown struct {
	PaymentHistory   int `json:"payment_history"`
	CircleCompletion int `json:"circle_completion"`
	Volume           int `json:"volume"`
	Tenure           int `json:"tenure"`
	Attestation      int `json:"attestation"`
	Total            int `json:"total"`
}

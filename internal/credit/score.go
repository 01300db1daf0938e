package credit

import "github.com/kweku/susu/internal/models"

// Score constants. Component maxima follow the 40/25/15/10/10 weighting over
// the 550-point spread between base and max.
const (
	// BaseScore is the floor for every profile.
	BaseScore = 300
	// MaxScore caps the composite score.
	MaxScore = 850
	// ScoreVersion tags the algorithm below.
	ScoreVersion = 1

	paymentHistoryMax   = 220
	circleCompletionMax = 137
	volumeMax           = 83
	tenureMax           = 55
	attestationMax      = 55

	secondsPerDay = 86400
)

// ComputeBreakdown recalculates the full score from a profile's counters and
// the current Unix time. It is a pure function: two profiles with identical
// counters and timestamps always produce identical breakdowns. All arithmetic
// is integer with truncating division.
func ComputeBreakdown(p *models.CreditProfile, now int64) models.ScoreBreakdown {
	// Payment history: on-time ratio scaled to the component max, with a
	// severe penalty of 30 points per missed payment capped at 100. A profile
	// with no payments scores the neutral half-max.
	paymentScore := paymentHistoryMax / 2
	if p.TotalPayments > 0 {
		onTimeRatio := (p.OnTimePayments * 100) / p.TotalPayments
		base := (onTimeRatio * paymentHistoryMax) / 100
		penalty := p.MissedPayments * 30
		if penalty > 100 {
			penalty = 100
		}
		paymentScore = base - penalty
		if paymentScore < 0 {
			paymentScore = 0
		}
	}

	// Circle completion: completion ratio scaled to the component max,
	// neutral half-max with no finished circles.
	completionScore := circleCompletionMax / 2
	totalCircles := p.CirclesCompleted + p.CirclesDefaulted
	if totalCircles > 0 {
		completionRatio := (p.CirclesCompleted * 100) / totalCircles
		completionScore = (completionRatio * circleCompletionMax) / 100
	}

	volumeScore := computeVolumeScore(p.TotalVolume)

	// Tenure: linear ramp over the first year of activity.
	tenureDays := (now - p.FirstActivity) / secondsPerDay
	tenureScore := tenureMax
	if tenureDays <= 365 {
		tenureScore = (int(tenureDays) * tenureMax) / 365
	}

	// Attestation: reserved for the vouching system, fixed neutral half-max.
	attestationScore := attestationMax / 2

	total := BaseScore + paymentScore + completionScore + volumeScore + tenureScore + attestationScore
	if total > MaxScore {
		total = MaxScore
	}

	return models.ScoreBreakdown{
		PaymentHistory:   paymentScore,
		CircleCompletion: completionScore,
		Volume:           volumeScore,
		Tenure:           tenureScore,
		Attestation:      attestationScore,
		Total:            total,
	}
}

// computeVolumeScore steps through volume thresholds in smallest units of a
// 6-decimal asset: under 100 whole units scores 20% of the component, then
// 40/60/80/100% at each order of magnitude.
func computeVolumeScore(volume int64) int {
	var percentage int
	switch {
	case volume < 100_000_000:
		percentage = 20
	case volume < 1_000_000_000:
		percentage = 40
	case volume < 10_000_000_000:
		percentage = 60
	case volume < 100_000_000_000:
		percentage = 80
	default:
		percentage = 100
	}
	return (percentage * volumeMax) / 100
}

// TierForScore maps a score to its coarse bucket.
func TierForScore(score int) models.ScoreTier {
	switch {
	case score < 450:
		return models.TierBuilding
	case score < 600:
		return models.TierFair
	case score < 750:
		return models.TierGood
	default:
		return models.TierExcellent
	}
}

// decayPoints returns the decay owed for inactivity: one point per full week
// beyond a 30-day grace window. Zero within the window.
func decayPoints(now, lastUpdated int64) int {
	daysInactive := (now - lastUpdated) / secondsPerDay
	if daysInactive <= 30 {
		return 0
	}
	return int((daysInactive - 30) / 7)
}

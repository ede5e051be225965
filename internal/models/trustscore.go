package models

import "time"

// Trust score component weights. They sum to 1.0 exactly.
const (
	WeightRepayment    = 0.40
	WeightPerformance  = 0.20
	WeightActivity     = 0.10
	WeightSocial       = 0.15
	WeightVerification = 0.05
	WeightBase         = 0.10
)

// Sub-scores live on a 0-100 scale; the weighted sum is stretched onto the
// 0-850 total scale the tiers are defined over.
const (
	SubScoreMin = 0.0
	SubScoreMax = 100.0

	TotalScoreMin = 0.0
	TotalScoreMax = 850.0

	totalScale = TotalScoreMax / SubScoreMax

	// DefaultSubScore is the neutral baseline every sub-score starts at
	// for a first-time user.
	DefaultSubScore = 50.0
)

// Tier labels derived from the total score.
const (
	TierBronze   = "bronze"
	TierSilver   = "silver"
	TierGold     = "gold"
	TierPlatinum = "platinum"
)

// TrustScore is a user's weighted reputation aggregate.
type TrustScore struct {
	UserID            int64     `json:"user_id"`
	RepaymentScore    float64   `json:"repayment_score"`
	PerformanceScore  float64   `json:"performance_score"`
	ActivityScore     float64   `json:"activity_score"`
	SocialScore       float64   `json:"social_score"`
	VerificationScore float64   `json:"verification_score"`
	BaseScore         float64   `json:"base_score"`
	TotalScore        float64   `json:"total_score"`
	Tier              string    `json:"tier"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// DefaultTrustScore returns the documented starting score for a user with
// no prior history: every sub-score at the neutral baseline.
func DefaultTrustScore(userID int64) *TrustScore {
	ts := &TrustScore{
		UserID:            userID,
		RepaymentScore:    DefaultSubScore,
		PerformanceScore:  DefaultSubScore,
		ActivityScore:     DefaultSubScore,
		SocialScore:       DefaultSubScore,
		VerificationScore: DefaultSubScore,
		BaseScore:         DefaultSubScore,
	}
	ts.Recompute()
	return ts
}

// Recompute clamps every sub-score into range, recalculates the weighted
// total and derives the tier. Safe for arbitrary input magnitudes.
func (ts *TrustScore) Recompute() {
	ts.RepaymentScore = clamp(ts.RepaymentScore, SubScoreMin, SubScoreMax)
	ts.PerformanceScore = clamp(ts.PerformanceScore, SubScoreMin, SubScoreMax)
	ts.ActivityScore = clamp(ts.ActivityScore, SubScoreMin, SubScoreMax)
	ts.SocialScore = clamp(ts.SocialScore, SubScoreMin, SubScoreMax)
	ts.VerificationScore = clamp(ts.VerificationScore, SubScoreMin, SubScoreMax)
	ts.BaseScore = clamp(ts.BaseScore, SubScoreMin, SubScoreMax)

	weighted := WeightRepayment*ts.RepaymentScore +
		WeightPerformance*ts.PerformanceScore +
		WeightActivity*ts.ActivityScore +
		WeightSocial*ts.SocialScore +
		WeightVerification*ts.VerificationScore +
		WeightBase*ts.BaseScore

	ts.TotalScore = clamp(weighted*totalScale, TotalScoreMin, TotalScoreMax)
	ts.Tier = TierFor(ts.TotalScore)
}

// TierFor maps a total score onto its tier label.
func TierFor(total float64) string {
	switch {
	case total <= 400:
		return TierBronze
	case total <= 600:
		return TierSilver
	case total <= 750:
		return TierGold
	default:
		return TierPlatinum
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// TrustEventType identifies a domain event that adjusts trust scores.
type TrustEventType string

const (
	EventLoanCompleted         TrustEventType = "loan_completed"
	EventLoanDefaulted         TrustEventType = "loan_defaulted"
	EventPaymentMade           TrustEventType = "payment_made"
	EventPaymentLate           TrustEventType = "payment_late"
	EventRatingReceived        TrustEventType = "rating_received"
	EventVerificationCompleted TrustEventType = "verification_completed"
	EventAchievementEarned     TrustEventType = "achievement_earned"

	// EventRecompute marks a recompute not driven by an external event.
	// It carries no adjustment and is not accepted by AdjustmentForEvent.
	EventRecompute TrustEventType = "recompute"
)

// TrustAdjustment is a per-component delta applied before a recompute.
type TrustAdjustment struct {
	Repayment    float64
	Performance  float64
	Activity     float64
	Social       float64
	Verification float64
	Base         float64
}

// activityBump is applied on every qualifying event regardless of type.
const activityBump = 2.0

// AdjustmentForEvent returns the deterministic sub-score deltas for an
// event type. Unknown event types return ok=false.
func AdjustmentForEvent(event TrustEventType) (adj TrustAdjustment, ok bool) {
	switch event {
	case EventLoanCompleted:
		adj = TrustAdjustment{Repayment: 30, Performance: 10}
	case EventLoanDefaulted:
		adj = TrustAdjustment{Repayment: -80, Performance: -20}
	case EventPaymentMade:
		adj = TrustAdjustment{Repayment: 5}
	case EventPaymentLate:
		adj = TrustAdjustment{Repayment: -15}
	case EventVerificationCompleted:
		adj = TrustAdjustment{Verification: 50}
	case EventAchievementEarned:
		adj = TrustAdjustment{Base: 25}
	case EventRatingReceived:
		// Social delta depends on the stars given; see RatingAdjustment.
		adj = TrustAdjustment{}
	default:
		return TrustAdjustment{}, false
	}
	adj.Activity += activityBump
	return adj, true
}

// RatingAdjustment returns the social delta for a received rating:
// 3 stars is neutral, each star away from it moves the score by 5.
func RatingAdjustment(stars int) TrustAdjustment {
	return TrustAdjustment{Social: float64(stars-3) * 5, Activity: activityBump}
}

// Apply adds the adjustment to the sub-scores. Callers recompute afterwards.
func (ts *TrustScore) Apply(adj TrustAdjustment) {
	ts.RepaymentScore += adj.Repayment
	ts.PerformanceScore += adj.Performance
	ts.ActivityScore += adj.Activity
	ts.SocialScore += adj.Social
	ts.VerificationScore += adj.Verification
	ts.BaseScore += adj.Base
}

// TrustScoreHistoryEntry is an immutable audit record of one score change.
type TrustScoreHistoryEntry struct {
	ID          int64          `json:"id"`
	UserID      int64          `json:"user_id"`
	OldScore    float64        `json:"old_score"`
	NewScore    float64        `json:"new_score"`
	Delta       float64        `json:"delta"`
	EventType   TrustEventType `json:"event_type"`
	Reason      string         `json:"reason"`
	ReferenceID *int64         `json:"reference_id,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

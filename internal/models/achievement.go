package models

import "time"

// Achievement codes. Each earns at most once and is never revoked.
const (
	AchievementFirstLoanCompleted = "first_loan_completed"
	AchievementFiveLoansCompleted = "five_loans_completed"
	AchievementPunctualPayer      = "punctual_payer"
	AchievementTrustedBorrower    = "trusted_borrower"
)

// Achievement records a bonus a user has earned.
type Achievement struct {
	ID       int64     `json:"id"`
	UserID   int64     `json:"user_id"`
	Code     string    `json:"code"`
	EarnedAt time.Time `json:"earned_at"`
}

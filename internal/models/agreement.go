package models

import "time"

// AgreementStatus is the lifecycle state of a loan agreement.
type AgreementStatus string

const (
	StatusPending   AgreementStatus = "pending"
	StatusActive    AgreementStatus = "active"
	StatusCompleted AgreementStatus = "completed"
	StatusDefaulted AgreementStatus = "defaulted"
	StatusCancelled AgreementStatus = "cancelled"
)

// DaysPerMonth is the fixed month-length approximation used for loan
// end dates. Changing it changes financial outcomes.
const DaysPerMonth = 30

// LoanAgreement represents a loan contract between a borrower and a lender.
// LenderID is zero until the request is claimed.
type LoanAgreement struct {
	ID                int64           `json:"id"`
	BorrowerID        int64           `json:"borrower_id"`
	LenderID          int64           `json:"lender_id,omitempty"`
	Amount            float64         `json:"amount"`
	InterestRateBps   int64           `json:"interest_rate_bps"`
	DurationMonths    int             `json:"duration_months"`
	Purpose           string          `json:"purpose"`
	Status            AgreementStatus `json:"status"`
	BorrowerSignature string          `json:"borrower_signature,omitempty"`
	BorrowerSignedAt  *time.Time      `json:"borrower_signed_at,omitempty"`
	LenderSignature   string          `json:"lender_signature,omitempty"`
	LenderSignedAt    *time.Time      `json:"lender_signed_at,omitempty"`
	FundedAmount      float64         `json:"funded_amount"`
	AmountRepaid      float64         `json:"amount_repaid"`
	CreatedAt         time.Time       `json:"created_at"`
	StartDate         *time.Time      `json:"start_date,omitempty"`
	EndDate           *time.Time      `json:"end_date,omitempty"`
	CompletedAt       *time.Time      `json:"completed_at,omitempty"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// TotalDue returns principal plus simple interest over the full term.
// Rate is in basis points, term in months:
//
//	totalDue = principal + principal * rate * months / (10000 * 12)
func (a *LoanAgreement) TotalDue() float64 {
	interest := a.Amount * float64(a.InterestRateBps) * float64(a.DurationMonths) / (10000 * 12)
	return a.Amount + interest
}

// RemainingDue returns the outstanding balance, never negative.
func (a *LoanAgreement) RemainingDue() float64 {
	remaining := a.TotalDue() - a.AmountRepaid
	if remaining < 0 {
		return 0
	}
	return remaining
}

// BothSigned reports whether borrower and lender have both signed.
func (a *LoanAgreement) BothSigned() bool {
	return a.BorrowerSignature != "" && a.LenderSignature != ""
}

// Claimed reports whether a lender is bound to the agreement.
func (a *LoanAgreement) Claimed() bool {
	return a.LenderID != 0
}

// Terminal reports whether the agreement is in a terminal state.
func (a *LoanAgreement) Terminal() bool {
	switch a.Status {
	case StatusCompleted, StatusDefaulted, StatusCancelled:
		return true
	}
	return false
}

// TermEnd computes the end date for a loan starting at start, using the
// fixed 30-days-per-month approximation.
func (a *LoanAgreement) TermEnd(start time.Time) time.Time {
	return start.Add(time.Duration(a.DurationMonths*DaysPerMonth) * 24 * time.Hour)
}

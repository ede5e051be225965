package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/peerfund/lending-service/internal/models"
	"github.com/peerfund/lending-service/internal/observability"
)

// newReferenceID generates a reference for payments recorded without an
// external id.
func newReferenceID() string {
	return "txn_" + uuid.NewString()
}

// fallbackRateBps is used when no rate is given and no suggestion is
// available.
const fallbackRateBps int64 = 1000

// CreateRequest opens a new pending loan request for the borrower. When
// rateBps is nil the suggested market rate is applied.
func (s *Service) CreateRequest(borrowerID int64, amount float64, purpose string, durationMonths int, rateBps *int64) (*models.LoanAgreement, error) {
	if amount <= 0 {
		return nil, models.NewValidationError("amount must be positive, got %.2f", amount)
	}
	if durationMonths <= 0 {
		return nil, models.NewValidationError("duration must be positive, got %d months", durationMonths)
	}
	if rateBps != nil && *rateBps < 0 {
		return nil, models.NewValidationError("interest rate must not be negative, got %d bps", *rateBps)
	}
	if _, err := s.store.FindUserByID(borrowerID); err != nil {
		return nil, err
	}

	rate := fallbackRateBps
	if rateBps != nil {
		rate = *rateBps
	} else if s.rates != nil {
		percent, err := s.rates.SuggestedRate()
		if err != nil {
			s.log.Warnf("Suggested rate unavailable, using fallback: %v", err)
		} else {
			rate = int64(percent * 100)
		}
	}

	a := &models.LoanAgreement{
		BorrowerID:      borrowerID,
		Amount:          amount,
		InterestRateBps: rate,
		DurationMonths:  durationMonths,
		Purpose:         purpose,
		Status:          models.StatusPending,
	}
	if err := s.store.CreateAgreement(a); err != nil {
		return nil, err
	}

	observability.LoanTransitions.WithLabelValues(string(models.StatusPending)).Inc()
	s.log.Infof("Loan request %d created by user %d: %.2f over %d months at %d bps", a.ID, borrowerID, amount, durationMonths, rate)
	return a, nil
}

// GetAgreement returns an agreement by id
func (s *Service) GetAgreement(id int64) (*models.LoanAgreement, error) {
	return s.store.FindAgreementByID(id)
}

// ListOpenRequests returns claimable loan requests
func (s *Service) ListOpenRequests() ([]*models.LoanAgreement, error) {
	return s.store.ListOpenRequests()
}

// ListTransactions returns an agreement's payment history, visible to the
// bound parties only.
func (s *Service) ListTransactions(agreementID, requesterID int64) ([]*models.Transaction, error) {
	a, err := s.store.FindAgreementByID(agreementID)
	if err != nil {
		return nil, err
	}
	if requesterID != a.BorrowerID && requesterID != a.LenderID {
		return nil, models.NewInvalidStateError("user %d is not a party to agreement %d", requesterID, agreementID)
	}
	return s.store.ListTransactions(agreementID)
}

// Claim binds a lender to a pending, unclaimed request.
func (s *Service) Claim(agreementID, lenderID int64) (*models.LoanAgreement, error) {
	a, err := s.store.FindAgreementByID(agreementID)
	if err != nil {
		return nil, err
	}
	if lenderID == a.BorrowerID {
		return nil, models.NewValidationError("borrower cannot claim their own request")
	}
	if err := s.store.ClaimAgreement(agreementID, lenderID); err != nil {
		return nil, err
	}

	s.log.Infof("Loan request %d claimed by lender %d", agreementID, lenderID)
	s.notifyClaimed(a, lenderID)
	return s.store.FindAgreementByID(agreementID)
}

// FinalizeTerms records the signer's signature. Idempotent per signer:
// re-signing overwrites that party's signature only.
func (s *Service) FinalizeTerms(agreementID, signerID int64, signatureData string) (*models.LoanAgreement, error) {
	if signatureData == "" {
		return nil, models.NewValidationError("signature data is required")
	}
	a, err := s.store.FindAgreementByID(agreementID)
	if err != nil {
		return nil, err
	}
	if signerID != a.BorrowerID && signerID != a.LenderID {
		return nil, models.NewInvalidStateError("user %d is not a party to agreement %d", signerID, agreementID)
	}
	if err := s.store.SaveSignature(agreementID, signerID == a.BorrowerID, signatureData, s.now()); err != nil {
		return nil, err
	}

	s.log.Infof("Agreement %d signed by user %d", agreementID, signerID)
	return s.store.FindAgreementByID(agreementID)
}

// Fund records the lender's deposit of the principal. Activation requires
// the funded amount to equal the principal exactly.
func (s *Service) Fund(agreementID, lenderID int64, amount float64, method, referenceID string) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, models.NewValidationError("funding amount must be positive, got %.2f", amount)
	}
	a, err := s.store.FindAgreementByID(agreementID)
	if err != nil {
		return nil, err
	}
	if !a.Claimed() || lenderID != a.LenderID {
		return nil, models.NewInvalidStateError("user %d is not the lender on agreement %d", lenderID, agreementID)
	}
	if amount != a.Amount {
		return nil, models.NewValidationError("funding amount %.2f must equal the principal %.2f", amount, a.Amount)
	}
	if referenceID == "" {
		referenceID = newReferenceID()
	}
	t, err := s.store.RecordFunding(agreementID, amount, method, referenceID)
	if err != nil {
		return nil, err
	}

	s.log.Infof("Agreement %d funded with %.2f by lender %d (ref %s)", agreementID, amount, lenderID, referenceID)
	return t, nil
}

// Activate transitions a fully signed, fully funded agreement from pending
// to active and fixes the repayment window.
func (s *Service) Activate(agreementID, requesterID int64) (*models.LoanAgreement, error) {
	a, err := s.store.FindAgreementByID(agreementID)
	if err != nil {
		return nil, err
	}
	if requesterID != a.BorrowerID && requesterID != a.LenderID {
		return nil, models.NewInvalidStateError("user %d is not a party to agreement %d", requesterID, agreementID)
	}

	start := s.now()
	end := a.TermEnd(start)
	if err := s.store.ActivateAgreement(agreementID, start, end); err != nil {
		return nil, err
	}

	observability.LoanTransitions.WithLabelValues(string(models.StatusActive)).Inc()
	s.log.Infof("Agreement %d activated, term ends %s", agreementID, end.Format("2006-01-02"))
	s.notifyActivated(a, end)
	return s.store.FindAgreementByID(agreementID)
}

// RecordManualPayment records a repayment reported by the borrower with an
// external reference (UPI or bank transfer).
func (s *Service) RecordManualPayment(agreementID, requesterID int64, amount float64, method, referenceID string) (*models.LoanAgreement, *models.Transaction, error) {
	a, err := s.store.FindAgreementByID(agreementID)
	if err != nil {
		return nil, nil, err
	}
	if requesterID != a.BorrowerID {
		return nil, nil, models.NewInvalidStateError("user %d is not the borrower on agreement %d", requesterID, agreementID)
	}
	if method != models.MethodUPI && method != models.MethodBankTransfer {
		return nil, nil, models.NewValidationError("unsupported payment method %q", method)
	}
	return s.RecordPayment(agreementID, amount, method, referenceID)
}

// RecordPayment applies a repayment to an active agreement. On reaching the
// total due the agreement completes and the borrower's trust score is
// credited. Payments made after the end date count as late.
func (s *Service) RecordPayment(agreementID int64, amount float64, method, referenceID string) (*models.LoanAgreement, *models.Transaction, error) {
	if amount <= 0 {
		return nil, nil, models.NewValidationError("payment amount must be positive, got %.2f", amount)
	}
	if referenceID == "" {
		referenceID = newReferenceID()
	}

	now := s.now()
	a, t, err := s.store.RecordRepayment(agreementID, amount, method, referenceID, now)
	if err != nil {
		return nil, nil, err
	}

	observability.PaymentsRecorded.Inc()
	s.log.Infof("Payment of %.2f recorded on agreement %d via %s (ref %s), repaid %.2f of %.2f",
		amount, agreementID, method, referenceID, a.AmountRepaid, a.TotalDue())

	event := models.EventPaymentMade
	reason := fmt.Sprintf("payment of %.2f received", amount)
	if a.EndDate != nil && now.After(*a.EndDate) {
		event = models.EventPaymentLate
		reason = fmt.Sprintf("late payment of %.2f received", amount)
	}
	s.emitEvent(a.BorrowerID, event, reason, &a.ID)

	if a.Status == models.StatusCompleted {
		observability.LoanTransitions.WithLabelValues(string(models.StatusCompleted)).Inc()
		s.log.Infof("Agreement %d completed", agreementID)
		s.emitEvent(a.BorrowerID, models.EventLoanCompleted, "loan repaid in full", &a.ID)
		s.notifyCompleted(a)
	}
	return a, t, nil
}

// MarkDefaultedBy lets a bound party declare a default.
func (s *Service) MarkDefaultedBy(agreementID, requesterID int64) (*models.LoanAgreement, error) {
	a, err := s.store.FindAgreementByID(agreementID)
	if err != nil {
		return nil, err
	}
	if requesterID != a.BorrowerID && requesterID != a.LenderID {
		return nil, models.NewInvalidStateError("user %d is not a party to agreement %d", requesterID, agreementID)
	}
	return s.MarkDefaulted(agreementID)
}

// MarkDefaulted transitions an overdue, underpaid active agreement to
// defaulted and debits the borrower's trust score.
func (s *Service) MarkDefaulted(agreementID int64) (*models.LoanAgreement, error) {
	a, err := s.store.MarkDefaulted(agreementID, s.now())
	if err != nil {
		return nil, err
	}

	observability.LoanTransitions.WithLabelValues(string(models.StatusDefaulted)).Inc()
	s.log.Warnf("Agreement %d defaulted with %.2f outstanding", agreementID, a.RemainingDue())
	s.emitEvent(a.BorrowerID, models.EventLoanDefaulted, "loan defaulted", &a.ID)
	s.notifyDefaulted(a)
	return a, nil
}

// Cancel withdraws a pending agreement. Only a bound party may cancel; an
// unclaimed request can only be cancelled by its borrower.
func (s *Service) Cancel(agreementID, requesterID int64) (*models.LoanAgreement, error) {
	a, err := s.store.FindAgreementByID(agreementID)
	if err != nil {
		return nil, err
	}
	if requesterID != a.BorrowerID && (!a.Claimed() || requesterID != a.LenderID) {
		return nil, models.NewInvalidStateError("user %d may not cancel agreement %d", requesterID, agreementID)
	}
	if err := s.store.CancelAgreement(agreementID); err != nil {
		return nil, err
	}

	observability.LoanTransitions.WithLabelValues(string(models.StatusCancelled)).Inc()
	s.log.Infof("Agreement %d cancelled by user %d", agreementID, requesterID)
	return s.store.FindAgreementByID(agreementID)
}

// SweepOverdue defaults every active agreement whose term has ended without
// full repayment. Called from the scheduler.
func (s *Service) SweepOverdue() (int, error) {
	overdue, err := s.store.ListOverdueAgreements(s.now())
	if err != nil {
		return 0, err
	}
	defaulted := 0
	for _, a := range overdue {
		if a.AmountRepaid >= a.TotalDue() {
			continue
		}
		if _, err := s.MarkDefaulted(a.ID); err != nil {
			// Another writer may have settled or defaulted it first.
			s.log.Warnf("Overdue sweep skipped agreement %d: %v", a.ID, err)
			continue
		}
		defaulted++
	}
	return defaulted, nil
}

// SendPaymentReminders emails borrowers of active agreements ending within
// the window that still carry a balance. Called from the scheduler.
func (s *Service) SendPaymentReminders(windowDays int) (int, error) {
	cutoff := s.now().Add(time.Duration(windowDays) * 24 * time.Hour)
	ending, err := s.store.ListAgreementsEndingBefore(cutoff)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, a := range ending {
		if a.RemainingDue() == 0 || a.EndDate == nil {
			continue
		}
		borrower, err := s.store.FindUserByID(a.BorrowerID)
		if err != nil {
			s.log.Warnf("Reminder skipped for agreement %d: %v", a.ID, err)
			continue
		}
		if s.notifier == nil {
			continue
		}
		if err := s.notifier.PaymentReminder(borrower.Email, borrower.Username, a.ID, a.RemainingDue(), *a.EndDate); err != nil {
			s.log.Errorf("Failed to send reminder for agreement %d: %v", a.ID, err)
			continue
		}
		sent++
	}
	return sent, nil
}

func (s *Service) notifyClaimed(a *models.LoanAgreement, lenderID int64) {
	if s.notifier == nil {
		return
	}
	borrower, err := s.store.FindUserByID(a.BorrowerID)
	if err != nil {
		s.log.Errorf("Claim notification lookup failed for agreement %d: %v", a.ID, err)
		return
	}
	if err := s.notifier.LoanClaimed(borrower.Email, borrower.Username, a.ID, a.Amount); err != nil {
		s.log.Errorf("Failed to send claim notification for agreement %d: %v", a.ID, err)
	}
}

func (s *Service) notifyActivated(a *models.LoanAgreement, end time.Time) {
	if s.notifier == nil {
		return
	}
	borrower, err := s.store.FindUserByID(a.BorrowerID)
	if err != nil {
		s.log.Errorf("Activation notification lookup failed for agreement %d: %v", a.ID, err)
		return
	}
	if err := s.notifier.LoanActivated(borrower.Email, borrower.Username, a.ID, end); err != nil {
		s.log.Errorf("Failed to send activation notification for agreement %d: %v", a.ID, err)
	}
}

func (s *Service) notifyCompleted(a *models.LoanAgreement) {
	if s.notifier == nil {
		return
	}
	for _, userID := range []int64{a.BorrowerID, a.LenderID} {
		if userID == 0 {
			continue
		}
		u, err := s.store.FindUserByID(userID)
		if err != nil {
			s.log.Errorf("Completion notification lookup failed for agreement %d: %v", a.ID, err)
			continue
		}
		if err := s.notifier.LoanCompleted(u.Email, u.Username, a.ID); err != nil {
			s.log.Errorf("Failed to send completion notification for agreement %d: %v", a.ID, err)
		}
	}
}

func (s *Service) notifyDefaulted(a *models.LoanAgreement) {
	if s.notifier == nil {
		return
	}
	for _, userID := range []int64{a.BorrowerID, a.LenderID} {
		if userID == 0 {
			continue
		}
		u, err := s.store.FindUserByID(userID)
		if err != nil {
			s.log.Errorf("Default notification lookup failed for agreement %d: %v", a.ID, err)
			continue
		}
		if err := s.notifier.LoanDefaulted(u.Email, u.Username, a.ID, a.RemainingDue()); err != nil {
			s.log.Errorf("Failed to send default notification for agreement %d: %v", a.ID, err)
		}
	}
}

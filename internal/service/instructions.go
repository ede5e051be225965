package service

import (
	"fmt"

	"github.com/peerfund/lending-service/internal/models"
	"github.com/peerfund/lending-service/internal/utils"
)

// PaymentInstructions carries the deep link and transfer text for the next
// payment due on an agreement.
type PaymentInstructions struct {
	AgreementID  int64   `json:"agreement_id"`
	Purpose      string  `json:"purpose"`
	Amount       float64 `json:"amount"`
	UPILink      string  `json:"upi_link"`
	BankTransfer string  `json:"bank_transfer"`
}

// Instructions returns payment instructions for the agreement's current
// obligation: funding while pending and claimed, repayment while active.
func (s *Service) Instructions(agreementID, requesterID int64) (*PaymentInstructions, error) {
	a, err := s.store.FindAgreementByID(agreementID)
	if err != nil {
		return nil, err
	}
	if requesterID != a.BorrowerID && requesterID != a.LenderID {
		return nil, models.NewInvalidStateError("user %d is not a party to agreement %d", requesterID, agreementID)
	}

	switch a.Status {
	case models.StatusPending:
		if !a.Claimed() {
			return nil, models.NewInvalidStateError("agreement %d has no lender yet", agreementID)
		}
		note := fmt.Sprintf("Loan %d funding", agreementID)
		return &PaymentInstructions{
			AgreementID:  agreementID,
			Purpose:      models.TxFunding,
			Amount:       a.Amount,
			UPILink:      utils.UPILink(s.config.PlatformVPA, s.config.PlatformName, a.Amount, note),
			BankTransfer: utils.BankTransferInstructions(s.config.PlatformName, s.config.PlatformVPA, a.Amount, note),
		}, nil
	case models.StatusActive:
		remaining := a.RemainingDue()
		if remaining == 0 {
			return nil, models.NewInvalidStateError("agreement %d has no balance due", agreementID)
		}
		payeeVPA := s.config.PlatformVPA
		payeeName := s.config.PlatformName
		if lender, err := s.store.FindUserByID(a.LenderID); err == nil && lender.UPIAddress != "" {
			payeeVPA = lender.UPIAddress
			payeeName = lender.Username
		}
		note := fmt.Sprintf("Loan %d repayment", agreementID)
		return &PaymentInstructions{
			AgreementID:  agreementID,
			Purpose:      models.TxRepayment,
			Amount:       remaining,
			UPILink:      utils.UPILink(payeeVPA, payeeName, remaining, note),
			BankTransfer: utils.BankTransferInstructions(payeeName, payeeVPA, remaining, note),
		}, nil
	default:
		return nil, models.NewInvalidStateError("agreement %d is %s; no payment is due", agreementID, a.Status)
	}
}

// RecordGatewayCapture routes a signature-verified gateway capture to the
// right transition: lender funding while pending, repayment while active.
func (s *Service) RecordGatewayCapture(agreementID int64, amount float64, purpose, referenceID string) error {
	switch purpose {
	case models.TxFunding:
		if amount <= 0 {
			return models.NewValidationError("funding amount must be positive, got %.2f", amount)
		}
		a, err := s.store.FindAgreementByID(agreementID)
		if err != nil {
			return err
		}
		if !a.Claimed() {
			return models.NewInvalidStateError("agreement %d has no lender yet", agreementID)
		}
		if amount != a.Amount {
			return models.NewValidationError("funding amount %.2f must equal the principal %.2f", amount, a.Amount)
		}
		if _, err := s.store.RecordFunding(agreementID, amount, models.MethodGateway, referenceID); err != nil {
			return err
		}
		s.log.Infof("Agreement %d funded with %.2f via gateway (ref %s)", agreementID, amount, referenceID)
		return nil
	case models.TxRepayment:
		_, _, err := s.RecordPayment(agreementID, amount, models.MethodGateway, referenceID)
		return err
	default:
		return models.NewValidationError("unknown capture purpose %q", purpose)
	}
}

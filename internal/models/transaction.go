package models

import "time"

// Payment methods accepted for transactions.
const (
	MethodUPI          = "upi"
	MethodBankTransfer = "bank_transfer"
	MethodGateway      = "gateway"
)

// Transaction types.
const (
	TxFunding   = "funding"
	TxRepayment = "repayment"
)

// Transaction records one payment against an agreement. Append-only.
type Transaction struct {
	ID          int64     `json:"id"`
	AgreementID int64     `json:"agreement_id"`
	Amount      float64   `json:"amount"`
	Method      string    `json:"method"`
	Type        string    `json:"type"`
	ReferenceID string    `json:"reference_id"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

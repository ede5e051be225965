package handler

import (
	"encoding/json"
	"net/http"

	"github.com/peerfund/lending-service/internal/models"
)

// CreateLoan opens a new loan request for the caller
func (h *Handler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	var req struct {
		Amount          float64 `json:"amount"`
		Purpose         string  `json:"purpose"`
		DurationMonths  int     `json:"duration_months"`
		InterestRateBps *int64  `json:"interest_rate_bps"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	a, err := h.svc.CreateRequest(uid, req.Amount, req.Purpose, req.DurationMonths, req.InterestRateBps)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// ListLoans returns open, claimable loan requests
func (h *Handler) ListLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.svc.ListOpenRequests()
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loans)
}

// GetLoan returns one agreement
func (h *Handler) GetLoan(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid agreement id", http.StatusBadRequest)
		return
	}
	a, err := h.svc.GetAgreement(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// ClaimLoan binds the caller as lender on an open request
func (h *Handler) ClaimLoan(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid agreement id", http.StatusBadRequest)
		return
	}
	a, err := h.svc.Claim(id, uid)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// SignLoan records the caller's signature on the agreement terms
func (h *Handler) SignLoan(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid agreement id", http.StatusBadRequest)
		return
	}
	var req struct {
		SignatureData string `json:"signature_data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	a, err := h.svc.FinalizeTerms(id, uid, req.SignatureData)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// FundLoan records the lender's principal deposit
func (h *Handler) FundLoan(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid agreement id", http.StatusBadRequest)
		return
	}
	var req struct {
		Amount      float64 `json:"amount"`
		Method      string  `json:"method"`
		ReferenceID string  `json:"reference_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Method == "" {
		req.Method = models.MethodBankTransfer
	}
	t, err := h.svc.Fund(id, uid, req.Amount, req.Method, req.ReferenceID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// ActivateLoan starts the repayment window on a signed, funded agreement
func (h *Handler) ActivateLoan(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid agreement id", http.StatusBadRequest)
		return
	}
	a, err := h.svc.Activate(id, uid)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// RecordLoanPayment records a borrower-reported repayment
func (h *Handler) RecordLoanPayment(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid agreement id", http.StatusBadRequest)
		return
	}
	var req struct {
		Amount      float64 `json:"amount"`
		Method      string  `json:"method"`
		ReferenceID string  `json:"reference_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	a, t, err := h.svc.RecordManualPayment(id, uid, req.Amount, req.Method, req.ReferenceID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"agreement": a, "transaction": t})
}

// DefaultLoan declares a default on an overdue agreement
func (h *Handler) DefaultLoan(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid agreement id", http.StatusBadRequest)
		return
	}
	a, err := h.svc.MarkDefaultedBy(id, uid)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// CancelLoan withdraws a pending agreement
func (h *Handler) CancelLoan(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid agreement id", http.StatusBadRequest)
		return
	}
	a, err := h.svc.Cancel(id, uid)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// ListLoanTransactions returns the payment history of an agreement
func (h *Handler) ListLoanTransactions(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid agreement id", http.StatusBadRequest)
		return
	}
	txs, err := h.svc.ListTransactions(id, uid)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

// LoanInstructions returns UPI and bank-transfer instructions for the
// agreement's current obligation
func (h *Handler) LoanInstructions(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid agreement id", http.StatusBadRequest)
		return
	}
	inst, err := h.svc.Instructions(id, uid)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inst)
}

// RateLoan records a rating for the counterparty of a completed loan
func (h *Handler) RateLoan(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid agreement id", http.StatusBadRequest)
		return
	}
	rating := &models.Rating{}
	if err := json.NewDecoder(r.Body).Decode(rating); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	created, err := h.svc.RateCounterparty(id, uid, rating)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

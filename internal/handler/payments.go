package handler

import (
	"encoding/json"
	"net/http"

	"github.com/peerfund/lending-service/internal/observability"
)

// CreateOrder creates a gateway order for a card payment
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	if _, err := userID(r); err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	var req struct {
		Amount  float64 `json:"amount"`
		Receipt string  `json:"receipt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	order, err := h.gateway.CreateOrder(req.Amount, req.Receipt)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

// GatewayWebhook handles the processor's payment-captured callback. The
// signature is verified before any state changes; a rejected webhook leaves
// no trace beyond a counter.
func (h *Handler) GatewayWebhook(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrderID     string  `json:"order_id"`
		PaymentID   string  `json:"payment_id"`
		AgreementID int64   `json:"agreement_id"`
		Amount      float64 `json:"amount"`
		Purpose     string  `json:"purpose"`
		Signature   string  `json:"signature"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !h.gateway.VerifySignature(req.OrderID, req.PaymentID, req.AgreementID, req.Amount, req.Purpose, req.Signature) {
		observability.WebhookRejections.Inc()
		h.log.Warnf("Rejected gateway webhook for order %s: bad signature", req.OrderID)
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}
	if err := h.svc.RecordGatewayCapture(req.AgreementID, req.Amount, req.Purpose, req.PaymentID); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

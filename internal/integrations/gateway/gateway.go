// Package gateway integrates with the hosted card payment processor. Order
// creation is a thin construction of the fields the checkout client needs;
// capture confirmations arrive on the webhook and are authenticated by an
// HMAC-SHA256 signature over the full capture payload
// "orderID|paymentID|agreementID|amount|purpose".
package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"github.com/peerfund/lending-service/internal/config"
	"github.com/peerfund/lending-service/internal/models"
	"github.com/sirupsen/logrus"
)

// Client signs and verifies gateway payloads
type Client struct {
	keyID  string
	secret string
	log    *logrus.Logger
}

// NewClient initializes a new gateway client
func NewClient(cfg *config.Config, log *logrus.Logger) *Client {
	return &Client{
		keyID:  cfg.GatewayKeyID,
		secret: cfg.GatewaySecret,
		log:    log,
	}
}

// Order is what the checkout client needs to collect a card payment.
type Order struct {
	ID       string  `json:"id"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Receipt  string  `json:"receipt"`
	KeyID    string  `json:"key_id"`
}

// CreateOrder builds a gateway order for the given amount.
func (c *Client) CreateOrder(amount float64, receipt string) (*Order, error) {
	if amount <= 0 {
		return nil, models.NewValidationError("order amount must be positive, got %.2f", amount)
	}
	if receipt == "" {
		receipt = "rcpt_" + uuid.NewString()
	}
	order := &Order{
		ID:       "order_" + uuid.NewString(),
		Amount:   amount,
		Currency: "INR",
		Receipt:  receipt,
		KeyID:    c.keyID,
	}
	c.log.Infof("Gateway order %s created for %.2f", order.ID, amount)
	return order, nil
}

// Sign computes the capture signature. It covers every field the capture
// acts on, so an agreement id, amount or purpose edited after signing does
// not verify.
func (c *Client) Sign(orderID, paymentID string, agreementID int64, amount float64, purpose string) string {
	mac := hmac.New(sha256.New, []byte(c.secret))
	fmt.Fprintf(mac, "%s|%s|%d|%.2f|%s", orderID, paymentID, agreementID, amount, purpose)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a webhook capture signature in constant time.
func (c *Client) VerifySignature(orderID, paymentID string, agreementID int64, amount float64, purpose, signature string) bool {
	expected := c.Sign(orderID, paymentID, agreementID, amount, purpose)
	return hmac.Equal([]byte(expected), []byte(signature))
}

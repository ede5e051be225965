// Package observability holds the service's Prometheus metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// LoanTransitions counts lifecycle transitions by destination state.
var LoanTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "lending_loan_transitions_total",
	Help: "Loan agreement lifecycle transitions by destination state.",
}, []string{"to"})

// PaymentsRecorded counts repayments applied to active agreements.
var PaymentsRecorded = promauto.NewCounter(prometheus.CounterOpts{
	Name: "lending_payments_recorded_total",
	Help: "Repayments recorded against active agreements.",
})

// TrustRecomputes counts trust score recomputations.
var TrustRecomputes = promauto.NewCounter(prometheus.CounterOpts{
	Name: "lending_trust_recomputes_total",
	Help: "Trust score recomputations persisted.",
})

// WebhookRejections counts gateway webhooks rejected for bad signatures.
var WebhookRejections = promauto.NewCounter(prometheus.CounterOpts{
	Name: "lending_webhook_rejections_total",
	Help: "Payment gateway webhooks rejected during signature verification.",
})

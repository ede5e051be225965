package models

import (
	"math"
	"testing"
	"time"
)

func TestTotalDue(t *testing.T) {
	a := &LoanAgreement{Amount: 5000, InterestRateBps: 250, DurationMonths: 6}
	if got, want := a.TotalDue(), 5062.5; got != want {
		t.Errorf("TotalDue() = %f, want %f", got, want)
	}
}

func TestTotalDue_ZeroRate(t *testing.T) {
	a := &LoanAgreement{Amount: 1000, InterestRateBps: 0, DurationMonths: 12}
	if got := a.TotalDue(); got != 1000 {
		t.Errorf("TotalDue() = %f, want 1000", got)
	}
}

func TestTotalDue_FullYear(t *testing.T) {
	// 10% annual simple interest over 12 months
	a := &LoanAgreement{Amount: 1000, InterestRateBps: 1000, DurationMonths: 12}
	if got, want := a.TotalDue(), 1100.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("TotalDue() = %f, want %f", got, want)
	}
}

func TestRemainingDue_NeverNegative(t *testing.T) {
	a := &LoanAgreement{Amount: 100, InterestRateBps: 0, DurationMonths: 1, AmountRepaid: 150}
	if got := a.RemainingDue(); got != 0 {
		t.Errorf("RemainingDue() = %f, want 0", got)
	}
}

func TestTermEnd_ThirtyDayMonths(t *testing.T) {
	a := &LoanAgreement{DurationMonths: 6}
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := a.TermEnd(start)
	if got, want := end.Sub(start), 180*24*time.Hour; got != want {
		t.Errorf("term length = %v, want %v", got, want)
	}
}

func TestBothSigned(t *testing.T) {
	a := &LoanAgreement{}
	if a.BothSigned() {
		t.Error("unsigned agreement reports both signed")
	}
	a.BorrowerSignature = "sig-b"
	if a.BothSigned() {
		t.Error("half-signed agreement reports both signed")
	}
	a.LenderSignature = "sig-l"
	if !a.BothSigned() {
		t.Error("fully signed agreement reports not signed")
	}
}

func TestTerminal(t *testing.T) {
	for status, want := range map[AgreementStatus]bool{
		StatusPending:   false,
		StatusActive:    false,
		StatusCompleted: true,
		StatusDefaulted: true,
		StatusCancelled: true,
	} {
		a := &LoanAgreement{Status: status}
		if got := a.Terminal(); got != want {
			t.Errorf("Terminal() for %s = %v, want %v", status, got, want)
		}
	}
}

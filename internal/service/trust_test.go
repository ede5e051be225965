package service

import (
	"testing"

	"github.com/peerfund/lending-service/internal/models"
)

func TestRecordEvent_FirstTimeUser(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	user := store.addUser("asha")

	// A user with no prior score must not error
	if err := svc.RecordEvent(user.ID, models.EventPaymentMade, "payment received", nil); err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}

	ts, err := svc.GetTrustScore(user.ID)
	if err != nil {
		t.Fatalf("GetTrustScore: %v", err)
	}
	if ts.RepaymentScore != models.DefaultSubScore+5 {
		t.Errorf("repayment = %f, want %f", ts.RepaymentScore, models.DefaultSubScore+5)
	}
}

func TestRecordEvent_DefaultStrictlyDecreasesRepayment(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	user := store.addUser("asha")

	before, err := svc.GetTrustScore(user.ID)
	if err != nil {
		t.Fatalf("GetTrustScore: %v", err)
	}

	if err := svc.RecordEvent(user.ID, models.EventLoanDefaulted, "loan defaulted", int64ptr(42)); err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}

	after, err := svc.GetTrustScore(user.ID)
	if err != nil {
		t.Fatalf("GetTrustScore: %v", err)
	}
	if after.RepaymentScore >= before.RepaymentScore {
		t.Errorf("repayment = %f, want strictly below %f", after.RepaymentScore, before.RepaymentScore)
	}

	history, err := svc.TrustHistory(user.ID)
	if err != nil {
		t.Fatalf("TrustHistory: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history entries = %d, want 1", len(history))
	}
	entry := history[0]
	if entry.OldScore != before.TotalScore {
		t.Errorf("old score = %f, want score before the call %f", entry.OldScore, before.TotalScore)
	}
	if entry.NewScore != after.TotalScore {
		t.Errorf("new score = %f, want %f", entry.NewScore, after.TotalScore)
	}
	if entry.Delta != after.TotalScore-before.TotalScore {
		t.Errorf("delta = %f, want %f", entry.Delta, after.TotalScore-before.TotalScore)
	}
	if entry.ReferenceID == nil || *entry.ReferenceID != 42 {
		t.Errorf("reference id = %v, want 42", entry.ReferenceID)
	}
}

func TestGetTrustScore_UnknownUser(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)

	if _, err := svc.GetTrustScore(404); !models.IsKind(err, models.KindNotFound) {
		t.Errorf("unknown user: got %v, want not found", err)
	}
}

func TestRecordEvent_UnknownType(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	user := store.addUser("asha")

	err := svc.RecordEvent(user.ID, "made_up", "x", nil)
	if !models.IsKind(err, models.KindValidation) {
		t.Errorf("unknown event: got %v, want validation error", err)
	}
}

func TestRecompute_WritesHistory(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	user := store.addUser("asha")

	ts, err := svc.Recompute(user.ID, "scheduled recompute")
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if ts.TotalScore < models.TotalScoreMin || ts.TotalScore > models.TotalScoreMax {
		t.Errorf("total = %f, outside valid range", ts.TotalScore)
	}

	history, err := svc.TrustHistory(user.ID)
	if err != nil {
		t.Fatalf("TrustHistory: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history entries = %d, want 1", len(history))
	}
	if history[0].EventType != models.EventRecompute {
		t.Errorf("event type = %s, want %s", history[0].EventType, models.EventRecompute)
	}
	if history[0].Delta != 0 {
		t.Errorf("delta = %f, want 0 for bare recompute", history[0].Delta)
	}
}

func TestVerifyIdentity_CreditsOnce(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	user := store.addUser("asha")

	if err := svc.VerifyIdentity(user.ID); err != nil {
		t.Fatalf("VerifyIdentity: %v", err)
	}
	if err := svc.VerifyIdentity(user.ID); err != nil {
		t.Fatalf("VerifyIdentity again: %v", err)
	}

	history, err := svc.TrustHistory(user.ID)
	if err != nil {
		t.Fatalf("TrustHistory: %v", err)
	}
	count := 0
	for _, e := range history {
		if e.EventType == models.EventVerificationCompleted {
			count++
		}
	}
	if count != 1 {
		t.Errorf("verification events = %d, want 1", count)
	}
}

func TestAchievements_FirstLoanEarnsOnce(t *testing.T) {
	svc, _, borrower, lender, a := newLoanFixture(t)
	activateLoan(t, svc, a, borrower.ID, lender.ID)

	// Complete the loan; this should earn first_loan_completed
	if _, _, err := svc.RecordPayment(a.ID, a.TotalDue(), models.MethodUPI, "full"); err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}

	achievements, err := svc.Achievements(borrower.ID)
	if err != nil {
		t.Fatalf("Achievements: %v", err)
	}
	found := false
	for _, ach := range achievements {
		if ach.Code == models.AchievementFirstLoanCompleted {
			found = true
		}
	}
	if !found {
		t.Fatal("first_loan_completed not earned")
	}

	// A second completion event must not earn it twice
	if err := svc.RecordEvent(borrower.ID, models.EventLoanCompleted, "another", nil); err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}
	history, err := svc.TrustHistory(borrower.ID)
	if err != nil {
		t.Fatalf("TrustHistory: %v", err)
	}
	bonuses := 0
	for _, e := range history {
		if e.EventType == models.EventAchievementEarned {
			bonuses++
		}
	}
	if bonuses != 1 {
		t.Errorf("achievement bonuses = %d, want 1", bonuses)
	}
}

func TestRateCounterparty(t *testing.T) {
	svc, store, borrower, lender, a := newLoanFixture(t)
	activateLoan(t, svc, a, borrower.ID, lender.ID)
	if _, _, err := svc.RecordPayment(a.ID, a.TotalDue(), models.MethodUPI, "full"); err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}

	before, err := svc.GetTrustScore(borrower.ID)
	if err != nil {
		t.Fatalf("GetTrustScore: %v", err)
	}

	rating, err := svc.RateCounterparty(a.ID, lender.ID, &models.Rating{Stars: 5, Communication: 5, Timeliness: 4, Reliability: 5})
	if err != nil {
		t.Fatalf("RateCounterparty: %v", err)
	}
	if rating.RateeID != borrower.ID {
		t.Errorf("ratee = %d, want borrower %d", rating.RateeID, borrower.ID)
	}

	after, err := svc.GetTrustScore(borrower.ID)
	if err != nil {
		t.Fatalf("GetTrustScore: %v", err)
	}
	if after.SocialScore <= before.SocialScore {
		t.Errorf("social = %f, want above %f after 5-star rating", after.SocialScore, before.SocialScore)
	}

	// Same direction again is rejected
	if _, err := svc.RateCounterparty(a.ID, lender.ID, &models.Rating{Stars: 4}); !models.IsKind(err, models.KindInvalidState) {
		t.Errorf("duplicate rating: got %v, want invalid state", err)
	}
	// Opposite direction is fine
	if _, err := svc.RateCounterparty(a.ID, borrower.ID, &models.Rating{Stars: 4}); err != nil {
		t.Errorf("borrower rating lender: %v", err)
	}
	// Strangers may not rate
	stranger := store.addUser("mallory")
	if _, err := svc.RateCounterparty(a.ID, stranger.ID, &models.Rating{Stars: 1}); !models.IsKind(err, models.KindInvalidState) {
		t.Errorf("stranger rating: got %v, want invalid state", err)
	}
}

func TestRateCounterparty_RequiresCompleted(t *testing.T) {
	svc, _, borrower, lender, a := newLoanFixture(t)
	activateLoan(t, svc, a, borrower.ID, lender.ID)

	if _, err := svc.RateCounterparty(a.ID, lender.ID, &models.Rating{Stars: 3}); !models.IsKind(err, models.KindInvalidState) {
		t.Errorf("rating active loan: got %v, want invalid state", err)
	}
}

func TestRateCounterparty_StarsValidated(t *testing.T) {
	svc, _, _, lender, a := newLoanFixture(t)
	for _, stars := range []int{0, 6, -1} {
		if _, err := svc.RateCounterparty(a.ID, lender.ID, &models.Rating{Stars: stars}); !models.IsKind(err, models.KindValidation) {
			t.Errorf("stars=%d: got %v, want validation error", stars, err)
		}
	}
}

package service

import (
	"fmt"

	"github.com/peerfund/lending-service/internal/models"
	"github.com/peerfund/lending-service/internal/observability"
)

// GetTrustScore returns a user's current score. First-time users get the
// neutral default without anything being persisted.
func (s *Service) GetTrustScore(userID int64) (*models.TrustScore, error) {
	return s.store.GetTrustScore(userID)
}

// TrustHistory returns a user's score audit trail, newest first
func (s *Service) TrustHistory(userID int64) ([]*models.TrustScoreHistoryEntry, error) {
	return s.store.ListTrustHistory(userID)
}

// Achievements returns a user's earned achievements
func (s *Service) Achievements(userID int64) ([]*models.Achievement, error) {
	return s.store.ListAchievements(userID)
}

// RecordEvent applies the deterministic adjustment for an externally
// triggered event and recomputes the user's trust score.
func (s *Service) RecordEvent(userID int64, event models.TrustEventType, reason string, referenceID *int64) error {
	adj, ok := models.AdjustmentForEvent(event)
	if !ok {
		return models.NewValidationError("unknown trust event type %q", event)
	}
	return s.applyAdjustment(userID, adj, event, reason, referenceID)
}

// Recompute recalculates and persists a user's score without any sub-score
// adjustment, recording a history entry for the audit trail.
func (s *Service) Recompute(userID int64, reason string) (*models.TrustScore, error) {
	ts, _, err := s.store.ApplyTrustAdjustment(userID, models.TrustAdjustment{}, models.EventRecompute, reason, nil)
	if err != nil {
		return nil, err
	}
	observability.TrustRecomputes.Inc()
	return ts, nil
}

// emitEvent records a domain event against a user's trust score; failures
// are logged, never allowed to fail the transition that produced them.
func (s *Service) emitEvent(userID int64, event models.TrustEventType, reason string, referenceID *int64) {
	if err := s.RecordEvent(userID, event, reason, referenceID); err != nil {
		s.log.Errorf("Failed to record trust event %s for user %d: %v", event, userID, err)
	}
}

func (s *Service) applyAdjustment(userID int64, adj models.TrustAdjustment, event models.TrustEventType, reason string, referenceID *int64) error {
	ts, entry, err := s.store.ApplyTrustAdjustment(userID, adj, event, reason, referenceID)
	if err != nil {
		return err
	}
	observability.TrustRecomputes.Inc()
	s.log.Infof("Trust score for user %d: %.1f -> %.1f (%s, %s)", userID, entry.OldScore, entry.NewScore, event, ts.Tier)

	if event != models.EventAchievementEarned {
		s.evaluateAchievements(userID, event)
	}
	return nil
}

// evaluateAchievements checks the earn-once predicates relevant to the
// event that just fired and credits any newly earned bonus.
func (s *Service) evaluateAchievements(userID int64, event models.TrustEventType) {
	var candidates []string
	switch event {
	case models.EventLoanCompleted:
		completed, err := s.store.CountCompletedLoans(userID)
		if err != nil {
			s.log.Errorf("Achievement check failed for user %d: %v", userID, err)
			return
		}
		if completed >= 1 {
			candidates = append(candidates, models.AchievementFirstLoanCompleted)
		}
		if completed >= 5 {
			candidates = append(candidates, models.AchievementFiveLoansCompleted)
		}
	case models.EventPaymentMade:
		onTime, err := s.store.CountOnTimePayments(userID)
		if err != nil {
			s.log.Errorf("Achievement check failed for user %d: %v", userID, err)
			return
		}
		if onTime >= 10 {
			candidates = append(candidates, models.AchievementPunctualPayer)
		}
	case models.EventRatingReceived:
		avg, count, err := s.store.AverageRating(userID)
		if err != nil {
			s.log.Errorf("Achievement check failed for user %d: %v", userID, err)
			return
		}
		if count >= 3 && avg >= 4.5 {
			candidates = append(candidates, models.AchievementTrustedBorrower)
		}
	}

	for _, code := range candidates {
		earned, err := s.store.EarnAchievement(userID, code)
		if err != nil {
			s.log.Errorf("Failed to record achievement %s for user %d: %v", code, userID, err)
			continue
		}
		if !earned {
			continue
		}
		s.log.Infof("User %d earned achievement %s", userID, code)
		s.emitEvent(userID, models.EventAchievementEarned, fmt.Sprintf("achievement earned: %s", code), nil)
	}
}

package service

import (
	"fmt"

	"github.com/peerfund/lending-service/internal/models"
)

// RateCounterparty records a rating by one party to a completed agreement
// about the other, then credits the ratee's social score.
func (s *Service) RateCounterparty(agreementID, raterID int64, rating *models.Rating) (*models.Rating, error) {
	if err := rating.Validate(); err != nil {
		return nil, err
	}
	a, err := s.store.FindAgreementByID(agreementID)
	if err != nil {
		return nil, err
	}
	if a.Status != models.StatusCompleted {
		return nil, models.NewInvalidStateError("agreement %d is %s; only completed loans can be rated", agreementID, a.Status)
	}

	var rateeID int64
	switch raterID {
	case a.BorrowerID:
		rateeID = a.LenderID
	case a.LenderID:
		rateeID = a.BorrowerID
	default:
		return nil, models.NewInvalidStateError("user %d is not a party to agreement %d", raterID, agreementID)
	}

	rating.AgreementID = agreementID
	rating.RaterID = raterID
	rating.RateeID = rateeID
	if err := s.store.CreateRating(rating); err != nil {
		return nil, err
	}

	s.log.Infof("Agreement %d rated %d stars by user %d for user %d", agreementID, rating.Stars, raterID, rateeID)

	adj := models.RatingAdjustment(rating.Stars)
	reason := fmt.Sprintf("received a %d-star rating", rating.Stars)
	if err := s.applyAdjustment(rateeID, adj, models.EventRatingReceived, reason, &a.ID); err != nil {
		s.log.Errorf("Failed to record rating event for user %d: %v", rateeID, err)
	}
	return rating, nil
}

// RatingsForUser returns the ratings a user has received
func (s *Service) RatingsForUser(userID int64) ([]*models.Rating, error) {
	return s.store.ListRatingsForUser(userID)
}

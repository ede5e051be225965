package service

import (
	"time"

	"github.com/peerfund/lending-service/internal/config"
	"github.com/peerfund/lending-service/internal/models"
	"github.com/sirupsen/logrus"
)

// UserStore persists users.
type UserStore interface {
	CreateUser(user *models.User) error
	FindUserByEmail(email string) (*models.User, error)
	FindUserByID(id int64) (*models.User, error)
	MarkUserVerified(id int64) (bool, error)
}

// AgreementStore persists loan agreements and their transactions. Transition
// methods apply their precondition checks atomically with the update.
type AgreementStore interface {
	CreateAgreement(a *models.LoanAgreement) error
	FindAgreementByID(id int64) (*models.LoanAgreement, error)
	ListOpenRequests() ([]*models.LoanAgreement, error)
	ListOverdueAgreements(now time.Time) ([]*models.LoanAgreement, error)
	ListAgreementsEndingBefore(cutoff time.Time) ([]*models.LoanAgreement, error)
	ClaimAgreement(id, lenderID int64) error
	SaveSignature(id int64, isBorrower bool, signature string, at time.Time) error
	RecordFunding(id int64, amount float64, method, referenceID string) (*models.Transaction, error)
	ActivateAgreement(id int64, start, end time.Time) error
	RecordRepayment(id int64, amount float64, method, referenceID string, now time.Time) (*models.LoanAgreement, *models.Transaction, error)
	MarkDefaulted(id int64, now time.Time) (*models.LoanAgreement, error)
	CancelAgreement(id int64) error
	ListTransactions(agreementID int64) ([]*models.Transaction, error)
	CountOnTimePayments(userID int64) (int, error)
	CountCompletedLoans(userID int64) (int, error)
}

// TrustStore persists trust scores and their audit trail.
type TrustStore interface {
	GetTrustScore(userID int64) (*models.TrustScore, error)
	ApplyTrustAdjustment(userID int64, adj models.TrustAdjustment, event models.TrustEventType, reason string, referenceID *int64) (*models.TrustScore, *models.TrustScoreHistoryEntry, error)
	ListTrustHistory(userID int64) ([]*models.TrustScoreHistoryEntry, error)
}

// RatingStore persists ratings and achievements.
type RatingStore interface {
	CreateRating(rating *models.Rating) error
	ListRatingsForUser(userID int64) ([]*models.Rating, error)
	AverageRating(userID int64) (float64, int, error)
	EarnAchievement(userID int64, code string) (bool, error)
	ListAchievements(userID int64) ([]*models.Achievement, error)
}

// Store is the full persistence surface the service needs.
type Store interface {
	UserStore
	AgreementStore
	TrustStore
	RatingStore
}

// Notifier sends loan event notifications. Implementations must not block
// transitions; failures are logged, never surfaced.
type Notifier interface {
	LoanClaimed(to, username string, agreementID int64, amount float64) error
	LoanActivated(to, username string, agreementID int64, endDate time.Time) error
	LoanCompleted(to, username string, agreementID int64) error
	LoanDefaulted(to, username string, agreementID int64, remaining float64) error
	PaymentReminder(to, username string, agreementID int64, remaining float64, endDate time.Time) error
}

// RateSuggester supplies a suggested annual interest rate in percent.
type RateSuggester interface {
	SuggestedRate() (float64, error)
}

// Service handles business logic
type Service struct {
	store    Store
	log      *logrus.Logger
	config   *config.Config
	notifier Notifier
	rates    RateSuggester
	now      func() time.Time
}

// NewService initializes a new service. notifier and rates may be nil.
func NewService(store Store, log *logrus.Logger, cfg *config.Config, notifier Notifier, rates RateSuggester) *Service {
	return &Service{
		store:    store,
		log:      log,
		config:   cfg,
		notifier: notifier,
		rates:    rates,
		now:      time.Now,
	}
}

package service

import (
	"io"
	"sync"
	"time"

	"github.com/peerfund/lending-service/internal/config"
	"github.com/peerfund/lending-service/internal/models"
	"github.com/sirupsen/logrus"
)

// memStore implements Store in memory with the same transition semantics as
// the Postgres repository: precondition checks are applied atomically with
// each update under one lock.
type memStore struct {
	mu           sync.Mutex
	users        map[int64]*models.User
	agreements   map[int64]*models.LoanAgreement
	transactions []*models.Transaction
	scores       map[int64]*models.TrustScore
	history      []*models.TrustScoreHistoryEntry
	ratings      []*models.Rating
	achievements map[int64]map[string]bool
	nextID       int64
}

func newMemStore() *memStore {
	return &memStore{
		users:        make(map[int64]*models.User),
		agreements:   make(map[int64]*models.LoanAgreement),
		scores:       make(map[int64]*models.TrustScore),
		achievements: make(map[int64]map[string]bool),
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) addUser(username string) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &models.User{ID: m.id(), Username: username, Email: username + "@example.com"}
	m.users[u.ID] = u
	return u
}

func (m *memStore) CreateUser(user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user.ID = m.id()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	m.users[user.ID] = user
	return nil
}

func (m *memStore) FindUserByEmail(email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, models.NewNotFoundError("user not found")
}

func (m *memStore) FindUserByID(id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, models.NewNotFoundError("user %d not found", id)
	}
	return u, nil
}

func (m *memStore) MarkUserVerified(id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || u.Verified {
		return false, nil
	}
	u.Verified = true
	return true, nil
}

func (m *memStore) CreateAgreement(a *models.LoanAgreement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = m.id()
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	m.agreements[a.ID] = a
	return nil
}

func (m *memStore) find(id int64) (*models.LoanAgreement, error) {
	a, ok := m.agreements[id]
	if !ok {
		return nil, models.NewNotFoundError("agreement %d not found", id)
	}
	return a, nil
}

func (m *memStore) FindAgreementByID(id int64) (*models.LoanAgreement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, err := m.find(id)
	if err != nil {
		return nil, err
	}
	copied := *a
	return &copied, nil
}

func (m *memStore) ListOpenRequests() ([]*models.LoanAgreement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.LoanAgreement
	for _, a := range m.agreements {
		if a.Status == models.StatusPending && !a.Claimed() {
			copied := *a
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memStore) ListOverdueAgreements(now time.Time) ([]*models.LoanAgreement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.LoanAgreement
	for _, a := range m.agreements {
		if a.Status == models.StatusActive && a.EndDate != nil && a.EndDate.Before(now) {
			copied := *a
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memStore) ListAgreementsEndingBefore(cutoff time.Time) ([]*models.LoanAgreement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.LoanAgreement
	for _, a := range m.agreements {
		if a.Status == models.StatusActive && a.EndDate != nil && !a.EndDate.After(cutoff) {
			copied := *a
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memStore) ClaimAgreement(id, lenderID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, err := m.find(id)
	if err != nil {
		return err
	}
	if a.Status != models.StatusPending {
		return models.NewInvalidStateError("agreement %d is %s, not pending", id, a.Status)
	}
	if a.Claimed() {
		return models.NewInvalidStateError("agreement %d already has a lender", id)
	}
	a.LenderID = lenderID
	return nil
}

func (m *memStore) SaveSignature(id int64, isBorrower bool, signature string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, err := m.find(id)
	if err != nil {
		return err
	}
	if a.Status != models.StatusPending {
		return models.NewInvalidStateError("agreement %d is %s, not pending", id, a.Status)
	}
	t := at
	if isBorrower {
		a.BorrowerSignature = signature
		a.BorrowerSignedAt = &t
	} else {
		a.LenderSignature = signature
		a.LenderSignedAt = &t
	}
	return nil
}

func (m *memStore) refSeen(referenceID string) bool {
	for _, t := range m.transactions {
		if t.ReferenceID == referenceID {
			return true
		}
	}
	return false
}

func (m *memStore) RecordFunding(id int64, amount float64, method, referenceID string) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, err := m.find(id)
	if err != nil {
		return nil, err
	}
	if a.Status != models.StatusPending {
		return nil, models.NewInvalidStateError("agreement %d is %s, not pending", id, a.Status)
	}
	if a.FundedAmount != 0 {
		return nil, models.NewInvalidStateError("agreement %d is already funded", id)
	}
	if m.refSeen(referenceID) {
		return nil, models.NewInvalidStateError("payment reference %s already recorded", referenceID)
	}
	a.FundedAmount = amount
	t := &models.Transaction{
		ID: m.id(), AgreementID: id, Amount: amount, Method: method,
		Type: models.TxFunding, ReferenceID: referenceID, Status: "completed",
		CreatedAt: time.Now(),
	}
	m.transactions = append(m.transactions, t)
	return t, nil
}

func (m *memStore) ActivateAgreement(id int64, start, end time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, err := m.find(id)
	if err != nil {
		return err
	}
	if a.Status != models.StatusPending {
		return models.NewInvalidStateError("agreement %d is %s, not pending", id, a.Status)
	}
	if !a.BothSigned() {
		return models.NewPreconditionError("agreement %d is missing signatures", id)
	}
	if a.FundedAmount != a.Amount {
		return models.NewPreconditionError("agreement %d funded amount %.2f does not match principal %.2f", id, a.FundedAmount, a.Amount)
	}
	a.Status = models.StatusActive
	s, e := start, end
	a.StartDate = &s
	a.EndDate = &e
	return nil
}

func (m *memStore) RecordRepayment(id int64, amount float64, method, referenceID string, now time.Time) (*models.LoanAgreement, *models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, err := m.find(id)
	if err != nil {
		return nil, nil, err
	}
	if a.Status != models.StatusActive {
		return nil, nil, models.NewInvalidStateError("agreement %d is %s, not active", id, a.Status)
	}
	if m.refSeen(referenceID) {
		return nil, nil, models.NewInvalidStateError("payment reference %s already recorded", referenceID)
	}
	a.AmountRepaid += amount
	if a.AmountRepaid >= a.TotalDue() {
		a.Status = models.StatusCompleted
		t := now
		a.CompletedAt = &t
	}
	t := &models.Transaction{
		ID: m.id(), AgreementID: id, Amount: amount, Method: method,
		Type: models.TxRepayment, ReferenceID: referenceID, Status: "completed",
		CreatedAt: now,
	}
	m.transactions = append(m.transactions, t)
	copied := *a
	return &copied, t, nil
}

func (m *memStore) MarkDefaulted(id int64, now time.Time) (*models.LoanAgreement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, err := m.find(id)
	if err != nil {
		return nil, err
	}
	if a.Status != models.StatusActive {
		return nil, models.NewInvalidStateError("agreement %d is %s, not active", id, a.Status)
	}
	if a.EndDate == nil || now.Before(*a.EndDate) {
		return nil, models.NewPreconditionError("agreement %d loan period is not over", id)
	}
	if a.AmountRepaid >= a.TotalDue() {
		return nil, models.NewPreconditionError("agreement %d is fully repaid", id)
	}
	a.Status = models.StatusDefaulted
	copied := *a
	return &copied, nil
}

func (m *memStore) CancelAgreement(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, err := m.find(id)
	if err != nil {
		return err
	}
	if a.Status != models.StatusPending {
		return models.NewInvalidStateError("agreement %d is %s, not pending", id, a.Status)
	}
	a.Status = models.StatusCancelled
	return nil
}

func (m *memStore) ListTransactions(agreementID int64) ([]*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Transaction
	for _, t := range m.transactions {
		if t.AgreementID == agreementID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) CountOnTimePayments(userID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, t := range m.transactions {
		if t.Type != models.TxRepayment {
			continue
		}
		a, ok := m.agreements[t.AgreementID]
		if !ok || a.BorrowerID != userID || a.EndDate == nil {
			continue
		}
		if !t.CreatedAt.After(*a.EndDate) {
			count++
		}
	}
	return count, nil
}

func (m *memStore) CountCompletedLoans(userID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, a := range m.agreements {
		if a.BorrowerID == userID && a.Status == models.StatusCompleted {
			count++
		}
	}
	return count, nil
}

func (m *memStore) GetTrustScore(userID int64) (*models.TrustScore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ts, ok := m.scores[userID]
	if !ok {
		if _, known := m.users[userID]; !known {
			return nil, models.NewNotFoundError("user %d not found", userID)
		}
		return models.DefaultTrustScore(userID), nil
	}
	copied := *ts
	return &copied, nil
}

func (m *memStore) ApplyTrustAdjustment(userID int64, adj models.TrustAdjustment, event models.TrustEventType, reason string, referenceID *int64) (*models.TrustScore, *models.TrustScoreHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ts, ok := m.scores[userID]
	if !ok {
		ts = models.DefaultTrustScore(userID)
		m.scores[userID] = ts
	}
	oldScore := ts.TotalScore
	ts.Apply(adj)
	ts.Recompute()
	ts.UpdatedAt = time.Now()

	entry := &models.TrustScoreHistoryEntry{
		ID: m.id(), UserID: userID,
		OldScore: oldScore, NewScore: ts.TotalScore, Delta: ts.TotalScore - oldScore,
		EventType: event, Reason: reason, ReferenceID: referenceID,
		CreatedAt: time.Now(),
	}
	m.history = append(m.history, entry)
	copied := *ts
	return &copied, entry, nil
}

func (m *memStore) ListTrustHistory(userID int64) ([]*models.TrustScoreHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.TrustScoreHistoryEntry
	for i := len(m.history) - 1; i >= 0; i-- {
		if m.history[i].UserID == userID {
			out = append(out, m.history[i])
		}
	}
	return out, nil
}

func (m *memStore) CreateRating(rating *models.Rating) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.ratings {
		if r.AgreementID == rating.AgreementID && r.RaterID == rating.RaterID {
			return models.NewInvalidStateError("agreement %d already rated by user %d", rating.AgreementID, rating.RaterID)
		}
	}
	rating.ID = m.id()
	rating.CreatedAt = time.Now()
	m.ratings = append(m.ratings, rating)
	return nil
}

func (m *memStore) ListRatingsForUser(userID int64) ([]*models.Rating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Rating
	for _, r := range m.ratings {
		if r.RateeID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) AverageRating(userID int64) (float64, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sum, count := 0, 0
	for _, r := range m.ratings {
		if r.RateeID == userID {
			sum += r.Stars
			count++
		}
	}
	if count == 0 {
		return 0, 0, nil
	}
	return float64(sum) / float64(count), count, nil
}

func (m *memStore) EarnAchievement(userID int64, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	earned, ok := m.achievements[userID]
	if !ok {
		earned = make(map[string]bool)
		m.achievements[userID] = earned
	}
	if earned[code] {
		return false, nil
	}
	earned[code] = true
	return true, nil
}

func (m *memStore) ListAchievements(userID int64) ([]*models.Achievement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Achievement
	for code := range m.achievements[userID] {
		out = append(out, &models.Achievement{UserID: userID, Code: code})
	}
	return out, nil
}

// fakeNotifier records which agreements each notification fired for.
type fakeNotifier struct {
	mu        sync.Mutex
	claimed   []int64
	activated []int64
	completed []int64
	defaulted []int64
	reminders []int64
}

func (n *fakeNotifier) record(dst *[]int64, agreementID int64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	*dst = append(*dst, agreementID)
	return nil
}

func (n *fakeNotifier) LoanClaimed(to, username string, agreementID int64, amount float64) error {
	return n.record(&n.claimed, agreementID)
}

func (n *fakeNotifier) LoanActivated(to, username string, agreementID int64, endDate time.Time) error {
	return n.record(&n.activated, agreementID)
}

func (n *fakeNotifier) LoanCompleted(to, username string, agreementID int64) error {
	return n.record(&n.completed, agreementID)
}

func (n *fakeNotifier) LoanDefaulted(to, username string, agreementID int64, remaining float64) error {
	return n.record(&n.defaulted, agreementID)
}

func (n *fakeNotifier) PaymentReminder(to, username string, agreementID int64, remaining float64, endDate time.Time) error {
	return n.record(&n.reminders, agreementID)
}

func newTestService(t interface{ Helper() }, store Store) *Service {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	cfg := &config.Config{
		JWTSecret:    "test-secret",
		PlatformName: "PeerFund",
		PlatformVPA:  "peerfund@upi",
	}
	svc := NewService(store, log, cfg, nil, nil)
	svc.now = func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	}
	return svc
}

package repository

import (
	"github.com/lib/pq"
	"github.com/peerfund/lending-service/internal/models"
)

// CreateRating inserts a rating. The (agreement_id, rater_id) unique
// constraint enforces one rating per direction per agreement.
func (r *Repository) CreateRating(rating *models.Rating) error {
	query := `
		INSERT INTO lending.ratings
			(agreement_id, rater_id, ratee_id, stars, communication, timeliness, reliability, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, CURRENT_TIMESTAMP)
		RETURNING id, created_at`
	err := r.db.QueryRow(query,
		rating.AgreementID, rating.RaterID, rating.RateeID, rating.Stars,
		rating.Communication, rating.Timeliness, rating.Reliability, rating.Comment).
		Scan(&rating.ID, &rating.CreatedAt)
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
		return models.NewInvalidStateError("agreement %d already rated by user %d", rating.AgreementID, rating.RaterID)
	}
	if err != nil {
		return models.NewExternalError("failed to create rating", err)
	}
	return nil
}

// ListRatingsForUser returns ratings received by a user, newest first
func (r *Repository) ListRatingsForUser(userID int64) ([]*models.Rating, error) {
	rows, err := r.db.Query(`
		SELECT id, agreement_id, rater_id, ratee_id, stars, communication, timeliness, reliability, comment, created_at
		FROM lending.ratings
		WHERE ratee_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, models.NewExternalError("failed to list ratings", err)
	}
	defer rows.Close()

	var out []*models.Rating
	for rows.Next() {
		rt := &models.Rating{}
		if err := rows.Scan(&rt.ID, &rt.AgreementID, &rt.RaterID, &rt.RateeID, &rt.Stars,
			&rt.Communication, &rt.Timeliness, &rt.Reliability, &rt.Comment, &rt.CreatedAt); err != nil {
			return nil, models.NewExternalError("failed to scan rating", err)
		}
		out = append(out, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, models.NewExternalError("failed to read ratings", err)
	}
	return out, nil
}

// AverageRating returns the mean stars received by a user and the count.
func (r *Repository) AverageRating(userID int64) (float64, int, error) {
	var avg float64
	var count int
	err := r.db.QueryRow(`
		SELECT COALESCE(AVG(stars), 0), COUNT(*)
		FROM lending.ratings
		WHERE ratee_id = $1`, userID).Scan(&avg, &count)
	if err != nil {
		return 0, 0, models.NewExternalError("failed to average ratings", err)
	}
	return avg, count, nil
}

// EarnAchievement records an achievement once. Returns true only the first
// time the user earns the given code.
func (r *Repository) EarnAchievement(userID int64, code string) (bool, error) {
	res, err := r.db.Exec(`
		INSERT INTO lending.achievements (user_id, code, earned_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id, code) DO NOTHING`, userID, code)
	if err != nil {
		return false, models.NewExternalError("failed to record achievement", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, models.NewExternalError("failed to record achievement", err)
	}
	return n > 0, nil
}

// ListAchievements returns a user's achievements, oldest first
func (r *Repository) ListAchievements(userID int64) ([]*models.Achievement, error) {
	rows, err := r.db.Query(`
		SELECT id, user_id, code, earned_at
		FROM lending.achievements
		WHERE user_id = $1
		ORDER BY earned_at`, userID)
	if err != nil {
		return nil, models.NewExternalError("failed to list achievements", err)
	}
	defer rows.Close()

	var out []*models.Achievement
	for rows.Next() {
		a := &models.Achievement{}
		if err := rows.Scan(&a.ID, &a.UserID, &a.Code, &a.EarnedAt); err != nil {
			return nil, models.NewExternalError("failed to scan achievement", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, models.NewExternalError("failed to read achievements", err)
	}
	return out, nil
}

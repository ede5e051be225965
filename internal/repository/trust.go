package repository

import (
	"database/sql"

	"github.com/peerfund/lending-service/internal/models"
)

const trustColumns = `
	user_id, repayment_score, performance_score, activity_score, social_score,
	verification_score, base_score, total_score, tier, updated_at`

func scanTrustScore(row rowScanner) (*models.TrustScore, error) {
	ts := &models.TrustScore{}
	err := row.Scan(
		&ts.UserID, &ts.RepaymentScore, &ts.PerformanceScore, &ts.ActivityScore,
		&ts.SocialScore, &ts.VerificationScore, &ts.BaseScore, &ts.TotalScore,
		&ts.Tier, &ts.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return ts, nil
}

// GetTrustScore returns a user's score, or the documented default for an
// existing user with no recorded score yet. The default is not persisted by
// a read; unknown user ids are not given a score.
func (r *Repository) GetTrustScore(userID int64) (*models.TrustScore, error) {
	row := r.db.QueryRow(`SELECT `+trustColumns+` FROM lending.trust_scores WHERE user_id = $1`, userID)
	ts, err := scanTrustScore(row)
	if err == sql.ErrNoRows {
		if _, err := r.FindUserByID(userID); err != nil {
			return nil, err
		}
		return models.DefaultTrustScore(userID), nil
	}
	if err != nil {
		return nil, models.NewExternalError("failed to load trust score", err)
	}
	return ts, nil
}

// ApplyTrustAdjustment applies the sub-score deltas, recomputes the total and
// appends the history entry, all under a row lock so concurrent recomputes
// for the same user serialize. A first-time user starts from the defaults.
func (r *Repository) ApplyTrustAdjustment(userID int64, adj models.TrustAdjustment, event models.TrustEventType, reason string, referenceID *int64) (*models.TrustScore, *models.TrustScoreHistoryEntry, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, nil, models.NewExternalError("failed to begin trust update", err)
	}
	defer tx.Rollback()

	row := tx.QueryRow(`SELECT `+trustColumns+` FROM lending.trust_scores WHERE user_id = $1 FOR UPDATE`, userID)
	ts, err := scanTrustScore(row)
	existing := true
	if err == sql.ErrNoRows {
		ts = models.DefaultTrustScore(userID)
		existing = false
	} else if err != nil {
		return nil, nil, models.NewExternalError("failed to load trust score", err)
	}

	oldScore := ts.TotalScore
	ts.Apply(adj)
	ts.Recompute()

	if existing {
		_, err = tx.Exec(`
			UPDATE lending.trust_scores
			SET repayment_score = $2, performance_score = $3, activity_score = $4,
				social_score = $5, verification_score = $6, base_score = $7,
				total_score = $8, tier = $9, updated_at = CURRENT_TIMESTAMP
			WHERE user_id = $1`,
			userID, ts.RepaymentScore, ts.PerformanceScore, ts.ActivityScore,
			ts.SocialScore, ts.VerificationScore, ts.BaseScore, ts.TotalScore, ts.Tier)
	} else {
		_, err = tx.Exec(`
			INSERT INTO lending.trust_scores
				(user_id, repayment_score, performance_score, activity_score,
				 social_score, verification_score, base_score, total_score, tier, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, CURRENT_TIMESTAMP)`,
			userID, ts.RepaymentScore, ts.PerformanceScore, ts.ActivityScore,
			ts.SocialScore, ts.VerificationScore, ts.BaseScore, ts.TotalScore, ts.Tier)
	}
	if err != nil {
		return nil, nil, models.NewExternalError("failed to save trust score", err)
	}

	entry := &models.TrustScoreHistoryEntry{
		UserID:      userID,
		OldScore:    oldScore,
		NewScore:    ts.TotalScore,
		Delta:       ts.TotalScore - oldScore,
		EventType:   event,
		Reason:      reason,
		ReferenceID: referenceID,
	}
	var refID any
	if referenceID != nil {
		refID = *referenceID
	}
	err = tx.QueryRow(`
		INSERT INTO lending.trust_score_history
			(user_id, old_score, new_score, delta, event_type, reason, reference_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP)
		RETURNING id, created_at`,
		userID, entry.OldScore, entry.NewScore, entry.Delta, entry.EventType, entry.Reason, refID).
		Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return nil, nil, models.NewExternalError("failed to append trust history", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, models.NewExternalError("failed to commit trust update", err)
	}
	return ts, entry, nil
}

// ListTrustHistory returns a user's score history, newest first
func (r *Repository) ListTrustHistory(userID int64) ([]*models.TrustScoreHistoryEntry, error) {
	rows, err := r.db.Query(`
		SELECT id, user_id, old_score, new_score, delta, event_type, reason, reference_id, created_at
		FROM lending.trust_score_history
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, models.NewExternalError("failed to list trust history", err)
	}
	defer rows.Close()

	var out []*models.TrustScoreHistoryEntry
	for rows.Next() {
		e := &models.TrustScoreHistoryEntry{}
		var refID sql.NullInt64
		if err := rows.Scan(&e.ID, &e.UserID, &e.OldScore, &e.NewScore, &e.Delta, &e.EventType, &e.Reason, &refID, &e.CreatedAt); err != nil {
			return nil, models.NewExternalError("failed to scan trust history", err)
		}
		if refID.Valid {
			v := refID.Int64
			e.ReferenceID = &v
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, models.NewExternalError("failed to read trust history", err)
	}
	return out, nil
}

package repository

import (
	"database/sql"

	"github.com/lib/pq"
	"github.com/peerfund/lending-service/internal/models"
)

// insertTransaction writes one payment record. The unique constraint on
// reference_id rejects replayed captures.
func insertTransaction(tx *sql.Tx, t *models.Transaction) error {
	query := `
		INSERT INTO lending.transactions (agreement_id, amount, method, type, reference_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, CURRENT_TIMESTAMP)
		RETURNING id, created_at`
	err := tx.QueryRow(query, t.AgreementID, t.Amount, t.Method, t.Type, t.ReferenceID, t.Status).
		Scan(&t.ID, &t.CreatedAt)
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
		return models.NewInvalidStateError("payment reference %s already recorded", t.ReferenceID)
	}
	if err != nil {
		return models.NewExternalError("failed to insert transaction", err)
	}
	return nil
}

// ListTransactions returns an agreement's transactions, oldest first
func (r *Repository) ListTransactions(agreementID int64) ([]*models.Transaction, error) {
	rows, err := r.db.Query(`
		SELECT id, agreement_id, amount, method, type, reference_id, status, created_at
		FROM lending.transactions
		WHERE agreement_id = $1
		ORDER BY created_at`, agreementID)
	if err != nil {
		return nil, models.NewExternalError("failed to list transactions", err)
	}
	defer rows.Close()

	var out []*models.Transaction
	for rows.Next() {
		t := &models.Transaction{}
		if err := rows.Scan(&t.ID, &t.AgreementID, &t.Amount, &t.Method, &t.Type, &t.ReferenceID, &t.Status, &t.CreatedAt); err != nil {
			return nil, models.NewExternalError("failed to scan transaction", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, models.NewExternalError("failed to read transactions", err)
	}
	return out, nil
}

// CountOnTimePayments counts a borrower's repayments made on or before the
// agreement end date.
func (r *Repository) CountOnTimePayments(userID int64) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*)
		FROM lending.transactions t
		JOIN lending.agreements a ON a.id = t.agreement_id
		WHERE a.borrower_id = $1
			AND t.type = 'repayment'
			AND a.end_date IS NOT NULL
			AND t.created_at <= a.end_date`, userID).Scan(&count)
	if err != nil {
		return 0, models.NewExternalError("failed to count on-time payments", err)
	}
	return count, nil
}

// CountCompletedLoans counts completed agreements where the user borrowed.
func (r *Repository) CountCompletedLoans(userID int64) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*)
		FROM lending.agreements
		WHERE borrower_id = $1 AND status = 'completed'`, userID).Scan(&count)
	if err != nil {
		return 0, models.NewExternalError("failed to count completed loans", err)
	}
	return count, nil
}

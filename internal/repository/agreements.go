package repository

import (
	"database/sql"
	"time"

	"github.com/peerfund/lending-service/internal/models"
)

const agreementColumns = `
	id, borrower_id, lender_id, amount, interest_rate_bps, duration_months,
	purpose, status, borrower_signature, borrower_signed_at, lender_signature,
	lender_signed_at, funded_amount, amount_repaid, created_at, start_date,
	end_date, completed_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgreement(row rowScanner) (*models.LoanAgreement, error) {
	a := &models.LoanAgreement{}
	var (
		lenderID     sql.NullInt64
		borrowerSig  sql.NullString
		lenderSig    sql.NullString
		borrowerAt   sql.NullTime
		lenderAt     sql.NullTime
		startDate    sql.NullTime
		endDate      sql.NullTime
		completedAt  sql.NullTime
	)
	err := row.Scan(
		&a.ID, &a.BorrowerID, &lenderID, &a.Amount, &a.InterestRateBps,
		&a.DurationMonths, &a.Purpose, &a.Status, &borrowerSig, &borrowerAt,
		&lenderSig, &lenderAt, &a.FundedAmount, &a.AmountRepaid, &a.CreatedAt,
		&startDate, &endDate, &completedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lenderID.Valid {
		a.LenderID = lenderID.Int64
	}
	if borrowerSig.Valid {
		a.BorrowerSignature = borrowerSig.String
	}
	if lenderSig.Valid {
		a.LenderSignature = lenderSig.String
	}
	if borrowerAt.Valid {
		t := borrowerAt.Time
		a.BorrowerSignedAt = &t
	}
	if lenderAt.Valid {
		t := lenderAt.Time
		a.LenderSignedAt = &t
	}
	if startDate.Valid {
		t := startDate.Time
		a.StartDate = &t
	}
	if endDate.Valid {
		t := endDate.Time
		a.EndDate = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		a.CompletedAt = &t
	}
	return a, nil
}

// CreateAgreement inserts a new pending loan request
func (r *Repository) CreateAgreement(a *models.LoanAgreement) error {
	query := `
		INSERT INTO lending.agreements
			(borrower_id, amount, interest_rate_bps, duration_months, purpose, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(query, a.BorrowerID, a.Amount, a.InterestRateBps, a.DurationMonths, a.Purpose, a.Status).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return models.NewExternalError("failed to create agreement", err)
	}
	return nil
}

// FindAgreementByID retrieves an agreement by id
func (r *Repository) FindAgreementByID(id int64) (*models.LoanAgreement, error) {
	row := r.db.QueryRow(`SELECT `+agreementColumns+` FROM lending.agreements WHERE id = $1`, id)
	a, err := scanAgreement(row)
	if err == sql.ErrNoRows {
		return nil, models.NewNotFoundError("agreement %d not found", id)
	}
	if err != nil {
		return nil, models.NewExternalError("failed to find agreement", err)
	}
	return a, nil
}

// ListOpenRequests returns pending agreements with no lender bound
func (r *Repository) ListOpenRequests() ([]*models.LoanAgreement, error) {
	rows, err := r.db.Query(`
		SELECT ` + agreementColumns + `
		FROM lending.agreements
		WHERE status = 'pending' AND lender_id IS NULL
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, models.NewExternalError("failed to list open requests", err)
	}
	defer rows.Close()
	return collectAgreements(rows)
}

// ListOverdueAgreements returns active agreements whose term has ended
func (r *Repository) ListOverdueAgreements(now time.Time) ([]*models.LoanAgreement, error) {
	rows, err := r.db.Query(`
		SELECT `+agreementColumns+`
		FROM lending.agreements
		WHERE status = 'active' AND end_date < $1
		ORDER BY end_date`, now)
	if err != nil {
		return nil, models.NewExternalError("failed to list overdue agreements", err)
	}
	defer rows.Close()
	return collectAgreements(rows)
}

// ListAgreementsEndingBefore returns active agreements ending before the cutoff
func (r *Repository) ListAgreementsEndingBefore(cutoff time.Time) ([]*models.LoanAgreement, error) {
	rows, err := r.db.Query(`
		SELECT `+agreementColumns+`
		FROM lending.agreements
		WHERE status = 'active' AND end_date <= $1
		ORDER BY end_date`, cutoff)
	if err != nil {
		return nil, models.NewExternalError("failed to list ending agreements", err)
	}
	defer rows.Close()
	return collectAgreements(rows)
}

func collectAgreements(rows *sql.Rows) ([]*models.LoanAgreement, error) {
	var out []*models.LoanAgreement
	for rows.Next() {
		a, err := scanAgreement(rows)
		if err != nil {
			return nil, models.NewExternalError("failed to scan agreement", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, models.NewExternalError("failed to read agreements", err)
	}
	return out, nil
}

// ClaimAgreement binds a lender to a pending, unclaimed agreement. The
// status and lender checks ride in the UPDATE so two concurrent claims
// cannot both succeed.
func (r *Repository) ClaimAgreement(id, lenderID int64) error {
	res, err := r.db.Exec(`
		UPDATE lending.agreements
		SET lender_id = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = 'pending' AND lender_id IS NULL`, id, lenderID)
	if err != nil {
		return models.NewExternalError("failed to claim agreement", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	a, err := r.FindAgreementByID(id)
	if err != nil {
		return err
	}
	if a.Status != models.StatusPending {
		return models.NewInvalidStateError("agreement %d is %s, not pending", id, a.Status)
	}
	return models.NewInvalidStateError("agreement %d already has a lender", id)
}

// SaveSignature records one party's signature on a pending agreement.
// Re-signing overwrites that party's signature only.
func (r *Repository) SaveSignature(id int64, isBorrower bool, signature string, at time.Time) error {
	column := "lender_signature"
	atColumn := "lender_signed_at"
	if isBorrower {
		column = "borrower_signature"
		atColumn = "borrower_signed_at"
	}
	res, err := r.db.Exec(`
		UPDATE lending.agreements
		SET `+column+` = $2, `+atColumn+` = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = 'pending'`, id, signature, at)
	if err != nil {
		return models.NewExternalError("failed to save signature", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	a, err := r.FindAgreementByID(id)
	if err != nil {
		return err
	}
	return models.NewInvalidStateError("agreement %d is %s, not pending", id, a.Status)
}

// RecordFunding sets the funded amount on a pending agreement and writes the
// funding transaction atomically. Funding is recorded at most once.
func (r *Repository) RecordFunding(id int64, amount float64, method, referenceID string) (*models.Transaction, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, models.NewExternalError("failed to begin funding", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		UPDATE lending.agreements
		SET funded_amount = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = 'pending' AND funded_amount = 0`, id, amount)
	if err != nil {
		return nil, models.NewExternalError("failed to record funding", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		a, err := r.FindAgreementByID(id)
		if err != nil {
			return nil, err
		}
		if a.Status != models.StatusPending {
			return nil, models.NewInvalidStateError("agreement %d is %s, not pending", id, a.Status)
		}
		return nil, models.NewInvalidStateError("agreement %d is already funded", id)
	}

	t := &models.Transaction{
		AgreementID: id,
		Amount:      amount,
		Method:      method,
		Type:        models.TxFunding,
		ReferenceID: referenceID,
		Status:      "completed",
	}
	if err := insertTransaction(tx, t); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, models.NewExternalError("failed to commit funding", err)
	}
	return t, nil
}

// ActivateAgreement transitions pending -> active. The signature and funding
// preconditions ride in the UPDATE so activation cannot race a cancel.
func (r *Repository) ActivateAgreement(id int64, start, end time.Time) error {
	res, err := r.db.Exec(`
		UPDATE lending.agreements
		SET status = 'active', start_date = $2, end_date = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = 'pending'
			AND borrower_signature IS NOT NULL
			AND lender_signature IS NOT NULL
			AND funded_amount = amount`, id, start, end)
	if err != nil {
		return models.NewExternalError("failed to activate agreement", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	a, err := r.FindAgreementByID(id)
	if err != nil {
		return err
	}
	if a.Status != models.StatusPending {
		return models.NewInvalidStateError("agreement %d is %s, not pending", id, a.Status)
	}
	if !a.BothSigned() {
		return models.NewPreconditionError("agreement %d is missing signatures", id)
	}
	return models.NewPreconditionError("agreement %d funded amount %.2f does not match principal %.2f", id, a.FundedAmount, a.Amount)
}

// RecordRepayment applies a repayment to an active agreement under a row
// lock, writes the transaction and transitions to completed when the
// cumulative repaid covers the total due. All-or-nothing.
func (r *Repository) RecordRepayment(id int64, amount float64, method, referenceID string, now time.Time) (*models.LoanAgreement, *models.Transaction, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, nil, models.NewExternalError("failed to begin repayment", err)
	}
	defer tx.Rollback()

	row := tx.QueryRow(`SELECT `+agreementColumns+` FROM lending.agreements WHERE id = $1 FOR UPDATE`, id)
	a, err := scanAgreement(row)
	if err == sql.ErrNoRows {
		return nil, nil, models.NewNotFoundError("agreement %d not found", id)
	}
	if err != nil {
		return nil, nil, models.NewExternalError("failed to load agreement", err)
	}
	if a.Status != models.StatusActive {
		return nil, nil, models.NewInvalidStateError("agreement %d is %s, not active", id, a.Status)
	}

	a.AmountRepaid += amount
	completed := a.AmountRepaid >= a.TotalDue()
	if completed {
		a.Status = models.StatusCompleted
		t := now
		a.CompletedAt = &t
		_, err = tx.Exec(`
			UPDATE lending.agreements
			SET amount_repaid = $2, status = 'completed', completed_at = $3, updated_at = CURRENT_TIMESTAMP
			WHERE id = $1`, id, a.AmountRepaid, now)
	} else {
		_, err = tx.Exec(`
			UPDATE lending.agreements
			SET amount_repaid = $2, updated_at = CURRENT_TIMESTAMP
			WHERE id = $1`, id, a.AmountRepaid)
	}
	if err != nil {
		return nil, nil, models.NewExternalError("failed to apply repayment", err)
	}

	t := &models.Transaction{
		AgreementID: id,
		Amount:      amount,
		Method:      method,
		Type:        models.TxRepayment,
		ReferenceID: referenceID,
		Status:      "completed",
	}
	if err := insertTransaction(tx, t); err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, models.NewExternalError("failed to commit repayment", err)
	}
	return a, t, nil
}

// MarkDefaulted transitions active -> defaulted once the term is over and
// the loan is not fully repaid. Checked under a row lock.
func (r *Repository) MarkDefaulted(id int64, now time.Time) (*models.LoanAgreement, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, models.NewExternalError("failed to begin default", err)
	}
	defer tx.Rollback()

	row := tx.QueryRow(`SELECT `+agreementColumns+` FROM lending.agreements WHERE id = $1 FOR UPDATE`, id)
	a, err := scanAgreement(row)
	if err == sql.ErrNoRows {
		return nil, models.NewNotFoundError("agreement %d not found", id)
	}
	if err != nil {
		return nil, models.NewExternalError("failed to load agreement", err)
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

	if _, err := tx.Exec(`
		UPDATE lending.agreements
		SET status = 'defaulted', updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`, id); err != nil {
		return nil, models.NewExternalError("failed to mark defaulted", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, models.NewExternalError("failed to commit default", err)
	}
	a.Status = models.StatusDefaulted
	return a, nil
}

// CancelAgreement transitions pending -> cancelled. Authorization is checked
// by the caller; the status check rides in the UPDATE.
func (r *Repository) CancelAgreement(id int64) error {
	res, err := r.db.Exec(`
		UPDATE lending.agreements
		SET status = 'cancelled', updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return models.NewExternalError("failed to cancel agreement", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	a, err := r.FindAgreementByID(id)
	if err != nil {
		return err
	}
	return models.NewInvalidStateError("agreement %d is %s, not pending", id, a.Status)
}

package repository

import (
	"database/sql"

	"github.com/peerfund/lending-service/internal/models"
)

// Repository provides database operations
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateUser creates a new user in the database
func (r *Repository) CreateUser(user *models.User) error {
	query := `
		INSERT INTO lending.users (username, email, password_hash, upi_address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(query, user.Username, user.Email, user.PasswordHash, user.UPIAddress).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return models.NewExternalError("failed to create user", err)
	}
	return nil
}

// FindUserByEmail retrieves a user by email
func (r *Repository) FindUserByEmail(email string) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, username, email, password_hash, upi_address, verified, created_at, updated_at
		FROM lending.users
		WHERE email = $1`
	err := r.db.QueryRow(query, email).
		Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.UPIAddress, &user.Verified, &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, models.NewNotFoundError("user not found")
	}
	if err != nil {
		return nil, models.NewExternalError("failed to find user", err)
	}
	return user, nil
}

// FindUserByID retrieves a user by id
func (r *Repository) FindUserByID(id int64) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, username, email, password_hash, upi_address, verified, created_at, updated_at
		FROM lending.users
		WHERE id = $1`
	err := r.db.QueryRow(query, id).
		Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.UPIAddress, &user.Verified, &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, models.NewNotFoundError("user %d not found", id)
	}
	if err != nil {
		return nil, models.NewExternalError("failed to find user", err)
	}
	return user, nil
}

// MarkUserVerified flags a user as identity-verified. Returns true when the
// flag flipped, false when the user was already verified.
func (r *Repository) MarkUserVerified(id int64) (bool, error) {
	res, err := r.db.Exec(`
		UPDATE lending.users
		SET verified = TRUE, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND verified = FALSE`, id)
	if err != nil {
		return false, models.NewExternalError("failed to mark user verified", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, models.NewExternalError("failed to mark user verified", err)
	}
	return n > 0, nil
}

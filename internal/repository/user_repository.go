package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/schoolhub-api/internal/models"
)

const userColumns = "id, email, password_hash, role, school_id, reset_otp_hash, reset_otp_expiry, created_at, updated_at"

// UserRepository manages school administrator accounts.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a user; exec may be a transaction.
func (r *UserRepository) Create(ctx context.Context, exec sqlx.ExtContext, user *models.User) error {
	if exec == nil {
		exec = r.db
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = models.RoleAdmin
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	const query = `INSERT INTO users (id, email, password_hash, role, school_id, created_at, updated_at)
        VALUES (:id, :email, :password_hash, :role, :school_id, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// FindByID fetches a user by ID.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE id = $1", userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail fetches a user by case-insensitive email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE LOWER(email) = LOWER($1)", userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, strings.TrimSpace(email)); err != nil {
		return nil, err
	}
	return &user, nil
}

// ExistsByEmail checks whether any admin already uses email.
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists, `SELECT 1 FROM users WHERE LOWER(email) = LOWER($1) LIMIT 1`, strings.TrimSpace(email))
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check user email: %w", err)
	}
	return true, nil
}

// SetResetOTP stores or clears (hash nil) the outstanding reset code.
func (r *UserRepository) SetResetOTP(ctx context.Context, id string, hash *string, expiry *time.Time) error {
	const query = `UPDATE users SET reset_otp_hash = $1, reset_otp_expiry = $2, updated_at = $3 WHERE id = $4`
	res, err := r.db.ExecContext(ctx, query, hash, expiry, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set reset otp: %w", err)
	}
	return expectOne(res)
}

// ResetPassword replaces the hash and clears any reset code in one statement.
func (r *UserRepository) ResetPassword(ctx context.Context, id, passwordHash string) error {
	const query = `UPDATE users SET password_hash = $1, reset_otp_hash = NULL, reset_otp_expiry = NULL, updated_at = $2 WHERE id = $3`
	res, err := r.db.ExecContext(ctx, query, passwordHash, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	return expectOne(res)
}

func expectOne(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/schoolhub-api/internal/models"
)

func TestUserRepositoryCreateNormalisesEmail(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO users").
		WithArgs(sqlmock.AnyArg(), "admin@gv.test", "hash", models.RoleAdmin, "sch-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	user := &models.User{Email: " Admin@GV.test", PasswordHash: "hash", SchoolID: "sch-1"}
	require.NoError(t, repo.Create(context.Background(), nil, user))
	assert.Equal(t, models.RoleAdmin, user.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryFindByEmail(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	expiry := time.Now().Add(5 * time.Minute)
	rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "role", "school_id", "reset_otp_hash", "reset_otp_expiry", "created_at", "updated_at"}).
		AddRow("u-1", "admin@gv.test", "hash", "admin", "sch-1", "otp-hash", expiry, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE LOWER(email) = LOWER($1)")).
		WithArgs("admin@gv.test").
		WillReturnRows(rows)

	user, err := repo.FindByEmail(context.Background(), "admin@gv.test")
	require.NoError(t, err)
	require.NotNil(t, user.ResetOTPHash)
	assert.Equal(t, "otp-hash", *user.ResetOTPHash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryResetPasswordClearsOTP(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET password_hash = $1, reset_otp_hash = NULL, reset_otp_expiry = NULL")).
		WithArgs("new-hash", sqlmock.AnyArg(), "u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.ResetPassword(context.Background(), "u-1", "new-hash"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

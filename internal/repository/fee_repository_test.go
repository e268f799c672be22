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

func TestFeeRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFeeRepository(db)

	mock.ExpectExec("INSERT INTO fees").
		WithArgs(sqlmock.AnyArg(), "sch-1", "s-1", "2024-2025", 1, sqlmock.AnyArg(), 1000.0, []byte("[]"), 0.0, 1000.0, models.FeePending,
			sqlmock.AnyArg(), 1, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	fee := &models.FeeRecord{
		SchoolID: "sch-1", StudentID: "s-1", AcademicYear: "2024-2025", Semester: 1,
		FeeStructure: models.FeeStructure{Tuition: 1000}, TotalAmount: 1000, Balance: 1000,
		Status: models.FeePending, DueDate: time.Now().Add(24 * time.Hour),
	}
	require.NoError(t, repo.Create(context.Background(), fee))
	assert.Equal(t, 1, fee.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRepositorySaveStale(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFeeRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE fees SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Save(context.Background(), &models.FeeRecord{ID: "f-1", SchoolID: "sch-1", Version: 4})
	assert.ErrorIs(t, err, ErrStaleVersion)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRepositoryListFiltersOnDerivedStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFeeRepository(db)

	asOf := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	where := "WHERE school_id = $1 AND (CASE WHEN balance = 0 THEN 'paid' WHEN total_paid > 0 THEN 'partial' WHEN $2 > due_date THEN 'overdue' ELSE 'pending' END) = $3"
	mock.ExpectQuery(regexp.QuoteMeta("FROM fees "+where+" ORDER BY due_date, student_id LIMIT 20 OFFSET 0")).
		WithArgs("sch-1", asOf, models.FeeOverdue).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM fees "+where)).
		WithArgs("sch-1", asOf, models.FeeOverdue).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	fees, total, err := repo.List(context.Background(), models.FeeFilter{SchoolID: "sch-1", Status: models.FeeOverdue, AsOf: asOf})
	require.NoError(t, err)
	assert.Empty(t, fees)
	assert.Equal(t, 0, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

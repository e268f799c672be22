package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/schoolhub-api/internal/models"
	appErrors "github.com/noah-isme/schoolhub-api/pkg/errors"
)

type fakeDashboardSources struct {
	day      time.Time
	totalErr error
}

func (f *fakeDashboardSources) CountByStatusOn(ctx context.Context, schoolID string, day time.Time) (map[models.AttendanceStatus]int, error) {
	f.day = day
	return map[models.AttendanceStatus]int{models.AttendancePresent: 3, models.AttendanceLate: 1}, nil
}

func (f *fakeDashboardSources) Totals(ctx context.Context, schoolID string, now time.Time) (*models.FeeTotals, error) {
	if f.totalErr != nil {
		return nil, f.totalErr
	}
	return &models.FeeTotals{Billed: 500, Collected: 200, Outstanding: 300, Overdue: 1}, nil
}

func (f *fakeDashboardSources) Distribution(ctx context.Context, schoolID string) (models.GradeDistribution, error) {
	return models.GradeDistribution{models.GradeGood: 2}, nil
}

func TestDashboardServiceStats(t *testing.T) {
	f := newFixture(t)
	src := &fakeDashboardSources{}
	svc := NewDashboardService(f.auth, src, src, src, zap.NewNop())
	svc.now = clock()

	stats, err := svc.Stats(context.Background(), adminActor(), testSchoolID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Teachers)
	assert.Equal(t, 1, stats.Students)
	assert.Equal(t, 2, stats.Classes)
	assert.Equal(t, 2, stats.Subjects)
	assert.Equal(t, 3, stats.TodayAttendance[models.AttendancePresent])
	assert.Equal(t, 300.0, stats.Fees.Outstanding)
	assert.Equal(t, 2, stats.Grades[models.GradeGood])
	assert.Equal(t, fixedNow, src.day)
}

func TestDashboardServiceAdminOnly(t *testing.T) {
	f := newFixture(t)
	src := &fakeDashboardSources{}
	svc := NewDashboardService(f.auth, src, src, src, zap.NewNop())

	_, err := svc.Stats(context.Background(), teacherActor(), testSchoolID)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	src.totalErr = errors.New("db gone")
	_, err = svc.Stats(context.Background(), adminActor(), testSchoolID)
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}

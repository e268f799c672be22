package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/schoolhub-api/internal/models"
	"github.com/noah-isme/schoolhub-api/internal/policy"
)

type attendanceCounter interface {
	CountByStatusOn(ctx context.Context, schoolID string, day time.Time) (map[models.AttendanceStatus]int, error)
}

type feeTotaler interface {
	Totals(ctx context.Context, schoolID string, now time.Time) (*models.FeeTotals, error)
}

type gradeDistributor interface {
	Distribution(ctx context.Context, schoolID string) (models.GradeDistribution, error)
}

// DashboardService assembles the admin overview.
type DashboardService struct {
	auth       authorizer
	attendance attendanceCounter
	fees       feeTotaler
	grades     gradeDistributor
	logger     *zap.Logger
	now        func() time.Time
}

// NewDashboardService constructs DashboardService.
func NewDashboardService(auth authorizer, attendance attendanceCounter, fees feeTotaler, grades gradeDistributor, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{auth: auth, attendance: attendance, fees: fees, grades: grades, logger: logger, now: time.Now}
}

// Stats returns roster counts, today's attendance, fee totals and the grade distribution.
func (s *DashboardService) Stats(ctx context.Context, actor *models.Actor, schoolID string) (*models.DashboardStats, error) {
	school, err := s.auth.Authorize(ctx, actor, policy.ActionViewDashboard, schoolID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()

	today, err := s.attendance.CountByStatusOn(ctx, school.ID, now)
	if err != nil {
		return nil, internalErr(err, "failed to count attendance")
	}
	totals, err := s.fees.Totals(ctx, school.ID, now)
	if err != nil {
		return nil, internalErr(err, "failed to total fees")
	}
	dist, err := s.grades.Distribution(ctx, school.ID)
	if err != nil {
		return nil, internalErr(err, "failed to load grade distribution")
	}

	return &models.DashboardStats{
		SchoolID:        school.ID,
		Teachers:        len(school.Teachers),
		Students:        len(school.Students),
		Classes:         len(school.Classes),
		Subjects:        len(school.Subjects),
		TodayAttendance: today,
		Fees:            *totals,
		Grades:          dist,
	}, nil
}

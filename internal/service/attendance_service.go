package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/schoolhub-api/internal/models"
	"github.com/noah-isme/schoolhub-api/internal/policy"
	"github.com/noah-isme/schoolhub-api/pkg/database"
)

const dateLayout = "2006-01-02"

type attendanceStore interface {
	Create(ctx context.Context, a *models.Attendance) error
	FindByID(ctx context.Context, schoolID, id string) (*models.Attendance, error)
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, int, error)
	UpdateStatus(ctx context.Context, schoolID, id string, status models.AttendanceStatus, markedBy string) error
	Delete(ctx context.Context, schoolID, id string) error
	Summary(ctx context.Context, schoolID, studentID string, from, to *time.Time) (*models.AttendanceSummary, error)
}

// AttendanceEntry is one student's mark inside a bulk request.
type AttendanceEntry struct {
	StudentID string `json:"studentId" validate:"required"`
	Status    string `json:"status" validate:"required,attendance_status"`
}

// MarkAttendanceRequest marks a class for one subject on one day.
type MarkAttendanceRequest struct {
	ClassName string            `json:"className" validate:"required"`
	Subject   string            `json:"subject" validate:"required"`
	Date      string            `json:"date" validate:"required,datetime=2006-01-02"`
	Records   []AttendanceEntry `json:"records" validate:"required,min=1,max=500,dive"`
}

// UpdateAttendanceRequest changes the status of an existing mark.
type UpdateAttendanceRequest struct {
	Status string `json:"status" validate:"required,attendance_status"`
}

// AttendanceQuery holds raw list filters from the query string.
type AttendanceQuery struct {
	ClassName string `form:"className"`
	Subject   string `form:"subject"`
	StudentID string `form:"studentId"`
	From      string `form:"from" validate:"omitempty,datetime=2006-01-02"`
	To        string `form:"to" validate:"omitempty,datetime=2006-01-02"`
	Status    string `form:"status" validate:"omitempty,attendance_status"`
	Page      int    `form:"page" validate:"omitempty,min=1"`
	PageSize  int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// AttendanceService records and reports class attendance.
type AttendanceService struct {
	repo      attendanceStore
	auth      authorizer
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAttendanceService constructs AttendanceService.
func NewAttendanceService(repo attendanceStore, auth authorizer, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{repo: repo, auth: auth, metrics: metrics, validator: validate, logger: logger, now: time.Now}
}

// Mark inserts each record independently. Records already marked for the same
// student, class, subject and day are reported as duplicates, never overwritten.
// When no record is stored the result is returned together with a validation error.
func (s *AttendanceService) Mark(ctx context.Context, actor *models.Actor, schoolID string, req MarkAttendanceRequest) (*models.AttendanceMarkResult, error) {
	if err := validateStruct(s.validator, req, "attendance"); err != nil {
		return nil, err
	}
	school, err := s.auth.Authorize(ctx, actor, policy.ActionMarkAttendance, schoolID)
	if err != nil {
		return nil, err
	}

	idx := classIndex(school, req.ClassName)
	if idx < 0 {
		return nil, validationErr("unknown class: " + req.ClassName)
	}
	class := school.Classes[idx]
	if subjectIndex(school, req.Subject) < 0 || !class.HasSubject(req.Subject) {
		return nil, validationErr("subject " + req.Subject + " is not taught in class " + class.Name)
	}
	if err := policy.TeachesClass(actor, school, class.Name); err != nil {
		return nil, err
	}
	day, err := s.parseDay(req.Date)
	if err != nil {
		return nil, err
	}
	subject := school.Subjects[subjectIndex(school, req.Subject)].Name

	result := &models.AttendanceMarkResult{
		Marked:     []models.Attendance{},
		Duplicates: []models.AttendanceRejection{},
		Failed:     []models.AttendanceRejection{},
	}
	seen := make(map[string]bool, len(req.Records))
	for _, rec := range req.Records {
		if seen[rec.StudentID] {
			result.Duplicates = append(result.Duplicates, models.AttendanceRejection{StudentID: rec.StudentID, Reason: "listed more than once in request"})
			continue
		}
		seen[rec.StudentID] = true

		st := studentIndex(school, rec.StudentID)
		if st < 0 {
			result.Failed = append(result.Failed, models.AttendanceRejection{StudentID: rec.StudentID, Reason: "student not found"})
			continue
		}
		if !school.Students[st].InClass(class.Name) {
			result.Failed = append(result.Failed, models.AttendanceRejection{StudentID: rec.StudentID, Reason: "student is not enrolled in " + class.Name})
			continue
		}

		mark := models.Attendance{
			SchoolID:  school.ID,
			StudentID: rec.StudentID,
			ClassName: class.Name,
			Subject:   subject,
			Date:      day,
			Status:    models.AttendanceStatus(strings.ToLower(rec.Status)),
			MarkedBy:  actor.ID,
		}
		if err := s.repo.Create(ctx, &mark); err != nil {
			if database.IsUniqueViolation(err) {
				result.Duplicates = append(result.Duplicates, models.AttendanceRejection{StudentID: rec.StudentID, Reason: "attendance already marked"})
				continue
			}
			s.logger.Error("failed to store attendance", zap.String("student_id", rec.StudentID), zap.Error(err))
			result.Failed = append(result.Failed, models.AttendanceRejection{StudentID: rec.StudentID, Reason: "failed to store attendance"})
			continue
		}
		result.Marked = append(result.Marked, mark)
	}

	s.metrics.RecordAttendance("marked", len(result.Marked))
	s.metrics.RecordAttendance("duplicate", len(result.Duplicates))
	s.metrics.RecordAttendance("failed", len(result.Failed))

	if len(result.Marked) == 0 {
		return result, validationErr("no attendance records were marked")
	}
	return result, nil
}

// List returns marks visible to the actor. Students only see their own.
func (s *AttendanceService) List(ctx context.Context, actor *models.Actor, schoolID string, q AttendanceQuery) ([]models.Attendance, *models.Pagination, error) {
	if err := validateStruct(s.validator, q, "attendance query"); err != nil {
		return nil, nil, err
	}
	school, err := s.auth.Authorize(ctx, actor, policy.ActionViewAttendance, schoolID)
	if err != nil {
		return nil, nil, err
	}
	studentID, err := policy.ScopeStudent(actor, q.StudentID)
	if err != nil {
		return nil, nil, err
	}
	if actor.Role == models.RoleTeacher && q.ClassName != "" {
		if err := policy.TeachesClass(actor, school, q.ClassName); err != nil {
			return nil, nil, err
		}
	}

	filter := models.AttendanceFilter{
		SchoolID:  school.ID,
		ClassName: q.ClassName,
		Subject:   q.Subject,
		StudentID: studentID,
		Status:    models.AttendanceStatus(strings.ToLower(q.Status)),
		Page:      q.Page,
		PageSize:  q.PageSize,
	}
	if filter.From, err = optionalDay(q.From); err != nil {
		return nil, nil, err
	}
	if filter.To, err = optionalDay(q.To); err != nil {
		return nil, nil, err
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalErr(err, "failed to list attendance")
	}
	return items, paginate(filter.Page, filter.PageSize, total), nil
}

// Update changes a mark's status. Teachers must teach the mark's class.
func (s *AttendanceService) Update(ctx context.Context, actor *models.Actor, schoolID, id string, req UpdateAttendanceRequest) (*models.Attendance, error) {
	if err := validateStruct(s.validator, req, "attendance"); err != nil {
		return nil, err
	}
	school, err := s.auth.Authorize(ctx, actor, policy.ActionMarkAttendance, schoolID)
	if err != nil {
		return nil, err
	}
	mark, err := s.repo.FindByID(ctx, school.ID, id)
	if err != nil {
		return nil, storeErr(err, "attendance")
	}
	if err := policy.TeachesClass(actor, school, mark.ClassName); err != nil {
		return nil, err
	}

	status := models.AttendanceStatus(strings.ToLower(req.Status))
	if err := s.repo.UpdateStatus(ctx, school.ID, id, status, actor.ID); err != nil {
		return nil, storeErr(err, "attendance")
	}
	mark.Status = status
	mark.MarkedBy = actor.ID
	mark.UpdatedAt = s.now().UTC()
	return mark, nil
}

// Delete removes a mark. Admin only.
func (s *AttendanceService) Delete(ctx context.Context, actor *models.Actor, schoolID, id string) error {
	school, err := s.auth.Authorize(ctx, actor, policy.ActionManageSchool, schoolID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, school.ID, id); err != nil {
		return storeErr(err, "attendance")
	}
	return nil
}

// Summary counts a student's marks and derives the attendance percentage, where
// late counts as attended.
func (s *AttendanceService) Summary(ctx context.Context, actor *models.Actor, schoolID, studentID, from, to string) (*models.AttendanceSummary, error) {
	school, err := s.auth.Authorize(ctx, actor, policy.ActionViewAttendance, schoolID)
	if err != nil {
		return nil, err
	}
	if err := policy.CanActOnStudent(actor, school, studentID); err != nil {
		return nil, err
	}
	if studentIndex(school, studentID) < 0 {
		return nil, notFoundErr("student not found")
	}
	fromDay, err := optionalDay(from)
	if err != nil {
		return nil, err
	}
	toDay, err := optionalDay(to)
	if err != nil {
		return nil, err
	}

	summary, err := s.repo.Summary(ctx, school.ID, studentID, fromDay, toDay)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.AttendanceSummary{StudentID: studentID}, nil
		}
		return nil, internalErr(err, "failed to summarise attendance")
	}
	summary.Percentage = attendancePercentage(summary)
	return summary, nil
}

func attendancePercentage(s *models.AttendanceSummary) float64 {
	if s.Total == 0 {
		return 0
	}
	return math.Round(float64(s.Present+s.Late)/float64(s.Total)*10000) / 100
}

// parseDay accepts YYYY-MM-DD up to today.
func (s *AttendanceService) parseDay(raw string) (time.Time, error) {
	day, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, validationErr("date must use YYYY-MM-DD")
	}
	today := s.now().UTC().Truncate(24 * time.Hour)
	if day.After(today) {
		return time.Time{}, validationErr("attendance cannot be marked for a future date")
	}
	return day, nil
}

func optionalDay(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	day, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, validationErr("dates must use YYYY-MM-DD")
	}
	return &day, nil
}

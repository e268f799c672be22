package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/schoolhub-api/internal/models"
	"github.com/noah-isme/schoolhub-api/internal/policy"
)

type scheduleStore interface {
	Upsert(ctx context.Context, s *models.Schedule) (bool, error)
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, error)
	Delete(ctx context.Context, schoolID, id string) error
}

// UpsertScheduleRequest sets the slot for a class subject on a weekday.
type UpsertScheduleRequest struct {
	ClassName string `json:"className" validate:"required"`
	Subject   string `json:"subject" validate:"required"`
	Day       string `json:"day" validate:"required,weekday"`
	TeacherID string `json:"teacherId" validate:"required"`
	StartTime string `json:"startTime" validate:"required,clock"`
	EndTime   string `json:"endTime" validate:"required,clock"`
	Room      string `json:"room" validate:"max=50"`
}

// ScheduleQuery holds list filters.
type ScheduleQuery struct {
	ClassName string `form:"className"`
	TeacherID string `form:"teacherId"`
	Day       string `form:"day" validate:"omitempty,weekday"`
}

// ScheduleUpsert reports the stored slot and whether it was newly created.
type ScheduleUpsert struct {
	Schedule *models.Schedule `json:"schedule"`
	Created  bool             `json:"created"`
}

// ScheduleService manages the weekly timetable.
type ScheduleService struct {
	repo      scheduleStore
	auth      authorizer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService constructs ScheduleService.
func NewScheduleService(repo scheduleStore, auth authorizer, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{repo: repo, auth: auth, validator: validate, logger: logger}
}

// Upsert writes the slot for (class, subject, day). The teacher must be assigned to the class.
func (s *ScheduleService) Upsert(ctx context.Context, actor *models.Actor, schoolID string, req UpsertScheduleRequest) (*ScheduleUpsert, error) {
	if err := validateStruct(s.validator, req, "schedule"); err != nil {
		return nil, err
	}
	if req.StartTime >= req.EndTime {
		return nil, validationErr("startTime must be before endTime")
	}
	school, err := s.auth.Authorize(ctx, actor, policy.ActionManageSchedule, schoolID)
	if err != nil {
		return nil, err
	}

	ci := classIndex(school, req.ClassName)
	if ci < 0 {
		return nil, validationErr("unknown class: " + req.ClassName)
	}
	class := school.Classes[ci]
	si := subjectIndex(school, req.Subject)
	if si < 0 || !class.HasSubject(req.Subject) {
		return nil, validationErr("subject " + req.Subject + " is not taught in class " + class.Name)
	}
	ti := teacherIndex(school, req.TeacherID)
	if ti < 0 {
		return nil, validationErr("unknown teacher: " + req.TeacherID)
	}
	if !school.Teachers[ti].Teaches(class.Name) {
		return nil, validationErr("teacher is not assigned to class " + class.Name)
	}

	day, _ := parseWeekday(req.Day)
	slot := &models.Schedule{
		SchoolID:  school.ID,
		ClassName: class.Name,
		Subject:   school.Subjects[si].Name,
		Day:       day,
		TeacherID: req.TeacherID,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Room:      strings.TrimSpace(req.Room),
	}
	created, err := s.repo.Upsert(ctx, slot)
	if err != nil {
		return nil, storeErr(err, "schedule")
	}
	return &ScheduleUpsert{Schedule: slot, Created: created}, nil
}

// List returns slots. Students only see the classes they are enrolled in.
func (s *ScheduleService) List(ctx context.Context, actor *models.Actor, schoolID string, q ScheduleQuery) ([]models.Schedule, error) {
	if err := validateStruct(s.validator, q, "schedule query"); err != nil {
		return nil, err
	}
	school, err := s.auth.Authorize(ctx, actor, policy.ActionViewSchedule, schoolID)
	if err != nil {
		return nil, err
	}
	filter := models.ScheduleFilter{SchoolID: school.ID, ClassName: q.ClassName, TeacherID: q.TeacherID}
	if q.Day != "" {
		filter.Day, _ = parseWeekday(q.Day)
	}
	if actor.Role == models.RoleStudent {
		idx := studentIndex(school, actor.ID)
		if idx < 0 || len(school.Students[idx].Classes) == 0 {
			return []models.Schedule{}, nil
		}
		filter.Classes = school.Students[idx].Classes
	}
	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, internalErr(err, "failed to list schedules")
	}
	return items, nil
}

func (s *ScheduleService) Delete(ctx context.Context, actor *models.Actor, schoolID, id string) error {
	school, err := s.auth.Authorize(ctx, actor, policy.ActionManageSchedule, schoolID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, school.ID, id); err != nil {
		return storeErr(err, "schedule")
	}
	return nil
}

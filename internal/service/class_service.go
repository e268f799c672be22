package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/schoolhub-api/internal/models"
	"github.com/noah-isme/schoolhub-api/internal/policy"
)

// CreateClassRequest captures creation payload.
type CreateClassRequest struct {
	ClassName string   `json:"className" validate:"required,entity_name"`
	Subjects  []string `json:"subjects" validate:"omitempty,dive,required"`
}

// UpdateClassRequest renames a class and/or replaces its subjects. Omitted subjects keep the current list.
type UpdateClassRequest struct {
	ClassName *string  `json:"className" validate:"omitempty,entity_name"`
	Subjects  []string `json:"subjects" validate:"omitempty,dive,required"`
}

// ClassService manages the classes embedded in a school.
type ClassService struct {
	schools   schoolRepository
	auth      authorizer
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewClassService constructs ClassService.
func NewClassService(schools schoolRepository, auth authorizer, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{schools: schools, auth: auth, validator: validate, logger: logger, now: time.Now}
}

// List returns classes with derived member counts.
func (s *ClassService) List(ctx context.Context, actor *models.Actor, schoolID string) ([]models.ClassView, error) {
	school, err := s.auth.Authorize(ctx, actor, policy.ActionViewSchool, schoolID)
	if err != nil {
		return nil, err
	}
	return classViews(school), nil
}

// Create adds a class.
func (s *ClassService) Create(ctx context.Context, actor *models.Actor, schoolID string, req CreateClassRequest) (*models.Class, error) {
	if err := validateStruct(s.validator, req, "class"); err != nil {
		return nil, err
	}
	school, err := s.auth.Authorize(ctx, actor, policy.ActionManageSchool, schoolID)
	if err != nil {
		return nil, err
	}

	var created models.Class
	_, err = mutateSchool(ctx, s.schools, school, func(draft *models.School) error {
		class, err := addClass(draft, req.ClassName, req.Subjects, s.now().UTC())
		if err != nil {
			return err
		}
		created = *class
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("class created", zap.String("school_id", school.ID), zap.String("class", created.Name))
	return &created, nil
}

// Update renames a class or replaces its subject list. Renames are applied to
// every teacher and student enrolment in the school.
func (s *ClassService) Update(ctx context.Context, actor *models.Actor, schoolID, className string, req UpdateClassRequest) (*models.Class, error) {
	if err := validateStruct(s.validator, req, "class"); err != nil {
		return nil, err
	}
	school, err := s.auth.Authorize(ctx, actor, policy.ActionManageSchool, schoolID)
	if err != nil {
		return nil, err
	}

	var newName string
	if req.ClassName != nil {
		newName = *req.ClassName
	}
	var updated models.Class
	_, err = mutateSchool(ctx, s.schools, school, func(draft *models.School) error {
		class, err := updateClass(draft, className, newName, req.Subjects, s.now().UTC())
		if err != nil {
			return err
		}
		updated = *class
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes a class. Enrolments referencing it are left as they are.
func (s *ClassService) Delete(ctx context.Context, actor *models.Actor, schoolID, className string) error {
	school, err := s.auth.Authorize(ctx, actor, policy.ActionManageSchool, schoolID)
	if err != nil {
		return err
	}
	_, err = mutateSchool(ctx, s.schools, school, func(draft *models.School) error {
		return deleteClass(draft, className)
	})
	if err != nil {
		return err
	}
	s.logger.Info("class deleted", zap.String("school_id", school.ID), zap.String("class", className))
	return nil
}

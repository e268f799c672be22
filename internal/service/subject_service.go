package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/schoolhub-api/internal/models"
	"github.com/noah-isme/schoolhub-api/internal/policy"
)

// SubjectRequest names a subject on create and rename.
type SubjectRequest struct {
	Name string `json:"name" validate:"required,entity_name"`
}

// SubjectService manages the subjects embedded in a school.
type SubjectService struct {
	schools   schoolRepository
	auth      authorizer
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewSubjectService constructs SubjectService.
func NewSubjectService(schools schoolRepository, auth authorizer, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{schools: schools, auth: auth, validator: validate, logger: logger, now: time.Now}
}

func (s *SubjectService) List(ctx context.Context, actor *models.Actor, schoolID string) ([]models.Subject, error) {
	school, err := s.auth.Authorize(ctx, actor, policy.ActionViewSchool, schoolID)
	if err != nil {
		return nil, err
	}
	return school.Subjects, nil
}

func (s *SubjectService) Create(ctx context.Context, actor *models.Actor, schoolID string, req SubjectRequest) (*models.Subject, error) {
	if err := validateStruct(s.validator, req, "subject"); err != nil {
		return nil, err
	}
	school, err := s.auth.Authorize(ctx, actor, policy.ActionManageSchool, schoolID)
	if err != nil {
		return nil, err
	}
	var created models.Subject
	_, err = mutateSchool(ctx, s.schools, school, func(draft *models.School) error {
		subject, err := addSubject(draft, req.Name, s.now().UTC())
		if err != nil {
			return err
		}
		created = *subject
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// Rename changes a subject's name and rewrites class subject lists to match.
func (s *SubjectService) Rename(ctx context.Context, actor *models.Actor, schoolID, name string, req SubjectRequest) (*models.Subject, error) {
	if err := validateStruct(s.validator, req, "subject"); err != nil {
		return nil, err
	}
	school, err := s.auth.Authorize(ctx, actor, policy.ActionManageSchool, schoolID)
	if err != nil {
		return nil, err
	}
	var renamed models.Subject
	_, err = mutateSchool(ctx, s.schools, school, func(draft *models.School) error {
		subject, err := updateSubject(draft, name, req.Name, s.now().UTC())
		if err != nil {
			return err
		}
		renamed = *subject
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &renamed, nil
}

func (s *SubjectService) Delete(ctx context.Context, actor *models.Actor, schoolID, name string) error {
	school, err := s.auth.Authorize(ctx, actor, policy.ActionManageSchool, schoolID)
	if err != nil {
		return err
	}
	_, err = mutateSchool(ctx, s.schools, school, func(draft *models.School) error {
		return deleteSubject(draft, name)
	})
	return err
}

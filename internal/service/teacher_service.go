package service

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/schoolhub-api/internal/models"
	"github.com/noah-isme/schoolhub-api/internal/policy"
	"github.com/noah-isme/schoolhub-api/pkg/storage"
)

// CreateTeacherRequest captures creation payload.
type CreateTeacherRequest struct {
	Name     string   `json:"name" validate:"required,max=120"`
	Email    string   `json:"email" validate:"required,email"`
	Password string   `json:"password" validate:"required,min=8,max=72"`
	Classes  []string `json:"classes" validate:"omitempty,dive,required"`
}

// UpdateTeacherRequest carries optional changes. Omitted classes keep the current list.
type UpdateTeacherRequest struct {
	Name     *string  `json:"name" validate:"omitempty,min=1,max=120"`
	Email    *string  `json:"email" validate:"omitempty,email"`
	Password *string  `json:"password" validate:"omitempty,min=8,max=72"`
	Classes  []string `json:"classes" validate:"omitempty,dive,required"`
}

// TeacherService manages teachers embedded in a school.
type TeacherService struct {
	schools   schoolRepository
	auth      authorizer
	images    imageStore
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewTeacherService constructs TeacherService.
func NewTeacherService(schools schoolRepository, auth authorizer, images imageStore, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{schools: schools, auth: auth, images: images, validator: validate, logger: logger, now: time.Now}
}

func (s *TeacherService) List(ctx context.Context, actor *models.Actor, schoolID string) ([]models.Teacher, error) {
	school, err := s.auth.Authorize(ctx, actor, policy.ActionViewRoster, schoolID)
	if err != nil {
		return nil, err
	}
	return school.Teachers, nil
}

func (s *TeacherService) Get(ctx context.Context, actor *models.Actor, schoolID, id string) (*models.Teacher, error) {
	school, err := s.auth.Authorize(ctx, actor, policy.ActionViewRoster, schoolID)
	if err != nil {
		return nil, err
	}
	idx := teacherIndex(school, id)
	if idx < 0 {
		return nil, notFoundErr("teacher not found")
	}
	return &school.Teachers[idx], nil
}

// Create adds a teacher. Class references must already exist in the school.
func (s *TeacherService) Create(ctx context.Context, actor *models.Actor, schoolID string, req CreateTeacherRequest) (*models.Teacher, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validateStruct(s.validator, req, "teacher"); err != nil {
		return nil, err
	}
	school, err := s.auth.Authorize(ctx, actor, policy.ActionManageSchool, schoolID)
	if err != nil {
		return nil, err
	}
	hash, err := hashSecret(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	var created models.Teacher
	_, err = mutateSchool(ctx, s.schools, school, func(draft *models.School) error {
		t, err := addTeacher(draft, models.Teacher{
			ID:           uuid.NewString(),
			Name:         req.Name,
			Email:        req.Email,
			PasswordHash: hash,
			Classes:      req.Classes,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		if err != nil {
			return err
		}
		created = *t
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("teacher created", zap.String("school_id", school.ID), zap.String("teacher_id", created.ID))
	return &created, nil
}

func (s *TeacherService) Update(ctx context.Context, actor *models.Actor, schoolID, id string, req UpdateTeacherRequest) (*models.Teacher, error) {
	if err := validateStruct(s.validator, req, "teacher"); err != nil {
		return nil, err
	}
	school, err := s.auth.Authorize(ctx, actor, policy.ActionManageSchool, schoolID)
	if err != nil {
		return nil, err
	}
	patch := teacherPatch{Name: req.Name, Email: req.Email, Classes: req.Classes}
	if req.Password != nil {
		hash, err := hashSecret(*req.Password)
		if err != nil {
			return nil, err
		}
		patch.PasswordHash = &hash
	}

	var updated models.Teacher
	_, err = mutateSchool(ctx, s.schools, school, func(draft *models.School) error {
		t, err := updateTeacher(draft, id, patch, s.now().UTC())
		if err != nil {
			return err
		}
		updated = *t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes a teacher. Schedules and grades they authored are kept.
func (s *TeacherService) Delete(ctx context.Context, actor *models.Actor, schoolID, id string) error {
	school, err := s.auth.Authorize(ctx, actor, policy.ActionManageSchool, schoolID)
	if err != nil {
		return err
	}
	var removed *models.Teacher
	_, err = mutateSchool(ctx, s.schools, school, func(draft *models.School) error {
		removed, err = deleteTeacher(draft, id)
		return err
	})
	if err != nil {
		return err
	}
	discardUpload(s.images, s.logger, removed.ProfilePicture)
	return nil
}

// SetPicture stores a new profile picture for the teacher. Teachers may only change their own.
func (s *TeacherService) SetPicture(ctx context.Context, actor *models.Actor, schoolID, id string, picture io.Reader) (*models.Teacher, error) {
	school, err := s.auth.Authorize(ctx, actor, policy.ActionUpdateOwnPicture, schoolID)
	if err != nil {
		return nil, err
	}
	if err := policy.CanActOnTeacher(actor, id); err != nil {
		return nil, err
	}
	idx := teacherIndex(school, id)
	if idx < 0 {
		return nil, notFoundErr("teacher not found")
	}

	name, err := s.images.SaveImage(storage.KindProfile, picture)
	if err != nil {
		return nil, uploadErr(err)
	}
	previous := school.Teachers[idx].ProfilePicture

	var updated models.Teacher
	_, err = mutateSchool(ctx, s.schools, school, func(draft *models.School) error {
		t := &draft.Teachers[idx]
		t.ProfilePicture = name
		t.UpdatedAt = s.now().UTC()
		updated = *t
		return nil
	})
	if err != nil {
		discardUpload(s.images, s.logger, name)
		return nil, err
	}
	discardUpload(s.images, s.logger, previous)
	return &updated, nil
}

package service

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/schoolhub-api/internal/models"
	"github.com/noah-isme/schoolhub-api/internal/policy"
	"github.com/noah-isme/schoolhub-api/pkg/database"
	"github.com/noah-isme/schoolhub-api/pkg/storage"
)

type schoolStore interface {
	schoolRepository
	Create(ctx context.Context, exec sqlx.ExtContext, school *models.School) error
	List(ctx context.Context) ([]models.SchoolSummary, error)
	ExistsByName(ctx context.Context, name, excludeID string) (bool, error)
	Delete(ctx context.Context, id string) error
}

type adminStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, user *models.User) error
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// RegisterSchoolRequest creates a school together with its first administrator.
type RegisterSchoolRequest struct {
	Name          string `json:"name" form:"name" validate:"required,entity_name"`
	AdminEmail    string `json:"adminEmail" form:"adminEmail" validate:"required,email"`
	AdminPassword string `json:"adminPassword" form:"adminPassword" validate:"required,min=8,max=72"`
}

// UpdateSchoolRequest renames a school. The logo travels separately as an upload.
type UpdateSchoolRequest struct {
	Name *string `json:"name" form:"name" validate:"omitempty,entity_name"`
}

// Registration is returned after a school is created.
type Registration struct {
	School *models.School `json:"school"`
	Admin  *models.User   `json:"admin"`
}

// SchoolService owns the school aggregate lifecycle.
type SchoolService struct {
	db        database.TxBeginner
	schools   schoolStore
	admins    adminStore
	auth      authorizer
	images    imageStore
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewSchoolService constructs SchoolService.
func NewSchoolService(db database.TxBeginner, schools schoolStore, admins adminStore, auth authorizer, images imageStore, validate *validator.Validate, logger *zap.Logger) *SchoolService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchoolService{db: db, schools: schools, admins: admins, auth: auth, images: images, validator: validate, logger: logger, now: time.Now}
}

// Register creates the school and its admin in one transaction. logo may be nil.
func (s *SchoolService) Register(ctx context.Context, req RegisterSchoolRequest, logo io.Reader) (*Registration, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.AdminEmail = normalizeEmail(req.AdminEmail)
	if err := validateStruct(s.validator, req, "school"); err != nil {
		return nil, err
	}

	taken, err := s.schools.ExistsByName(ctx, req.Name, "")
	if err != nil {
		return nil, internalErr(err, "failed to check school name")
	}
	if taken {
		return nil, duplicateErr("school name already exists")
	}
	taken, err = s.admins.ExistsByEmail(ctx, req.AdminEmail)
	if err != nil {
		return nil, internalErr(err, "failed to check admin email")
	}
	if taken {
		return nil, duplicateErr("admin email already exists")
	}

	hash, err := hashSecret(req.AdminPassword)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	school := &models.School{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Classes:   models.ClassList{},
		Teachers:  models.TeacherList{},
		Students:  models.StudentList{},
		Subjects:  models.SubjectList{},
		CreatedAt: now,
	}
	if logo != nil {
		name, err := s.images.SaveImage(storage.KindLogo, logo)
		if err != nil {
			return nil, uploadErr(err)
		}
		school.Logo = name
	}
	admin := &models.User{Email: req.AdminEmail, PasswordHash: hash, Role: models.RoleAdmin, SchoolID: school.ID}

	err = database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := s.schools.Create(ctx, tx, school); err != nil {
			return err
		}
		return s.admins.Create(ctx, tx, admin)
	})
	if err != nil {
		s.discard(school.Logo)
		return nil, storeErr(err, "school")
	}

	s.logger.Info("school registered", zap.String("school_id", school.ID), zap.String("admin_id", admin.ID))
	return &Registration{School: school, Admin: admin}, nil
}

// Get returns the full aggregate to its members.
func (s *SchoolService) Get(ctx context.Context, actor *models.Actor, schoolID string) (*models.School, error) {
	return s.auth.Authorize(ctx, actor, policy.ActionViewSchool, schoolID)
}

// List returns the public school directory.
func (s *SchoolService) List(ctx context.Context) ([]models.SchoolSummary, error) {
	schools, err := s.schools.List(ctx)
	if err != nil {
		return nil, internalErr(err, "failed to list schools")
	}
	return schools, nil
}

// Update renames the school and/or replaces its logo.
func (s *SchoolService) Update(ctx context.Context, actor *models.Actor, schoolID string, req UpdateSchoolRequest, logo io.Reader) (*models.School, error) {
	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		req.Name = &trimmed
	}
	if err := validateStruct(s.validator, req, "school"); err != nil {
		return nil, err
	}
	school, err := s.auth.Authorize(ctx, actor, policy.ActionManageSchool, schoolID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil && !strings.EqualFold(*req.Name, school.Name) {
		taken, err := s.schools.ExistsByName(ctx, *req.Name, school.ID)
		if err != nil {
			return nil, internalErr(err, "failed to check school name")
		}
		if taken {
			return nil, duplicateErr("school name already exists")
		}
	}

	var newLogo string
	if logo != nil {
		if newLogo, err = s.images.SaveImage(storage.KindLogo, logo); err != nil {
			return nil, uploadErr(err)
		}
	}

	oldLogo := school.Logo
	updated, err := mutateSchool(ctx, s.schools, school, func(draft *models.School) error {
		if req.Name != nil {
			draft.Name = *req.Name
		}
		if newLogo != "" {
			draft.Logo = newLogo
		}
		return nil
	})
	if err != nil {
		s.discard(newLogo)
		return nil, err
	}
	if newLogo != "" {
		s.discard(oldLogo)
	}
	return updated, nil
}

// Delete removes the school; dependent rows go with it through foreign keys.
func (s *SchoolService) Delete(ctx context.Context, actor *models.Actor, schoolID string) error {
	school, err := s.auth.Authorize(ctx, actor, policy.ActionManageSchool, schoolID)
	if err != nil {
		return err
	}
	if err := s.schools.Delete(ctx, school.ID); err != nil {
		return storeErr(err, "school")
	}
	s.discard(school.Logo)
	for _, t := range school.Teachers {
		s.discard(t.ProfilePicture)
	}
	for _, st := range school.Students {
		s.discard(st.ProfilePicture)
	}
	s.logger.Info("school deleted", zap.String("school_id", school.ID), zap.String("actor", actor.ID))
	return nil
}

func (s *SchoolService) discard(name string) {
	discardUpload(s.images, s.logger, name)
}

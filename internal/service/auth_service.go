package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/schoolhub-api/internal/models"
	appErrors "github.com/noah-isme/schoolhub-api/pkg/errors"
)

type loginSchoolStore interface {
	FindByID(ctx context.Context, id string) (*models.School, error)
	FindByMemberEmail(ctx context.Context, role models.Role, email string) ([]models.School, error)
}

type loginUserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// LoginRequest represents login payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthService compares credentials. It issues no session or token; callers
// echo the returned identity on later requests.
type AuthService struct {
	schools   loginSchoolStore
	users     loginUserStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAuthService constructs AuthService.
func NewAuthService(schools loginSchoolStore, users loginUserStore, validate *validator.Validate, logger *zap.Logger) *AuthService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{schools: schools, users: users, validator: validate, logger: logger}
}

// Login checks teachers, then students, then admins. Within a role, schools are
// searched oldest first and the first entry whose password matches wins.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*models.Identity, error) {
	if err := validateStruct(s.validator, req, "login"); err != nil {
		return nil, err
	}
	email := normalizeEmail(req.Email)

	for _, role := range models.Roles {
		var (
			identity *models.Identity
			err      error
		)
		if role == models.RoleAdmin {
			identity, err = s.matchAdmin(ctx, email, req.Password)
		} else {
			identity, err = s.matchMember(ctx, role, email, req.Password)
		}
		if err != nil {
			return nil, err
		}
		if identity != nil {
			s.logger.Info("login succeeded", zap.String("role", string(identity.Role)), zap.String("id", identity.ID))
			return identity, nil
		}
	}

	s.logger.Debug("login failed", zap.String("email", email))
	return nil, appErrors.ErrInvalidCredentials
}

func (s *AuthService) matchMember(ctx context.Context, role models.Role, email, password string) (*models.Identity, error) {
	schools, err := s.schools.FindByMemberEmail(ctx, role, email)
	if err != nil {
		return nil, internalErr(err, "failed to look up account")
	}
	for i := range schools {
		school := &schools[i]
		switch role {
		case models.RoleTeacher:
			for _, t := range school.Teachers {
				if strings.EqualFold(t.Email, email) && passwordMatches(t.PasswordHash, password) {
					return &models.Identity{ID: t.ID, Name: t.Name, Email: t.Email, Role: role, SchoolID: school.ID, SchoolName: school.Name}, nil
				}
			}
		case models.RoleStudent:
			for _, st := range school.Students {
				if strings.EqualFold(st.Email, email) && passwordMatches(st.PasswordHash, password) {
					return &models.Identity{ID: st.ID, Name: st.Name, Email: st.Email, Role: role, SchoolID: school.ID, SchoolName: school.Name}, nil
				}
			}
		}
	}
	return nil, nil
}

func (s *AuthService) matchAdmin(ctx context.Context, email, password string) (*models.Identity, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, internalErr(err, "failed to look up account")
	}
	if !passwordMatches(user.PasswordHash, password) {
		return nil, nil
	}
	identity := &models.Identity{ID: user.ID, Name: user.Email, Email: user.Email, Role: user.Role, SchoolID: user.SchoolID}
	school, err := s.schools.FindByID(ctx, user.SchoolID)
	switch {
	case err == nil:
		identity.SchoolName = school.Name
	case !errors.Is(err, sql.ErrNoRows):
		return nil, internalErr(err, "failed to load school")
	}
	return identity, nil
}

func passwordMatches(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

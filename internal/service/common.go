package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"io"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/schoolhub-api/internal/models"
	"github.com/noah-isme/schoolhub-api/internal/policy"
	"github.com/noah-isme/schoolhub-api/internal/repository"
	"github.com/noah-isme/schoolhub-api/pkg/database"
	appErrors "github.com/noah-isme/schoolhub-api/pkg/errors"
)

type authorizer interface {
	Authorize(ctx context.Context, actor *models.Actor, action policy.Action, schoolID string) (*models.School, error)
}

type schoolRepository interface {
	FindByID(ctx context.Context, id string) (*models.School, error)
	Save(ctx context.Context, school *models.School) error
}

type imageStore interface {
	SaveImage(kind string, r io.Reader) (string, error)
	Delete(name string) error
}

// mutateSchool applies fn to a copy of school and persists the copy. The caller's
// school is left untouched when fn or the save fails.
func mutateSchool(ctx context.Context, repo schoolRepository, school *models.School, fn func(*models.School) error) (*models.School, error) {
	draft := school.Clone()
	if err := fn(draft); err != nil {
		return nil, err
	}
	if err := repo.Save(ctx, draft); err != nil {
		if errors.Is(err, repository.ErrStaleVersion) {
			return nil, appErrors.ErrVersionConflict
		}
		return nil, internalErr(err, "failed to save school")
	}
	return draft, nil
}

func internalErr(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func validationErr(message string) error {
	return appErrors.Clone(appErrors.ErrValidation, message)
}

func duplicateErr(message string) error {
	return appErrors.Clone(appErrors.ErrDuplicate, message)
}

func notFoundErr(message string) error {
	return appErrors.Clone(appErrors.ErrNotFound, message)
}

// storeErr maps repository errors onto the API taxonomy.
func storeErr(err error, what string) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return notFoundErr(what + " not found")
	case errors.Is(err, repository.ErrStaleVersion):
		return appErrors.ErrVersionConflict
	case database.IsUniqueViolation(err):
		return appErrors.Wrap(err, appErrors.ErrDuplicate.Code, appErrors.ErrDuplicate.Status, what+" already exists")
	default:
		return internalErr(err, "failed to persist "+what)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashSecret(secret string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", internalErr(err, "failed to hash secret")
	}
	return string(hashed), nil
}

func paginate(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}

// uploadErr keeps typed storage rejections (bad type, too large) and wraps the rest.
func uploadErr(err error) error {
	var typed *appErrors.Error
	if errors.As(err, &typed) {
		return typed
	}
	return internalErr(err, "failed to store upload")
}

func discardUpload(images imageStore, logger *zap.Logger, name string) {
	if name == "" || images == nil {
		return
	}
	if err := images.Delete(name); err != nil {
		logger.Warn("failed to remove upload", zap.String("file", name), zap.Error(err))
	}
}

// randomDigits returns n uniformly distributed decimal digits from crypto/rand.
func randomDigits(n int) (string, error) {
	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			// 250 is the largest multiple of 10 below 256.
			if b < 250 && len(out) < n {
				out = append(out, '0'+b%10)
			}
		}
	}
	return string(out), nil
}

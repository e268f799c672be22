// Package policy decides whether an actor may act inside a school.
package policy

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/schoolhub-api/internal/models"
	appErrors "github.com/noah-isme/schoolhub-api/pkg/errors"
)

type schoolLoader interface {
	FindByID(ctx context.Context, id string) (*models.School, error)
}

type adminLoader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// Authorizer checks school membership and role capabilities.
type Authorizer struct {
	schools schoolLoader
	admins  adminLoader
	logger  *zap.Logger
}

// NewAuthorizer constructs an Authorizer.
func NewAuthorizer(schools schoolLoader, admins adminLoader, logger *zap.Logger) *Authorizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authorizer{schools: schools, admins: admins, logger: logger}
}

// Authorize loads the school and returns it when actor is a member allowed to perform action.
func (a *Authorizer) Authorize(ctx context.Context, actor *models.Actor, action Action, schoolID string) (*models.School, error) {
	if actor == nil || actor.ID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "caller identity required")
	}
	if schoolID == "" {
		schoolID = actor.SchoolID
	}

	school, err := a.schools.FindByID(ctx, schoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "school not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school")
	}

	member, err := a.isMember(ctx, actor, school)
	if err != nil {
		return nil, err
	}
	if !member {
		a.logger.Debug("non-member denied", zap.String("actor", actor.ID), zap.String("role", string(actor.Role)), zap.String("school", school.ID))
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not a member of this school")
	}
	if !Can(actor.Role, action) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "action not permitted for role")
	}
	return school, nil
}

func (a *Authorizer) isMember(ctx context.Context, actor *models.Actor, school *models.School) (bool, error) {
	switch actor.Role {
	case models.RoleAdmin:
		user, err := a.admins.FindByID(ctx, actor.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return false, nil
			}
			return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load admin")
		}
		return user.SchoolID == school.ID, nil
	case models.RoleTeacher:
		for _, t := range school.Teachers {
			if t.ID == actor.ID {
				return true, nil
			}
		}
		return false, nil
	case models.RoleStudent:
		for _, s := range school.Students {
			if s.ID == actor.ID {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, nil
	}
}

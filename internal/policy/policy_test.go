package policy

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/schoolhub-api/internal/models"
	appErrors "github.com/noah-isme/schoolhub-api/pkg/errors"
)

type schoolStub map[string]*models.School

func (s schoolStub) FindByID(_ context.Context, id string) (*models.School, error) {
	if school, ok := s[id]; ok {
		return school, nil
	}
	return nil, sql.ErrNoRows
}

type adminStub map[string]*models.User

func (s adminStub) FindByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func fixture() (*Authorizer, *models.School) {
	school := &models.School{
		ID:       "sch-1",
		Teachers: models.TeacherList{{ID: "t-1", Classes: []string{"10A"}}, {ID: "t-2", Classes: []string{"11B"}}},
		Students: models.StudentList{{ID: "s-1", Classes: []string{"10A"}}},
	}
	admins := adminStub{
		"u-1": {ID: "u-1", SchoolID: "sch-1"},
		"u-2": {ID: "u-2", SchoolID: "sch-2"},
	}
	return NewAuthorizer(schoolStub{"sch-1": school}, admins, nil), school
}

func TestAuthorizeRequiresActor(t *testing.T) {
	a, _ := fixture()

	_, err := a.Authorize(context.Background(), nil, ActionViewSchool, "sch-1")

	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestAuthorizeMembership(t *testing.T) {
	a, _ := fixture()
	ctx := context.Background()

	school, err := a.Authorize(ctx, &models.Actor{ID: "u-1", Role: models.RoleAdmin}, ActionManageSchool, "sch-1")
	require.NoError(t, err)
	assert.Equal(t, "sch-1", school.ID)

	_, err = a.Authorize(ctx, &models.Actor{ID: "u-2", Role: models.RoleAdmin}, ActionManageSchool, "sch-1")
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = a.Authorize(ctx, &models.Actor{ID: "t-9", Role: models.RoleTeacher}, ActionViewRoster, "sch-1")
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = a.Authorize(ctx, &models.Actor{ID: "u-1", Role: models.RoleAdmin}, ActionViewSchool, "missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestAuthorizeFallsBackToActorSchool(t *testing.T) {
	a, _ := fixture()

	school, err := a.Authorize(context.Background(), &models.Actor{ID: "s-1", Role: models.RoleStudent, SchoolID: "sch-1"}, ActionViewGrades, "")
	require.NoError(t, err)
	assert.Equal(t, "sch-1", school.ID)
}

func TestCapabilityTable(t *testing.T) {
	assert.True(t, Can(models.RoleAdmin, ActionManageFees))
	assert.True(t, Can(models.RoleTeacher, ActionMarkAttendance))
	assert.False(t, Can(models.RoleTeacher, ActionManageFees))
	assert.False(t, Can(models.RoleTeacher, ActionManageSchool))
	assert.True(t, Can(models.RoleStudent, ActionViewFees))
	assert.False(t, Can(models.RoleStudent, ActionSubmitGrade))
	assert.False(t, Can(models.Role("janitor"), ActionViewSchool))
}

func TestTeachesClass(t *testing.T) {
	_, school := fixture()

	assert.NoError(t, TeachesClass(&models.Actor{ID: "t-1", Role: models.RoleTeacher}, school, "10a"))
	assert.Error(t, TeachesClass(&models.Actor{ID: "t-2", Role: models.RoleTeacher}, school, "10A"))
	assert.NoError(t, TeachesClass(&models.Actor{ID: "u-1", Role: models.RoleAdmin}, school, "10A"))
	assert.Error(t, TeachesClass(&models.Actor{ID: "s-1", Role: models.RoleStudent}, school, "10A"))
}

func TestCanActOnStudent(t *testing.T) {
	_, school := fixture()

	assert.NoError(t, CanActOnStudent(&models.Actor{ID: "s-1", Role: models.RoleStudent}, school, "s-1"))
	assert.Error(t, CanActOnStudent(&models.Actor{ID: "s-2", Role: models.RoleStudent}, school, "s-1"))
	assert.NoError(t, CanActOnStudent(&models.Actor{ID: "t-1", Role: models.RoleTeacher}, school, "s-1"))
	assert.Error(t, CanActOnStudent(&models.Actor{ID: "t-2", Role: models.RoleTeacher}, school, "s-1"))
}

func TestScopeStudent(t *testing.T) {
	id, err := ScopeStudent(&models.Actor{ID: "s-1", Role: models.RoleStudent}, "")
	require.NoError(t, err)
	assert.Equal(t, "s-1", id)

	_, err = ScopeStudent(&models.Actor{ID: "s-1", Role: models.RoleStudent}, "s-2")
	assert.Error(t, err)

	id, err = ScopeStudent(&models.Actor{ID: "u-1", Role: models.RoleAdmin}, "s-2")
	require.NoError(t, err)
	assert.Equal(t, "s-2", id)
}

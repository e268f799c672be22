package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/schoolhub-api/internal/models"
	appErrors "github.com/noah-isme/schoolhub-api/pkg/errors"
)

func TestAddClassRejectsUnknownSubject(t *testing.T) {
	school := seedSchool(t)

	_, err := addClass(school, "11A", []string{"Math", "History"}, fixedNow)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Len(t, school.Classes, 2)
}

func TestAddClassRejectsDuplicateIgnoringCase(t *testing.T) {
	school := seedSchool(t)

	_, err := addClass(school, "10a", nil, fixedNow)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrDuplicate)
}

func TestAddClassUsesStoredSubjectSpelling(t *testing.T) {
	school := seedSchool(t)

	class, err := addClass(school, "11A", []string{"math"}, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, []string{"Math"}, class.Subjects)
}

func TestCheckNameRejectsInvalidCharacters(t *testing.T) {
	school := seedSchool(t)

	for _, name := range []string{"", "-dash", "semi;colon", "<script>"} {
		_, err := addSubject(school, name, fixedNow)
		assert.Error(t, err, name)
	}
	_, err := addSubject(school, "Art & Design (II)", fixedNow)
	assert.NoError(t, err)
}

func TestUpdateClassRenameRewritesEnrolments(t *testing.T) {
	school := seedSchool(t)

	class, err := updateClass(school, "10A", "Grade 10 A", nil, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "Grade 10 A", class.Name)
	assert.Equal(t, []string{"Math", "Science"}, class.Subjects)
	assert.Equal(t, []string{"Grade 10 A"}, school.Teachers[0].Classes)
	assert.Equal(t, []string{"Grade 10 A"}, school.Students[0].Classes)
}

func TestUpdateClassRenameCollision(t *testing.T) {
	school := seedSchool(t)

	_, err := updateClass(school, "10A", "10b", nil, fixedNow)
	assert.ErrorIs(t, err, appErrors.ErrDuplicate)
}

func TestUpdateSubjectRenameRewritesClasses(t *testing.T) {
	school := seedSchool(t)

	_, err := updateSubject(school, "math", "Mathematics", fixedNow)
	require.NoError(t, err)
	assert.Equal(t, []string{"Mathematics", "Science"}, school.Classes[0].Subjects)
	assert.Equal(t, []string{"Mathematics"}, school.Classes[1].Subjects)
}

func TestDeleteSubjectDoesNotCascade(t *testing.T) {
	school := seedSchool(t)

	require.NoError(t, deleteSubject(school, "Science"))
	assert.Len(t, school.Subjects, 1)
	assert.Equal(t, []string{"Math", "Science"}, school.Classes[0].Subjects)
}

func TestDeleteClassDoesNotCascade(t *testing.T) {
	school := seedSchool(t)

	require.NoError(t, deleteClass(school, "10A"))
	assert.Len(t, school.Classes, 1)
	assert.Equal(t, []string{"10A"}, school.Students[0].Classes)
	assert.ErrorIs(t, deleteClass(school, "10A"), appErrors.ErrNotFound)
}

func TestAddTeacherRejectsEmailReuse(t *testing.T) {
	school := seedSchool(t)

	_, err := addTeacher(school, models.Teacher{ID: "t2", Name: "Other", Email: "TINA@school.test"})
	assert.ErrorIs(t, err, appErrors.ErrDuplicate)

	// Students and teachers have separate email spaces.
	_, err = addTeacher(school, models.Teacher{ID: "t2", Name: "Sam", Email: "sam@school.test"})
	assert.NoError(t, err)
}

func TestAddStudentRejectsUnknownClass(t *testing.T) {
	school := seedSchool(t)

	_, err := addStudent(school, models.Student{ID: "s2", Name: "New", Email: "new@school.test", Classes: []string{"12Z"}})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Len(t, school.Students, 1)
}

func TestUpdateStudentKeepsOwnEmail(t *testing.T) {
	school := seedSchool(t)
	email := "SAM@school.test"

	st, err := updateStudent(school, testStudentID, studentPatch{Email: &email, Classes: []string{"10b"}}, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "sam@school.test", st.Email)
	assert.Equal(t, []string{"10B"}, st.Classes)
}

func TestUpdateTeacherRejectsBlankName(t *testing.T) {
	school := seedSchool(t)
	blank := " \t "

	_, err := updateTeacher(school, testTeacherID, teacherPatch{Name: &blank}, fixedNow)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Equal(t, "Tina Teach", school.Teachers[0].Name)
}

func TestClassViewsCountMembers(t *testing.T) {
	school := seedSchool(t)

	views := classViews(school)
	require.Len(t, views, 2)
	assert.Equal(t, 1, views[0].Students)
	assert.Equal(t, 1, views[0].Teachers)
	assert.Equal(t, 0, views[1].Students)
}

func TestMutateSchoolLeavesStoreUntouchedOnRejection(t *testing.T) {
	repo := newMockSchoolRepo(seedSchool(t))
	school, err := repo.FindByID(context.Background(), testSchoolID)
	require.NoError(t, err)

	_, err = mutateSchool(context.Background(), repo, school, func(draft *models.School) error {
		draft.Name = "changed"
		_, err := addClass(draft, "11A", []string{"Nope"}, fixedNow)
		return err
	})
	require.Error(t, err)
	assert.Equal(t, "Green Valley High", school.Name)
	assert.Equal(t, "Green Valley High", repo.stored(testSchoolID).Name)
	assert.Zero(t, repo.saves)
}

func TestMutateSchoolStaleVersion(t *testing.T) {
	repo := newMockSchoolRepo(seedSchool(t))
	first, _ := repo.FindByID(context.Background(), testSchoolID)
	second, _ := repo.FindByID(context.Background(), testSchoolID)

	_, err := mutateSchool(context.Background(), repo, first, func(draft *models.School) error {
		_, err := addSubject(draft, "Art", fixedNow)
		return err
	})
	require.NoError(t, err)

	_, err = mutateSchool(context.Background(), repo, second, func(draft *models.School) error {
		_, err := addSubject(draft, "Music", fixedNow)
		return err
	})
	assert.ErrorIs(t, err, appErrors.ErrVersionConflict)
	assert.Len(t, repo.stored(testSchoolID).Subjects, 3)
}

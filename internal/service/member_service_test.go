package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/schoolhub-api/pkg/errors"
)

func TestTeacherServiceCreate(t *testing.T) {
	f := newFixture(t)
	svc := NewTeacherService(f.schools, f.auth, &mockImages{}, NewValidator(), zap.NewNop())
	svc.now = clock()

	teacher, err := svc.Create(context.Background(), adminActor(), testSchoolID, CreateTeacherRequest{
		Name:     "Ben Board",
		Email:    "Ben@School.test",
		Password: "password1",
		Classes:  []string{"10b"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, teacher.ID)
	assert.Equal(t, "ben@school.test", teacher.Email)
	assert.Equal(t, []string{"10B"}, teacher.Classes)
	assert.Len(t, f.schools.stored(testSchoolID).Teachers, 2)
}

func TestTeacherServiceCreateUnknownClass(t *testing.T) {
	f := newFixture(t)
	svc := NewTeacherService(f.schools, f.auth, &mockImages{}, NewValidator(), zap.NewNop())

	_, err := svc.Create(context.Background(), adminActor(), testSchoolID, CreateTeacherRequest{
		Name: "Ben", Email: "ben@school.test", Password: "password1", Classes: []string{"9Z"},
	})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Len(t, f.schools.stored(testSchoolID).Teachers, 1)
}

func TestTeacherServiceSetPictureOwnOnly(t *testing.T) {
	f := newFixture(t)
	images := &mockImages{}
	svc := NewTeacherService(f.schools, f.auth, images, NewValidator(), zap.NewNop())

	teacher, err := svc.SetPicture(context.Background(), teacherActor(), testSchoolID, testTeacherID, strings.NewReader("img"))
	require.NoError(t, err)
	assert.Equal(t, "profiles/file-a.png", teacher.ProfilePicture)

	_, err = svc.SetPicture(context.Background(), studentActor(), testSchoolID, testTeacherID, strings.NewReader("img"))
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestTeacherServiceDeleteRemovesPicture(t *testing.T) {
	f := newFixture(t)
	images := &mockImages{}
	svc := NewTeacherService(f.schools, f.auth, images, NewValidator(), zap.NewNop())
	_, err := svc.SetPicture(context.Background(), adminActor(), testSchoolID, testTeacherID, strings.NewReader("img"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), adminActor(), testSchoolID, testTeacherID))
	assert.Equal(t, []string{"profiles/file-a.png"}, images.deleted)
	assert.Empty(t, f.schools.stored(testSchoolID).Teachers)
}

func TestStudentServiceGetScopedToSelf(t *testing.T) {
	f := newFixture(t)
	svc := NewStudentService(f.schools, f.auth, &mockImages{}, NewValidator(), zap.NewNop())

	student, err := svc.Get(context.Background(), studentActor(), testSchoolID, testStudentID)
	require.NoError(t, err)
	assert.Equal(t, "Sam Student", student.Name)

	other := studentActor()
	other.ID = "student-2"
	_, err = svc.Get(context.Background(), other, testSchoolID, testStudentID)
	assert.Error(t, err)

	// Teacher of 10A shares a class with the student.
	_, err = svc.Get(context.Background(), teacherActor(), testSchoolID, testStudentID)
	assert.NoError(t, err)
}

func TestStudentServiceListByClass(t *testing.T) {
	f := newFixture(t)
	svc := NewStudentService(f.schools, f.auth, &mockImages{}, NewValidator(), zap.NewNop())

	students, err := svc.List(context.Background(), teacherActor(), testSchoolID, "10B")
	require.NoError(t, err)
	assert.Empty(t, students)

	students, err = svc.List(context.Background(), adminActor(), testSchoolID, "10a")
	require.NoError(t, err)
	assert.Len(t, students, 1)

	_, err = svc.List(context.Background(), studentActor(), testSchoolID, "")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestStudentServiceUpdateDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	svc := NewStudentService(f.schools, f.auth, &mockImages{}, NewValidator(), zap.NewNop())
	_, err := svc.Create(context.Background(), adminActor(), testSchoolID, CreateStudentRequest{
		Name: "Ann", FatherName: "Al", Email: "ann@school.test", Password: "password1",
	})
	require.NoError(t, err)

	email := "Sam@school.test"
	stored := f.schools.stored(testSchoolID)
	_, err = svc.Update(context.Background(), adminActor(), testSchoolID, stored.Students[1].ID, UpdateStudentRequest{Email: &email})
	assert.ErrorIs(t, err, appErrors.ErrDuplicate)
}

func TestMemberUpdateRejectsBlankNames(t *testing.T) {
	f := newFixture(t)
	teachers := NewTeacherService(f.schools, f.auth, &mockImages{}, NewValidator(), zap.NewNop())
	students := NewStudentService(f.schools, f.auth, &mockImages{}, NewValidator(), zap.NewNop())
	blank := "   "
	email := "new@school.test"

	_, err := teachers.Update(context.Background(), adminActor(), testSchoolID, testTeacherID, UpdateTeacherRequest{Name: &blank, Email: &email})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = students.Update(context.Background(), adminActor(), testSchoolID, testStudentID, UpdateStudentRequest{Name: &blank})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = students.Update(context.Background(), adminActor(), testSchoolID, testStudentID, UpdateStudentRequest{FatherName: &blank})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	stored := f.schools.stored(testSchoolID)
	assert.Equal(t, "Tina Teach", stored.Teachers[0].Name)
	assert.Equal(t, "tina@school.test", stored.Teachers[0].Email)
	assert.Equal(t, "Sam Student", stored.Students[0].Name)
	assert.NotEmpty(t, stored.Students[0].FatherName)
}

func TestMemberUpdateTrimsNames(t *testing.T) {
	f := newFixture(t)
	svc := NewStudentService(f.schools, f.auth, &mockImages{}, NewValidator(), zap.NewNop())
	name := "  Sam Smith  "

	student, err := svc.Update(context.Background(), adminActor(), testSchoolID, testStudentID, UpdateStudentRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Sam Smith", student.Name)
}

func buildWorkbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestStudentServiceImport(t *testing.T) {
	f := newFixture(t)
	svc := NewStudentService(f.schools, f.auth, &mockImages{}, NewValidator(), zap.NewNop())

	book := buildWorkbook(t, [][]interface{}{
		{"Name", "FatherName", "Email", "Password", "Classes"},
		{"Ann", "Al", "ann@school.test", "password1", "10A, 10B"},
		{"Bob", "Bo", "sam@school.test", "password1", "10A"},
		{"Cid", "Ci", "cid@school.test", "short", ""},
		{"Dee", "De", "dee@school.test", "password1", "12Z"},
	})

	result, err := svc.Import(context.Background(), adminActor(), testSchoolID, book)
	require.NoError(t, err)
	require.Len(t, result.Imported, 1)
	assert.Equal(t, []string{"10A", "10B"}, result.Imported[0].Classes)
	require.Len(t, result.Failed, 3)
	assert.Equal(t, 3, result.Failed[0].Row)
	assert.Equal(t, 4, result.Failed[1].Row)
	assert.Equal(t, 5, result.Failed[2].Row)
	assert.Len(t, f.schools.stored(testSchoolID).Students, 2)
}

func TestStudentServiceImportMissingColumn(t *testing.T) {
	f := newFixture(t)
	svc := NewStudentService(f.schools, f.auth, &mockImages{}, NewValidator(), zap.NewNop())

	book := buildWorkbook(t, [][]interface{}{
		{"Name", "Email"},
		{"Ann", "ann@school.test"},
	})
	_, err := svc.Import(context.Background(), adminActor(), testSchoolID, book)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

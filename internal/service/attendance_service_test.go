package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/schoolhub-api/internal/models"
	appErrors "github.com/noah-isme/schoolhub-api/pkg/errors"
)

type fakeAttendanceStore struct {
	items   []models.Attendance
	summary *models.AttendanceSummary
	failFor string
}

func attendanceKey(a models.Attendance) string {
	return fmt.Sprintf("%s|%s|%s|%s|%s", a.SchoolID, a.StudentID, a.ClassName, a.Subject, a.Date.Format(dateLayout))
}

func (f *fakeAttendanceStore) Create(ctx context.Context, a *models.Attendance) error {
	if a.StudentID == f.failFor {
		return fmt.Errorf("connection reset")
	}
	for _, existing := range f.items {
		if attendanceKey(existing) == attendanceKey(*a) {
			return &pq.Error{Code: "23505", Constraint: "attendance_unique_mark"}
		}
	}
	a.ID = fmt.Sprintf("att-%d", len(f.items)+1)
	f.items = append(f.items, *a)
	return nil
}

func (f *fakeAttendanceStore) FindByID(ctx context.Context, schoolID, id string) (*models.Attendance, error) {
	for _, a := range f.items {
		if a.ID == id && a.SchoolID == schoolID {
			cp := a
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAttendanceStore) List(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, int, error) {
	out := make([]models.Attendance, 0)
	for _, a := range f.items {
		if filter.StudentID != "" && a.StudentID != filter.StudentID {
			continue
		}
		out = append(out, a)
	}
	return out, len(out), nil
}

func (f *fakeAttendanceStore) UpdateStatus(ctx context.Context, schoolID, id string, status models.AttendanceStatus, markedBy string) error {
	for i := range f.items {
		if f.items[i].ID == id {
			f.items[i].Status = status
			f.items[i].MarkedBy = markedBy
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeAttendanceStore) Delete(ctx context.Context, schoolID, id string) error {
	for i := range f.items {
		if f.items[i].ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeAttendanceStore) Summary(ctx context.Context, schoolID, studentID string, from, to *time.Time) (*models.AttendanceSummary, error) {
	if f.summary == nil {
		return nil, sql.ErrNoRows
	}
	cp := *f.summary
	return &cp, nil
}

func newAttendanceFixture(t *testing.T) (*AttendanceService, *fakeAttendanceStore) {
	t.Helper()
	f := newFixture(t)
	store := &fakeAttendanceStore{}
	svc := NewAttendanceService(store, f.auth, NewMetricsService(), NewValidator(), zap.NewNop())
	svc.now = clock()
	return svc, store
}

func TestAttendanceServiceMarkPartialSuccess(t *testing.T) {
	svc, store := newAttendanceFixture(t)
	store.items = append(store.items, models.Attendance{
		ID: "att-0", SchoolID: testSchoolID, StudentID: testStudentID, ClassName: "10A", Subject: "Math",
		Date: time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), Status: models.AttendancePresent,
	})

	result, err := svc.Mark(context.Background(), teacherActor(), testSchoolID, MarkAttendanceRequest{
		ClassName: "10a",
		Subject:   "Math",
		Date:      "2024-03-14",
		Records: []AttendanceEntry{
			{StudentID: testStudentID, Status: "present"},
			{StudentID: "ghost", Status: "absent"},
		},
	})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	require.NotNil(t, result)
	assert.Empty(t, result.Marked)
	require.Len(t, result.Duplicates, 1)
	assert.Equal(t, "attendance already marked", result.Duplicates[0].Reason)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "ghost", result.Failed[0].StudentID)
}

func TestAttendanceServiceMarkStoresAndFlagsRepeats(t *testing.T) {
	svc, store := newAttendanceFixture(t)

	result, err := svc.Mark(context.Background(), teacherActor(), testSchoolID, MarkAttendanceRequest{
		ClassName: "10A",
		Subject:   "science",
		Date:      "2024-03-15",
		Records: []AttendanceEntry{
			{StudentID: testStudentID, Status: "LATE"},
			{StudentID: testStudentID, Status: "present"},
		},
	})
	require.NoError(t, err)
	require.Len(t, result.Marked, 1)
	assert.Equal(t, models.AttendanceLate, result.Marked[0].Status)
	assert.Equal(t, "Science", result.Marked[0].Subject)
	assert.Equal(t, testTeacherID, result.Marked[0].MarkedBy)
	assert.Len(t, result.Duplicates, 1)
	assert.Len(t, store.items, 1)
}

func TestAttendanceServiceMarkRejections(t *testing.T) {
	svc, _ := newAttendanceFixture(t)
	entry := []AttendanceEntry{{StudentID: testStudentID, Status: "present"}}

	_, err := svc.Mark(context.Background(), teacherActor(), testSchoolID, MarkAttendanceRequest{ClassName: "10A", Subject: "Math", Date: "2024-03-16", Records: entry})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Mark(context.Background(), teacherActor(), testSchoolID, MarkAttendanceRequest{ClassName: "10B", Subject: "Math", Date: "2024-03-15", Records: entry})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.Mark(context.Background(), teacherActor(), testSchoolID, MarkAttendanceRequest{ClassName: "10B", Subject: "Science", Date: "2024-03-15", Records: entry})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Mark(context.Background(), teacherActor(), testSchoolID, MarkAttendanceRequest{ClassName: "10A", Subject: "Math", Date: "2024-03-15", Records: []AttendanceEntry{{StudentID: testStudentID, Status: "asleep"}}})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Mark(context.Background(), studentActor(), testSchoolID, MarkAttendanceRequest{ClassName: "10A", Subject: "Math", Date: "2024-03-15", Records: entry})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestAttendanceServiceStoreFailureIsReportedPerRecord(t *testing.T) {
	svc, store := newAttendanceFixture(t)
	store.failFor = testStudentID

	result, err := svc.Mark(context.Background(), adminActor(), testSchoolID, MarkAttendanceRequest{
		ClassName: "10A", Subject: "Math", Date: "2024-03-15",
		Records: []AttendanceEntry{{StudentID: testStudentID, Status: "absent"}},
	})
	assert.Error(t, err)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "failed to store attendance", result.Failed[0].Reason)
}

func TestAttendanceServiceUpdateAndDelete(t *testing.T) {
	svc, store := newAttendanceFixture(t)
	result, err := svc.Mark(context.Background(), teacherActor(), testSchoolID, MarkAttendanceRequest{
		ClassName: "10A", Subject: "Math", Date: "2024-03-15",
		Records: []AttendanceEntry{{StudentID: testStudentID, Status: "absent"}},
	})
	require.NoError(t, err)
	id := result.Marked[0].ID

	updated, err := svc.Update(context.Background(), teacherActor(), testSchoolID, id, UpdateAttendanceRequest{Status: "present"})
	require.NoError(t, err)
	assert.Equal(t, models.AttendancePresent, updated.Status)
	assert.Equal(t, models.AttendancePresent, store.items[0].Status)

	assert.ErrorIs(t, svc.Delete(context.Background(), teacherActor(), testSchoolID, id), appErrors.ErrForbidden)
	require.NoError(t, svc.Delete(context.Background(), adminActor(), testSchoolID, id))
	assert.ErrorIs(t, svc.Delete(context.Background(), adminActor(), testSchoolID, id), appErrors.ErrNotFound)
}

func TestAttendanceServiceListScopesStudents(t *testing.T) {
	svc, _ := newAttendanceFixture(t)

	_, page, err := svc.List(context.Background(), studentActor(), testSchoolID, AttendanceQuery{Page: 2, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 10, page.PageSize)

	_, _, err = svc.List(context.Background(), studentActor(), testSchoolID, AttendanceQuery{StudentID: "student-2"})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, _, err = svc.List(context.Background(), adminActor(), testSchoolID, AttendanceQuery{From: "15/03/2024"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestAttendanceServiceSummary(t *testing.T) {
	svc, store := newAttendanceFixture(t)

	empty, err := svc.Summary(context.Background(), studentActor(), testSchoolID, testStudentID, "", "")
	require.NoError(t, err)
	assert.Zero(t, empty.Percentage)

	store.summary = &models.AttendanceSummary{StudentID: testStudentID, Total: 3, Present: 1, Late: 1, Absent: 1}
	summary, err := svc.Summary(context.Background(), teacherActor(), testSchoolID, testStudentID, "2024-03-01", "2024-03-31")
	require.NoError(t, err)
	assert.Equal(t, 66.67, summary.Percentage)

	_, err = svc.Summary(context.Background(), studentActor(), testSchoolID, "student-2", "", "")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

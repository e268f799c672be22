package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/schoolhub-api/internal/models"
	appErrors "github.com/noah-isme/schoolhub-api/pkg/errors"
)

type fakeScheduleStore struct {
	items      []*models.Schedule
	lastFilter models.ScheduleFilter
}

func (f *fakeScheduleStore) Upsert(ctx context.Context, s *models.Schedule) (bool, error) {
	for _, existing := range f.items {
		if existing.ClassName == s.ClassName && existing.Subject == s.Subject && existing.Day == s.Day {
			s.ID = existing.ID
			*existing = *s
			return false, nil
		}
	}
	s.ID = "slot-" + string(rune('1'+len(f.items)))
	cp := *s
	f.items = append(f.items, &cp)
	return true, nil
}

func (f *fakeScheduleStore) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, error) {
	f.lastFilter = filter
	out := make([]models.Schedule, 0, len(f.items))
	for _, s := range f.items {
		out = append(out, *s)
	}
	return out, nil
}

func (f *fakeScheduleStore) Delete(ctx context.Context, schoolID, id string) error {
	for i, s := range f.items {
		if s.ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func TestScheduleServiceUpsert(t *testing.T) {
	f := newFixture(t)
	store := &fakeScheduleStore{}
	svc := NewScheduleService(store, f.auth, NewValidator(), zap.NewNop())
	req := UpsertScheduleRequest{ClassName: "10a", Subject: "MATH", Day: "Monday", TeacherID: testTeacherID, StartTime: "08:00", EndTime: "08:45", Room: " R1 "}

	first, err := svc.Upsert(context.Background(), adminActor(), testSchoolID, req)
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, models.Monday, first.Schedule.Day)
	assert.Equal(t, "Math", first.Schedule.Subject)
	assert.Equal(t, "R1", first.Schedule.Room)

	req.StartTime, req.EndTime = "09:00", "09:45"
	second, err := svc.Upsert(context.Background(), adminActor(), testSchoolID, req)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Len(t, store.items, 1)
	assert.Equal(t, "09:00", store.items[0].StartTime)
}

func TestScheduleServiceUpsertRejections(t *testing.T) {
	f := newFixture(t)
	svc := NewScheduleService(&fakeScheduleStore{}, f.auth, NewValidator(), zap.NewNop())
	base := UpsertScheduleRequest{ClassName: "10A", Subject: "Math", Day: "monday", TeacherID: testTeacherID, StartTime: "08:00", EndTime: "08:45"}

	tests := []struct {
		name   string
		mutate func(r *UpsertScheduleRequest)
		actor  *models.Actor
		want   error
	}{
		{"end before start", func(r *UpsertScheduleRequest) { r.EndTime = "07:59" }, adminActor(), appErrors.ErrValidation},
		{"bad clock", func(r *UpsertScheduleRequest) { r.StartTime = "8am" }, adminActor(), appErrors.ErrValidation},
		{"bad day", func(r *UpsertScheduleRequest) { r.Day = "funday" }, adminActor(), appErrors.ErrValidation},
		{"teacher not in class", func(r *UpsertScheduleRequest) { r.ClassName = "10B" }, adminActor(), appErrors.ErrValidation},
		{"subject not in class", func(r *UpsertScheduleRequest) { r.ClassName = "10B"; r.Subject = "Science" }, adminActor(), appErrors.ErrValidation},
		{"unknown teacher", func(r *UpsertScheduleRequest) { r.TeacherID = "t-x" }, adminActor(), appErrors.ErrValidation},
		{"teacher caller", func(r *UpsertScheduleRequest) {}, teacherActor(), appErrors.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base
			tt.mutate(&req)
			_, err := svc.Upsert(context.Background(), tt.actor, testSchoolID, req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestScheduleServiceListRestrictsStudents(t *testing.T) {
	f := newFixture(t)
	store := &fakeScheduleStore{}
	svc := NewScheduleService(store, f.auth, NewValidator(), zap.NewNop())

	_, err := svc.List(context.Background(), studentActor(), testSchoolID, ScheduleQuery{Day: "Friday"})
	require.NoError(t, err)
	assert.Equal(t, []string{"10A"}, store.lastFilter.Classes)
	assert.Equal(t, models.Friday, store.lastFilter.Day)

	_, err = svc.List(context.Background(), teacherActor(), testSchoolID, ScheduleQuery{})
	require.NoError(t, err)
	assert.Nil(t, store.lastFilter.Classes)

	assert.ErrorIs(t, svc.Delete(context.Background(), adminActor(), testSchoolID, "missing"), appErrors.ErrNotFound)
}

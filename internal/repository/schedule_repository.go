package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/schoolhub-api/internal/models"
)

const scheduleColumns = "id, school_id, class_name, subject, day, teacher_id, start_time, end_time, room, created_at, updated_at"

// ScheduleRepository manages timetable slots.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs a ScheduleRepository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// Upsert writes the slot for (class, subject, day, school) and reports whether it was new.
func (r *ScheduleRepository) Upsert(ctx context.Context, s *models.Schedule) (bool, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now

	query := `INSERT INTO schedules (id, school_id, class_name, subject, day, teacher_id, start_time, end_time, room, created_at, updated_at)
        VALUES (:id, :school_id, :class_name, :subject, :day, :teacher_id, :start_time, :end_time, :room, :created_at, :updated_at)
        ON CONFLICT (class_name, subject, day, school_id)
        DO UPDATE SET teacher_id = EXCLUDED.teacher_id, start_time = EXCLUDED.start_time, end_time = EXCLUDED.end_time,
            room = EXCLUDED.room, updated_at = EXCLUDED.updated_at
        RETURNING ` + scheduleColumns + `, (xmax = 0) AS inserted`

	rows, err := sqlx.NamedQueryContext(ctx, r.db, query, s)
	if err != nil {
		return false, fmt.Errorf("upsert schedule: %w", err)
	}
	defer rows.Close()

	var stored struct {
		models.Schedule
		Inserted bool `db:"inserted"`
	}
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return false, fmt.Errorf("upsert schedule: %w", err)
		}
		return false, fmt.Errorf("upsert schedule: no row returned")
	}
	if err := rows.StructScan(&stored); err != nil {
		return false, fmt.Errorf("scan upserted schedule: %w", err)
	}
	*s = stored.Schedule
	return stored.Inserted, nil
}

// List returns slots ordered Monday first, then by start time.
func (r *ScheduleRepository) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, error) {
	var conditions []string
	var args []interface{}
	add := func(clause string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}

	add("school_id = $%d", filter.SchoolID)
	if filter.ClassName != "" {
		add("LOWER(class_name) = LOWER($%d)", filter.ClassName)
	}
	if filter.TeacherID != "" {
		add("teacher_id = $%d", filter.TeacherID)
	}
	if filter.Day != "" {
		add("day = $%d", filter.Day)
	}
	if len(filter.Classes) > 0 {
		add("class_name = ANY($%d)", pq.Array(filter.Classes))
	}

	query := fmt.Sprintf(`SELECT %s FROM schedules WHERE %s
        ORDER BY array_position(ARRAY['monday','tuesday','wednesday','thursday','friday','saturday','sunday'], day), start_time, class_name`,
		scheduleColumns, strings.Join(conditions, " AND "))
	items := make([]models.Schedule, 0)
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	return items, nil
}

// Delete removes a slot.
func (r *ScheduleRepository) Delete(ctx context.Context, schoolID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = $1 AND school_id = $2`, id, schoolID)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	return expectOne(res)
}

package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/schoolhub-api/internal/models"
)

const attendanceColumns = "id, school_id, student_id, class_name, subject, date, status, marked_by, created_at, updated_at"

// AttendanceRepository persists attendance marks. Uniqueness of
// (student, class, subject, date) is enforced by the table constraint.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs an AttendanceRepository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Create inserts a single mark. A duplicate surfaces as a unique violation.
func (r *AttendanceRepository) Create(ctx context.Context, a *models.Attendance) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	const query = `INSERT INTO attendance (id, school_id, student_id, class_name, subject, date, status, marked_by, created_at, updated_at)
        VALUES (:id, :school_id, :student_id, :class_name, :subject, :date, :status, :marked_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, a); err != nil {
		return fmt.Errorf("create attendance: %w", err)
	}
	return nil
}

// FindByID fetches a mark scoped to its school.
func (r *AttendanceRepository) FindByID(ctx context.Context, schoolID, id string) (*models.Attendance, error) {
	query := fmt.Sprintf("SELECT %s FROM attendance WHERE id = $1 AND school_id = $2", attendanceColumns)
	var a models.Attendance
	if err := r.db.GetContext(ctx, &a, query, id, schoolID); err != nil {
		return nil, err
	}
	return &a, nil
}

// List returns marks matching filter, newest day first, with the total count.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, int, error) {
	where, args := attendanceWhere(filter)

	page, size := normalisePage(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s FROM attendance %s ORDER BY date DESC, class_name, student_id LIMIT %d OFFSET %d",
		attendanceColumns, where, size, (page-1)*size)
	items := make([]models.Attendance, 0)
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM attendance "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance: %w", err)
	}
	return items, total, nil
}

// UpdateStatus changes the status of an existing mark.
func (r *AttendanceRepository) UpdateStatus(ctx context.Context, schoolID, id string, status models.AttendanceStatus, markedBy string) error {
	const query = `UPDATE attendance SET status = $1, marked_by = $2, updated_at = $3 WHERE id = $4 AND school_id = $5`
	res, err := r.db.ExecContext(ctx, query, status, markedBy, time.Now().UTC(), id, schoolID)
	if err != nil {
		return fmt.Errorf("update attendance: %w", err)
	}
	return expectOne(res)
}

// Delete removes a mark.
func (r *AttendanceRepository) Delete(ctx context.Context, schoolID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM attendance WHERE id = $1 AND school_id = $2`, id, schoolID)
	if err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	return expectOne(res)
}

// Summary counts a student's marks per status within an optional date range.
func (r *AttendanceRepository) Summary(ctx context.Context, schoolID, studentID string, from, to *time.Time) (*models.AttendanceSummary, error) {
	where, args := attendanceWhere(models.AttendanceFilter{SchoolID: schoolID, StudentID: studentID, From: from, To: to})
	query := `SELECT $` + fmt.Sprint(len(args)+1) + `::text AS student_id,
        COUNT(*) AS total,
        COUNT(*) FILTER (WHERE status = 'present') AS present,
        COUNT(*) FILTER (WHERE status = 'absent') AS absent,
        COUNT(*) FILTER (WHERE status = 'late') AS late
        FROM attendance ` + where
	args = append(args, studentID)

	var summary models.AttendanceSummary
	if err := r.db.GetContext(ctx, &summary, query, args...); err != nil {
		return nil, fmt.Errorf("attendance summary: %w", err)
	}
	return &summary, nil
}

// CountByStatusOn tallies a school's marks for one day.
func (r *AttendanceRepository) CountByStatusOn(ctx context.Context, schoolID string, day time.Time) (map[models.AttendanceStatus]int, error) {
	const query = `SELECT status, COUNT(*) AS total FROM attendance WHERE school_id = $1 AND date = $2 GROUP BY status`
	var rows []struct {
		Status models.AttendanceStatus `db:"status"`
		Total  int                     `db:"total"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, schoolID, day.Format("2006-01-02")); err != nil {
		return nil, fmt.Errorf("count attendance by status: %w", err)
	}
	counts := map[models.AttendanceStatus]int{
		models.AttendancePresent: 0,
		models.AttendanceAbsent:  0,
		models.AttendanceLate:    0,
	}
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

func attendanceWhere(filter models.AttendanceFilter) (string, []interface{}) {
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
	if filter.Subject != "" {
		add("LOWER(subject) = LOWER($%d)", filter.Subject)
	}
	if filter.StudentID != "" {
		add("student_id = $%d", filter.StudentID)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.From != nil {
		add("date >= $%d", filter.From.Format("2006-01-02"))
	}
	if filter.To != nil {
		add("date <= $%d", filter.To.Format("2006-01-02"))
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

func normalisePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return page, size
}

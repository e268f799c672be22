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

const gradeColumns = "id, school_id, student_id, class_name, subject, grade, percentage, status, remarks, graded_by, created_at, updated_at"

// GradeRepository manages persistence of grades.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository constructs a GradeRepository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// Upsert inserts or updates the grade for (student, subject, class, school).
// It reports whether a new row was created and refreshes grade with the stored row.
func (r *GradeRepository) Upsert(ctx context.Context, grade *models.Grade) (bool, error) {
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	grade.CreatedAt = now
	grade.UpdatedAt = now

	query := `INSERT INTO grades (id, school_id, student_id, class_name, subject, grade, percentage, status, remarks, graded_by, created_at, updated_at)
        VALUES (:id, :school_id, :student_id, :class_name, :subject, :grade, :percentage, :status, :remarks, :graded_by, :created_at, :updated_at)
        ON CONFLICT (student_id, subject, class_name, school_id)
        DO UPDATE SET grade = EXCLUDED.grade, percentage = EXCLUDED.percentage, status = EXCLUDED.status,
            remarks = EXCLUDED.remarks, graded_by = EXCLUDED.graded_by, updated_at = EXCLUDED.updated_at
        RETURNING ` + gradeColumns + `, (xmax = 0) AS inserted`

	rows, err := sqlx.NamedQueryContext(ctx, r.db, query, grade)
	if err != nil {
		return false, fmt.Errorf("upsert grade: %w", err)
	}
	defer rows.Close()

	var stored struct {
		models.Grade
		Inserted bool `db:"inserted"`
	}
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return false, fmt.Errorf("upsert grade: %w", err)
		}
		return false, fmt.Errorf("upsert grade: no row returned")
	}
	if err := rows.StructScan(&stored); err != nil {
		return false, fmt.Errorf("scan upserted grade: %w", err)
	}
	*grade = stored.Grade
	return stored.Inserted, nil
}

// FindByID fetches a grade scoped to its school.
func (r *GradeRepository) FindByID(ctx context.Context, schoolID, id string) (*models.Grade, error) {
	query := fmt.Sprintf("SELECT %s FROM grades WHERE id = $1 AND school_id = $2", gradeColumns)
	var grade models.Grade
	if err := r.db.GetContext(ctx, &grade, query, id, schoolID); err != nil {
		return nil, err
	}
	return &grade, nil
}

// List returns grades matching filter.
func (r *GradeRepository) List(ctx context.Context, filter models.GradeFilter) ([]models.Grade, error) {
	var conditions []string
	var args []interface{}
	add := func(clause string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}

	add("school_id = $%d", filter.SchoolID)
	if filter.StudentID != "" {
		add("student_id = $%d", filter.StudentID)
	}
	if filter.ClassName != "" {
		add("LOWER(class_name) = LOWER($%d)", filter.ClassName)
	}
	if filter.Subject != "" {
		add("LOWER(subject) = LOWER($%d)", filter.Subject)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}

	query := fmt.Sprintf("SELECT %s FROM grades WHERE %s ORDER BY class_name, subject, student_id",
		gradeColumns, strings.Join(conditions, " AND "))
	grades := make([]models.Grade, 0)
	if err := r.db.SelectContext(ctx, &grades, query, args...); err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}
	return grades, nil
}

// Delete removes a grade.
func (r *GradeRepository) Delete(ctx context.Context, schoolID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM grades WHERE id = $1 AND school_id = $2`, id, schoolID)
	if err != nil {
		return fmt.Errorf("delete grade: %w", err)
	}
	return expectOne(res)
}

// Distribution counts a school's grades per status.
func (r *GradeRepository) Distribution(ctx context.Context, schoolID string) (models.GradeDistribution, error) {
	var rows []struct {
		Status models.GradeStatus `db:"status"`
		Total  int                `db:"total"`
	}
	const query = `SELECT status, COUNT(*) AS total FROM grades WHERE school_id = $1 GROUP BY status`
	if err := r.db.SelectContext(ctx, &rows, query, schoolID); err != nil {
		return nil, fmt.Errorf("grade distribution: %w", err)
	}
	dist := models.GradeDistribution{}
	for _, row := range rows {
		dist[row.Status] = row.Total
	}
	return dist, nil
}

package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/schoolhub-api/internal/models"
)

const schoolColumns = "id, name, logo, classes, teachers, students, subjects, version, created_at, updated_at"

// SchoolRepository persists the School aggregate as a single versioned row.
type SchoolRepository struct {
	db *sqlx.DB
}

// NewSchoolRepository constructs a SchoolRepository.
func NewSchoolRepository(db *sqlx.DB) *SchoolRepository {
	return &SchoolRepository{db: db}
}

// Create inserts a new school at version 1.
func (r *SchoolRepository) Create(ctx context.Context, exec sqlx.ExtContext, school *models.School) error {
	if exec == nil {
		exec = r.db
	}
	if school.ID == "" {
		school.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if school.CreatedAt.IsZero() {
		school.CreatedAt = now
	}
	school.UpdatedAt = now
	school.Version = 1

	const query = `INSERT INTO schools (id, name, logo, classes, teachers, students, subjects, version, created_at, updated_at)
        VALUES (:id, :name, :logo, :classes, :teachers, :students, :subjects, :version, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, school); err != nil {
		return fmt.Errorf("create school: %w", err)
	}
	return nil
}

// FindByID loads the full aggregate.
func (r *SchoolRepository) FindByID(ctx context.Context, id string) (*models.School, error) {
	query := fmt.Sprintf("SELECT %s FROM schools WHERE id = $1", schoolColumns)
	var school models.School
	if err := r.db.GetContext(ctx, &school, query, id); err != nil {
		return nil, err
	}
	return &school, nil
}

// List returns every school's public summary ordered by name.
func (r *SchoolRepository) List(ctx context.Context) ([]models.SchoolSummary, error) {
	const query = `SELECT id, name, logo FROM schools ORDER BY LOWER(name)`
	schools := make([]models.SchoolSummary, 0)
	if err := r.db.SelectContext(ctx, &schools, query); err != nil {
		return nil, fmt.Errorf("list schools: %w", err)
	}
	return schools, nil
}

// ExistsByName performs a case-insensitive name check.
func (r *SchoolRepository) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	query := "SELECT 1 FROM schools WHERE LOWER(name) = LOWER($1)"
	args := []interface{}{strings.TrimSpace(name)}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check school name: %w", err)
	}
	return true, nil
}

// FindByMemberEmail returns schools whose teachers or students collection holds email,
// oldest first. Emails are stored lower-cased.
func (r *SchoolRepository) FindByMemberEmail(ctx context.Context, role models.Role, email string) ([]models.School, error) {
	column, err := memberColumn(role)
	if err != nil {
		return nil, err
	}
	probe, err := json.Marshal([]map[string]string{{"email": strings.ToLower(strings.TrimSpace(email))}})
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT %s FROM schools WHERE %s @> $1::jsonb ORDER BY created_at, id", schoolColumns, column)
	schools := make([]models.School, 0)
	if err := r.db.SelectContext(ctx, &schools, query, string(probe)); err != nil {
		return nil, fmt.Errorf("find schools by %s email: %w", role, err)
	}
	return schools, nil
}

// Save writes the whole aggregate if nobody else saved since it was loaded,
// then bumps school.Version.
func (r *SchoolRepository) Save(ctx context.Context, school *models.School) error {
	school.UpdatedAt = time.Now().UTC()
	const query = `UPDATE schools SET name = $1, logo = $2, classes = $3, teachers = $4, students = $5, subjects = $6,
        version = version + 1, updated_at = $7 WHERE id = $8 AND version = $9`
	res, err := r.db.ExecContext(ctx, query,
		school.Name, school.Logo, school.Classes, school.Teachers, school.Students, school.Subjects,
		school.UpdatedAt, school.ID, school.Version,
	)
	if err != nil {
		return fmt.Errorf("save school: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save school rows affected: %w", err)
	}
	if affected == 0 {
		return ErrStaleVersion
	}
	school.Version++
	return nil
}

// Delete removes the school; dependent rows cascade.
func (r *SchoolRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM schools WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete school: %w", err)
	}
	return expectOne(res)
}

func memberColumn(role models.Role) (string, error) {
	switch role {
	case models.RoleTeacher:
		return "teachers", nil
	case models.RoleStudent:
		return "students", nil
	case models.RoleAdmin:
		return "", fmt.Errorf("admins are not embedded in schools")
	default:
		return "", fmt.Errorf("unknown role %q", role)
	}
}

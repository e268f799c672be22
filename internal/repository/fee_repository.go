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

const feeColumns = "id, school_id, student_id, academic_year, semester, fee_structure, total_amount, payments, total_paid, balance, status, due_date, version, created_at, updated_at"

// derivedStatusSQL mirrors service.DeriveFeeStatus so status filters see overdue
// records whose stored status has not been refreshed yet.
const derivedStatusSQL = `(CASE WHEN balance = 0 THEN 'paid' WHEN total_paid > 0 THEN 'partial' WHEN $%d > due_date THEN 'overdue' ELSE 'pending' END)`

// FeeRepository persists fee records with optimistic versioning.
type FeeRepository struct {
	db *sqlx.DB
}

// NewFeeRepository constructs a FeeRepository.
func NewFeeRepository(db *sqlx.DB) *FeeRepository {
	return &FeeRepository{db: db}
}

// Create inserts a fee record at version 1.
func (r *FeeRepository) Create(ctx context.Context, fee *models.FeeRecord) error {
	if fee.ID == "" {
		fee.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	fee.CreatedAt = now
	fee.UpdatedAt = now
	fee.Version = 1
	if fee.Payments == nil {
		fee.Payments = models.PaymentList{}
	}

	const query = `INSERT INTO fees (id, school_id, student_id, academic_year, semester, fee_structure, total_amount, payments,
            total_paid, balance, status, due_date, version, created_at, updated_at)
        VALUES (:id, :school_id, :student_id, :academic_year, :semester, :fee_structure, :total_amount, :payments,
            :total_paid, :balance, :status, :due_date, :version, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, fee); err != nil {
		return fmt.Errorf("create fee: %w", err)
	}
	return nil
}

// FindByID fetches a fee record scoped to its school.
func (r *FeeRepository) FindByID(ctx context.Context, schoolID, id string) (*models.FeeRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM fees WHERE id = $1 AND school_id = $2", feeColumns)
	var fee models.FeeRecord
	if err := r.db.GetContext(ctx, &fee, query, id, schoolID); err != nil {
		return nil, err
	}
	return &fee, nil
}

// List returns fee records matching filter with the total count.
func (r *FeeRepository) List(ctx context.Context, filter models.FeeFilter) ([]models.FeeRecord, int, error) {
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
	if filter.AcademicYear != "" {
		add("academic_year = $%d", filter.AcademicYear)
	}
	if filter.Semester != 0 {
		add("semester = $%d", filter.Semester)
	}
	if filter.Status != "" {
		asOf := filter.AsOf
		if asOf.IsZero() {
			asOf = time.Now().UTC()
		}
		args = append(args, asOf)
		add(fmt.Sprintf(derivedStatusSQL, len(args))+" = $%d", filter.Status)
	}
	where := "WHERE " + strings.Join(conditions, " AND ")

	page, size := normalisePage(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s FROM fees %s ORDER BY due_date, student_id LIMIT %d OFFSET %d",
		feeColumns, where, size, (page-1)*size)
	fees := make([]models.FeeRecord, 0)
	if err := r.db.SelectContext(ctx, &fees, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list fees: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM fees "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count fees: %w", err)
	}
	return fees, total, nil
}

// Save writes every mutable column when the stored version still matches fee.Version.
func (r *FeeRepository) Save(ctx context.Context, fee *models.FeeRecord) error {
	fee.UpdatedAt = time.Now().UTC()
	const query = `UPDATE fees SET fee_structure = $1, total_amount = $2, payments = $3, total_paid = $4, balance = $5,
        status = $6, due_date = $7, version = version + 1, updated_at = $8 WHERE id = $9 AND school_id = $10 AND version = $11`
	res, err := r.db.ExecContext(ctx, query,
		fee.FeeStructure, fee.TotalAmount, fee.Payments, fee.TotalPaid, fee.Balance,
		fee.Status, fee.DueDate, fee.UpdatedAt, fee.ID, fee.SchoolID, fee.Version,
	)
	if err != nil {
		return fmt.Errorf("save fee: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save fee rows affected: %w", err)
	}
	if affected == 0 {
		return ErrStaleVersion
	}
	fee.Version++
	return nil
}

// Delete removes a fee record.
func (r *FeeRepository) Delete(ctx context.Context, schoolID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM fees WHERE id = $1 AND school_id = $2`, id, schoolID)
	if err != nil {
		return fmt.Errorf("delete fee: %w", err)
	}
	return expectOne(res)
}

// Totals aggregates billing for a school. Overdue is evaluated against now.
func (r *FeeRepository) Totals(ctx context.Context, schoolID string, now time.Time) (*models.FeeTotals, error) {
	const query = `SELECT COALESCE(SUM(total_amount), 0) AS billed,
            COALESCE(SUM(total_paid), 0) AS collected,
            COALESCE(SUM(balance), 0) AS outstanding,
            COUNT(*) FILTER (WHERE balance > 0 AND total_paid = 0 AND due_date < $2) AS overdue
        FROM fees WHERE school_id = $1`
	var totals models.FeeTotals
	if err := r.db.GetContext(ctx, &totals, query, schoolID, now); err != nil {
		return nil, fmt.Errorf("fee totals: %w", err)
	}
	return &totals, nil
}

package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/schoolhub-api/internal/models"
	"github.com/noah-isme/schoolhub-api/internal/policy"
	"github.com/noah-isme/schoolhub-api/pkg/export"
)

type feeStore interface {
	Create(ctx context.Context, fee *models.FeeRecord) error
	FindByID(ctx context.Context, schoolID, id string) (*models.FeeRecord, error)
	List(ctx context.Context, filter models.FeeFilter) ([]models.FeeRecord, int, error)
	Save(ctx context.Context, fee *models.FeeRecord) error
	Delete(ctx context.Context, schoolID, id string) error
}

type receiptRenderer interface {
	RenderReceipt(r export.Receipt) ([]byte, error)
}

// CreateFeeRequest bills a student for one semester.
type CreateFeeRequest struct {
	StudentID    string              `json:"studentId" validate:"required"`
	AcademicYear string              `json:"academicYear" validate:"required,academic_year"`
	Semester     int                 `json:"semester" validate:"required,oneof=1 2"`
	FeeStructure models.FeeStructure `json:"feeStructure"`
	DueDate      string              `json:"dueDate" validate:"required,datetime=2006-01-02"`
}

// UpdateFeeRequest replaces the structure and/or due date.
type UpdateFeeRequest struct {
	FeeStructure *models.FeeStructure `json:"feeStructure"`
	DueDate      *string              `json:"dueDate" validate:"omitempty,datetime=2006-01-02"`
}

// RecordPaymentRequest appends a payment to a fee record.
type RecordPaymentRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
	Method string  `json:"method" validate:"required,payment_method"`
	Notes  string  `json:"notes" validate:"max=500"`
}

// FeeQuery holds list filters.
type FeeQuery struct {
	StudentID    string `form:"studentId"`
	AcademicYear string `form:"academicYear" validate:"omitempty,academic_year"`
	Semester     int    `form:"semester" validate:"omitempty,oneof=1 2"`
	Status       string `form:"status" validate:"omitempty,oneof=pending partial paid overdue"`
	Page         int    `form:"page" validate:"omitempty,min=1"`
	PageSize     int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// PaymentReceipt is returned after a payment is recorded.
type PaymentReceipt struct {
	Fee     *models.FeeRecord `json:"fee"`
	Payment models.Payment    `json:"payment"`
}

// DeriveFeeStatus computes the status of a fee record. Paid wins over partial,
// partial over overdue, overdue over pending. A fee is paid when its balance is
// exactly zero; RecordPayment and UpdateFee never let the balance go negative.
func DeriveFeeStatus(balance, totalPaid float64, now, dueDate time.Time) models.FeeStatus {
	switch {
	case cents(balance) == 0:
		return models.FeePaid
	case totalPaid > 0:
		return models.FeePartial
	case now.After(dueDate):
		return models.FeeOverdue
	default:
		return models.FeePending
	}
}

func cents(v float64) int64 {
	return int64(math.Round(v * 100))
}

func fromCents(c int64) float64 {
	return float64(c) / 100
}

// FeeService runs the fee and payment state machine.
type FeeService struct {
	repo      feeStore
	auth      authorizer
	receipts  receiptRenderer
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewFeeService constructs FeeService.
func NewFeeService(repo feeStore, auth authorizer, receipts receiptRenderer, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *FeeService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if receipts == nil {
		receipts = export.NewPDFExporter()
	}
	return &FeeService{repo: repo, auth: auth, receipts: receipts, metrics: metrics, validator: validate, logger: logger, now: time.Now}
}

// Create bills a student. One record per student, academic year and semester.
func (s *FeeService) Create(ctx context.Context, actor *models.Actor, schoolID string, req CreateFeeRequest) (*models.FeeRecord, error) {
	if err := validateStruct(s.validator, req, "fee"); err != nil {
		return nil, err
	}
	school, err := s.auth.Authorize(ctx, actor, policy.ActionManageFees, schoolID)
	if err != nil {
		return nil, err
	}
	if studentIndex(school, req.StudentID) < 0 {
		return nil, validationErr("unknown student: " + req.StudentID)
	}
	due, err := parseDueDate(req.DueDate)
	if err != nil {
		return nil, err
	}
	total := cents(req.FeeStructure.Total())
	if total <= 0 {
		return nil, validationErr("fee total must be greater than zero")
	}

	fee := &models.FeeRecord{
		SchoolID:     school.ID,
		StudentID:    req.StudentID,
		AcademicYear: req.AcademicYear,
		Semester:     req.Semester,
		FeeStructure: req.FeeStructure,
		TotalAmount:  fromCents(total),
		Payments:     models.PaymentList{},
		TotalPaid:    0,
		Balance:      fromCents(total),
		DueDate:      due,
	}
	fee.Status = DeriveFeeStatus(fee.Balance, fee.TotalPaid, s.now(), fee.DueDate)
	if err := s.repo.Create(ctx, fee); err != nil {
		return nil, storeErr(err, "fee record")
	}
	s.logger.Info("fee created", zap.String("school_id", school.ID), zap.String("fee_id", fee.ID), zap.Float64("total", fee.TotalAmount))
	return fee, nil
}

// RecordPayment appends a payment. The amount must be positive and no larger
// than the outstanding balance.
func (s *FeeService) RecordPayment(ctx context.Context, actor *models.Actor, schoolID, feeID string, req RecordPaymentRequest) (*PaymentReceipt, error) {
	if err := validateStruct(s.validator, req, "payment"); err != nil {
		return nil, err
	}
	school, err := s.auth.Authorize(ctx, actor, policy.ActionManageFees, schoolID)
	if err != nil {
		return nil, err
	}
	fee, err := s.repo.FindByID(ctx, school.ID, feeID)
	if err != nil {
		return nil, storeErr(err, "fee record")
	}

	amount := cents(req.Amount)
	if amount <= 0 {
		return nil, validationErr("amount must be at least 0.01")
	}
	balance := cents(fee.TotalAmount) - cents(fee.TotalPaid)
	if amount > balance {
		return nil, validationErr(fmt.Sprintf("amount %.2f exceeds outstanding balance %.2f", fromCents(amount), fromCents(balance)))
	}

	now := s.now().UTC()
	payment, err := newPayment(now, fromCents(amount), models.PaymentMethod(strings.ToLower(req.Method)), actor.ID, strings.TrimSpace(req.Notes))
	if err != nil {
		return nil, err
	}
	fee.Payments = append(fee.Payments, payment)
	paid := cents(fee.TotalPaid) + amount
	fee.TotalPaid = fromCents(paid)
	fee.Balance = fromCents(cents(fee.TotalAmount) - paid)
	fee.Status = DeriveFeeStatus(fee.Balance, fee.TotalPaid, now, fee.DueDate)

	if err := s.repo.Save(ctx, fee); err != nil {
		return nil, storeErr(err, "fee record")
	}
	s.metrics.RecordPayment(payment.Amount)
	s.logger.Info("payment recorded",
		zap.String("fee_id", fee.ID),
		zap.String("receipt", payment.ReceiptNumber),
		zap.Float64("amount", payment.Amount),
		zap.String("status", string(fee.Status)))
	return &PaymentReceipt{Fee: fee, Payment: payment}, nil
}

// Update replaces the fee structure and/or due date and recomputes the derived fields.
func (s *FeeService) Update(ctx context.Context, actor *models.Actor, schoolID, feeID string, req UpdateFeeRequest) (*models.FeeRecord, error) {
	if err := validateStruct(s.validator, req, "fee"); err != nil {
		return nil, err
	}
	school, err := s.auth.Authorize(ctx, actor, policy.ActionManageFees, schoolID)
	if err != nil {
		return nil, err
	}
	fee, err := s.repo.FindByID(ctx, school.ID, feeID)
	if err != nil {
		return nil, storeErr(err, "fee record")
	}

	if req.FeeStructure != nil {
		total := cents(req.FeeStructure.Total())
		if total <= 0 {
			return nil, validationErr("fee total must be greater than zero")
		}
		if total < cents(fee.TotalPaid) {
			return nil, validationErr(fmt.Sprintf("fee total %.2f is below the amount already paid %.2f", fromCents(total), fee.TotalPaid))
		}
		fee.FeeStructure = *req.FeeStructure
		fee.TotalAmount = fromCents(total)
	}
	if req.DueDate != nil {
		due, err := parseDueDate(*req.DueDate)
		if err != nil {
			return nil, err
		}
		fee.DueDate = due
	}
	fee.Balance = fromCents(cents(fee.TotalAmount) - cents(fee.TotalPaid))
	fee.Status = DeriveFeeStatus(fee.Balance, fee.TotalPaid, s.now(), fee.DueDate)

	if err := s.repo.Save(ctx, fee); err != nil {
		return nil, storeErr(err, "fee record")
	}
	return fee, nil
}

// List returns fee records with their status re-derived against the current time.
func (s *FeeService) List(ctx context.Context, actor *models.Actor, schoolID string, q FeeQuery) ([]models.FeeRecord, *models.Pagination, error) {
	if err := validateStruct(s.validator, q, "fee query"); err != nil {
		return nil, nil, err
	}
	school, err := s.auth.Authorize(ctx, actor, policy.ActionViewFees, schoolID)
	if err != nil {
		return nil, nil, err
	}
	studentID, err := policy.ScopeStudent(actor, q.StudentID)
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	filter := models.FeeFilter{
		SchoolID:     school.ID,
		StudentID:    studentID,
		AcademicYear: q.AcademicYear,
		Semester:     q.Semester,
		Status:       models.FeeStatus(q.Status),
		AsOf:         now,
		Page:         q.Page,
		PageSize:     q.PageSize,
	}
	fees, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalErr(err, "failed to list fees")
	}
	for i := range fees {
		refreshStatus(&fees[i], now)
	}
	return fees, paginate(filter.Page, filter.PageSize, total), nil
}

// Get returns one fee record. Students may only read their own.
func (s *FeeService) Get(ctx context.Context, actor *models.Actor, schoolID, feeID string) (*models.FeeRecord, error) {
	_, fee, err := s.load(ctx, actor, schoolID, feeID)
	if err != nil {
		return nil, err
	}
	return fee, nil
}

func (s *FeeService) Delete(ctx context.Context, actor *models.Actor, schoolID, feeID string) error {
	school, err := s.auth.Authorize(ctx, actor, policy.ActionManageFees, schoolID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, school.ID, feeID); err != nil {
		return storeErr(err, "fee record")
	}
	return nil
}

// Receipt renders the PDF receipt of one payment.
func (s *FeeService) Receipt(ctx context.Context, actor *models.Actor, schoolID, feeID, paymentID string) (*ExportFile, error) {
	school, fee, err := s.load(ctx, actor, schoolID, feeID)
	if err != nil {
		return nil, err
	}
	payment := fee.FindPayment(paymentID)
	if payment == nil {
		return nil, notFoundErr("payment not found")
	}
	studentName := fee.StudentID
	if idx := studentIndex(school, fee.StudentID); idx >= 0 {
		studentName = school.Students[idx].Name
	}

	content, err := s.receipts.RenderReceipt(export.Receipt{
		SchoolName:    school.Name,
		StudentName:   studentName,
		StudentID:     fee.StudentID,
		AcademicYear:  fee.AcademicYear,
		Semester:      fee.Semester,
		ReceiptNumber: payment.ReceiptNumber,
		TransactionID: payment.TransactionID,
		Method:        string(payment.Method),
		Amount:        payment.Amount,
		TotalAmount:   fee.TotalAmount,
		TotalPaid:     fee.TotalPaid,
		Balance:       fee.Balance,
		Status:        string(fee.Status),
		PaidAt:        payment.PaidAt,
		Notes:         payment.Notes,
	})
	if err != nil {
		return nil, internalErr(err, "failed to render receipt")
	}
	return &ExportFile{Name: payment.ReceiptNumber + ".pdf", ContentType: "application/pdf", Content: content}, nil
}

func (s *FeeService) load(ctx context.Context, actor *models.Actor, schoolID, feeID string) (*models.School, *models.FeeRecord, error) {
	school, err := s.auth.Authorize(ctx, actor, policy.ActionViewFees, schoolID)
	if err != nil {
		return nil, nil, err
	}
	fee, err := s.repo.FindByID(ctx, school.ID, feeID)
	if err != nil {
		return nil, nil, storeErr(err, "fee record")
	}
	if _, err := policy.ScopeStudent(actor, fee.StudentID); err != nil {
		return nil, nil, err
	}
	refreshStatus(fee, s.now())
	return school, fee, nil
}

func refreshStatus(fee *models.FeeRecord, now time.Time) {
	fee.Status = DeriveFeeStatus(fee.Balance, fee.TotalPaid, now, fee.DueDate)
}

func newPayment(now time.Time, amount float64, method models.PaymentMethod, recordedBy, notes string) (models.Payment, error) {
	receiptDigits, err := randomDigits(6)
	if err != nil {
		return models.Payment{}, internalErr(err, "failed to generate receipt number")
	}
	return models.Payment{
		PaymentID:     uuid.NewString(),
		TransactionID: fmt.Sprintf("TXN-%d-%s", now.Unix(), strings.ToUpper(uuid.NewString()[:8])),
		ReceiptNumber: fmt.Sprintf("RCP-%s-%s", now.Format("20060102"), receiptDigits),
		Amount:        amount,
		Method:        method,
		PaidAt:        now,
		RecordedBy:    recordedBy,
		Notes:         notes,
	}, nil
}

// parseDueDate reads YYYY-MM-DD as the end of that day in UTC, so a fee becomes
// overdue only once the due day has passed.
func parseDueDate(raw string) (time.Time, error) {
	day, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, validationErr("dueDate must use YYYY-MM-DD")
	}
	return day.Add(24*time.Hour - time.Second), nil
}

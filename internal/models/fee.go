package models

import (
	"database/sql/driver"
	"time"
)

// FeeStatus is derived from balance, payments and due date.
type FeeStatus string

const (
	FeePending FeeStatus = "pending"
	FeePartial FeeStatus = "partial"
	FeePaid    FeeStatus = "paid"
	FeeOverdue FeeStatus = "overdue"
)

// PaymentMethod enumerates accepted payment channels.
type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "cash"
	PaymentCard         PaymentMethod = "card"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentOnline       PaymentMethod = "online"
	PaymentCheque       PaymentMethod = "cheque"
)

// FeeStructure itemises the billed amount.
type FeeStructure struct {
	Tuition   float64 `json:"tuition" validate:"gte=0"`
	Admission float64 `json:"admission" validate:"gte=0"`
	Exam      float64 `json:"exam" validate:"gte=0"`
	Library   float64 `json:"library" validate:"gte=0"`
	Sports    float64 `json:"sports" validate:"gte=0"`
	Transport float64 `json:"transport" validate:"gte=0"`
	Other     float64 `json:"other" validate:"gte=0"`
}

// Total sums every line item.
func (f FeeStructure) Total() float64 {
	return f.Tuition + f.Admission + f.Exam + f.Library + f.Sports + f.Transport + f.Other
}

func (f FeeStructure) Value() (driver.Value, error)  { return marshalJSONB(f, "{}") }
func (f *FeeStructure) Scan(value interface{}) error { return scanJSONB(value, f) }

// Payment is an immutable entry in a fee record's payment log.
type Payment struct {
	PaymentID     string        `json:"paymentId"`
	TransactionID string        `json:"transactionId"`
	ReceiptNumber string        `json:"receiptNumber"`
	Amount        float64       `json:"amount"`
	Method        PaymentMethod `json:"method"`
	PaidAt        time.Time     `json:"paidAt"`
	RecordedBy    string        `json:"recordedBy"`
	Notes         string        `json:"notes,omitempty"`
}

type PaymentList []Payment

func (l PaymentList) Value() (driver.Value, error)  { return marshalJSONB([]Payment(l), "[]") }
func (l *PaymentList) Scan(value interface{}) error { return scanJSONB(value, (*[]Payment)(l)) }

// FeeRecord bills one student for one semester. TotalAmount, TotalPaid,
// Balance and Status are derived and never accepted from clients.
type FeeRecord struct {
	ID           string       `db:"id" json:"id"`
	SchoolID     string       `db:"school_id" json:"schoolId"`
	StudentID    string       `db:"student_id" json:"studentId"`
	AcademicYear string       `db:"academic_year" json:"academicYear"`
	Semester     int          `db:"semester" json:"semester"`
	FeeStructure FeeStructure `db:"fee_structure" json:"feeStructure"`
	TotalAmount  float64      `db:"total_amount" json:"totalAmount"`
	Payments     PaymentList  `db:"payments" json:"payments"`
	TotalPaid    float64      `db:"total_paid" json:"totalPaid"`
	Balance      float64      `db:"balance" json:"balance"`
	Status       FeeStatus    `db:"status" json:"status"`
	DueDate      time.Time    `db:"due_date" json:"dueDate"`
	Version      int          `db:"version" json:"version"`
	CreatedAt    time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updatedAt"`
}

// FindPayment returns the payment with id, or nil.
func (f *FeeRecord) FindPayment(id string) *Payment {
	for i := range f.Payments {
		if f.Payments[i].PaymentID == id {
			return &f.Payments[i]
		}
	}
	return nil
}

// FeeFilter scopes fee listing.
type FeeFilter struct {
	SchoolID     string
	StudentID    string
	AcademicYear string
	Semester     int
	Status       FeeStatus
	AsOf         time.Time
	Page         int
	PageSize     int
}

// FeeTotals summarises a school's billing.
type FeeTotals struct {
	Billed      float64 `db:"billed" json:"billed"`
	Collected   float64 `db:"collected" json:"collected"`
	Outstanding float64 `db:"outstanding" json:"outstanding"`
	Overdue     int     `db:"overdue" json:"overdueRecords"`
}

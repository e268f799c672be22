package models

import "time"

// GradeStatus is derived from percentage.
type GradeStatus string

const (
	GradeExcellent    GradeStatus = "excellent"
	GradeGood         GradeStatus = "good"
	GradeAverage      GradeStatus = "average"
	GradeBelowAverage GradeStatus = "below_average"
	GradeFailing      GradeStatus = "failing"
)

// Grade is the single result for (student, subject, class, school).
type Grade struct {
	ID         string      `db:"id" json:"id"`
	SchoolID   string      `db:"school_id" json:"schoolId"`
	StudentID  string      `db:"student_id" json:"studentId"`
	ClassName  string      `db:"class_name" json:"className"`
	Subject    string      `db:"subject" json:"subject"`
	Grade      string      `db:"grade" json:"grade"`
	Percentage float64     `db:"percentage" json:"percentage"`
	Status     GradeStatus `db:"status" json:"status"`
	Remarks    string      `db:"remarks" json:"remarks,omitempty"`
	GradedBy   string      `db:"graded_by" json:"gradedBy"`
	CreatedAt  time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time   `db:"updated_at" json:"updatedAt"`
}

// GradeFilter allows querying of grade entries.
type GradeFilter struct {
	SchoolID  string
	StudentID string
	ClassName string
	Subject   string
	Status    GradeStatus
}

// GradeDistribution counts grades per status.
type GradeDistribution map[GradeStatus]int

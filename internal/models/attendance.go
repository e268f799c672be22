package models

import "time"

// AttendanceStatus enumerates attendance states.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceLate    AttendanceStatus = "late"
)

// Attendance is one mark for a (student, class, subject, day).
type Attendance struct {
	ID        string           `db:"id" json:"id"`
	SchoolID  string           `db:"school_id" json:"schoolId"`
	StudentID string           `db:"student_id" json:"studentId"`
	ClassName string           `db:"class_name" json:"className"`
	Subject   string           `db:"subject" json:"subject"`
	Date      time.Time        `db:"date" json:"date"`
	Status    AttendanceStatus `db:"status" json:"status"`
	MarkedBy  string           `db:"marked_by" json:"markedBy"`
	CreatedAt time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time        `db:"updated_at" json:"updatedAt"`
}

// AttendanceFilter scopes listing queries.
type AttendanceFilter struct {
	SchoolID  string
	ClassName string
	Subject   string
	StudentID string
	From      *time.Time
	To        *time.Time
	Status    AttendanceStatus
	Page      int
	PageSize  int
}

// AttendanceSummary aggregates a student's marks.
type AttendanceSummary struct {
	StudentID  string  `db:"student_id" json:"studentId"`
	Total      int     `db:"total" json:"total"`
	Present    int     `db:"present" json:"present"`
	Absent     int     `db:"absent" json:"absent"`
	Late       int     `db:"late" json:"late"`
	Percentage float64 `db:"-" json:"percentage"`
}

// AttendanceRejection explains why a record was not marked.
type AttendanceRejection struct {
	StudentID string `json:"studentId"`
	Reason    string `json:"reason"`
}

// AttendanceMarkResult reports partial success of a bulk mark.
type AttendanceMarkResult struct {
	Marked     []Attendance          `json:"marked"`
	Duplicates []AttendanceRejection `json:"duplicates"`
	Failed     []AttendanceRejection `json:"failed"`
}

package models

import "time"

// Weekday names a teaching day.
type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
)

// Schedule is the timetable slot for (class, subject, day).
type Schedule struct {
	ID        string    `db:"id" json:"id"`
	SchoolID  string    `db:"school_id" json:"schoolId"`
	ClassName string    `db:"class_name" json:"className"`
	Subject   string    `db:"subject" json:"subject"`
	Day       Weekday   `db:"day" json:"day"`
	TeacherID string    `db:"teacher_id" json:"teacherId"`
	StartTime string    `db:"start_time" json:"startTime"`
	EndTime   string    `db:"end_time" json:"endTime"`
	Room      string    `db:"room" json:"room,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// ScheduleFilter scopes schedule listing.
type ScheduleFilter struct {
	SchoolID  string
	ClassName string
	TeacherID string
	Day       Weekday
	Classes   []string
}

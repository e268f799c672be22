package models

// DashboardStats is the admin overview of a school.
type DashboardStats struct {
	SchoolID        string                   `json:"schoolId"`
	Teachers        int                      `json:"teachers"`
	Students        int                      `json:"students"`
	Classes         int                      `json:"classes"`
	Subjects        int                      `json:"subjects"`
	TodayAttendance map[AttendanceStatus]int `json:"todayAttendance"`
	Fees            FeeTotals                `json:"fees"`
	Grades          GradeDistribution        `json:"grades"`
}

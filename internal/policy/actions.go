package policy

import "github.com/noah-isme/schoolhub-api/internal/models"

// Action names an operation a caller wants to perform inside a school.
type Action string

const (
	ActionManageSchool     Action = "school:manage"
	ActionViewSchool       Action = "school:view"
	ActionViewRoster       Action = "roster:view"
	ActionViewProfile      Action = "profile:view"
	ActionUpdateOwnPicture Action = "profile:picture"
	ActionMarkAttendance   Action = "attendance:mark"
	ActionViewAttendance   Action = "attendance:view"
	ActionSubmitGrade      Action = "grade:submit"
	ActionViewGrades       Action = "grade:view"
	ActionManageSchedule   Action = "schedule:manage"
	ActionViewSchedule     Action = "schedule:view"
	ActionManageFees       Action = "fee:manage"
	ActionViewFees         Action = "fee:view"
	ActionViewDashboard    Action = "dashboard:view"
)

var teacherCapabilities = map[Action]bool{
	ActionViewSchool:       true,
	ActionViewRoster:       true,
	ActionViewProfile:      true,
	ActionUpdateOwnPicture: true,
	ActionMarkAttendance:   true,
	ActionViewAttendance:   true,
	ActionSubmitGrade:      true,
	ActionViewGrades:       true,
	ActionViewSchedule:     true,
}

var studentCapabilities = map[Action]bool{
	ActionViewSchool:     true,
	ActionViewProfile:    true,
	ActionViewAttendance: true,
	ActionViewGrades:     true,
	ActionViewSchedule:   true,
	ActionViewFees:       true,
}

// Can reports whether role may perform action at all. Ownership is checked separately.
func Can(role models.Role, action Action) bool {
	switch role {
	case models.RoleAdmin:
		return true
	case models.RoleTeacher:
		return teacherCapabilities[action]
	case models.RoleStudent:
		return studentCapabilities[action]
	default:
		return false
	}
}

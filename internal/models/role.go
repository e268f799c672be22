package models

import "strings"

// Role is the closed set of actor kinds.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// Roles lists every role in login precedence order.
var Roles = []Role{RoleTeacher, RoleStudent, RoleAdmin}

// ParseRole accepts any casing and reports whether s names a known role.
func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return r, true
	default:
		return "", false
	}
}

// Actor is the caller identity echoed on every authenticated request.
type Actor struct {
	ID       string `json:"id"`
	Role     Role   `json:"role"`
	SchoolID string `json:"schoolId"`
}

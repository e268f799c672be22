package policy

import (
	"github.com/noah-isme/schoolhub-api/internal/models"
	appErrors "github.com/noah-isme/schoolhub-api/pkg/errors"
)

// TeachesClass requires admins or the class's assigned teachers.
func TeachesClass(actor *models.Actor, school *models.School, className string) error {
	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleTeacher:
		for _, t := range school.Teachers {
			if t.ID == actor.ID && t.Teaches(className) {
				return nil
			}
		}
		return appErrors.Clone(appErrors.ErrForbidden, "teacher is not assigned to class "+className)
	default:
		return appErrors.Clone(appErrors.ErrForbidden, "action not permitted for role")
	}
}

// CanActOnStudent allows admins, the student themself, and teachers sharing a class with the student.
func CanActOnStudent(actor *models.Actor, school *models.School, studentID string) error {
	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleStudent:
		if actor.ID == studentID {
			return nil
		}
	case models.RoleTeacher:
		var teacher *models.Teacher
		for i := range school.Teachers {
			if school.Teachers[i].ID == actor.ID {
				teacher = &school.Teachers[i]
				break
			}
		}
		if teacher == nil {
			break
		}
		for _, s := range school.Students {
			if s.ID != studentID {
				continue
			}
			for _, c := range s.Classes {
				if teacher.Teaches(c) {
					return nil
				}
			}
		}
	}
	return appErrors.Clone(appErrors.ErrForbidden, "not allowed to access this student")
}

// CanActOnTeacher allows admins and the teacher themself.
func CanActOnTeacher(actor *models.Actor, teacherID string) error {
	if actor.Role == models.RoleAdmin || (actor.Role == models.RoleTeacher && actor.ID == teacherID) {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "not allowed to access this teacher")
}

// ScopeStudent pins student callers to their own records; other roles keep the requested id.
func ScopeStudent(actor *models.Actor, requested string) (string, error) {
	if actor.Role != models.RoleStudent {
		return requested, nil
	}
	if requested != "" && requested != actor.ID {
		return "", appErrors.Clone(appErrors.ErrForbidden, "students may only view their own records")
	}
	return actor.ID, nil
}

package service

import (
	"strings"
	"time"

	"github.com/noah-isme/schoolhub-api/internal/models"
)

// The functions below mutate a scratch copy of the aggregate. Callers run them
// inside mutateSchool so a rejected change never reaches the store.

func classIndex(s *models.School, name string) int {
	for i, c := range s.Classes {
		if strings.EqualFold(c.Name, name) {
			return i
		}
	}
	return -1
}

func subjectIndex(s *models.School, name string) int {
	for i, sub := range s.Subjects {
		if strings.EqualFold(sub.Name, name) {
			return i
		}
	}
	return -1
}

func teacherIndex(s *models.School, id string) int {
	for i, t := range s.Teachers {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func studentIndex(s *models.School, id string) int {
	for i, st := range s.Students {
		if st.ID == id {
			return i
		}
	}
	return -1
}

// patchedName trims an optional name change. A blank result is rejected the
// same way create rejects a missing name.
func patchedName(field string, v *string) (*string, error) {
	if v == nil {
		return nil, nil
	}
	name := strings.TrimSpace(*v)
	if name == "" {
		return nil, validationErr(field + " is required")
	}
	return &name, nil
}

func checkName(kind, name string) error {
	if !entityNamePattern.MatchString(name) {
		return validationErr("invalid " + kind + " name: " + name)
	}
	return nil
}

// resolveSubjects returns the stored spelling of every subject in names, rejecting
// unknown subjects and repeats.
func resolveSubjects(s *models.School, names []string) ([]string, error) {
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		idx := subjectIndex(s, name)
		if idx < 0 {
			return nil, validationErr("unknown subject: " + name)
		}
		key := strings.ToLower(name)
		if seen[key] {
			return nil, validationErr("subject listed twice: " + name)
		}
		seen[key] = true
		out = append(out, s.Subjects[idx].Name)
	}
	return out, nil
}

// resolveClasses is resolveSubjects for class references.
func resolveClasses(s *models.School, names []string) ([]string, error) {
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		idx := classIndex(s, name)
		if idx < 0 {
			return nil, validationErr("unknown class: " + name)
		}
		key := strings.ToLower(name)
		if seen[key] {
			return nil, validationErr("class listed twice: " + name)
		}
		seen[key] = true
		out = append(out, s.Classes[idx].Name)
	}
	return out, nil
}

func addClass(s *models.School, name string, subjects []string, now time.Time) (*models.Class, error) {
	name = strings.TrimSpace(name)
	if err := checkName("class", name); err != nil {
		return nil, err
	}
	if classIndex(s, name) >= 0 {
		return nil, duplicateErr("class already exists: " + name)
	}
	resolved, err := resolveSubjects(s, subjects)
	if err != nil {
		return nil, err
	}
	s.Classes = append(s.Classes, models.Class{Name: name, Subjects: resolved, CreatedAt: now, UpdatedAt: now})
	return &s.Classes[len(s.Classes)-1], nil
}

// updateClass renames and/or replaces the subject list of a class. A nil
// subjects slice keeps the current list.
func updateClass(s *models.School, name, newName string, subjects []string, now time.Time) (*models.Class, error) {
	idx := classIndex(s, name)
	if idx < 0 {
		return nil, notFoundErr("class not found: " + name)
	}
	if subjects != nil {
		resolved, err := resolveSubjects(s, subjects)
		if err != nil {
			return nil, err
		}
		s.Classes[idx].Subjects = resolved
	}

	newName = strings.TrimSpace(newName)
	oldName := s.Classes[idx].Name
	if newName != "" && newName != oldName {
		if err := checkName("class", newName); err != nil {
			return nil, err
		}
		if other := classIndex(s, newName); other >= 0 && other != idx {
			return nil, duplicateErr("class already exists: " + newName)
		}
		s.Classes[idx].Name = newName
		for i := range s.Teachers {
			s.Teachers[i].Classes = renameRef(s.Teachers[i].Classes, oldName, newName)
		}
		for i := range s.Students {
			s.Students[i].Classes = renameRef(s.Students[i].Classes, oldName, newName)
		}
	}
	s.Classes[idx].UpdatedAt = now
	return &s.Classes[idx], nil
}

// deleteClass removes the class only. Member class lists keep the stale name.
func deleteClass(s *models.School, name string) error {
	idx := classIndex(s, name)
	if idx < 0 {
		return notFoundErr("class not found: " + name)
	}
	s.Classes = append(s.Classes[:idx], s.Classes[idx+1:]...)
	return nil
}

func addSubject(s *models.School, name string, now time.Time) (*models.Subject, error) {
	name = strings.TrimSpace(name)
	if err := checkName("subject", name); err != nil {
		return nil, err
	}
	if subjectIndex(s, name) >= 0 {
		return nil, duplicateErr("subject already exists: " + name)
	}
	s.Subjects = append(s.Subjects, models.Subject{Name: name, CreatedAt: now, UpdatedAt: now})
	return &s.Subjects[len(s.Subjects)-1], nil
}

func updateSubject(s *models.School, name, newName string, now time.Time) (*models.Subject, error) {
	idx := subjectIndex(s, name)
	if idx < 0 {
		return nil, notFoundErr("subject not found: " + name)
	}
	newName = strings.TrimSpace(newName)
	if err := checkName("subject", newName); err != nil {
		return nil, err
	}
	if other := subjectIndex(s, newName); other >= 0 && other != idx {
		return nil, duplicateErr("subject already exists: " + newName)
	}
	oldName := s.Subjects[idx].Name
	s.Subjects[idx].Name = newName
	s.Subjects[idx].UpdatedAt = now
	for i := range s.Classes {
		s.Classes[i].Subjects = renameRef(s.Classes[i].Subjects, oldName, newName)
	}
	return &s.Subjects[idx], nil
}

// deleteSubject removes the subject only. Class subject lists keep the stale name.
func deleteSubject(s *models.School, name string) error {
	idx := subjectIndex(s, name)
	if idx < 0 {
		return notFoundErr("subject not found: " + name)
	}
	s.Subjects = append(s.Subjects[:idx], s.Subjects[idx+1:]...)
	return nil
}

func teacherEmailTaken(s *models.School, email, excludeID string) bool {
	for _, t := range s.Teachers {
		if t.ID != excludeID && strings.EqualFold(t.Email, email) {
			return true
		}
	}
	return false
}

func studentEmailTaken(s *models.School, email, excludeID string) bool {
	for _, st := range s.Students {
		if st.ID != excludeID && strings.EqualFold(st.Email, email) {
			return true
		}
	}
	return false
}

func addTeacher(s *models.School, t models.Teacher) (*models.Teacher, error) {
	t.Email = normalizeEmail(t.Email)
	if teacherEmailTaken(s, t.Email, "") {
		return nil, duplicateErr("teacher email already in use: " + t.Email)
	}
	classes, err := resolveClasses(s, t.Classes)
	if err != nil {
		return nil, err
	}
	t.Classes = classes
	s.Teachers = append(s.Teachers, t)
	return &s.Teachers[len(s.Teachers)-1], nil
}

// teacherPatch carries optional teacher changes; nil fields are left alone.
type teacherPatch struct {
	Name         *string
	Email        *string
	PasswordHash *string
	Classes      []string
}

func updateTeacher(s *models.School, id string, p teacherPatch, now time.Time) (*models.Teacher, error) {
	idx := teacherIndex(s, id)
	if idx < 0 {
		return nil, notFoundErr("teacher not found")
	}
	name, err := patchedName("name", p.Name)
	if err != nil {
		return nil, err
	}
	t := &s.Teachers[idx]
	if p.Email != nil {
		email := normalizeEmail(*p.Email)
		if teacherEmailTaken(s, email, id) {
			return nil, duplicateErr("teacher email already in use: " + email)
		}
		t.Email = email
	}
	if p.Classes != nil {
		classes, err := resolveClasses(s, p.Classes)
		if err != nil {
			return nil, err
		}
		t.Classes = classes
	}
	if name != nil {
		t.Name = *name
	}
	if p.PasswordHash != nil {
		t.PasswordHash = *p.PasswordHash
	}
	t.UpdatedAt = now
	return t, nil
}

func deleteTeacher(s *models.School, id string) (*models.Teacher, error) {
	idx := teacherIndex(s, id)
	if idx < 0 {
		return nil, notFoundErr("teacher not found")
	}
	removed := s.Teachers[idx]
	s.Teachers = append(s.Teachers[:idx], s.Teachers[idx+1:]...)
	return &removed, nil
}

func addStudent(s *models.School, st models.Student) (*models.Student, error) {
	st.Email = normalizeEmail(st.Email)
	if studentEmailTaken(s, st.Email, "") {
		return nil, duplicateErr("student email already in use: " + st.Email)
	}
	classes, err := resolveClasses(s, st.Classes)
	if err != nil {
		return nil, err
	}
	st.Classes = classes
	s.Students = append(s.Students, st)
	return &s.Students[len(s.Students)-1], nil
}

type studentPatch struct {
	Name         *string
	FatherName   *string
	Email        *string
	PasswordHash *string
	Classes      []string
}

func updateStudent(s *models.School, id string, p studentPatch, now time.Time) (*models.Student, error) {
	idx := studentIndex(s, id)
	if idx < 0 {
		return nil, notFoundErr("student not found")
	}
	name, err := patchedName("name", p.Name)
	if err != nil {
		return nil, err
	}
	fatherName, err := patchedName("fatherName", p.FatherName)
	if err != nil {
		return nil, err
	}
	st := &s.Students[idx]
	if p.Email != nil {
		email := normalizeEmail(*p.Email)
		if studentEmailTaken(s, email, id) {
			return nil, duplicateErr("student email already in use: " + email)
		}
		st.Email = email
	}
	if p.Classes != nil {
		classes, err := resolveClasses(s, p.Classes)
		if err != nil {
			return nil, err
		}
		st.Classes = classes
	}
	if name != nil {
		st.Name = *name
	}
	if fatherName != nil {
		st.FatherName = *fatherName
	}
	if p.PasswordHash != nil {
		st.PasswordHash = *p.PasswordHash
	}
	st.UpdatedAt = now
	return st, nil
}

func deleteStudent(s *models.School, id string) (*models.Student, error) {
	idx := studentIndex(s, id)
	if idx < 0 {
		return nil, notFoundErr("student not found")
	}
	removed := s.Students[idx]
	s.Students = append(s.Students[:idx], s.Students[idx+1:]...)
	return &removed, nil
}

// classViews derives member counts for every class.
func classViews(s *models.School) []models.ClassView {
	views := make([]models.ClassView, 0, len(s.Classes))
	for _, c := range s.Classes {
		v := models.ClassView{Class: c}
		for _, t := range s.Teachers {
			if t.Teaches(c.Name) {
				v.Teachers++
			}
		}
		for _, st := range s.Students {
			if st.InClass(c.Name) {
				v.Students++
			}
		}
		views = append(views, v)
	}
	return views
}

func renameRef(list []string, oldName, newName string) []string {
	for i, v := range list {
		if strings.EqualFold(v, oldName) {
			list[i] = newName
		}
	}
	return list
}

package models

import (
	"database/sql/driver"
	"strings"
	"time"
)

// School is the aggregate root. Its four collections are stored as JSONB and
// written together on every save, guarded by Version.
type School struct {
	ID        string      `db:"id" json:"id"`
	Name      string      `db:"name" json:"name"`
	Logo      string      `db:"logo" json:"logo,omitempty"`
	Classes   ClassList   `db:"classes" json:"classes"`
	Teachers  TeacherList `db:"teachers" json:"teachers"`
	Students  StudentList `db:"students" json:"students"`
	Subjects  SubjectList `db:"subjects" json:"subjects"`
	Version   int         `db:"version" json:"version"`
	CreatedAt time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time   `db:"updated_at" json:"updatedAt"`
}

// SchoolSummary is the public listing shape.
type SchoolSummary struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	Logo string `db:"logo" json:"logo,omitempty"`
}

// Clone deep-copies the aggregate so rule checks can run on a scratch copy.
func (s *School) Clone() *School {
	if s == nil {
		return nil
	}
	out := *s
	out.Classes = make(ClassList, len(s.Classes))
	for i, c := range s.Classes {
		c.Subjects = append([]string(nil), c.Subjects...)
		out.Classes[i] = c
	}
	out.Teachers = make(TeacherList, len(s.Teachers))
	for i, t := range s.Teachers {
		t.Classes = append([]string(nil), t.Classes...)
		t.ResetOTP = t.ResetOTP.clone()
		out.Teachers[i] = t
	}
	out.Students = make(StudentList, len(s.Students))
	for i, st := range s.Students {
		st.Classes = append([]string(nil), st.Classes...)
		st.ResetOTP = st.ResetOTP.clone()
		out.Students[i] = st
	}
	out.Subjects = append(SubjectList(nil), s.Subjects...)
	return &out
}

// Class is an embedded class. Counts are derived on read.
type Class struct {
	Name      string    `json:"className"`
	Subjects  []string  `json:"subjects"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ClassView adds the derived membership counts.
type ClassView struct {
	Class
	Students int `json:"students"`
	Teachers int `json:"teachers"`
}

// Subject is an embedded subject.
type Subject struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// OTPState is an outstanding password reset code.
type OTPState struct {
	Hash   string    `json:"hash"`
	Expiry time.Time `json:"expiry"`
}

func (o *OTPState) clone() *OTPState {
	if o == nil {
		return nil
	}
	c := *o
	return &c
}

// Teacher is an embedded teacher. ID is assigned once and referenced by
// attendance, grades, schedules and fees.
type Teacher struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	Classes        []string  `json:"classes"`
	ProfilePicture string    `json:"profilePicture,omitempty"`
	ResetOTP       *OTPState `json:"-"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Student is an embedded student.
type Student struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	FatherName     string    `json:"fatherName"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	Classes        []string  `json:"classes"`
	ProfilePicture string    `json:"profilePicture,omitempty"`
	ResetOTP       *OTPState `json:"-"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// InClass reports whether the student is enrolled in className.
func (s Student) InClass(className string) bool {
	return containsFold(s.Classes, className)
}

// Teaches reports whether the teacher is assigned to className.
func (t Teacher) Teaches(className string) bool {
	return containsFold(t.Classes, className)
}

// HasSubject reports whether the class carries subject.
func (c Class) HasSubject(subject string) bool {
	return containsFold(c.Subjects, subject)
}

func containsFold(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}

type ClassList []Class

func (l ClassList) Value() (driver.Value, error)  { return marshalJSONB([]Class(l), "[]") }
func (l *ClassList) Scan(value interface{}) error { return scanJSONB(value, (*[]Class)(l)) }

type SubjectList []Subject

func (l SubjectList) Value() (driver.Value, error)  { return marshalJSONB([]Subject(l), "[]") }
func (l *SubjectList) Scan(value interface{}) error { return scanJSONB(value, (*[]Subject)(l)) }

// teacherDoc carries the secret fields that the API shape hides.
type teacherDoc struct {
	Teacher
	PasswordHash string    `json:"passwordHash"`
	ResetOTP     *OTPState `json:"resetOtp,omitempty"`
}

type TeacherList []Teacher

func (l TeacherList) Value() (driver.Value, error) {
	docs := make([]teacherDoc, len(l))
	for i, t := range l {
		docs[i] = teacherDoc{Teacher: t, PasswordHash: t.PasswordHash, ResetOTP: t.ResetOTP}
	}
	return marshalJSONB(docs, "[]")
}

func (l *TeacherList) Scan(value interface{}) error {
	var docs []teacherDoc
	if err := scanJSONB(value, &docs); err != nil {
		return err
	}
	out := make(TeacherList, len(docs))
	for i, d := range docs {
		t := d.Teacher
		t.PasswordHash = d.PasswordHash
		t.ResetOTP = d.ResetOTP
		out[i] = t
	}
	*l = out
	return nil
}

type studentDoc struct {
	Student
	PasswordHash string    `json:"passwordHash"`
	ResetOTP     *OTPState `json:"resetOtp,omitempty"`
}

type StudentList []Student

func (l StudentList) Value() (driver.Value, error) {
	docs := make([]studentDoc, len(l))
	for i, s := range l {
		docs[i] = studentDoc{Student: s, PasswordHash: s.PasswordHash, ResetOTP: s.ResetOTP}
	}
	return marshalJSONB(docs, "[]")
}

func (l *StudentList) Scan(value interface{}) error {
	var docs []studentDoc
	if err := scanJSONB(value, &docs); err != nil {
		return err
	}
	out := make(StudentList, len(docs))
	for i, d := range docs {
		s := d.Student
		s.PasswordHash = d.PasswordHash
		s.ResetOTP = d.ResetOTP
		out[i] = s
	}
	*l = out
	return nil
}

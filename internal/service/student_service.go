package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/noah-isme/schoolhub-api/internal/models"
	"github.com/noah-isme/schoolhub-api/internal/policy"
	"github.com/noah-isme/schoolhub-api/pkg/storage"
)

// CreateStudentRequest captures creation payload.
type CreateStudentRequest struct {
	Name       string   `json:"name" validate:"required,max=120"`
	FatherName string   `json:"fatherName" validate:"required,max=120"`
	Email      string   `json:"email" validate:"required,email"`
	Password   string   `json:"password" validate:"required,min=8,max=72"`
	Classes    []string `json:"classes" validate:"omitempty,dive,required"`
}

// UpdateStudentRequest carries optional changes. Omitted classes keep the current list.
type UpdateStudentRequest struct {
	Name       *string  `json:"name" validate:"omitempty,min=1,max=120"`
	FatherName *string  `json:"fatherName" validate:"omitempty,min=1,max=120"`
	Email      *string  `json:"email" validate:"omitempty,email"`
	Password   *string  `json:"password" validate:"omitempty,min=8,max=72"`
	Classes    []string `json:"classes" validate:"omitempty,dive,required"`
}

// ImportRowError explains why a spreadsheet row was skipped. Row is 1-based as shown in the sheet.
type ImportRowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ImportResult reports the outcome of a bulk import.
type ImportResult struct {
	Imported []models.Student `json:"imported"`
	Failed   []ImportRowError `json:"failed"`
}

var importColumns = []string{"name", "fathername", "email", "password", "classes"}

// StudentService manages students embedded in a school.
type StudentService struct {
	schools   schoolRepository
	auth      authorizer
	images    imageStore
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewStudentService constructs StudentService.
func NewStudentService(schools schoolRepository, auth authorizer, images imageStore, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{schools: schools, auth: auth, images: images, validator: validate, logger: logger, now: time.Now}
}

// List returns students, optionally only those enrolled in className.
func (s *StudentService) List(ctx context.Context, actor *models.Actor, schoolID, className string) ([]models.Student, error) {
	school, err := s.auth.Authorize(ctx, actor, policy.ActionViewRoster, schoolID)
	if err != nil {
		return nil, err
	}
	if className == "" {
		return school.Students, nil
	}
	out := make([]models.Student, 0)
	for _, st := range school.Students {
		if st.InClass(className) {
			out = append(out, st)
		}
	}
	return out, nil
}

func (s *StudentService) Get(ctx context.Context, actor *models.Actor, schoolID, id string) (*models.Student, error) {
	school, err := s.auth.Authorize(ctx, actor, policy.ActionViewProfile, schoolID)
	if err != nil {
		return nil, err
	}
	if err := policy.CanActOnStudent(actor, school, id); err != nil {
		return nil, err
	}
	idx := studentIndex(school, id)
	if idx < 0 {
		return nil, notFoundErr("student not found")
	}
	return &school.Students[idx], nil
}

func (s *StudentService) Create(ctx context.Context, actor *models.Actor, schoolID string, req CreateStudentRequest) (*models.Student, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.FatherName = strings.TrimSpace(req.FatherName)
	if err := validateStruct(s.validator, req, "student"); err != nil {
		return nil, err
	}
	school, err := s.auth.Authorize(ctx, actor, policy.ActionManageSchool, schoolID)
	if err != nil {
		return nil, err
	}
	student, err := s.newStudent(req)
	if err != nil {
		return nil, err
	}

	var created models.Student
	_, err = mutateSchool(ctx, s.schools, school, func(draft *models.School) error {
		st, err := addStudent(draft, student)
		if err != nil {
			return err
		}
		created = *st
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("student created", zap.String("school_id", school.ID), zap.String("student_id", created.ID))
	return &created, nil
}

func (s *StudentService) Update(ctx context.Context, actor *models.Actor, schoolID, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := validateStruct(s.validator, req, "student"); err != nil {
		return nil, err
	}
	school, err := s.auth.Authorize(ctx, actor, policy.ActionManageSchool, schoolID)
	if err != nil {
		return nil, err
	}
	patch := studentPatch{Name: req.Name, FatherName: req.FatherName, Email: req.Email, Classes: req.Classes}
	if req.Password != nil {
		hash, err := hashSecret(*req.Password)
		if err != nil {
			return nil, err
		}
		patch.PasswordHash = &hash
	}

	var updated models.Student
	_, err = mutateSchool(ctx, s.schools, school, func(draft *models.School) error {
		st, err := updateStudent(draft, id, patch, s.now().UTC())
		if err != nil {
			return err
		}
		updated = *st
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes a student. Attendance, grades and fees keyed on the id remain.
func (s *StudentService) Delete(ctx context.Context, actor *models.Actor, schoolID, id string) error {
	school, err := s.auth.Authorize(ctx, actor, policy.ActionManageSchool, schoolID)
	if err != nil {
		return err
	}
	var removed *models.Student
	_, err = mutateSchool(ctx, s.schools, school, func(draft *models.School) error {
		removed, err = deleteStudent(draft, id)
		return err
	})
	if err != nil {
		return err
	}
	discardUpload(s.images, s.logger, removed.ProfilePicture)
	return nil
}

// SetPicture replaces a student's profile picture.
func (s *StudentService) SetPicture(ctx context.Context, actor *models.Actor, schoolID, id string, picture io.Reader) (*models.Student, error) {
	school, err := s.auth.Authorize(ctx, actor, policy.ActionManageSchool, schoolID)
	if err != nil {
		return nil, err
	}
	idx := studentIndex(school, id)
	if idx < 0 {
		return nil, notFoundErr("student not found")
	}
	name, err := s.images.SaveImage(storage.KindProfile, picture)
	if err != nil {
		return nil, uploadErr(err)
	}
	previous := school.Students[idx].ProfilePicture

	var updated models.Student
	_, err = mutateSchool(ctx, s.schools, school, func(draft *models.School) error {
		st := &draft.Students[idx]
		st.ProfilePicture = name
		st.UpdatedAt = s.now().UTC()
		updated = *st
		return nil
	})
	if err != nil {
		discardUpload(s.images, s.logger, name)
		return nil, err
	}
	discardUpload(s.images, s.logger, previous)
	return &updated, nil
}

// Import reads students from the first sheet of an xlsx workbook. The header row
// must name the columns name, fatherName, email, password and classes (comma
// separated). Valid rows are saved together; rejected rows are reported.
func (s *StudentService) Import(ctx context.Context, actor *models.Actor, schoolID string, workbook io.Reader) (*ImportResult, error) {
	school, err := s.auth.Authorize(ctx, actor, policy.ActionManageSchool, schoolID)
	if err != nil {
		return nil, err
	}
	rows, err := readStudentSheet(workbook)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Imported: []models.Student{}, Failed: []ImportRowError{}}
	_, err = mutateSchool(ctx, s.schools, school, func(draft *models.School) error {
		for _, row := range rows {
			req := row.request
			req.Name = strings.TrimSpace(req.Name)
			req.FatherName = strings.TrimSpace(req.FatherName)
			if err := validateStruct(s.validator, req, "student"); err != nil {
				result.Failed = append(result.Failed, ImportRowError{Row: row.number, Reason: err.Error()})
				continue
			}
			student, err := s.newStudent(req)
			if err != nil {
				return err
			}
			added, err := addStudent(draft, student)
			if err != nil {
				result.Failed = append(result.Failed, ImportRowError{Row: row.number, Reason: err.Error()})
				continue
			}
			result.Imported = append(result.Imported, *added)
		}
		if len(result.Imported) == 0 {
			return validationErr("no valid student rows to import")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("students imported",
		zap.String("school_id", school.ID),
		zap.Int("imported", len(result.Imported)),
		zap.Int("failed", len(result.Failed)))
	return result, nil
}

func (s *StudentService) newStudent(req CreateStudentRequest) (models.Student, error) {
	hash, err := hashSecret(req.Password)
	if err != nil {
		return models.Student{}, err
	}
	now := s.now().UTC()
	return models.Student{
		ID:           uuid.NewString(),
		Name:         req.Name,
		FatherName:   req.FatherName,
		Email:        req.Email,
		PasswordHash: hash,
		Classes:      req.Classes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

type sheetRow struct {
	number  int
	request CreateStudentRequest
}

func readStudentSheet(r io.Reader) ([]sheetRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, validationErr("failed to open workbook: " + err.Error())
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, validationErr("workbook has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, internalErr(err, "failed to read workbook rows")
	}
	if len(rows) < 2 {
		return nil, validationErr("workbook has no student rows")
	}

	index := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range importColumns {
		if _, ok := index[col]; !ok {
			return nil, validationErr(fmt.Sprintf("missing column %q", col))
		}
	}
	cell := func(row []string, col string) string {
		i := index[col]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	out := make([]sheetRow, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(strings.TrimSpace(strings.Join(row, ""))) == 0 {
			continue
		}
		var classes []string
		for _, c := range strings.Split(cell(row, "classes"), ",") {
			if c = strings.TrimSpace(c); c != "" {
				classes = append(classes, c)
			}
		}
		out = append(out, sheetRow{
			number: i + 2,
			request: CreateStudentRequest{
				Name:       cell(row, "name"),
				FatherName: cell(row, "fathername"),
				Email:      cell(row, "email"),
				Password:   cell(row, "password"),
				Classes:    classes,
			},
		})
	}
	return out, nil
}

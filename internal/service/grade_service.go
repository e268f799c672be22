package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/schoolhub-api/internal/models"
	"github.com/noah-isme/schoolhub-api/internal/policy"
	"github.com/noah-isme/schoolhub-api/pkg/export"
)

// Export formats for grade sheets.
const (
	FormatCSV = "csv"
	FormatPDF = "pdf"
)

type gradeStore interface {
	Upsert(ctx context.Context, grade *models.Grade) (bool, error)
	FindByID(ctx context.Context, schoolID, id string) (*models.Grade, error)
	List(ctx context.Context, filter models.GradeFilter) ([]models.Grade, error)
	Delete(ctx context.Context, schoolID, id string) error
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
	RenderReceipt(r export.Receipt) ([]byte, error)
}

// SubmitGradeRequest records or replaces a student's grade for a class subject.
type SubmitGradeRequest struct {
	StudentID  string   `json:"studentId" validate:"required"`
	ClassName  string   `json:"className" validate:"required"`
	Subject    string   `json:"subject" validate:"required"`
	Percentage *float64 `json:"percentage" validate:"required,gte=0,lte=100"`
	Grade      string   `json:"grade" validate:"omitempty,oneof=A+ A B C D F"`
	Remarks    string   `json:"remarks" validate:"max=500"`
}

// GradeQuery holds list filters.
type GradeQuery struct {
	StudentID string `form:"studentId"`
	ClassName string `form:"className"`
	Subject   string `form:"subject"`
	Status    string `form:"status" validate:"omitempty,oneof=excellent good average below_average failing"`
}

// GradeSubmission reports the stored grade and whether it was newly created.
type GradeSubmission struct {
	Grade   *models.Grade `json:"grade"`
	Created bool          `json:"created"`
}

// ExportFile is a rendered download.
type ExportFile struct {
	Name        string
	ContentType string
	Content     []byte
}

// GradeStatusFor maps a percentage onto its status band.
func GradeStatusFor(p float64) models.GradeStatus {
	switch {
	case p >= 90:
		return models.GradeExcellent
	case p >= 80:
		return models.GradeGood
	case p >= 70:
		return models.GradeAverage
	case p >= 60:
		return models.GradeBelowAverage
	default:
		return models.GradeFailing
	}
}

// LetterFor is the default letter when a submission omits one.
func LetterFor(p float64) string {
	switch {
	case p >= 90:
		return "A+"
	case p >= 80:
		return "A"
	case p >= 70:
		return "B"
	case p >= 60:
		return "C"
	case p >= 50:
		return "D"
	default:
		return "F"
	}
}

// GradeService records and reports grades.
type GradeService struct {
	repo      gradeStore
	auth      authorizer
	csv       csvRenderer
	pdf       pdfRenderer
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewGradeService constructs GradeService.
func NewGradeService(repo gradeStore, auth authorizer, csv csvRenderer, pdf pdfRenderer, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &GradeService{repo: repo, auth: auth, csv: csv, pdf: pdf, validator: validate, logger: logger, now: time.Now}
}

// Submit upserts the grade for (student, subject, class, school).
func (s *GradeService) Submit(ctx context.Context, actor *models.Actor, schoolID string, req SubmitGradeRequest) (*GradeSubmission, error) {
	if err := validateStruct(s.validator, req, "grade"); err != nil {
		return nil, err
	}
	school, err := s.auth.Authorize(ctx, actor, policy.ActionSubmitGrade, schoolID)
	if err != nil {
		return nil, err
	}

	ci := classIndex(school, req.ClassName)
	if ci < 0 {
		return nil, validationErr("unknown class: " + req.ClassName)
	}
	class := school.Classes[ci]
	si := subjectIndex(school, req.Subject)
	if si < 0 || !class.HasSubject(req.Subject) {
		return nil, validationErr("subject " + req.Subject + " is not taught in class " + class.Name)
	}
	st := studentIndex(school, req.StudentID)
	if st < 0 {
		return nil, validationErr("unknown student: " + req.StudentID)
	}
	if !school.Students[st].InClass(class.Name) {
		return nil, validationErr("student is not enrolled in " + class.Name)
	}
	if err := policy.TeachesClass(actor, school, class.Name); err != nil {
		return nil, err
	}

	percentage := math.Round(*req.Percentage*100) / 100
	letter := req.Grade
	if letter == "" {
		letter = LetterFor(percentage)
	}
	grade := &models.Grade{
		SchoolID:   school.ID,
		StudentID:  req.StudentID,
		ClassName:  class.Name,
		Subject:    school.Subjects[si].Name,
		Grade:      letter,
		Percentage: percentage,
		Status:     GradeStatusFor(percentage),
		Remarks:    strings.TrimSpace(req.Remarks),
		GradedBy:   actor.ID,
	}
	created, err := s.repo.Upsert(ctx, grade)
	if err != nil {
		return nil, storeErr(err, "grade")
	}
	s.logger.Info("grade submitted",
		zap.String("school_id", school.ID),
		zap.String("student_id", grade.StudentID),
		zap.String("subject", grade.Subject),
		zap.Bool("created", created))
	return &GradeSubmission{Grade: grade, Created: created}, nil
}

// List returns grades visible to the actor. Students only see their own; teachers
// filtering by class must teach it.
func (s *GradeService) List(ctx context.Context, actor *models.Actor, schoolID string, q GradeQuery) ([]models.Grade, error) {
	school, filter, err := s.scope(ctx, actor, schoolID, q)
	if err != nil {
		return nil, err
	}
	grades, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, internalErr(err, "failed to list grades")
	}
	return s.visible(actor, school, grades), nil
}

// StudentGrades returns every grade of one student.
func (s *GradeService) StudentGrades(ctx context.Context, actor *models.Actor, schoolID, studentID string) ([]models.Grade, error) {
	school, err := s.auth.Authorize(ctx, actor, policy.ActionViewGrades, schoolID)
	if err != nil {
		return nil, err
	}
	if err := policy.CanActOnStudent(actor, school, studentID); err != nil {
		return nil, err
	}
	if studentIndex(school, studentID) < 0 {
		return nil, notFoundErr("student not found")
	}
	grades, err := s.repo.List(ctx, models.GradeFilter{SchoolID: school.ID, StudentID: studentID})
	if err != nil {
		return nil, internalErr(err, "failed to list grades")
	}
	return grades, nil
}

// Delete removes a grade. Teachers may delete grades in classes they teach.
func (s *GradeService) Delete(ctx context.Context, actor *models.Actor, schoolID, id string) error {
	school, err := s.auth.Authorize(ctx, actor, policy.ActionSubmitGrade, schoolID)
	if err != nil {
		return err
	}
	grade, err := s.repo.FindByID(ctx, school.ID, id)
	if err != nil {
		return storeErr(err, "grade")
	}
	if err := policy.TeachesClass(actor, school, grade.ClassName); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, school.ID, id); err != nil {
		return storeErr(err, "grade")
	}
	return nil
}

// Export renders the filtered grade sheet as CSV or PDF.
func (s *GradeService) Export(ctx context.Context, actor *models.Actor, schoolID string, q GradeQuery, format string) (*ExportFile, error) {
	grades, err := s.List(ctx, actor, schoolID, q)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{Headers: []string{"student_id", "class", "subject", "grade", "percentage", "status", "remarks", "updated_at"}}
	for _, g := range grades {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"student_id": g.StudentID,
			"class":      g.ClassName,
			"subject":    g.Subject,
			"grade":      g.Grade,
			"percentage": fmt.Sprintf("%.2f", g.Percentage),
			"status":     string(g.Status),
			"remarks":    g.Remarks,
			"updated_at": g.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}

	stamp := s.now().UTC().Format("20060102")
	switch strings.ToLower(format) {
	case "", FormatCSV:
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, internalErr(err, "failed to render grades csv")
		}
		return &ExportFile{Name: "grades-" + stamp + ".csv", ContentType: "text/csv", Content: content}, nil
	case FormatPDF:
		content, err := s.pdf.Render(dataset, "Grade Sheet")
		if err != nil {
			return nil, internalErr(err, "failed to render grades pdf")
		}
		return &ExportFile{Name: "grades-" + stamp + ".pdf", ContentType: "application/pdf", Content: content}, nil
	default:
		return nil, validationErr("unsupported export format: " + format)
	}
}

func (s *GradeService) scope(ctx context.Context, actor *models.Actor, schoolID string, q GradeQuery) (*models.School, models.GradeFilter, error) {
	if err := validateStruct(s.validator, q, "grade query"); err != nil {
		return nil, models.GradeFilter{}, err
	}
	school, err := s.auth.Authorize(ctx, actor, policy.ActionViewGrades, schoolID)
	if err != nil {
		return nil, models.GradeFilter{}, err
	}
	studentID, err := policy.ScopeStudent(actor, q.StudentID)
	if err != nil {
		return nil, models.GradeFilter{}, err
	}
	if actor.Role == models.RoleTeacher && q.ClassName != "" {
		if err := policy.TeachesClass(actor, school, q.ClassName); err != nil {
			return nil, models.GradeFilter{}, err
		}
	}
	return school, models.GradeFilter{
		SchoolID:  school.ID,
		StudentID: studentID,
		ClassName: q.ClassName,
		Subject:   q.Subject,
		Status:    models.GradeStatus(q.Status),
	}, nil
}

// visible drops grades outside a teacher's classes.
func (s *GradeService) visible(actor *models.Actor, school *models.School, grades []models.Grade) []models.Grade {
	if actor.Role != models.RoleTeacher {
		return grades
	}
	out := make([]models.Grade, 0, len(grades))
	for _, g := range grades {
		if policy.TeachesClass(actor, school, g.ClassName) == nil {
			out = append(out, g)
		}
	}
	return out
}

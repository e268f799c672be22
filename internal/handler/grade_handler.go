package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/schoolhub-api/internal/models"
	"github.com/noah-isme/schoolhub-api/internal/service"
	"github.com/noah-isme/schoolhub-api/pkg/response"
)

type gradeService interface {
	Submit(ctx context.Context, actor *models.Actor, schoolID string, req service.SubmitGradeRequest) (*service.GradeSubmission, error)
	List(ctx context.Context, actor *models.Actor, schoolID string, q service.GradeQuery) ([]models.Grade, error)
	StudentGrades(ctx context.Context, actor *models.Actor, schoolID, studentID string) ([]models.Grade, error)
	Delete(ctx context.Context, actor *models.Actor, schoolID, id string) error
	Export(ctx context.Context, actor *models.Actor, schoolID string, q service.GradeQuery, format string) (*service.ExportFile, error)
}

// GradeHandler exposes grade endpoints.
type GradeHandler struct {
	service gradeService
}

// NewGradeHandler constructs GradeHandler.
func NewGradeHandler(svc gradeService) *GradeHandler {
	return &GradeHandler{service: svc}
}

// Submit godoc
// @Summary Record or replace a grade
// @Description Status is derived from percentage. A missing letter grade is derived too.
// @Tags Grades
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param payload body service.SubmitGradeRequest true "Grade payload"
// @Success 200 {object} response.Envelope "Existing grade updated"
// @Success 201 {object} response.Envelope "Grade created"
// @Router /grades/{schoolId} [post]
func (h *GradeHandler) Submit(c *gin.Context) {
	var req service.SubmitGradeRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.service.Submit(c.Request.Context(), actorFromContext(c), c.Param("schoolId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	response.JSON(c, status, result.Grade, nil)
}

// List godoc
// @Summary List grades
// @Tags Grades
// @Produce json
// @Param schoolId path string true "School ID"
// @Param studentId query string false "Student"
// @Param className query string false "Class"
// @Param subject query string false "Subject"
// @Param status query string false "Grade status"
// @Success 200 {object} response.Envelope
// @Router /grades/{schoolId} [get]
func (h *GradeHandler) List(c *gin.Context) {
	var q service.GradeQuery
	if !bindQuery(c, &q) {
		return
	}
	grades, err := h.service.List(c.Request.Context(), actorFromContext(c), c.Param("schoolId"), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grades, nil)
}

// StudentGrades godoc
// @Summary Grades of one student
// @Tags Grades
// @Produce json
// @Param schoolId path string true "School ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /grades/{schoolId}/student/{studentId} [get]
func (h *GradeHandler) StudentGrades(c *gin.Context) {
	grades, err := h.service.StudentGrades(c.Request.Context(), actorFromContext(c), c.Param("schoolId"), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grades, nil)
}

// Delete godoc
// @Summary Delete grade
// @Tags Grades
// @Param schoolId path string true "School ID"
// @Param id path string true "Grade ID"
// @Success 204
// @Router /grades/{schoolId}/{id} [delete]
func (h *GradeHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), actorFromContext(c), c.Param("schoolId"), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Export godoc
// @Summary Download a grade sheet
// @Tags Grades
// @Produce text/csv
// @Produce application/pdf
// @Param schoolId path string true "School ID"
// @Param format query string false "csv (default) or pdf"
// @Param className query string false "Class"
// @Param subject query string false "Subject"
// @Success 200 {file} binary
// @Router /grades/{schoolId}/export [get]
func (h *GradeHandler) Export(c *gin.Context) {
	var q service.GradeQuery
	if !bindQuery(c, &q) {
		return
	}
	file, err := h.service.Export(c.Request.Context(), actorFromContext(c), c.Param("schoolId"), q, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	sendFile(c, file)
}

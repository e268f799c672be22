package handler

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/schoolhub-api/internal/models"
	"github.com/noah-isme/schoolhub-api/internal/service"
	"github.com/noah-isme/schoolhub-api/pkg/response"
)

type studentService interface {
	List(ctx context.Context, actor *models.Actor, schoolID, className string) ([]models.Student, error)
	Get(ctx context.Context, actor *models.Actor, schoolID, id string) (*models.Student, error)
	Create(ctx context.Context, actor *models.Actor, schoolID string, req service.CreateStudentRequest) (*models.Student, error)
	Update(ctx context.Context, actor *models.Actor, schoolID, id string, req service.UpdateStudentRequest) (*models.Student, error)
	Delete(ctx context.Context, actor *models.Actor, schoolID, id string) error
	SetPicture(ctx context.Context, actor *models.Actor, schoolID, id string, picture io.Reader) (*models.Student, error)
	Import(ctx context.Context, actor *models.Actor, schoolID string, workbook io.Reader) (*service.ImportResult, error)
}

// StudentHandler exposes student endpoints.
type StudentHandler struct {
	service studentService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(svc studentService) *StudentHandler {
	return &StudentHandler{service: svc}
}

// List godoc
// @Summary List students
// @Tags Students
// @Produce json
// @Param schoolId path string true "School ID"
// @Param className query string false "Only students enrolled in this class"
// @Success 200 {object} response.Envelope
// @Router /student/{schoolId} [get]
func (h *StudentHandler) List(c *gin.Context) {
	students, err := h.service.List(c.Request.Context(), actorFromContext(c), c.Param("schoolId"), strings.TrimSpace(c.Query("className")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}

// Get godoc
// @Summary Get student
// @Tags Students
// @Produce json
// @Param schoolId path string true "School ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /student/{schoolId}/{studentId} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.service.Get(c.Request.Context(), actorFromContext(c), c.Param("schoolId"), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Create godoc
// @Summary Add student
// @Tags Students
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param payload body service.CreateStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Router /student/{schoolId} [post]
func (h *StudentHandler) Create(c *gin.Context) {
	var req service.CreateStudentRequest
	if !bindJSON(c, &req) {
		return
	}
	student, err := h.service.Create(c.Request.Context(), actorFromContext(c), c.Param("schoolId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Update godoc
// @Summary Update student
// @Tags Students
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param studentId path string true "Student ID"
// @Param payload body service.UpdateStudentRequest true "Student payload"
// @Success 200 {object} response.Envelope
// @Router /student/{schoolId}/{studentId} [put]
func (h *StudentHandler) Update(c *gin.Context) {
	var req service.UpdateStudentRequest
	if !bindJSON(c, &req) {
		return
	}
	student, err := h.service.Update(c.Request.Context(), actorFromContext(c), c.Param("schoolId"), c.Param("studentId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Delete godoc
// @Summary Remove student
// @Tags Students
// @Param schoolId path string true "School ID"
// @Param studentId path string true "Student ID"
// @Success 204
// @Router /student/{schoolId}/{studentId} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), actorFromContext(c), c.Param("schoolId"), c.Param("studentId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SetPicture godoc
// @Summary Replace student profile picture
// @Tags Students
// @Accept multipart/form-data
// @Produce json
// @Param schoolId path string true "School ID"
// @Param studentId path string true "Student ID"
// @Param picture formData file true "Image"
// @Success 200 {object} response.Envelope
// @Router /student/{schoolId}/{studentId}/picture [put]
func (h *StudentHandler) SetPicture(c *gin.Context) {
	picture, ok := formFile(c, "picture", true)
	if !ok {
		return
	}
	defer picture.Close()

	student, err := h.service.SetPicture(c.Request.Context(), actorFromContext(c), c.Param("schoolId"), c.Param("studentId"), picture)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Import godoc
// @Summary Bulk import students from an xlsx workbook
// @Description Header row: name, fatherName, email, password, classes (comma separated).
// @Tags Students
// @Accept multipart/form-data
// @Produce json
// @Param schoolId path string true "School ID"
// @Param file formData file true "Workbook"
// @Success 201 {object} response.Envelope
// @Router /student/{schoolId}/import [post]
func (h *StudentHandler) Import(c *gin.Context) {
	workbook, ok := formFile(c, "file", true)
	if !ok {
		return
	}
	defer workbook.Close()

	result, err := h.service.Import(c.Request.Context(), actorFromContext(c), c.Param("schoolId"), workbook)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

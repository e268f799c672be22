package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/schoolhub-api/internal/models"
	"github.com/noah-isme/schoolhub-api/internal/service"
	"github.com/noah-isme/schoolhub-api/pkg/response"
)

type teacherService interface {
	List(ctx context.Context, actor *models.Actor, schoolID string) ([]models.Teacher, error)
	Get(ctx context.Context, actor *models.Actor, schoolID, id string) (*models.Teacher, error)
	Create(ctx context.Context, actor *models.Actor, schoolID string, req service.CreateTeacherRequest) (*models.Teacher, error)
	Update(ctx context.Context, actor *models.Actor, schoolID, id string, req service.UpdateTeacherRequest) (*models.Teacher, error)
	Delete(ctx context.Context, actor *models.Actor, schoolID, id string) error
	SetPicture(ctx context.Context, actor *models.Actor, schoolID, id string, picture io.Reader) (*models.Teacher, error)
}

// TeacherHandler exposes teacher endpoints.
type TeacherHandler struct {
	service teacherService
}

// NewTeacherHandler constructs TeacherHandler.
func NewTeacherHandler(svc teacherService) *TeacherHandler {
	return &TeacherHandler{service: svc}
}

// List godoc
// @Summary List teachers
// @Tags Teachers
// @Produce json
// @Param schoolId path string true "School ID"
// @Success 200 {object} response.Envelope
// @Router /teacher/{schoolId} [get]
func (h *TeacherHandler) List(c *gin.Context) {
	teachers, err := h.service.List(c.Request.Context(), actorFromContext(c), c.Param("schoolId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teachers, nil)
}

// Get godoc
// @Summary Get teacher
// @Tags Teachers
// @Produce json
// @Param schoolId path string true "School ID"
// @Param teacherId path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /teacher/{schoolId}/{teacherId} [get]
func (h *TeacherHandler) Get(c *gin.Context) {
	teacher, err := h.service.Get(c.Request.Context(), actorFromContext(c), c.Param("schoolId"), c.Param("teacherId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teacher, nil)
}

// Create godoc
// @Summary Add teacher
// @Tags Teachers
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param payload body service.CreateTeacherRequest true "Teacher payload"
// @Success 201 {object} response.Envelope
// @Router /teacher/{schoolId} [post]
func (h *TeacherHandler) Create(c *gin.Context) {
	var req service.CreateTeacherRequest
	if !bindJSON(c, &req) {
		return
	}
	teacher, err := h.service.Create(c.Request.Context(), actorFromContext(c), c.Param("schoolId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, teacher)
}

// Update godoc
// @Summary Update teacher
// @Tags Teachers
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param teacherId path string true "Teacher ID"
// @Param payload body service.UpdateTeacherRequest true "Teacher payload"
// @Success 200 {object} response.Envelope
// @Router /teacher/{schoolId}/{teacherId} [put]
func (h *TeacherHandler) Update(c *gin.Context) {
	var req service.UpdateTeacherRequest
	if !bindJSON(c, &req) {
		return
	}
	teacher, err := h.service.Update(c.Request.Context(), actorFromContext(c), c.Param("schoolId"), c.Param("teacherId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teacher, nil)
}

// Delete godoc
// @Summary Remove teacher
// @Tags Teachers
// @Param schoolId path string true "School ID"
// @Param teacherId path string true "Teacher ID"
// @Success 204
// @Router /teacher/{schoolId}/{teacherId} [delete]
func (h *TeacherHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), actorFromContext(c), c.Param("schoolId"), c.Param("teacherId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SetPicture godoc
// @Summary Replace teacher profile picture
// @Tags Teachers
// @Accept multipart/form-data
// @Produce json
// @Param schoolId path string true "School ID"
// @Param teacherId path string true "Teacher ID"
// @Param picture formData file true "Image"
// @Success 200 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /teacher/{schoolId}/{teacherId}/picture [put]
func (h *TeacherHandler) SetPicture(c *gin.Context) {
	picture, ok := formFile(c, "picture", true)
	if !ok {
		return
	}
	defer picture.Close()

	teacher, err := h.service.SetPicture(c.Request.Context(), actorFromContext(c), c.Param("schoolId"), c.Param("teacherId"), picture)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teacher, nil)
}

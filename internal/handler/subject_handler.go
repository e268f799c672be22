package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/schoolhub-api/internal/models"
	"github.com/noah-isme/schoolhub-api/internal/service"
	"github.com/noah-isme/schoolhub-api/pkg/response"
)

type subjectService interface {
	List(ctx context.Context, actor *models.Actor, schoolID string) ([]models.Subject, error)
	Create(ctx context.Context, actor *models.Actor, schoolID string, req service.SubjectRequest) (*models.Subject, error)
	Rename(ctx context.Context, actor *models.Actor, schoolID, name string, req service.SubjectRequest) (*models.Subject, error)
	Delete(ctx context.Context, actor *models.Actor, schoolID, name string) error
}

// SubjectHandler exposes the subject catalogue of a school.
type SubjectHandler struct {
	service subjectService
}

func NewSubjectHandler(svc subjectService) *SubjectHandler {
	return &SubjectHandler{service: svc}
}

// List godoc
// @Summary List subjects
// @Tags Subjects
// @Produce json
// @Param schoolId path string true "School ID"
// @Success 200 {object} response.Envelope
// @Router /subject/{schoolId} [get]
func (h *SubjectHandler) List(c *gin.Context) {
	subjects, err := h.service.List(c.Request.Context(), actorFromContext(c), c.Param("schoolId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subjects, nil)
}

// Create godoc
// @Summary Add subject
// @Tags Subjects
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param payload body service.SubjectRequest true "Subject"
// @Success 201 {object} response.Envelope
// @Router /subject/{schoolId} [post]
func (h *SubjectHandler) Create(c *gin.Context) {
	var req service.SubjectRequest
	if !bindJSON(c, &req) {
		return
	}
	subject, err := h.service.Create(c.Request.Context(), actorFromContext(c), c.Param("schoolId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, subject)
}

// Rename godoc
// @Summary Rename subject
// @Tags Subjects
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param name path string true "Current subject name"
// @Param payload body service.SubjectRequest true "New name"
// @Success 200 {object} response.Envelope
// @Router /subject/{schoolId}/{name} [put]
func (h *SubjectHandler) Rename(c *gin.Context) {
	var req service.SubjectRequest
	if !bindJSON(c, &req) {
		return
	}
	subject, err := h.service.Rename(c.Request.Context(), actorFromContext(c), c.Param("schoolId"), c.Param("name"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subject, nil)
}

// Delete godoc
// @Summary Delete subject
// @Tags Subjects
// @Param schoolId path string true "School ID"
// @Param name path string true "Subject name"
// @Success 204
// @Router /subject/{schoolId}/{name} [delete]
func (h *SubjectHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), actorFromContext(c), c.Param("schoolId"), c.Param("name")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

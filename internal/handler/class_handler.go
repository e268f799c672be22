package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/schoolhub-api/internal/models"
	"github.com/noah-isme/schoolhub-api/internal/service"
	"github.com/noah-isme/schoolhub-api/pkg/response"
)

type classService interface {
	List(ctx context.Context, actor *models.Actor, schoolID string) ([]models.ClassView, error)
	Create(ctx context.Context, actor *models.Actor, schoolID string, req service.CreateClassRequest) (*models.Class, error)
	Update(ctx context.Context, actor *models.Actor, schoolID, className string, req service.UpdateClassRequest) (*models.Class, error)
	Delete(ctx context.Context, actor *models.Actor, schoolID, className string) error
}

// ClassHandler exposes class endpoints of a school.
type ClassHandler struct {
	service classService
}

// NewClassHandler constructs a class handler.
func NewClassHandler(svc classService) *ClassHandler {
	return &ClassHandler{service: svc}
}

// List godoc
// @Summary List classes with their teachers and students
// @Tags Classes
// @Produce json
// @Param schoolId path string true "School ID"
// @Success 200 {object} response.Envelope
// @Router /class/{schoolId} [get]
func (h *ClassHandler) List(c *gin.Context) {
	classes, err := h.service.List(c.Request.Context(), actorFromContext(c), c.Param("schoolId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, nil)
}

// Create godoc
// @Summary Create class
// @Tags Classes
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param payload body service.CreateClassRequest true "Class payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /class/{schoolId} [post]
func (h *ClassHandler) Create(c *gin.Context) {
	var req service.CreateClassRequest
	if !bindJSON(c, &req) {
		return
	}
	class, err := h.service.Create(c.Request.Context(), actorFromContext(c), c.Param("schoolId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, class)
}

// Update godoc
// @Summary Rename a class or replace its subjects
// @Tags Classes
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param className path string true "Class name"
// @Param payload body service.UpdateClassRequest true "Class payload"
// @Success 200 {object} response.Envelope
// @Router /class/{schoolId}/{className} [put]
func (h *ClassHandler) Update(c *gin.Context) {
	var req service.UpdateClassRequest
	if !bindJSON(c, &req) {
		return
	}
	class, err := h.service.Update(c.Request.Context(), actorFromContext(c), c.Param("schoolId"), c.Param("className"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}

// Delete godoc
// @Summary Delete class
// @Tags Classes
// @Param schoolId path string true "School ID"
// @Param className path string true "Class name"
// @Success 204
// @Router /class/{schoolId}/{className} [delete]
func (h *ClassHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), actorFromContext(c), c.Param("schoolId"), c.Param("className")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/schoolhub-api/internal/models"
	"github.com/noah-isme/schoolhub-api/internal/service"
	appErrors "github.com/noah-isme/schoolhub-api/pkg/errors"
	"github.com/noah-isme/schoolhub-api/pkg/response"
)

type schoolService interface {
	Register(ctx context.Context, req service.RegisterSchoolRequest, logo io.Reader) (*service.Registration, error)
	Get(ctx context.Context, actor *models.Actor, schoolID string) (*models.School, error)
	List(ctx context.Context) ([]models.SchoolSummary, error)
	Update(ctx context.Context, actor *models.Actor, schoolID string, req service.UpdateSchoolRequest, logo io.Reader) (*models.School, error)
	Delete(ctx context.Context, actor *models.Actor, schoolID string) error
}

// SchoolHandler exposes school registration and management.
type SchoolHandler struct {
	service schoolService
}

// NewSchoolHandler constructs a school handler.
func NewSchoolHandler(svc schoolService) *SchoolHandler {
	return &SchoolHandler{service: svc}
}

// Register godoc
// @Summary Register a school and its admin
// @Tags Schools
// @Accept multipart/form-data
// @Produce json
// @Param name formData string true "School name"
// @Param adminEmail formData string true "Admin email"
// @Param adminPassword formData string true "Admin password"
// @Param logo formData file false "School logo"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /school/register [post]
func (h *SchoolHandler) Register(c *gin.Context) {
	var req service.RegisterSchoolRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid registration payload"))
		return
	}
	logo, ok := formFile(c, "logo", false)
	if !ok {
		return
	}
	var reader io.Reader
	if logo != nil {
		defer logo.Close()
		reader = logo
	}

	reg, err := h.service.Register(c.Request.Context(), req, reader)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, reg)
}

// List godoc
// @Summary List schools
// @Tags Schools
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /school [get]
func (h *SchoolHandler) List(c *gin.Context) {
	schools, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schools, nil)
}

// Get godoc
// @Summary Get school
// @Tags Schools
// @Produce json
// @Param schoolId path string true "School ID"
// @Success 200 {object} response.Envelope
// @Router /school/{schoolId} [get]
func (h *SchoolHandler) Get(c *gin.Context) {
	school, err := h.service.Get(c.Request.Context(), actorFromContext(c), c.Param("schoolId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, school, nil)
}

// Update godoc
// @Summary Rename a school or replace its logo
// @Tags Schools
// @Accept multipart/form-data
// @Produce json
// @Param schoolId path string true "School ID"
// @Param name formData string false "School name"
// @Param logo formData file false "School logo"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /school/{schoolId} [put]
func (h *SchoolHandler) Update(c *gin.Context) {
	var req service.UpdateSchoolRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid school payload"))
		return
	}
	var reader io.Reader
	if c.ContentType() == "multipart/form-data" {
		logo, ok := formFile(c, "logo", false)
		if !ok {
			return
		}
		if logo != nil {
			defer logo.Close()
			reader = logo
		}
	}

	school, err := h.service.Update(c.Request.Context(), actorFromContext(c), c.Param("schoolId"), req, reader)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, school, nil)
}

// Delete godoc
// @Summary Delete a school
// @Tags Schools
// @Param schoolId path string true "School ID"
// @Success 204
// @Router /school/{schoolId} [delete]
func (h *SchoolHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), actorFromContext(c), c.Param("schoolId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

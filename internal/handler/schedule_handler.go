package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/schoolhub-api/internal/models"
	"github.com/noah-isme/schoolhub-api/internal/service"
	"github.com/noah-isme/schoolhub-api/pkg/response"
)

type scheduleService interface {
	Upsert(ctx context.Context, actor *models.Actor, schoolID string, req service.UpsertScheduleRequest) (*service.ScheduleUpsert, error)
	List(ctx context.Context, actor *models.Actor, schoolID string, q service.ScheduleQuery) ([]models.Schedule, error)
	Delete(ctx context.Context, actor *models.Actor, schoolID, id string) error
}

// ScheduleHandler exposes the weekly timetable.
type ScheduleHandler struct {
	service scheduleService
}

func NewScheduleHandler(svc scheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

// Upsert godoc
// @Summary Create or replace a timetable slot
// @Tags Schedules
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param payload body service.UpsertScheduleRequest true "Slot"
// @Success 200 {object} response.Envelope "Slot replaced"
// @Success 201 {object} response.Envelope "Slot created"
// @Router /schedule/{schoolId} [post]
func (h *ScheduleHandler) Upsert(c *gin.Context) {
	var req service.UpsertScheduleRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.service.Upsert(c.Request.Context(), actorFromContext(c), c.Param("schoolId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	response.JSON(c, status, result.Schedule, nil)
}

// List godoc
// @Summary List timetable slots
// @Tags Schedules
// @Produce json
// @Param schoolId path string true "School ID"
// @Param className query string false "Class"
// @Param teacherId query string false "Teacher"
// @Param day query string false "Weekday"
// @Success 200 {object} response.Envelope
// @Router /schedule/{schoolId} [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	var q service.ScheduleQuery
	if !bindQuery(c, &q) {
		return
	}
	items, err := h.service.List(c.Request.Context(), actorFromContext(c), c.Param("schoolId"), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Delete godoc
// @Summary Delete timetable slot
// @Tags Schedules
// @Param schoolId path string true "School ID"
// @Param id path string true "Schedule ID"
// @Success 204
// @Router /schedule/{schoolId}/{id} [delete]
func (h *ScheduleHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), actorFromContext(c), c.Param("schoolId"), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/schoolhub-api/internal/models"
	"github.com/noah-isme/schoolhub-api/internal/service"
	"github.com/noah-isme/schoolhub-api/pkg/response"
)

type attendanceService interface {
	Mark(ctx context.Context, actor *models.Actor, schoolID string, req service.MarkAttendanceRequest) (*models.AttendanceMarkResult, error)
	List(ctx context.Context, actor *models.Actor, schoolID string, q service.AttendanceQuery) ([]models.Attendance, *models.Pagination, error)
	Update(ctx context.Context, actor *models.Actor, schoolID, id string, req service.UpdateAttendanceRequest) (*models.Attendance, error)
	Delete(ctx context.Context, actor *models.Actor, schoolID, id string) error
	Summary(ctx context.Context, actor *models.Actor, schoolID, studentID, from, to string) (*models.AttendanceSummary, error)
}

// AttendanceHandler exposes attendance endpoints.
type AttendanceHandler struct {
	service attendanceService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(svc attendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: svc}
}

// Mark godoc
// @Summary Mark attendance for a class subject on one day
// @Description Records are stored independently. Already-marked students are reported under duplicates.
// @Tags Attendance
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param payload body service.MarkAttendanceRequest true "Attendance payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /attendance/{schoolId} [post]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	var req service.MarkAttendanceRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.service.Mark(c.Request.Context(), actorFromContext(c), c.Param("schoolId"), req)
	if err != nil {
		if result != nil {
			response.ErrorWithData(c, err, result)
			return
		}
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// List godoc
// @Summary List attendance
// @Tags Attendance
// @Produce json
// @Param schoolId path string true "School ID"
// @Param className query string false "Class"
// @Param subject query string false "Subject"
// @Param studentId query string false "Student"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Param status query string false "present, absent or late"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /attendance/{schoolId} [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	var q service.AttendanceQuery
	if !bindQuery(c, &q) {
		return
	}
	items, pagination, err := h.service.List(c.Request.Context(), actorFromContext(c), c.Param("schoolId"), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Update godoc
// @Summary Change an attendance status
// @Tags Attendance
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param id path string true "Attendance ID"
// @Param payload body service.UpdateAttendanceRequest true "Status"
// @Success 200 {object} response.Envelope
// @Router /attendance/{schoolId}/{id} [put]
func (h *AttendanceHandler) Update(c *gin.Context) {
	var req service.UpdateAttendanceRequest
	if !bindJSON(c, &req) {
		return
	}
	mark, err := h.service.Update(c.Request.Context(), actorFromContext(c), c.Param("schoolId"), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, mark, nil)
}

// Delete godoc
// @Summary Delete an attendance mark
// @Tags Attendance
// @Param schoolId path string true "School ID"
// @Param id path string true "Attendance ID"
// @Success 204
// @Router /attendance/{schoolId}/{id} [delete]
func (h *AttendanceHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), actorFromContext(c), c.Param("schoolId"), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Summary godoc
// @Summary Attendance summary of a student
// @Tags Attendance
// @Produce json
// @Param schoolId path string true "School ID"
// @Param studentId path string true "Student ID"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance/{schoolId}/student/{studentId}/summary [get]
func (h *AttendanceHandler) Summary(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context(), actorFromContext(c), c.Param("schoolId"), c.Param("studentId"), c.Query("from"), c.Query("to"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

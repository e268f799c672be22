package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/schoolhub-api/internal/models"
	"github.com/noah-isme/schoolhub-api/internal/service"
	"github.com/noah-isme/schoolhub-api/pkg/response"
)

type feeService interface {
	Create(ctx context.Context, actor *models.Actor, schoolID string, req service.CreateFeeRequest) (*models.FeeRecord, error)
	List(ctx context.Context, actor *models.Actor, schoolID string, q service.FeeQuery) ([]models.FeeRecord, *models.Pagination, error)
	Get(ctx context.Context, actor *models.Actor, schoolID, feeID string) (*models.FeeRecord, error)
	Update(ctx context.Context, actor *models.Actor, schoolID, feeID string, req service.UpdateFeeRequest) (*models.FeeRecord, error)
	Delete(ctx context.Context, actor *models.Actor, schoolID, feeID string) error
	RecordPayment(ctx context.Context, actor *models.Actor, schoolID, feeID string, req service.RecordPaymentRequest) (*service.PaymentReceipt, error)
	Receipt(ctx context.Context, actor *models.Actor, schoolID, feeID, paymentID string) (*service.ExportFile, error)
}

// FeeHandler exposes fee records and payments.
type FeeHandler struct {
	service feeService
}

// NewFeeHandler constructs FeeHandler.
func NewFeeHandler(svc feeService) *FeeHandler {
	return &FeeHandler{service: svc}
}

// Create godoc
// @Summary Create fee record
// @Tags Fees
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param payload body service.CreateFeeRequest true "Fee payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /fees/{schoolId} [post]
func (h *FeeHandler) Create(c *gin.Context) {
	var req service.CreateFeeRequest
	if !bindJSON(c, &req) {
		return
	}
	fee, err := h.service.Create(c.Request.Context(), actorFromContext(c), c.Param("schoolId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, fee)
}

// List godoc
// @Summary List fee records
// @Tags Fees
// @Produce json
// @Param schoolId path string true "School ID"
// @Param studentId query string false "Student"
// @Param academicYear query string false "Academic year (YYYY-YYYY)"
// @Param semester query int false "Semester"
// @Param status query string false "pending, partial, paid or overdue"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /fees/{schoolId} [get]
func (h *FeeHandler) List(c *gin.Context) {
	var q service.FeeQuery
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

// Get godoc
// @Summary Get fee record
// @Tags Fees
// @Produce json
// @Param schoolId path string true "School ID"
// @Param feeId path string true "Fee ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /fees/{schoolId}/{feeId} [get]
func (h *FeeHandler) Get(c *gin.Context) {
	fee, err := h.service.Get(c.Request.Context(), actorFromContext(c), c.Param("schoolId"), c.Param("feeId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fee, nil)
}

// Update godoc
// @Summary Update fee record
// @Tags Fees
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param feeId path string true "Fee ID"
// @Param payload body service.UpdateFeeRequest true "Fee payload"
// @Success 200 {object} response.Envelope
// @Router /fees/{schoolId}/{feeId} [put]
func (h *FeeHandler) Update(c *gin.Context) {
	var req service.UpdateFeeRequest
	if !bindJSON(c, &req) {
		return
	}
	fee, err := h.service.Update(c.Request.Context(), actorFromContext(c), c.Param("schoolId"), c.Param("feeId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fee, nil)
}

// Delete godoc
// @Summary Delete fee record
// @Tags Fees
// @Param schoolId path string true "School ID"
// @Param feeId path string true "Fee ID"
// @Success 204
// @Router /fees/{schoolId}/{feeId} [delete]
func (h *FeeHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), actorFromContext(c), c.Param("schoolId"), c.Param("feeId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// RecordPayment godoc
// @Summary Record a payment against a fee
// @Tags Fees
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param feeId path string true "Fee ID"
// @Param payload body service.RecordPaymentRequest true "Payment"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /fees/{schoolId}/{feeId}/payments [post]
func (h *FeeHandler) RecordPayment(c *gin.Context) {
	var req service.RecordPaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	receipt, err := h.service.RecordPayment(c.Request.Context(), actorFromContext(c), c.Param("schoolId"), c.Param("feeId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, receipt)
}

// Receipt godoc
// @Summary Download a payment receipt
// @Tags Fees
// @Produce application/pdf
// @Param schoolId path string true "School ID"
// @Param feeId path string true "Fee ID"
// @Param paymentId path string true "Payment ID"
// @Success 200 {file} binary
// @Router /fees/{schoolId}/{feeId}/payments/{paymentId}/receipt [get]
func (h *FeeHandler) Receipt(c *gin.Context) {
	file, err := h.service.Receipt(c.Request.Context(), actorFromContext(c), c.Param("schoolId"), c.Param("feeId"), c.Param("paymentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	sendFile(c, file)
}

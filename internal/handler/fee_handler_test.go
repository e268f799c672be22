package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/schoolhub-api/internal/models"
	"github.com/noah-isme/schoolhub-api/internal/service"
	appErrors "github.com/noah-isme/schoolhub-api/pkg/errors"
)

type fakeFeeSrv struct {
	lastFeeID     string
	lastPaymentID string
	paymentErr    error
}

func (f *fakeFeeSrv) Create(context.Context, *models.Actor, string, service.CreateFeeRequest) (*models.FeeRecord, error) {
	return &models.FeeRecord{ID: "fee-1"}, nil
}

func (f *fakeFeeSrv) List(context.Context, *models.Actor, string, service.FeeQuery) ([]models.FeeRecord, *models.Pagination, error) {
	return nil, nil, appErrors.ErrUnauthorized
}

func (f *fakeFeeSrv) Get(_ context.Context, _ *models.Actor, _ string, feeID string) (*models.FeeRecord, error) {
	f.lastFeeID = feeID
	return &models.FeeRecord{ID: feeID}, nil
}

func (f *fakeFeeSrv) Update(context.Context, *models.Actor, string, string, service.UpdateFeeRequest) (*models.FeeRecord, error) {
	return &models.FeeRecord{ID: "fee-1"}, nil
}

func (f *fakeFeeSrv) Delete(context.Context, *models.Actor, string, string) error {
	return nil
}

func (f *fakeFeeSrv) RecordPayment(_ context.Context, _ *models.Actor, _ string, feeID string, _ service.RecordPaymentRequest) (*service.PaymentReceipt, error) {
	f.lastFeeID = feeID
	if f.paymentErr != nil {
		return nil, f.paymentErr
	}
	return &service.PaymentReceipt{Fee: &models.FeeRecord{ID: feeID}}, nil
}

func (f *fakeFeeSrv) Receipt(_ context.Context, _ *models.Actor, _ string, feeID, paymentID string) (*service.ExportFile, error) {
	f.lastFeeID = feeID
	f.lastPaymentID = paymentID
	return &service.ExportFile{Name: "receipt-RCP1.pdf", ContentType: "application/pdf", Content: []byte("%PDF-1.3")}, nil
}

func newFeeRouter(svc feeService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewFeeHandler(svc)
	r.GET("/fees/:schoolId", h.List)
	r.GET("/fees/:schoolId/:feeId", h.Get)
	r.POST("/fees/:schoolId/:feeId/payments", h.RecordPayment)
	r.GET("/fees/:schoolId/:feeId/payments/:paymentId/receipt", h.Receipt)
	return r
}

func TestFeeHandlerRecordPayment(t *testing.T) {
	svc := &fakeFeeSrv{}
	r := newFeeRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/fees/school-1/fee-9/payments", strings.NewReader(`{"amount":50,"method":"cash"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "fee-9", svc.lastFeeID)
}

func TestFeeHandlerRecordPaymentOverpay(t *testing.T) {
	r := newFeeRouter(&fakeFeeSrv{paymentErr: appErrors.Clone(appErrors.ErrValidation, "payment exceeds remaining balance")})

	req := httptest.NewRequest(http.MethodPost, "/fees/school-1/fee-1/payments", strings.NewReader(`{"amount":5000,"method":"cash"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "remaining balance")
}

func TestFeeHandlerReceiptDownload(t *testing.T) {
	svc := &fakeFeeSrv{}
	r := newFeeRouter(svc)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fees/school-1/fee-1/payments/pay-1/receipt", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pay-1", svc.lastPaymentID)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "receipt-RCP1.pdf")
}

func TestFeeHandlerListUnauthorized(t *testing.T) {
	r := newFeeRouter(&fakeFeeSrv{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fees/school-1", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

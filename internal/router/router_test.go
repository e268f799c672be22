package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/schoolhub-api/internal/handler"
	"github.com/noah-isme/schoolhub-api/internal/middleware"
	"github.com/noah-isme/schoolhub-api/internal/service"
	"github.com/noah-isme/schoolhub-api/pkg/config"
	"github.com/noah-isme/schoolhub-api/pkg/ratelimit"
)

func newTestEngine(t *testing.T, env string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Env: env}
	cfg.Uploads.MaxBytes = 1 << 20
	metrics := service.NewMetricsService()

	return New(Options{
		Config:  cfg,
		Metrics: metrics,
		Limiter: ratelimit.NewMemoryLimiter(1, time.Minute),
	}, Handlers{
		School:     handler.NewSchoolHandler(nil),
		Auth:       handler.NewAuthHandler(nil, nil),
		Class:      handler.NewClassHandler(nil),
		Subject:    handler.NewSubjectHandler(nil),
		Teacher:    handler.NewTeacherHandler(nil),
		Student:    handler.NewStudentHandler(nil),
		Attendance: handler.NewAttendanceHandler(nil),
		Grade:      handler.NewGradeHandler(nil),
		Schedule:   handler.NewScheduleHandler(nil),
		Fee:        handler.NewFeeHandler(nil),
		Dashboard:  handler.NewDashboardHandler(nil),
		Contact:    handler.NewContactHandler(nil),
		Metrics:    handler.NewMetricsHandler(metrics, nil),
	})
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	r := newTestEngine(t, config.EnvDevelopment)

	for _, path := range []string{"/health", "/ready", "/metrics"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestProtectedGroupsRequireActor(t *testing.T) {
	r := newTestEngine(t, config.EnvDevelopment)

	for _, path := range []string{"/class/school-1", "/teacher/school-1", "/fees/school-1", "/dashboard/school-1"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestDashboardIsAdminOnly(t *testing.T) {
	r := newTestEngine(t, config.EnvDevelopment)

	req := httptest.NewRequest(http.MethodGet, "/dashboard/school-1", nil)
	req.Header.Set(middleware.HeaderActorID, "teacher-1")
	req.Header.Set(middleware.HeaderActorRole, "teacher")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLoginIsRateLimited(t *testing.T) {
	r := newTestEngine(t, config.EnvDevelopment)

	// The first request reaches the handler and fails binding; the second is throttled.
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestDocsHiddenInProduction(t *testing.T) {
	r := newTestEngine(t, config.EnvProduction)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/docs/index.html", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

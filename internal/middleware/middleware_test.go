package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/schoolhub-api/internal/models"
	"github.com/noah-isme/schoolhub-api/internal/service"
	"github.com/noah-isme/schoolhub-api/pkg/ratelimit"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func actorEcho() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := CurrentActor(c)
		if actor == nil {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, string(actor.Role)+":"+actor.ID+":"+actor.SchoolID)
	}
}

func TestActorParsesHeaders(t *testing.T) {
	r := gin.New()
	r.GET("/me", Actor(), actorEcho())

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(HeaderActorID, "t-1")
	req.Header.Set(HeaderActorRole, "Teacher")
	req.Header.Set(HeaderSchoolID, "sch-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "teacher:t-1:sch-1", w.Body.String())
}

func TestActorAnonymousAndMalformed(t *testing.T) {
	r := gin.New()
	r.GET("/open", Actor(), actorEcho())
	r.GET("/closed", Actor(), RequireActor(), actorEcho())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/open", nil))
	assert.Equal(t, "anonymous", w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/closed", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/open", nil)
	req.Header.Set(HeaderActorID, "x")
	req.Header.Set(HeaderActorRole, "principal")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRoles(t *testing.T) {
	r := gin.New()
	r.GET("/admin", Actor(), RequireRoles(models.RoleAdmin), actorEcho())

	for role, want := range map[string]int{"admin": http.StatusOK, "student": http.StatusForbidden} {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set(HeaderActorID, "u-1")
		req.Header.Set(HeaderActorRole, role)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, role)
	}
}

func TestRateLimitRejectsOverLimit(t *testing.T) {
	metrics := service.NewMetricsService()
	r := gin.New()
	r.POST("/auth/login", RateLimit(ratelimit.NewMemoryLimiter(2, time.Minute), metrics, zap.NewNop()), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
		if i == 2 {
			assert.NotEmpty(t, w.Header().Get("Retry-After"))
			assert.Contains(t, w.Body.String(), "RATE_LIMITED")
		}
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestAuditLogsMutationsOnly(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(Actor(), Audit(zap.New(core), "class"))
	r.POST("/class/:schoolId", func(c *gin.Context) { c.Status(http.StatusCreated) })
	r.GET("/class/:schoolId", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/class/sch-1", nil)
	req.Header.Set(HeaderActorID, "a-1")
	req.Header.Set(HeaderActorRole, "admin")
	r.ServeHTTP(httptest.NewRecorder(), req)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/class/sch-1", nil))

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "a-1", fields["actor_id"])
	assert.Equal(t, "sch-1", fields["school_id"])
}

func TestMetricsLabelsRouteTemplate(t *testing.T) {
	metricsSvc := service.NewMetricsService()
	r := gin.New()
	r.Use(Metrics(metricsSvc))
	r.GET("/class/:schoolId", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	for _, path := range []string{"/class/school-1", "/class/school-2", "/nowhere/school-3", "/metrics"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()

	assert.Contains(t, body, `http_requests_total{method="GET",path="/class/:schoolId",status="200"} 2`)
	assert.Contains(t, body, `path="unmatched",status="404"`)
	assert.NotContains(t, body, "school-3")
	assert.NotContains(t, body, `path="/metrics"`)
}

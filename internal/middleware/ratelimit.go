package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/schoolhub-api/internal/service"
	appErrors "github.com/noah-isme/schoolhub-api/pkg/errors"
	"github.com/noah-isme/schoolhub-api/pkg/ratelimit"
	"github.com/noah-isme/schoolhub-api/pkg/response"
)

// RateLimit bounds requests per client IP and route. Limiter failures let the
// request through.
func RateLimit(limiter ratelimit.Limiter, metricsSvc *service.MetricsService, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		decision, err := limiter.Allow(c.Request.Context(), path+"|"+c.ClientIP())
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.String("path", path), zap.Error(err))
			c.Next()
			return
		}
		if decision.Remaining >= 0 {
			c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		}
		if !decision.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(decision.ResetIn.Seconds())+1))
			metricsSvc.RecordRateLimited(path)
			response.Error(c, appErrors.ErrRateLimited)
			c.Abort()
			return
		}
		c.Next()
	}
}

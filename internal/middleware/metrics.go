package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/schoolhub-api/internal/service"
)

// unmatchedRoute labels requests gin could not route so raw paths (and the ids
// inside them) never become label values.
const unmatchedRoute = "unmatched"

// Metrics records request duration and count per route template. Scrapes of
// the metrics endpoint itself are not recorded.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil || c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"finstack-p2p.backend/internal/infrastructure/metrics"
	"finstack-p2p.backend/pkg/logger"
)

// LoggerMiddleware logs HTTP requests using the structured logger and records
// them against the route template. m may be nil.
func LoggerMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		if raw != "" {
			path = path + "?" + raw
		}

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveHTTP(c.Request.Method, route, c.Writer.Status(), latency)

		logger.LogRequest(c.Request.Context(), c.Request.Method, path, c.Writer.Status(), latency, c.ClientIP())
	}
}

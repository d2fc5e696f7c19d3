package main

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"finstack-p2p.backend/internal/infrastructure/metrics"
	"finstack-p2p.backend/internal/interfaces/http/middleware"
)

func applyCORSMiddleware(r *gin.Engine, origins []string) {
	r.Use(middleware.CORS(origins))
}

func registerHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": serviceName,
			"version": serviceVersion,
		})
	})
}

func registerMetricsRoute(r *gin.Engine, m *metrics.Metrics) {
	r.GET("/metrics", gin.WrapH(m.Handler()))
}

// originChecker accepts websocket upgrades from the CORS origins. Requests
// without an Origin header are non-browser clients and are let through.
func originChecker(allowed []string) func(r *http.Request) bool {
	origins := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		origins[strings.TrimRight(strings.TrimSpace(o), "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || origins["*"] || origins[strings.TrimRight(origin, "/")]
	}
}

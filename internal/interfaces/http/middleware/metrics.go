package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dropsight/dropsight/internal/infrastructure/monitoring/prometheus"
)

// Metrics records per-request counters, latency, and the in-flight gauge.
// The route template
// (c.FullPath) is used as the path label so parameterized routes do not
// explode label cardinality; unmatched routes collapse to "unmatched".
func Metrics(m *prometheus.AppMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		inflight := m.HTTPActiveRequests.WithLabelValues(c.Request.Method)
		inflight.Inc()
		defer inflight.Dec()

		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

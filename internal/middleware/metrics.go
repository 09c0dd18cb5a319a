package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/avirajsharma-ops/DTPS-sub004/pkg/metrics"
)

// Metrics records request latency per route. The route template is used
// as the label, not the raw path, to keep cardinality bounded.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.ObserveRequest(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

package middleware

import (
	"time"

	"Ledger/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AccessLog logs one line per request and records HTTP metrics.
// Request bodies are never logged; they carry passwords.
func AccessLog(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		metrics.ObserveHTTPRequest(c.Request.Method, c.FullPath(), status, latency)

		entry := log.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"latency_ms": latency.Milliseconds(),
			"client_ip":  c.ClientIP(),
			"request_id": RequestIDFromContext(c),
		})
		if len(c.Errors) > 0 {
			entry.WithField("errors", c.Errors.String()).Warn("request")
			return
		}
		entry.Info("request")
	}
}

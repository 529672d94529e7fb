package middleware

import (
	"net/http"
	"runtime/debug"

	"Ledger/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Recovery turns a handler panic into a logged failure reply so the caller
// always gets a response body to branch on.
func Recovery(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				metrics.RecordPanic()
				log.WithFields(logrus.Fields{
					"panic":      r,
					"path":       c.Request.URL.Path,
					"request_id": RequestIDFromContext(c),
					"stack":      string(debug.Stack()),
				}).Error("handler panic")
				if !c.Writer.Written() {
					c.AbortWithStatusJSON(http.StatusOK, gin.H{"success": false, "message": "Internal error"})
					return
				}
				c.Abort()
			}
		}()
		c.Next()
	}
}

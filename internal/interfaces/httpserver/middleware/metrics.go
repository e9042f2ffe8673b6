package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// RequestRecorder records finished HTTP requests.
type RequestRecorder interface {
	RecordRequest(method, endpoint string, status int, d time.Duration)
}

// Metrics records HTTP request metrics.
func Metrics(recorder RequestRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		recorder.RecordRequest(c.Request.Method, endpoint, c.Writer.Status(), time.Since(start))
	}
}

package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// HTTPRecorder receives one observation per request.
type HTTPRecorder interface {
	RecordHTTPRequest(method, path string, statusCode int, duration time.Duration)
	TrackActiveRequest(method string) func()
}

// Metrics records every request under its route template.  Unmatched routes
// are recorded as "unmatched".
func Metrics(rec HTTPRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		done := rec.TrackActiveRequest(c.Request.Method)
		defer done()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		rec.RecordHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

//Personal.AI order the ending

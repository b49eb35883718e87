package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"laptopkita/internal/logging"
)

func RequestLogger(log *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		entry := log.
			WithField("method", c.Request.Method).
			WithField("path", c.FullPath()).
			WithField("status", c.Writer.Status()).
			WithField("duration", time.Since(start).Round(time.Millisecond).String())
		switch {
		case c.Writer.Status() >= 500:
			entry.Errorf("request failed")
		case c.Writer.Status() >= 400:
			entry.Warnf("request rejected")
		default:
			entry.Debugf("request served")
		}
	}
}

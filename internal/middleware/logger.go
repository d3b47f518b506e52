package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/errata-io/errata/backend/internal/logger"
)

// RequestLogger emits one structured record per request with method,
// path, status and latency. It logs through logger.Ctx, so records
// carry the correlation fields RequestID installed (request_id, and
// user_id when the gateway supplied one).
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		fields := []logger.Field{
			logger.String("method", method),
			logger.String("path", path),
			logger.Int("status", status),
			logger.Duration("latency", latency),
		}

		log := logger.Ctx(c.Request.Context())
		switch {
		case status >= 500:
			log.Error("request failed", fields...)
		case status >= 400:
			log.Warn("request rejected", fields...)
		default:
			log.Info("request completed", fields...)
		}
	}
}

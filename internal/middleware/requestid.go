package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/errata-io/errata/backend/internal/logger"
)

// RequestIDHeader is the correlation header honored on the way in and
// echoed on the way out.
const RequestIDHeader = "X-Request-ID"

// UserIDHeader carries the authenticated subject when an upstream
// gateway has already verified the caller.
const UserIDHeader = "X-User-ID"

// RequestID ensures every request carries a correlation ID: the caller's
// X-Request-ID when present, a fresh UUID otherwise. The ID lands in the
// gin context, the request context and the response, and a request-scoped
// logger is installed so downstream code can use logger.Ctx.
func RequestID(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}

		c.Set("request_id", id)
		ctx := logger.WithRequestID(c.Request.Context(), id)
		if user := c.GetHeader(UserIDHeader); user != "" {
			ctx = logger.WithUserID(ctx, user)
		}
		c.Request = c.Request.WithContext(logger.WithLogger(ctx, log))
		c.Header(RequestIDHeader, id)

		c.Next()
	}
}

// GetRequestID extracts the request ID from the gin context.
// Returns empty string if not found.
func GetRequestID(c *gin.Context) string {
	if requestID, exists := c.Get("request_id"); exists {
		if id, ok := requestID.(string); ok {
			return id
		}
	}
	return c.GetHeader(RequestIDHeader)
}

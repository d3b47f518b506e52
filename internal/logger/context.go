package logger

import (
	"context"

	"github.com/google/uuid"
)

// unexported key type so other packages cannot collide with our values
type ctxKey int

const (
	ctxKeyRequestID ctxKey = iota
	ctxKeyUserID
	ctxKeyLogger
)

// WithRequestID stores the request's correlation ID in the context.
// An empty id gets a fresh UUID so downstream records always correlate.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		requestID = uuid.New().String()
	}
	return context.WithValue(ctx, ctxKeyRequestID, requestID)
}

// RequestIDFromContext returns the correlation ID, or "" when the
// request never passed through the request-ID middleware.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID).(string)
	return id
}

// WithUserID records the authenticated subject for the request.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKeyUserID, userID)
}

// UserIDFromContext returns the authenticated subject, or "" for
// anonymous requests.
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyUserID).(string)
	return id
}

// WithLogger installs a request-scoped logger. Handlers retrieve it
// through Ctx instead of threading a Logger parameter around.
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, ctxKeyLogger, l)
}

// FromContext returns the request-scoped logger, falling back to the
// process-wide default when none was installed.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(ctxKeyLogger).(Logger); ok {
		return l
	}
	return Default()
}

// Ctx is the request-path entry point: the request-scoped logger with
// the request's correlation fields already attached.
func Ctx(ctx context.Context) Logger {
	return FromContext(ctx).WithContext(ctx)
}

// contextFields collects the correlation fields a record should carry.
func contextFields(ctx context.Context) []Field {
	var fields []Field
	if id := RequestIDFromContext(ctx); id != "" {
		fields = append(fields, String("request_id", id))
	}
	if id := UserIDFromContext(ctx); id != "" {
		fields = append(fields, String("user_id", id))
	}
	return fields
}

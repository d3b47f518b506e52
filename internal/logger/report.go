package logger

import (
	"fmt"

	"github.com/errata-io/errata/backend/internal/apperror"
	"github.com/errata-io/errata/backend/internal/security"
)

// ErrorFields normalizes a taxonomy error into structured log fields.
// The caller is responsible for masking; pass an already-filtered error
// when the record may leave a trusted sink.
func ErrorFields(e *apperror.Error) []Field {
	if e == nil {
		return nil
	}
	fields := []Field{
		String("error_message", e.Message),
		String("error_code", string(e.Code)),
		String("error_category", string(e.Category)),
		String("severity", e.Severity.String()),
		String("request_id", e.RequestID),
		Bool("retryable", e.Retryable),
		Time("error_at", e.Timestamp),
	}
	if len(e.Context) > 0 {
		fields = append(fields, Any("error_context", e.Context))
	}
	switch d := e.Details.(type) {
	case apperror.ValidationDetails:
		fields = append(fields, Any("field_errors", d.FieldErrors))
	case apperror.DatabaseDetails:
		fields = append(fields, String("db_operation", d.Operation))
	case apperror.ExternalServiceDetails:
		fields = append(fields, String("service", d.ServiceName), Int("status_code", d.StatusCode))
	case apperror.BusinessLogicDetails:
		fields = append(fields, String("business_rule", d.BusinessRule))
	}
	if e.Cause != nil {
		fields = append(fields, String("cause", e.Cause.Error()))
	}
	return fields
}

// Reporter is the observability entry point for taxonomy errors. In
// production mode every error passes through the security filter before
// any of its content reaches the log sink.
type Reporter struct {
	log        Logger
	filter     *security.Filter
	production bool
}

// NewReporter builds a Reporter on top of an existing Logger.
func NewReporter(log Logger, filter *security.Filter, production bool) *Reporter {
	return &Reporter{log: log, filter: filter, production: production}
}

// Info logs an informational message with optional context fields.
func (r *Reporter) Info(msg string, fields ...Field) {
	r.emit(func() { r.log.Info(msg, fields...) }, msg)
}

// Warn logs a warning with optional context fields.
func (r *Reporter) Warn(msg string, fields ...Field) {
	r.emit(func() { r.log.Warn(msg, fields...) }, msg)
}

// Error logs a taxonomy error at error level. A nil error logs the
// message alone. Never panics: if normalization or serialization blows
// up, the message and code still make it out.
func (r *Reporter) Error(msg string, e *apperror.Error) {
	if e == nil {
		r.emit(func() { r.log.Error(msg) }, msg)
		return
	}

	logged := e
	if r.production && r.filter != nil {
		if res := r.filter.FilterError(e); res.Filtered != nil {
			logged = res.Filtered
		}
	}

	code := string(logged.Code)
	r.emit(func() {
		r.log.Error(msg, ErrorFields(logged)...)
	}, fmt.Sprintf("%s (code=%s)", msg, code))
}

// emit runs fn and, should it panic, degrades to a bare-bones log line
// so the record is never lost.
func (r *Reporter) emit(fn func(), fallback string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error(fallback, String("log_degraded", fmt.Sprint(rec)))
		}
	}()
	fn()
}

// Package apperror defines the typed error taxonomy used at the API
// boundary and the translators that map foreign failures into it.
//
// Errors are immutable after construction: the With* helpers and the
// transformations applied by the security filter always produce copies,
// so instances can be handed to the logger, monitor and formatter from
// concurrent request goroutines without coordination.
package apperror

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
)

// Details is the per-variant payload of an Error. It is a sealed
// interface: the six implementations below are the only error kinds the
// pipeline knows, so consumers can switch over them exhaustively.
type Details interface {
	isDetails()
}

// ValidationDetails carries per-field validation failures keyed by the
// canonical dot-joined field path (see JoinPath).
type ValidationDetails struct {
	FieldErrors map[string][]string
}

// DatabaseDetails carries the raw storage-engine code for diagnostics.
type DatabaseDetails struct {
	Operation string
}

// AuthDetails carries security-relevant metadata such as attempt counts.
// Its values are always masked in production output.
type AuthDetails struct {
	SecurityContext map[string]any
}

// BusinessLogicDetails names the violated business rule.
type BusinessLogicDetails struct {
	BusinessRule     string
	OperationContext map[string]any
}

// ExternalServiceDetails identifies the failing upstream dependency.
type ExternalServiceDetails struct {
	ServiceName string
	StatusCode  int
}

// InternalDetails marks unclassified failures. It carries nothing: by
// definition the cause is not yet understood.
type InternalDetails struct{}

func (ValidationDetails) isDetails()      {}
func (DatabaseDetails) isDetails()        {}
func (AuthDetails) isDetails()            {}
func (BusinessLogicDetails) isDetails()   {}
func (ExternalServiceDetails) isDetails() {}
func (InternalDetails) isDetails()        {}

// Error is the canonical API-boundary error value.
type Error struct {
	Code      Code
	Category  Category
	Severity  Severity
	Message   string
	Context   map[string]any
	Timestamp time.Time
	RequestID string
	Retryable bool
	Cause     error
	Details   Details

	stack string
}

// Option customizes an Error at construction time.
type Option func(*Error)

// WithSeverity overrides the category-derived default severity.
func WithSeverity(s Severity) Option {
	return func(e *Error) { e.Severity = s }
}

// WithContext merges kv into the error's context map.
func WithContext(kv map[string]any) Option {
	return func(e *Error) {
		if len(kv) == 0 {
			return
		}
		if e.Context == nil {
			e.Context = make(map[string]any, len(kv))
		}
		for k, v := range kv {
			e.Context[k] = v
		}
	}
}

// WithContextValue adds a single context entry.
func WithContextValue(key string, value any) Option {
	return func(e *Error) {
		if e.Context == nil {
			e.Context = make(map[string]any, 1)
		}
		e.Context[key] = value
	}
}

// WithRequestID sets the correlation ID instead of generating one.
func WithRequestID(id string) Option {
	return func(e *Error) {
		if id != "" {
			e.RequestID = id
		}
	}
}

// WithRetryable marks the failure as transient.
func WithRetryable(retryable bool) Option {
	return func(e *Error) { e.Retryable = retryable }
}

// WithCause attaches the wrapped underlying error.
func WithCause(cause error) Option {
	return func(e *Error) { e.Cause = cause }
}

func newError(code Code, msg string, details Details, opts ...Option) *Error {
	if msg == "" {
		msg = "unspecified error"
	}
	cat := code.Category()
	e := &Error{
		Code:      code,
		Category:  cat,
		Severity:  DefaultSeverity(cat),
		Message:   msg,
		Timestamp: time.Now().UTC().Truncate(time.Millisecond),
		RequestID: uuid.New().String(),
		Details:   details,
		stack:     string(debug.Stack()),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewValidation builds a VALIDATION error from per-field failures.
func NewValidation(msg string, fieldErrors map[string][]string, opts ...Option) *Error {
	fe := make(map[string][]string, len(fieldErrors))
	for k, v := range fieldErrors {
		fe[k] = append([]string(nil), v...)
	}
	return newError(CodeValidation, msg, ValidationDetails{FieldErrors: fe}, opts...)
}

// NewDatabase builds a DATABASE error. operation is the raw engine code.
func NewDatabase(msg, operation string, opts ...Option) *Error {
	return newError(CodeDatabase, msg, DatabaseDetails{Operation: operation}, opts...)
}

// NewAuthentication builds an AUTH error with security metadata.
func NewAuthentication(msg string, securityContext map[string]any, opts ...Option) *Error {
	sc := make(map[string]any, len(securityContext))
	for k, v := range securityContext {
		sc[k] = v
	}
	return newError(CodeUnauthenticated, msg, AuthDetails{SecurityContext: sc}, opts...)
}

// NewBusinessLogic builds a BUSINESS_LOGIC error naming the violated rule.
func NewBusinessLogic(msg, rule string, operationContext map[string]any, opts ...Option) *Error {
	oc := make(map[string]any, len(operationContext))
	for k, v := range operationContext {
		oc[k] = v
	}
	return newError(CodeBusinessLogic, msg, BusinessLogicDetails{BusinessRule: rule, OperationContext: oc}, opts...)
}

// NewExternalService builds an EXTERNAL_SERVICE error. The default
// severity follows retryable: transient upstream failures rank MEDIUM,
// hard failures HIGH. WithSeverity still overrides either.
func NewExternalService(msg, serviceName string, statusCode int, retryable bool, opts ...Option) *Error {
	base := []Option{WithRetryable(retryable)}
	if retryable {
		base = append(base, WithSeverity(SeverityMedium))
	}
	return newError(CodeExternalService, msg,
		ExternalServiceDetails{ServiceName: serviceName, StatusCode: statusCode},
		append(base, opts...)...)
}

// NewInternal builds an INTERNAL error for unclassified failures.
func NewInternal(msg string, opts ...Option) *Error {
	return newError(CodeInternal, msg, InternalDetails{}, opts...)
}

// Error implements the built-in error interface as "<code>: <message>".
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped cause, enabling errors.Is / errors.As.
func (e *Error) Unwrap() error { return e.Cause }

// Stack returns the goroutine stack captured at construction.
func (e *Error) Stack() string { return e.stack }

// WithMessage returns a copy of e with the message replaced.
func (e *Error) WithMessage(msg string) *Error {
	cp := e.Clone()
	cp.Message = msg
	return cp
}

// Clone returns a copy of e with the context map and the variant payload
// deep-copied, so the copy can be reshaped (masked, re-worded) without
// touching the original.
func (e *Error) Clone() *Error {
	cp := *e
	if e.Context != nil {
		cp.Context = make(map[string]any, len(e.Context))
		for k, v := range e.Context {
			cp.Context[k] = v
		}
	}
	switch d := e.Details.(type) {
	case ValidationDetails:
		fe := make(map[string][]string, len(d.FieldErrors))
		for k, v := range d.FieldErrors {
			fe[k] = append([]string(nil), v...)
		}
		cp.Details = ValidationDetails{FieldErrors: fe}
	case AuthDetails:
		sc := make(map[string]any, len(d.SecurityContext))
		for k, v := range d.SecurityContext {
			sc[k] = v
		}
		cp.Details = AuthDetails{SecurityContext: sc}
	case BusinessLogicDetails:
		oc := make(map[string]any, len(d.OperationContext))
		for k, v := range d.OperationContext {
			oc[k] = v
		}
		cp.Details = BusinessLogicDetails{BusinessRule: d.BusinessRule, OperationContext: oc}
	}
	return &cp
}

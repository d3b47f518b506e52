// Package response turns taxonomy errors into the client-facing error
// payload, orchestrating the security filter and the locale catalog
// according to the deployment policy.
package response

import (
	"fmt"
	"strings"

	"github.com/errata-io/errata/backend/internal/apperror"
	"github.com/errata-io/errata/backend/internal/locale"
	"github.com/errata-io/errata/backend/internal/security"
)

// Policy controls how much an error payload reveals.
type Policy struct {
	IsProduction          bool
	IncludeStackTrace     bool
	HideInternalDetails   bool
	SanitizeSensitiveData bool
	Localize              bool
}

// Extensions is the optional diagnostic block of a payload.
type Extensions struct {
	InternalDetails   string              `json:"internal_details,omitempty"`
	StackTrace        string              `json:"stack_trace,omitempty"`
	Field             string              `json:"field,omitempty"`
	ValidationDetails map[string][]string `json:"validation_details,omitempty"`
}

// Payload is the wire shape of every error this API emits.
type Payload struct {
	Message    string      `json:"message"`
	Code       string      `json:"code"`
	Timestamp  string      `json:"timestamp"`
	RequestID  string      `json:"request_id"`
	Extensions *Extensions `json:"extensions,omitempty"`
}

// Formatter builds payloads. Construct one per deployment policy and
// share it; it is stateless beyond its collaborators.
type Formatter struct {
	policy  Policy
	filter  *security.Filter
	catalog *locale.Catalog
}

// NewFormatter wires the formatter to its filter and catalog. Either
// collaborator may be nil, which disables the corresponding stage.
func NewFormatter(policy Policy, filter *security.Filter, catalog *locale.Catalog) *Formatter {
	return &Formatter{policy: policy, filter: filter, catalog: catalog}
}

const genericMessage = "An unexpected error occurred. Please try again later."

// Format produces the client payload for err. It is total: a nil error
// or a failing catalog lookup degrades to a generic INTERNAL payload
// rather than propagating a failure out of the pipeline.
func (f *Formatter) Format(err *apperror.Error) Payload {
	if err == nil {
		err = apperror.NewInternal("formatter invoked without an error")
	}

	out := err
	if f.policy.SanitizeSensitiveData && f.filter != nil {
		if res := f.filter.FilterError(err); res.Filtered != nil {
			out = res.Filtered
		}
	}

	p := Payload{
		Message:   f.userMessage(out),
		Code:      string(out.Code),
		Timestamp: out.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		RequestID: out.RequestID,
	}

	if ext := f.extensions(out); !ext.empty() {
		p.Extensions = &ext
	}

	return p
}

func (e Extensions) empty() bool {
	return e.InternalDetails == "" && e.StackTrace == "" && e.Field == "" && len(e.ValidationDetails) == 0
}

// userMessage resolves the outward message, preferring the catalog when
// localization is on. Catalog failures must never escape formatting.
func (f *Formatter) userMessage(e *apperror.Error) (msg string) {
	if !f.policy.Localize || f.catalog == nil {
		return e.Message
	}

	defer func() {
		if recover() != nil {
			msg = genericMessage
		}
	}()

	return f.catalog.CategoryMessage(e.Category, e.Severity, localeContext(e))
}

// localeContext derives interpolation values from the error itself.
func localeContext(e *apperror.Error) map[string]any {
	ctx := map[string]any{}
	switch d := e.Details.(type) {
	case apperror.ValidationDetails:
		if field := firstField(d.FieldErrors); field != "" {
			ctx["field"] = field
		}
	case apperror.BusinessLogicDetails:
		ctx["rule"] = d.BusinessRule
	case apperror.ExternalServiceDetails:
		ctx["service"] = d.ServiceName
	}
	return ctx
}

func (f *Formatter) extensions(e *apperror.Error) Extensions {
	var ext Extensions

	// validation detail is client-correctable and always safe to expose
	if d, ok := e.Details.(apperror.ValidationDetails); ok && len(d.FieldErrors) > 0 {
		ext.ValidationDetails = d.FieldErrors
		if len(d.FieldErrors) == 1 {
			ext.Field = firstField(d.FieldErrors)
		}
	}

	// INTERNAL errors hide their details regardless of policy input:
	// their cause is by definition not yet understood
	hide := f.policy.HideInternalDetails || e.Category == apperror.CategoryInternal
	if f.policy.IsProduction && hide {
		return ext
	}

	ext.InternalDetails = internalDetails(e)
	if f.policy.IncludeStackTrace {
		ext.StackTrace = e.Stack()
	}
	return ext
}

// internalDetails renders the developer-facing diagnostic line.
func internalDetails(e *apperror.Error) string {
	var b strings.Builder
	b.WriteString(e.Message)
	switch d := e.Details.(type) {
	case apperror.DatabaseDetails:
		if d.Operation != "" {
			fmt.Fprintf(&b, " (operation %s)", d.Operation)
		}
	case apperror.ExternalServiceDetails:
		fmt.Fprintf(&b, " (%s returned %d)", d.ServiceName, d.StatusCode)
	case apperror.BusinessLogicDetails:
		if d.BusinessRule != "" {
			fmt.Fprintf(&b, " (rule %s)", d.BusinessRule)
		}
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func firstField(fieldErrors map[string][]string) string {
	first := ""
	for field := range fieldErrors {
		if first == "" || field < first {
			first = field
		}
	}
	return first
}

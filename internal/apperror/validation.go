package apperror

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Issue is a single schema-validation failure as reported by the
// validator: a path into the request body plus a message.
type Issue struct {
	// Path segments; each element is a string field name or an int
	// array index.
	Path []any
	// Message describes why the addressed value was rejected.
	Message string
}

// JoinPath renders path segments as the canonical field key. All
// segments, array indices included, are joined with dots:
//
//	["subTasks", 0, "title"] -> "subTasks.0.title"
//
// Downstream clients key off this exact shape, so it must not change.
func JoinPath(path []any) string {
	if len(path) == 0 {
		return ""
	}
	parts := make([]string, 0, len(path))
	for _, seg := range path {
		switch v := seg.(type) {
		case string:
			parts = append(parts, v)
		case int:
			parts = append(parts, strconv.Itoa(v))
		default:
			parts = append(parts, fmt.Sprint(v))
		}
	}
	return strings.Join(parts, ".")
}

// TransformIssues groups schema-validation issues by their joined path
// into a single VALIDATION error. Multiple issues on the same field
// accumulate in order.
//
// An empty issue list is a programmer error, not a user error, and
// panics: a validator that failed must have reported at least one issue.
func TransformIssues(issues []Issue, opts ...Option) *Error {
	if len(issues) == 0 {
		panic("apperror: TransformIssues called with no issues")
	}
	fieldErrors := make(map[string][]string, len(issues))
	for _, issue := range issues {
		key := JoinPath(issue.Path)
		if key == "" {
			key = "request"
		}
		fieldErrors[key] = append(fieldErrors[key], issue.Message)
	}
	return NewValidation("request validation failed", fieldErrors, opts...)
}

// FromValidatorErrors adapts go-playground validator failures (the
// shape gin's binding layer produces) into the same single VALIDATION
// error TransformIssues builds.
func FromValidatorErrors(verrs validator.ValidationErrors, opts ...Option) *Error {
	issues := make([]Issue, 0, len(verrs))
	for _, fe := range verrs {
		issues = append(issues, Issue{
			Path:    namespacePath(fe.Namespace()),
			Message: validatorMessage(fe),
		})
	}
	return TransformIssues(issues, opts...)
}

// namespacePath splits a validator namespace like
// "CreateTaskRequest.SubTasks[0].Title" into path segments, dropping the
// leading struct name.
func namespacePath(ns string) []any {
	segs := strings.Split(ns, ".")
	if len(segs) > 1 {
		segs = segs[1:]
	}
	path := make([]any, 0, len(segs))
	for _, seg := range segs {
		name := seg
		for {
			open := strings.IndexByte(name, '[')
			if open < 0 {
				if name != "" {
					path = append(path, name)
				}
				break
			}
			if name[:open] != "" {
				path = append(path, name[:open])
			}
			end := strings.IndexByte(name, ']')
			if end < 0 {
				break
			}
			if idx, err := strconv.Atoi(name[open+1 : end]); err == nil {
				path = append(path, idx)
			}
			name = name[end+1:]
		}
	}
	return path
}

func validatorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "uuid":
		return "must be a valid UUID"
	default:
		return fmt.Sprintf("failed the '%s' rule", fe.Tag())
	}
}

// Package security produces client-safe copies of taxonomy errors. It
// masks credentials and email addresses in production and scores how
// risky an error's content looks before it leaves the process.
package security

import (
	"regexp"
	"sort"
	"strings"

	"github.com/errata-io/errata/backend/internal/apperror"
)

// RiskLevel grades the security findings of a single filter pass.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ViolationKind identifies which detection rule fired.
type ViolationKind string

const (
	ViolationCredentialLeak ViolationKind = "credential_leak"
	ViolationEmailExposure  ViolationKind = "email_exposure"
	ViolationInjection      ViolationKind = "potential_injection"
)

// Violation is one security finding reported by FilterError.
type Violation struct {
	Kind        ViolationKind
	Field       string
	Description string
}

// Result is the outcome of one FilterError call. Filtered is always a
// copy; the input error is never modified.
type Result struct {
	Filtered   *apperror.Error
	Violations []Violation
	Risk       RiskLevel
}

// Policy configures the filter.
type Policy struct {
	IsProduction      bool
	EnableDataMasking bool
}

// Filter scans and redacts taxonomy errors. Safe for concurrent use.
type Filter struct {
	policy Policy
}

const (
	emailMask    = "***@***"
	redactedMask = "[REDACTED]"
)

var (
	emailRe = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

	// credential assignments embedded in free text, e.g. "password=hunter2"
	credentialAssignRe = regexp.MustCompile(`(?i)\b(password|passwd|api[_-]?key|token|secret|authorization)\b\s*[:=]\s*\S+`)

	// SQL keywords adjacent to quote characters, plus script tags
	injectionRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)<\s*/?\s*script\b`),
		regexp.MustCompile(`(?i)['"]\s*(or|and)\s+['"0-9]`),
		regexp.MustCompile(`(?i)['";]\s*(select|insert|update|delete|drop|union)\b`),
		regexp.MustCompile(`(?i)\b(select|insert|update|delete|drop|union)\b[^'"]{0,40}['"]`),
	}
)

var sensitiveKeys = map[string]struct{}{
	"password":      {},
	"passwd":        {},
	"apikey":        {},
	"token":         {},
	"secret":        {},
	"authorization": {},
	"accesstoken":   {},
	"refreshtoken":  {},
}

// NewFilter builds a filter for the given policy.
func NewFilter(policy Policy) *Filter {
	return &Filter{policy: policy}
}

// Policy returns the policy the filter was built with.
func (f *Filter) Policy() Policy { return f.policy }

// FilterError scans err and returns a client-safe copy together with the
// detected violations and a risk grade.
//
// Rules run in a fixed order (credentials, emails, injection) and context
// keys are visited sorted, so identical input always yields an identical
// Result. Masks never re-match their own rule, which makes the whole
// pass idempotent.
func (f *Filter) FilterError(err *apperror.Error) Result {
	res := Result{Risk: RiskLow}
	if err == nil {
		return res
	}

	filtered := err.Clone()
	mask := f.policy.IsProduction && f.policy.EnableDataMasking

	// rule 1: credential-bearing keys and inline credential assignments
	f.scanCredentials(filtered, mask, &res)

	// rule 2: email-shaped values
	f.scanEmails(filtered, mask, &res)

	// rule 3: injection indicators; detection only, never masked, and
	// independent of masking policy
	if matchesInjection(filtered.Message) {
		res.Violations = append(res.Violations, Violation{
			Kind:        ViolationInjection,
			Field:       "message",
			Description: "message contains an injection-pattern indicator",
		})
	}

	res.Risk = gradeRisk(res.Violations)
	res.Filtered = filtered
	return res
}

func (f *Filter) scanCredentials(e *apperror.Error, mask bool, res *Result) {
	if matches := credentialAssignRe.FindAllString(e.Message, -1); len(matches) > 0 && !allRedacted(matches) {
		res.Violations = append(res.Violations, Violation{
			Kind:        ViolationCredentialLeak,
			Field:       "message",
			Description: "message contains an inline credential",
		})
		if mask {
			e.Message = credentialAssignRe.ReplaceAllString(e.Message, "$1="+redactedMask)
		}
	}

	scanMap := func(m map[string]any, where string) {
		for _, k := range sortedKeys(m) {
			if !isSensitiveKey(k) {
				continue
			}
			if s, ok := m[k].(string); ok && s == redactedMask {
				continue // already filtered
			}
			res.Violations = append(res.Violations, Violation{
				Kind:        ViolationCredentialLeak,
				Field:       where + "." + k,
				Description: "context key carries credential material",
			})
			if mask {
				m[k] = redactedMask
			}
		}
	}

	scanMap(e.Context, "context")
	switch d := e.Details.(type) {
	case apperror.AuthDetails:
		scanMap(d.SecurityContext, "securityContext")
	case apperror.BusinessLogicDetails:
		scanMap(d.OperationContext, "operationContext")
	}
}

func (f *Filter) scanEmails(e *apperror.Error, mask bool, res *Result) {
	if emailRe.MatchString(e.Message) {
		res.Violations = append(res.Violations, Violation{
			Kind:        ViolationEmailExposure,
			Field:       "message",
			Description: "message contains an email address",
		})
		if mask {
			e.Message = emailRe.ReplaceAllString(e.Message, emailMask)
		}
	}

	scanMap := func(m map[string]any, where string) {
		for _, k := range sortedKeys(m) {
			s, ok := m[k].(string)
			if !ok || !emailRe.MatchString(s) {
				continue
			}
			res.Violations = append(res.Violations, Violation{
				Kind:        ViolationEmailExposure,
				Field:       where + "." + k,
				Description: "context value contains an email address",
			})
			if mask {
				m[k] = emailRe.ReplaceAllString(s, emailMask)
			}
		}
	}

	scanMap(e.Context, "context")
	switch d := e.Details.(type) {
	case apperror.AuthDetails:
		scanMap(d.SecurityContext, "securityContext")
	case apperror.BusinessLogicDetails:
		scanMap(d.OperationContext, "operationContext")
	case apperror.ValidationDetails:
		for _, field := range sortedFieldKeys(d.FieldErrors) {
			for i, msg := range d.FieldErrors[field] {
				if !emailRe.MatchString(msg) {
					continue
				}
				res.Violations = append(res.Violations, Violation{
					Kind:        ViolationEmailExposure,
					Field:       "fieldErrors." + field,
					Description: "field error contains an email address",
				})
				if mask {
					d.FieldErrors[field][i] = emailRe.ReplaceAllString(msg, emailMask)
				}
			}
		}
	}
}

func matchesInjection(s string) bool {
	for _, re := range injectionRes {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// gradeRisk escalates monotonically: any violation lifts the grade to
// medium, two or more distinct rule kinds lift it to high.
func gradeRisk(violations []Violation) RiskLevel {
	if len(violations) == 0 {
		return RiskLow
	}
	kinds := make(map[ViolationKind]struct{}, 3)
	for _, v := range violations {
		kinds[v.Kind] = struct{}{}
	}
	if len(kinds) > 1 {
		return RiskHigh
	}
	return RiskMedium
}

func allRedacted(matches []string) bool {
	for _, m := range matches {
		if !strings.HasSuffix(m, redactedMask) {
			return false
		}
	}
	return true
}

func isSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	k = strings.ReplaceAll(k, "_", "")
	k = strings.ReplaceAll(k, "-", "")
	_, ok := sensitiveKeys[k]
	return ok
}

func sortedKeys(m map[string]any) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedFieldKeys(m map[string][]string) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

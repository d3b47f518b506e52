package security

import (
	"reflect"
	"strings"
	"testing"

	"github.com/errata-io/errata/backend/internal/apperror"
)

func prodFilter() *Filter {
	return NewFilter(Policy{IsProduction: true, EnableDataMasking: true})
}

func TestFilterMasksCredentials(t *testing.T) {
	e := apperror.NewAuthentication("login failed",
		map[string]any{"password": "secret123", "attempts": 3})

	res := prodFilter().FilterError(e)

	d := res.Filtered.Details.(apperror.AuthDetails)
	if d.SecurityContext["password"] != "[REDACTED]" {
		t.Errorf("password = %v, want redacted", d.SecurityContext["password"])
	}
	if d.SecurityContext["attempts"] != 3 {
		t.Errorf("attempts = %v, non-sensitive values must survive", d.SecurityContext["attempts"])
	}
	if strings.Contains(res.Filtered.Message, "secret123") {
		t.Errorf("message leaked the secret: %q", res.Filtered.Message)
	}
	if res.Risk != RiskMedium {
		t.Errorf("Risk = %q, want medium", res.Risk)
	}
	if len(res.Violations) != 1 || res.Violations[0].Kind != ViolationCredentialLeak {
		t.Errorf("Violations = %v, want one credential_leak", res.Violations)
	}

	// the input error is untouched
	if e.Details.(apperror.AuthDetails).SecurityContext["password"] != "secret123" {
		t.Error("input error was mutated")
	}
}

func TestFilterMasksEmails(t *testing.T) {
	e := apperror.NewValidation("user alice@example.com already registered",
		map[string][]string{"email": {"alice@example.com already exists"}},
		apperror.WithContextValue("email", "alice@example.com"))

	res := prodFilter().FilterError(e)

	if strings.Contains(res.Filtered.Message, "alice@example.com") {
		t.Errorf("message still contains the address: %q", res.Filtered.Message)
	}
	if !strings.Contains(res.Filtered.Message, "***@***") {
		t.Errorf("message lacks the mask: %q", res.Filtered.Message)
	}
	if res.Filtered.Context["email"] != "***@***" {
		t.Errorf("context.email = %v, want masked", res.Filtered.Context["email"])
	}
	fe := res.Filtered.Details.(apperror.ValidationDetails).FieldErrors["email"]
	if strings.Contains(fe[0], "alice@example.com") {
		t.Errorf("field error still contains the address: %q", fe[0])
	}
}

func TestFilterNoMaskingOutsideProduction(t *testing.T) {
	f := NewFilter(Policy{IsProduction: false, EnableDataMasking: true})
	e := apperror.NewInternal("mail bounce for bob@example.com")

	res := f.FilterError(e)

	if res.Filtered.Message != e.Message {
		t.Errorf("message changed outside production: %q", res.Filtered.Message)
	}
	// detection still reports the exposure
	if len(res.Violations) == 0 || res.Risk != RiskMedium {
		t.Errorf("Violations = %v Risk = %q, want detection without masking", res.Violations, res.Risk)
	}
}

func TestFilterDetectsInjection(t *testing.T) {
	cases := []string{
		"input contained <script>alert(1)</script>",
		`query failed near "' OR '1'='1"`,
		`suspicious value "; DROP TABLE tasks"`,
	}
	for _, msg := range cases {
		res := prodFilter().FilterError(apperror.NewInternal(msg))
		found := false
		for _, v := range res.Violations {
			if v.Kind == ViolationInjection {
				found = true
			}
		}
		if !found {
			t.Errorf("no injection violation for %q", msg)
		}
		if res.Risk == RiskLow {
			t.Errorf("Risk = low for %q, want at least medium", res.Risk)
		}
	}
}

// Risk must escalate monotonically: two distinct violation kinds in one
// error grade high.
func TestFilterRiskEscalation(t *testing.T) {
	e := apperror.NewInternal(`user bob@example.com sent "; DROP TABLE tasks"`)
	res := prodFilter().FilterError(e)
	if res.Risk != RiskHigh {
		t.Errorf("Risk = %q, want high for email + injection", res.Risk)
	}
}

// Masking is a projection: filtering an already-filtered error changes
// nothing.
func TestFilterIdempotent(t *testing.T) {
	f := prodFilter()
	e := apperror.NewAuthentication("reset for carol@example.com with password=hunter2",
		map[string]any{"password": "hunter2", "email": "carol@example.com"})

	first := f.FilterError(e)
	second := f.FilterError(first.Filtered)

	if first.Filtered.Message != second.Filtered.Message {
		t.Errorf("message changed on second pass: %q vs %q", first.Filtered.Message, second.Filtered.Message)
	}
	d1 := first.Filtered.Details.(apperror.AuthDetails).SecurityContext
	d2 := second.Filtered.Details.(apperror.AuthDetails).SecurityContext
	if !reflect.DeepEqual(d1, d2) {
		t.Errorf("security context changed on second pass: %v vs %v", d1, d2)
	}
}

// Same input and policy must produce the same violations in the same
// order.
func TestFilterDeterministic(t *testing.T) {
	e := apperror.NewAuthentication("login failed",
		map[string]any{"token": "t1", "password": "p1", "apiKey": "k1"})

	f := prodFilter()
	first := f.FilterError(e)
	for i := 0; i < 10; i++ {
		res := f.FilterError(e)
		if !reflect.DeepEqual(res.Violations, first.Violations) {
			t.Fatalf("violation order varies: %v vs %v", res.Violations, first.Violations)
		}
	}
}

func TestFilterNilError(t *testing.T) {
	res := prodFilter().FilterError(nil)
	if res.Filtered != nil || res.Risk != RiskLow || len(res.Violations) != 0 {
		t.Errorf("nil input should yield empty result, got %+v", res)
	}
}

package apperror

// Code is the machine-readable classification carried in API error payloads.
type Code string

const (
	CodeValidation      Code = "VALIDATION_ERROR"
	CodeDatabase        Code = "DATABASE_ERROR"
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	CodeBusinessLogic   Code = "BUSINESS_LOGIC_ERROR"
	CodeExternalService Code = "EXTERNAL_SERVICE_ERROR"
	CodeInternal        Code = "INTERNAL_ERROR"
)

// Category groups codes for catalog lookups and recovery policy.
// Every Code maps to exactly one Category.
type Category string

const (
	CategoryValidation      Category = "VALIDATION"
	CategoryDatabase        Category = "DATABASE"
	CategoryAuth            Category = "AUTH"
	CategoryBusinessLogic   Category = "BUSINESS_LOGIC"
	CategoryExternalService Category = "EXTERNAL_SERVICE"
	CategoryInternal        Category = "INTERNAL"
)

// Category returns the category a code belongs to. Unknown codes are
// treated as INTERNAL so that classification stays total.
func (c Code) Category() Category {
	switch c {
	case CodeValidation:
		return CategoryValidation
	case CodeDatabase:
		return CategoryDatabase
	case CodeUnauthenticated:
		return CategoryAuth
	case CodeBusinessLogic:
		return CategoryBusinessLogic
	case CodeExternalService:
		return CategoryExternalService
	default:
		return CategoryInternal
	}
}

// CategoryCode is the inverse of Code.Category.
func CategoryCode(cat Category) Code {
	switch cat {
	case CategoryValidation:
		return CodeValidation
	case CategoryDatabase:
		return CodeDatabase
	case CategoryAuth:
		return CodeUnauthenticated
	case CategoryBusinessLogic:
		return CodeBusinessLogic
	case CategoryExternalService:
		return CodeExternalService
	default:
		return CodeInternal
	}
}

// Severity ranks how badly an error affects the system. The ordering is
// meaningful: comparisons like sev >= SeverityHigh are used for alerting.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// String returns the lowercase name used in logs and metrics labels.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// ShouldAlert reports whether an error of this severity must be pushed to
// the alert sink immediately.
func (s Severity) ShouldAlert() bool {
	return s >= SeverityCritical
}

// DefaultSeverity returns the severity an error of the given category
// carries unless overridden at construction.
func DefaultSeverity(cat Category) Severity {
	switch cat {
	case CategoryValidation, CategoryBusinessLogic:
		return SeverityLow
	case CategoryAuth:
		return SeverityMedium
	case CategoryDatabase, CategoryExternalService:
		return SeverityHigh
	default:
		return SeverityCritical
	}
}

package apperror

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestTranslatePersistenceUniqueViolation(t *testing.T) {
	e := TranslatePersistence(EngineError{
		Code: "23505",
		Meta: &EngineMeta{Target: []string{"email"}},
	})

	if e.Category != CategoryValidation {
		t.Errorf("Category = %q, want VALIDATION", e.Category)
	}
	d, ok := e.Details.(ValidationDetails)
	if !ok {
		t.Fatalf("Details = %T, want ValidationDetails", e.Details)
	}
	msgs := d.FieldErrors["email"]
	if len(msgs) != 1 || !strings.Contains(msgs[0], "already exists") {
		t.Errorf("fieldErrors.email = %v, want an 'already exists' message", msgs)
	}
}

func TestTranslatePersistenceForeignKey(t *testing.T) {
	e := TranslatePersistence(EngineError{
		Code: "23503",
		Meta: &EngineMeta{FieldName: "projectId"},
	})

	if e.Category != CategoryValidation {
		t.Errorf("Category = %q, want VALIDATION", e.Category)
	}
	d := e.Details.(ValidationDetails)
	msgs := d.FieldErrors["projectId"]
	if len(msgs) != 1 || !strings.Contains(msgs[0], "does not exist") {
		t.Errorf("fieldErrors.projectId = %v, want a 'does not exist' message", msgs)
	}
}

func TestTranslatePersistenceTransient(t *testing.T) {
	for _, code := range []string{"08000", "08006", "57014", "57P01", "53300"} {
		e := TranslatePersistence(EngineError{Code: code})
		if e.Category != CategoryDatabase {
			t.Errorf("code %s: Category = %q, want DATABASE", code, e.Category)
		}
		if !e.Retryable {
			t.Errorf("code %s: Retryable = false, want true", code)
		}
	}
}

// Translation must be total: arbitrary codes never panic and always land
// in the generic DATABASE branch with the raw code preserved.
func TestTranslatePersistenceTotality(t *testing.T) {
	codes := []string{"", "42P01", "22001", "P2002", "nonsense", "23505x"}
	for _, code := range codes {
		e := TranslatePersistence(EngineError{Code: code})
		if e == nil {
			t.Fatalf("code %q: got nil error", code)
		}
		if e.Category != CategoryDatabase {
			t.Errorf("code %q: Category = %q, want DATABASE", code, e.Category)
		}
		if e.Retryable {
			t.Errorf("code %q: unknown codes must not be retryable", code)
		}
		if d := e.Details.(DatabaseDetails); d.Operation != code {
			t.Errorf("code %q: Operation = %q, want raw code", code, d.Operation)
		}
	}
}

func TestTranslateDBErrorPgError(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ColumnName: "email"}
	e := TranslateDBError(pgErr)

	if e.Category != CategoryValidation {
		t.Errorf("Category = %q, want VALIDATION", e.Category)
	}
	if _, ok := e.Details.(ValidationDetails).FieldErrors["email"]; !ok {
		t.Errorf("fieldErrors = %v, want email key", e.Details.(ValidationDetails).FieldErrors)
	}
	if !errors.Is(e, pgErr) {
		t.Error("cause chain does not reach the pg error")
	}
}

func TestTranslateDBErrorNoRows(t *testing.T) {
	e := TranslateDBError(pgx.ErrNoRows)
	if e.Category != CategoryBusinessLogic {
		t.Errorf("Category = %q, want BUSINESS_LOGIC", e.Category)
	}
}

func TestTranslateDBErrorTimeout(t *testing.T) {
	e := TranslateDBError(context.DeadlineExceeded)
	if e.Category != CategoryDatabase || !e.Retryable {
		t.Errorf("got category %q retryable %v, want retryable DATABASE", e.Category, e.Retryable)
	}
}

func TestTranslateDBErrorUnknown(t *testing.T) {
	e := TranslateDBError(errors.New("some driver hiccup"))
	if e.Category != CategoryDatabase || e.Retryable {
		t.Errorf("got category %q retryable %v, want non-retryable DATABASE", e.Category, e.Retryable)
	}
}

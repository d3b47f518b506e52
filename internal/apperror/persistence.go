package apperror

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE classes and codes the translator branches on.
const (
	sqlstateUniqueViolation = "23505"
	sqlstateForeignKey      = "23503"
	sqlstateQueryCanceled   = "57014"
	sqlstateAdminShutdown   = "57P01"
	sqlstateTooManyConns    = "53300"

	sqlstateClassConnection = "08"
)

// EngineError is the raw storage-engine failure shape handed to the
// translator by the persistence layer.
type EngineError struct {
	Code string
	Meta *EngineMeta
}

// EngineMeta carries optional diagnostics attached to an engine error.
type EngineMeta struct {
	// Target lists the columns of a violated constraint.
	Target []string
	// FieldName names the referencing column of a foreign-key failure.
	FieldName string
}

// field picks the most specific field name available, falling back to a
// generic placeholder so the produced fieldErrors map is never empty.
func (e EngineError) field() string {
	if e.Meta != nil {
		if len(e.Meta.Target) > 0 && e.Meta.Target[0] != "" {
			return e.Meta.Target[0]
		}
		if e.Meta.FieldName != "" {
			return e.Meta.FieldName
		}
	}
	return "resource"
}

// TranslatePersistence converts a storage-engine error into a taxonomy
// error. It is total: every code falls into one of four branches, with
// unknown codes ending in the generic DATABASE branch.
//
// Constraint violations become VALIDATION errors rather than DATABASE
// errors because the client can correct them and retry.
func TranslatePersistence(engineErr EngineError, opts ...Option) *Error {
	switch {
	case engineErr.Code == sqlstateUniqueViolation:
		field := engineErr.field()
		return NewValidation(
			fmt.Sprintf("unique constraint violation on %s", field),
			map[string][]string{field: {fmt.Sprintf("%s already exists", field)}},
			opts...,
		)

	case engineErr.Code == sqlstateForeignKey:
		field := engineErr.field()
		return NewValidation(
			fmt.Sprintf("foreign key constraint violation on %s", field),
			map[string][]string{field: {fmt.Sprintf("referenced %s does not exist", field)}},
			opts...,
		)

	case isTransientSQLState(engineErr.Code):
		return NewDatabase("database temporarily unavailable", engineErr.Code,
			append([]Option{WithRetryable(true)}, opts...)...)

	default:
		return NewDatabase("database operation failed", engineErr.Code, opts...)
	}
}

func isTransientSQLState(code string) bool {
	switch code {
	case sqlstateQueryCanceled, sqlstateAdminShutdown, sqlstateTooManyConns:
		return true
	}
	return strings.HasPrefix(code, sqlstateClassConnection)
}

// TranslateDBError adapts a live error returned by the persistence layer
// (pgx in this backend) into a taxonomy error. Like TranslatePersistence
// it never fails: anything unrecognized becomes a generic DATABASE error
// wrapping the original.
func TranslateDBError(err error, opts ...Option) *Error {
	if err == nil {
		return NewDatabase("database operation failed", "", opts...)
	}
	opts = append([]Option{WithCause(err)}, opts...)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		meta := &EngineMeta{FieldName: pgErr.ColumnName}
		if pgErr.ColumnName == "" && pgErr.ConstraintName != "" {
			meta.FieldName = pgErr.ConstraintName
		}
		return TranslatePersistence(EngineError{Code: pgErr.Code, Meta: meta}, opts...)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return NewBusinessLogic("requested record does not exist", "record_exists", nil, opts...)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewDatabase("database operation timed out", "timeout",
			append([]Option{WithRetryable(true)}, opts...)...)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewDatabase("database connection timed out", "timeout",
			append([]Option{WithRetryable(true)}, opts...)...)
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "connection") {
		return NewDatabase("database temporarily unavailable", "connection",
			append([]Option{WithRetryable(true)}, opts...)...)
	}

	return NewDatabase("database operation failed", "", opts...)
}

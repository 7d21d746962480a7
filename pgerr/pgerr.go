// Package pgerr is the engine-wide error taxonomy: every error that can
// cross a component boundary is a *Error carrying a Kind (spec.md §7)
// and the SQLSTATE Code the wire codec renders in an ErrorResponse.
package pgerr

import (
	"fmt"
	"runtime"
)

// Kind is one of the taxonomy entries of spec.md §7.
type Kind string

const (
	KindSyntaxError               Kind = "syntax-error"
	KindSchemaDoesNotExist        Kind = "schema-does-not-exist"
	KindSchemaAlreadyExists       Kind = "schema-already-exists"
	KindTableDoesNotExist         Kind = "table-does-not-exist"
	KindTableAlreadyExists        Kind = "table-already-exists"
	KindColumnDoesNotExist        Kind = "column-does-not-exist"
	KindDuplicateColumn           Kind = "duplicate-column"
	KindSchemaHasDependants       Kind = "schema-has-dependent-objects"
	KindDatatypeMismatch          Kind = "datatype-mismatch"
	KindInvalidTextRepresentation Kind = "invalid-text-representation"
	KindNumericOutOfRange         Kind = "numeric-out-of-range"
	KindStringDataRightTruncation Kind = "string-data-right-truncation"
	KindUndefinedFunction         Kind = "undefined-function"
	KindPreparedStmtDoesNotExist  Kind = "prepared-statement-does-not-exist"
	KindPortalDoesNotExist        Kind = "portal-does-not-exist"
	KindProtocolViolation         Kind = "protocol-violation"
	KindFeatureNotSupported       Kind = "feature-not-supported"
	KindNamingError               Kind = "naming-error"
	KindQueryCancelled             Kind = "query-cancelled"
	KindInternal                  Kind = "internal-error"
)

// sqlState maps each Kind to its representative PostgreSQL SQLSTATE
// code, following the table in spec.md §7 (itself cross-checked
// against the condition-name table lifted from lib/pq's error.go).
var sqlState = map[Kind]string{
	KindSyntaxError:               "42601",
	KindSchemaDoesNotExist:        "3F000",
	KindSchemaAlreadyExists:       "42P06",
	KindTableDoesNotExist:         "42P01",
	KindTableAlreadyExists:        "42P07",
	KindColumnDoesNotExist:        "42703",
	KindDuplicateColumn:           "42701",
	KindSchemaHasDependants:       "2BP01",
	KindDatatypeMismatch:          "42804",
	KindInvalidTextRepresentation: "22P02",
	KindNumericOutOfRange:         "22003",
	KindStringDataRightTruncation: "22001",
	KindUndefinedFunction:         "42883",
	KindPreparedStmtDoesNotExist:  "26000",
	KindPortalDoesNotExist:        "34000",
	KindProtocolViolation:         "08P01",
	KindFeatureNotSupported:       "0A000",
	KindNamingError:               "42601",
	KindQueryCancelled:            "57014",
	KindInternal:                  "XX000",
}

// conditionName mirrors lib/pq's errorCodeNames table, restricted to
// the codes this engine actually emits, for human-facing detail.
var conditionName = map[string]string{
	"42601": "syntax_error",
	"3F000": "invalid_schema_name",
	"42P06": "duplicate_schema",
	"42P01": "undefined_table",
	"42P07": "duplicate_table",
	"42703": "undefined_column",
	"42701": "duplicate_column",
	"2BP01": "dependent_objects_still_exist",
	"42804": "datatype_mismatch",
	"22P02": "invalid_text_representation",
	"22003": "numeric_value_out_of_range",
	"22001": "string_data_right_truncation",
	"42883": "undefined_function",
	"26000": "invalid_sql_statement_name",
	"34000": "invalid_cursor_name",
	"08P01": "protocol_violation",
	"0A000": "feature_not_supported",
	"57014": "query_canceled",
	"XX000": "internal_error",
}

// Error is the engine's uniform error type, modeled on the
// *errors.AppError shape (Code/Message/Err/Context) from
// hamzaKhattat-ara-production-system/pkg/errors, fused with
// lib/pq.Error's SQLState() contract.
type Error struct {
	Kind    Kind
	Message string
	Context map[string]string
	Err     error
	stack   string
}

// New builds a fresh *Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Context: map[string]string{},
		stack:   callerStack(),
	}
}

// Wrap attaches a kind and message to an underlying error without
// discarding it (Unwrap still reaches it).
func Wrap(err error, kind Kind, format string, args ...any) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Context: map[string]string{},
		Err:     err,
		stack:   callerStack(),
	}
}

// With attaches a named detail (e.g. "schema", "table", "column") used
// both in human messages and in ErrorResponse field population.
func (e *Error) With(key, value string) *Error {
	e.Context[key] = value
	return e
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// SQLState implements the same interface lib/pq.Error satisfies, so
// the server can render any engine error uniformly as a wire
// ErrorResponse (wire.EncodeBackend).
func (e *Error) SQLState() string {
	if s, ok := sqlState[e.Kind]; ok {
		return s
	}
	return sqlState[KindInternal]
}

// ConditionName is the human condition name for this error's SQLSTATE.
func (e *Error) ConditionName() string {
	return conditionName[e.SQLState()]
}

func callerStack() string {
	pc, file, line, ok := runtime.Caller(2)
	if !ok {
		return ""
	}
	fn := runtime.FuncForPC(pc)
	name := "?"
	if fn != nil {
		name = fn.Name()
	}
	return fmt.Sprintf("%s (%s:%d)", name, file, line)
}

// As reports whether err is (or wraps) a *Error, mirroring the
// errors.As pattern lib/pq's own tests rely on.
func As(err error) (*Error, bool) {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return nil, false
}

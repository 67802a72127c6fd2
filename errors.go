package orm

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/medatechnology/goutil/medaerror"
)

// Error taxonomy. Compare with errors.Is, every wrapper in this module
// keeps the sentinel reachable through Unwrap.
var (
	// client errors, raised before any I/O
	ErrInvalidFilterOperator medaerror.MedaError = medaerror.MedaError{Message: "invalid filter operator"}
	ErrEmptyPayload          medaerror.MedaError = medaerror.MedaError{Message: "empty payload"}
	ErrEmptyFilters          medaerror.MedaError = medaerror.MedaError{Message: "statement requires at least one filter"}
	ErrMissingTenantID       medaerror.MedaError = medaerror.MedaError{Message: "missing tenant_id"}
	ErrEmptyOrder            medaerror.MedaError = medaerror.MedaError{Message: "order has no items"}
	ErrProductNotFound       medaerror.MedaError = medaerror.MedaError{Message: "product not found"}

	// driver-detected
	ErrInvalidData         medaerror.MedaError = medaerror.MedaError{Message: "invalid data"}
	ErrDuplicateKey        medaerror.MedaError = medaerror.MedaError{Message: "duplicate key"}
	ErrConstraintViolation medaerror.MedaError = medaerror.MedaError{Message: "constraint violation"}
	ErrQuery               medaerror.MedaError = medaerror.MedaError{Message: "query error"}

	// zero rows matched, a normal outcome
	ErrNotFound medaerror.MedaError = medaerror.MedaError{Message: "not found"}
)

// IsClientError reports whether err was caused by the caller's input rather
// than by a server fault. Client errors are not logged as faults.
func IsClientError(err error) bool {
	for _, target := range []error{
		ErrInvalidFilterOperator, ErrEmptyPayload, ErrEmptyFilters, ErrMissingTenantID,
		ErrEmptyOrder, ErrProductNotFound, ErrInvalidData, ErrDuplicateKey,
		ErrConstraintViolation, ErrNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ErrorContext provides additional context for errors
type ErrorContext struct {
	Operation string                 // The operation that failed (e.g., "SELECT", "INSERT")
	Table     string                 // The table involved (if applicable)
	Query     string                 // The SQL query (if applicable)
	Fields    map[string]interface{} // Additional context fields
}

// ORMError wraps an error with additional context
type ORMError struct {
	Err     error
	Context ErrorContext
}

// Error implements the error interface. Query text is left out; LogErrorWithContext logs it.
func (e *ORMError) Error() string {
	msg := e.Err.Error()

	var parts []string
	if e.Context.Operation != "" {
		parts = append(parts, fmt.Sprintf("operation=%s", e.Context.Operation))
	}
	if e.Context.Table != "" {
		parts = append(parts, fmt.Sprintf("table=%s", e.Context.Table))
	}
	for _, k := range sortedKeys(e.Context.Fields) {
		parts = append(parts, fmt.Sprintf("%s=%v", k, e.Context.Fields[k]))
	}

	if len(parts) > 0 {
		msg = fmt.Sprintf("%s [%s]", msg, strings.Join(parts, ", "))
	}

	return msg
}

// Unwrap returns the underlying error
func (e *ORMError) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with context information
func WrapError(err error, operation, table string) error {
	if err == nil {
		return nil
	}

	return &ORMError{
		Err: err,
		Context: ErrorContext{
			Operation: operation,
			Table:     table,
		},
	}
}

// WrapErrorWithQuery wraps an error with context including the SQL query
func WrapErrorWithQuery(err error, operation, table, query string) error {
	if err == nil {
		return nil
	}

	return &ORMError{
		Err: err,
		Context: ErrorContext{
			Operation: operation,
			Table:     table,
			Query:     query,
		},
	}
}

// WrapErrorWithFields wraps an error with additional field context
func WrapErrorWithFields(err error, operation, table string, fields map[string]interface{}) error {
	if err == nil {
		return nil
	}

	return &ORMError{
		Err: err,
		Context: ErrorContext{
			Operation: operation,
			Table:     table,
			Fields:    fields,
		},
	}
}

// GetErrorContext extracts the error context if the error chain holds an ORMError
func GetErrorContext(err error) (ErrorContext, bool) {
	var ormErr *ORMError
	if errors.As(err, &ormErr) {
		return ormErr.Context, true
	}
	return ErrorContext{}, false
}

// Common error wrapping helpers for specific operations

// WrapSelectError wraps a SELECT operation error
func WrapSelectError(err error, table string) error {
	return WrapError(err, "SELECT", table)
}

// WrapInsertError wraps an INSERT operation error
func WrapInsertError(err error, table string) error {
	return WrapError(err, "INSERT", table)
}

// WrapUpdateError wraps an UPDATE operation error
func WrapUpdateError(err error, table string) error {
	return WrapError(err, "UPDATE", table)
}

// WrapDeleteError wraps a DELETE operation error
func WrapDeleteError(err error, table string) error {
	return WrapError(err, "DELETE", table)
}

// WrapTransactionError wraps a transaction-related error
func WrapTransactionError(err error, operation string) error {
	return WrapError(err, "TRANSACTION:"+operation, "")
}

// LogErrorWithContext logs err on logger, adding the ORMError context as fields.
// Client errors go out at warn level, everything else at error level.
func LogErrorWithContext(logger Logger, err error, fields ...Field) {
	if err == nil || logger == nil {
		return
	}

	logFields := make([]Field, 0, len(fields)+4)
	logFields = append(logFields, fields...)

	if ctx, ok := GetErrorContext(err); ok {
		if ctx.Operation != "" {
			logFields = append(logFields, String("operation", ctx.Operation))
		}
		if ctx.Table != "" {
			logFields = append(logFields, String("table", ctx.Table))
		}
		if ctx.Query != "" {
			logFields = append(logFields, String("query", ctx.Query))
		}
	}

	logFields = append(logFields, Error(err))

	if IsClientError(err) {
		logger.Warn(err.Error(), logFields...)
		return
	}
	logger.Error(err.Error(), logFields...)
}

func sortedKeys(m map[string]interface{}) []string {
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

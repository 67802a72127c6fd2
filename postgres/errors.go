package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/medatechnology/goutil/medaerror"
	orm "github.com/medatechnology/tenantorm"
)

// PostgreSQL-specific error codes
// See: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	// Class 23 - Integrity Constraint Violation
	ErrCodeUniqueViolation     = "23505"
	ErrCodeForeignKeyViolation = "23503"
	ErrCodeNotNullViolation    = "23502"
	ErrCodeCheckViolation      = "23514"

	// Class 08 - Connection Exception
	ErrCodeConnectionException    = "08000"
	ErrCodeConnectionFailure      = "08006"
	ErrCodeSQLClientCannotConnect = "08001"
	ErrCodeCannotConnectNow       = "57P03"

	classIntegrity = "23"
	classData      = "22"
	classSyntax    = "42"
)

// Custom PostgreSQL errors using medaerror
var (
	ErrPostgresInvalidDSN        medaerror.MedaError = medaerror.MedaError{Message: "invalid PostgreSQL DSN connection string"}
	ErrPostgresConnectionFailed  medaerror.MedaError = medaerror.MedaError{Message: "failed to connect to PostgreSQL database"}
	ErrPostgresQueryFailed       medaerror.MedaError = medaerror.MedaError{Message: "PostgreSQL query execution failed"}
	ErrPostgresTransactionFailed medaerror.MedaError = medaerror.MedaError{Message: "PostgreSQL transaction failed"}
	ErrPostgresInvalidConfig     medaerror.MedaError = medaerror.MedaError{Message: "invalid PostgreSQL configuration"}
	ErrPostgresTimeout           medaerror.MedaError = medaerror.MedaError{Message: "PostgreSQL operation timed out"}
)

// PostgreSQLError wraps a driver error with the statement context and the
// taxonomy class it was mapped to. errors.Is matches both the class
// (orm.ErrDuplicateKey, ...) and the original driver error.
type PostgreSQLError struct {
	Operation string // The operation that failed (e.g., "INSERT", "SELECT", "UPDATE")
	Table     string // The table involved (if applicable)
	Query     string // The SQL query that failed (if applicable)
	Code      string // PostgreSQL error code
	Message   string // Error message
	Detail    string // Detailed error information
	Hint      string // Hint for fixing the error
	Class     error  // taxonomy sentinel
	Err       error  // Original error
}

// Error implements the error interface
func (e *PostgreSQLError) Error() string {
	var parts []string

	if e.Operation != "" {
		parts = append(parts, fmt.Sprintf("operation=%s", e.Operation))
	}
	if e.Table != "" {
		parts = append(parts, fmt.Sprintf("table=%s", e.Table))
	}
	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("code=%s", e.Code))
	}

	msg := e.Message
	if e.Class != nil {
		msg = fmt.Sprintf("%s: %s", e.Class.Error(), msg)
	}
	if len(parts) > 0 {
		msg = fmt.Sprintf("%s [%s]", msg, strings.Join(parts, ", "))
	}

	if e.Detail != "" {
		msg = fmt.Sprintf("%s - Detail: %s", msg, e.Detail)
	}
	if e.Hint != "" {
		msg = fmt.Sprintf("%s - Hint: %s", msg, e.Hint)
	}

	return msg
}

// Unwrap exposes both the taxonomy class and the driver error
func (e *PostgreSQLError) Unwrap() []error {
	if e.Class == nil {
		return []error{e.Err}
	}
	return []error{e.Class, e.Err}
}

// WrapPostgreSQLError wraps a driver error with statement context and maps it
// onto the error taxonomy:
//
//	23505            -> orm.ErrDuplicateKey
//	other class 23   -> orm.ErrConstraintViolation
//	class 22         -> orm.ErrInvalidData
//	class 42         -> orm.ErrQuery
//	connection codes -> ErrPostgresConnectionFailed
//	deadline/cancel  -> ErrPostgresTimeout
//	anything else    -> ErrPostgresQueryFailed
func WrapPostgreSQLError(err error, operation, table, query string) error {
	if err == nil {
		return nil
	}

	pgErr := &PostgreSQLError{
		Operation: operation,
		Table:     table,
		Query:     query,
		Message:   err.Error(),
		Class:     classify(err),
		Err:       err,
	}

	// Extract PostgreSQL-specific error information if available
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		pgErr.Code = string(pqErr.Code)
		pgErr.Message = pqErr.Message
		pgErr.Detail = pqErr.Detail
		pgErr.Hint = pqErr.Hint
	}

	return pgErr
}

func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrPostgresTimeout
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return ErrPostgresQueryFailed
	}

	switch {
	case IsConnectionError(err):
		return ErrPostgresConnectionFailed
	case IsUniqueViolation(err):
		return orm.ErrDuplicateKey
	case IsForeignKeyViolation(err):
		return orm.ErrConstraintViolation
	case string(pqErr.Code.Class()) == classIntegrity:
		return orm.ErrConstraintViolation
	case string(pqErr.Code.Class()) == classData:
		return orm.ErrInvalidData
	case string(pqErr.Code.Class()) == classSyntax:
		return orm.ErrQuery
	default:
		return ErrPostgresQueryFailed
	}
}

// IsUniqueViolation checks if the error is a unique constraint violation
func IsUniqueViolation(err error) bool {
	return hasPostgreSQLErrorCode(err, ErrCodeUniqueViolation)
}

// IsForeignKeyViolation checks if the error is a foreign key constraint violation
func IsForeignKeyViolation(err error) bool {
	return hasPostgreSQLErrorCode(err, ErrCodeForeignKeyViolation)
}

// IsConnectionError checks if the error is related to database connection
func IsConnectionError(err error) bool {
	return hasPostgreSQLErrorCode(err, ErrCodeConnectionException) ||
		hasPostgreSQLErrorCode(err, ErrCodeConnectionFailure) ||
		hasPostgreSQLErrorCode(err, ErrCodeSQLClientCannotConnect) ||
		hasPostgreSQLErrorCode(err, ErrCodeCannotConnectNow)
}

// hasPostgreSQLErrorCode checks if an error has a specific PostgreSQL error code
func hasPostgreSQLErrorCode(err error, code string) bool {
	return GetPostgreSQLErrorCode(err) == code && code != ""
}

// GetPostgreSQLErrorCode extracts the PostgreSQL error code from an error
func GetPostgreSQLErrorCode(err error) string {
	if err == nil {
		return ""
	}

	var pgErr *PostgreSQLError
	if errors.As(err, &pgErr) && pgErr.Code != "" {
		return pgErr.Code
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}

	return ""
}

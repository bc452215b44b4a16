package types

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the client. Match them with errors.Is.
var (
	// ErrConnection is returned when a connection cannot be established or restored.
	ErrConnection = errors.New("pgtyped: connection error")

	// ErrExecution is returned when the server rejects a prepare or execute.
	ErrExecution = errors.New("pgtyped: query execution failed")

	// ErrUnsupportedParameterType is returned for parameters with no type tag.
	ErrUnsupportedParameterType = errors.New("pgtyped: unsupported parameter type")

	// ErrUnsupportedType is returned for columns whose server type has no semantic type.
	ErrUnsupportedType = errors.New("pgtyped: unsupported column type")

	// ErrColumnIndexOutOfBounds is returned for column indexes outside [0, columns).
	ErrColumnIndexOutOfBounds = errors.New("pgtyped: column index out of bounds")

	// ErrColumnNameNotFound is returned when no column has the requested name.
	ErrColumnNameNotFound = errors.New("pgtyped: column name not found")

	// ErrColumnWrongType is returned when the requested type differs from the declared one.
	ErrColumnWrongType = errors.New("pgtyped: column has a different type")

	// ErrInvalidLiteral is returned when a cell's text cannot be converted.
	ErrInvalidLiteral = errors.New("pgtyped: invalid literal")

	// ErrIteratorExhausted is returned by Next after the last row.
	ErrIteratorExhausted = errors.New("pgtyped: no more rows")

	// ErrResultClosed is returned when a closed result or one of its rows is read.
	ErrResultClosed = errors.New("pgtyped: result is closed")

	// ErrConnClosed is returned when a closed connection is used.
	ErrConnClosed = errors.New("pgtyped: connection is closed")
)

// ColumnError describes a failed cell access.
type ColumnError struct {
	// Column is the zero-based index that was accessed, -1 when a name did not resolve.
	Column int

	// Name is the requested column name, empty for index access.
	Name string

	// Requested is the type the caller asked for.
	Requested SemanticType

	// Actual is the declared type of the column, zero when it is unknown.
	Actual SemanticType

	// Detail carries extra context such as the offending literal.
	Detail string

	// Cause is the error kind.
	Cause error
}

// Error implements the error interface.
func (e *ColumnError) Error() string {
	target := fmt.Sprintf("column %d", e.Column)
	if e.Name != "" {
		target = fmt.Sprintf("column %q", e.Name)
	}

	switch {
	case errors.Is(e.Cause, ErrColumnWrongType):
		return fmt.Sprintf("%s isn't %s but %s", target, e.Requested, e.Actual)
	case e.Detail != "":
		return fmt.Sprintf("%s: %v: %s", target, e.Cause, e.Detail)
	default:
		return fmt.Sprintf("%s: %v", target, e.Cause)
	}
}

// Unwrap returns the error kind.
func (e *ColumnError) Unwrap() error {
	return e.Cause
}

// QueryError describes a failed round trip to the server.
type QueryError struct {
	// Operation is the transport step that failed: connect, reset, prepare or execute.
	Operation string

	// Query is the SQL text, when there is one.
	Query string

	// StatementID is the prepared statement id, when there is one.
	StatementID string

	// Kind is the error kind, ErrConnection or ErrExecution.
	Kind error

	// Cause is the transport error.
	Cause error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	if e.StatementID != "" {
		return fmt.Sprintf("%s statement %s: %v", e.Operation, e.StatementID, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Operation, e.Cause)
}

// Unwrap exposes both the kind and the transport error.
func (e *QueryError) Unwrap() []error {
	return []error{e.Kind, e.Cause}
}

// NewQueryError creates a QueryError.
func NewQueryError(op string, kind error, cause error) *QueryError {
	return &QueryError{
		Operation: op,
		Kind:      kind,
		Cause:     cause,
	}
}

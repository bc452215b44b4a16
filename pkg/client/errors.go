package client

import (
	"errors"

	"github.com/satishbabariya/pgtyped/pkg/types"
)

// Error kinds, shared with package types.
var (
	ErrConnection               = types.ErrConnection
	ErrExecution                = types.ErrExecution
	ErrUnsupportedParameterType = types.ErrUnsupportedParameterType
	ErrUnsupportedType          = types.ErrUnsupportedType
	ErrColumnIndexOutOfBounds   = types.ErrColumnIndexOutOfBounds
	ErrColumnNameNotFound       = types.ErrColumnNameNotFound
	ErrColumnWrongType          = types.ErrColumnWrongType
	ErrInvalidLiteral           = types.ErrInvalidLiteral
	ErrIteratorExhausted        = types.ErrIteratorExhausted
	ErrResultClosed             = types.ErrResultClosed
	ErrConnClosed               = types.ErrConnClosed
)

// ColumnError describes a failed cell access.
type ColumnError = types.ColumnError

// QueryError describes a failed round trip to the server.
type QueryError = types.QueryError

// IsConnectionError checks if an error is a connection error.
func IsConnectionError(err error) bool {
	return errors.Is(err, ErrConnection)
}

// IsExecutionError checks if an error was reported by the server for a
// prepare or execute.
func IsExecutionError(err error) bool {
	return errors.Is(err, ErrExecution)
}

// IsTypeMismatch checks if an error is a column type mismatch.
func IsTypeMismatch(err error) bool {
	return errors.Is(err, ErrColumnWrongType)
}

// Package transport defines the PostgreSQL wire transport the client runs on.
package transport

import (
	"context"

	"github.com/satishbabariya/pgtyped/internal/core/registry"
)

// Transport opens connections.
type Transport interface {
	// Connect establishes a connection to the server at url.
	Connect(ctx context.Context, url string) (Conn, error)

	// Name returns the transport name used in configuration.
	Name() string
}

// Conn is a single server session. It is not safe for concurrent use.
type Conn interface {
	// Healthy reports whether the session can accept a query.
	Healthy() bool

	// Reset replaces a broken session with a fresh one. Statements prepared on
	// the old session are gone afterwards.
	Reset(ctx context.Context) error

	// Execute runs query with text-format parameters. values[i] binds to $i+1,
	// nil is NULL.
	Execute(ctx context.Context, query string, tags []registry.Tag, values [][]byte) (ResultSet, error)

	// Prepare creates a named statement.
	Prepare(ctx context.Context, id, query string, tags []registry.Tag) error

	// ExecutePrepared runs a statement created by Prepare.
	ExecutePrepared(ctx context.Context, id string, values [][]byte) (ResultSet, error)

	// Close ends the session.
	Close(ctx context.Context) error
}

// ResultSet is a fully received, immutable query result.
type ResultSet interface {
	// RowCount returns the number of rows.
	RowCount() int

	// ColumnCount returns the number of columns.
	ColumnCount() int

	// IsNull reports whether a cell is NULL.
	IsNull(row, col int) bool

	// Value returns a cell's text, empty for NULL.
	Value(row, col int) string

	// ColumnType returns a column's declared type tag.
	ColumnType(col int) registry.Tag

	// ColumnName returns a column's name.
	ColumnName(col int) string

	// ColumnIndex returns the index of the first column named name, or -1.
	ColumnIndex(name string) int

	// RowsAffected returns the affected row count of a command. ok is false for
	// statements that produced a row set.
	RowsAffected() (n int64, ok bool)

	// Close releases the result.
	Close() error
}

package transport

import (
	"strings"

	"github.com/satishbabariya/pgtyped/internal/core/registry"
)

// Column describes one result column.
type Column struct {
	Name string
	Tag  registry.Tag
}

// Table is an eagerly materialized ResultSet shared by the transports.
type Table struct {
	Columns []Column

	// Rows holds the text of every cell; a nil cell is NULL.
	Rows [][][]byte

	// Affected is the command's row count; it is reported only when the
	// statement returned no row description.
	Affected int64

	// Described is true when the server sent a row description.
	Described bool

	closed bool
}

// RowCount implements ResultSet.
func (t *Table) RowCount() int { return len(t.Rows) }

// ColumnCount implements ResultSet.
func (t *Table) ColumnCount() int { return len(t.Columns) }

// IsNull implements ResultSet.
func (t *Table) IsNull(row, col int) bool { return t.Rows[row][col] == nil }

// Value implements ResultSet.
func (t *Table) Value(row, col int) string { return string(t.Rows[row][col]) }

// ColumnType implements ResultSet.
func (t *Table) ColumnType(col int) registry.Tag { return t.Columns[col].Tag }

// ColumnName implements ResultSet.
func (t *Table) ColumnName(col int) string { return t.Columns[col].Name }

// ColumnIndex implements ResultSet. Names follow identifier rules: they are
// folded to lower case unless wrapped in double quotes.
func (t *Table) ColumnIndex(name string) int {
	want := foldIdentifier(name)
	for i, c := range t.Columns {
		if c.Name == want {
			return i
		}
	}
	return -1
}

// RowsAffected implements ResultSet.
func (t *Table) RowsAffected() (int64, bool) {
	if t.Described {
		return 0, false
	}
	return t.Affected, true
}

// Close implements ResultSet.
func (t *Table) Close() error {
	t.closed = true
	t.Rows = nil
	return nil
}

// Closed reports whether Close was called.
func (t *Table) Closed() bool { return t.closed }

func foldIdentifier(name string) string {
	if len(name) >= 2 && name[0] == '"' && name[len(name)-1] == '"' {
		return strings.ReplaceAll(name[1:len(name)-1], `""`, `"`)
	}
	return strings.ToLower(name)
}

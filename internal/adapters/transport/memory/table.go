package memory

import (
	"fmt"

	"github.com/satishbabariya/pgtyped/internal/adapters/transport"
	"github.com/satishbabariya/pgtyped/internal/core/registry"
)

// Col is shorthand for a result column.
func Col(name string, tag registry.Tag) transport.Column {
	return transport.Column{Name: name, Tag: tag}
}

// Builder assembles a row-producing result.
type Builder struct {
	table *transport.Table
}

// Rows starts a result with the given columns.
func Rows(columns ...transport.Column) *Builder {
	return &Builder{table: &transport.Table{Columns: columns, Described: true}}
}

// Row appends a row. A nil cell is NULL, anything else is stored as its text
// form: strings verbatim, other values through fmt.
func (b *Builder) Row(cells ...any) *Builder {
	if len(cells) != len(b.table.Columns) {
		panic(fmt.Sprintf("memory: row has %d cells, result has %d columns", len(cells), len(b.table.Columns)))
	}

	row := make([][]byte, len(cells))
	for i, cell := range cells {
		switch v := cell.(type) {
		case nil:
		case string:
			row[i] = append([]byte{}, v...)
		case []byte:
			row[i] = append([]byte{}, v...)
		default:
			row[i] = []byte(fmt.Sprint(v))
		}
	}
	b.table.Rows = append(b.table.Rows, row)
	return b
}

// Build returns the result.
func (b *Builder) Build() *transport.Table {
	return b.table
}

// Command returns the result of a statement that produced no rows.
func Command(affected int64) *transport.Table {
	return &transport.Table{Affected: affected}
}

// Echo answers with a single row holding the bound values, in order, under the
// given columns.
func Echo(columns ...transport.Column) Handler {
	return func(values [][]byte) (*transport.Table, error) {
		if len(values) != len(columns) {
			return nil, fmt.Errorf("memory: bind message supplies %d parameters, statement requires %d", len(values), len(columns))
		}
		return &transport.Table{
			Columns:   append([]transport.Column(nil), columns...),
			Rows:      [][][]byte{values},
			Described: true,
		}, nil
	}
}

// Clone deep-copies a table.
func Clone(t *transport.Table) *transport.Table {
	out := &transport.Table{
		Columns:   append([]transport.Column(nil), t.Columns...),
		Affected:  t.Affected,
		Described: t.Described,
	}
	for _, row := range t.Rows {
		out.Rows = append(out.Rows, cloneValues(row))
	}
	return out
}

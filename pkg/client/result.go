package client

import (
	"iter"

	"github.com/satishbabariya/pgtyped/internal/adapters/transport"
	"github.com/satishbabariya/pgtyped/internal/core/decoder"
	"github.com/satishbabariya/pgtyped/pkg/types"
)

// Result is a fully received query result. Rows are decoded on access. Close
// it when done; rows of a closed result can no longer be read.
type Result struct {
	rs     transport.ResultSet
	rows   int
	cols   int
	closed bool
}

func newResult(rs transport.ResultSet) *Result {
	return &Result{rs: rs, rows: rs.RowCount(), cols: rs.ColumnCount()}
}

// RowCount returns the number of rows.
func (r *Result) RowCount() int { return r.rows }

// ColumnCount returns the number of columns.
func (r *Result) ColumnCount() int { return r.cols }

// RowsAffected returns the number of rows a command inserted, updated or
// deleted. ok is false for statements that return rows.
func (r *Result) RowsAffected() (n int64, ok bool) {
	if r.closed {
		return 0, false
	}
	return r.rs.RowsAffected()
}

// ColumnName returns the name of column i.
func (r *Result) ColumnName(i int) (string, error) {
	if r.closed {
		return "", types.ErrResultClosed
	}
	if i < 0 || i >= r.cols {
		return "", &types.ColumnError{Column: i, Cause: types.ErrColumnIndexOutOfBounds}
	}
	return r.rs.ColumnName(i), nil
}

// ColumnNames returns every column name in order.
func (r *Result) ColumnNames() ([]string, error) {
	names := make([]string, r.cols)
	for i := range names {
		name, err := r.ColumnName(i)
		if err != nil {
			return nil, err
		}
		names[i] = name
	}
	return names, nil
}

// ColumnType returns the semantic type of column i.
func (r *Result) ColumnType(i int) (types.SemanticType, error) {
	if r.closed {
		return 0, types.ErrResultClosed
	}
	return decoder.ColumnType(r.rs, i)
}

// Row returns row i.
func (r *Result) Row(i int) (*Row, error) {
	if r.closed {
		return nil, types.ErrResultClosed
	}
	if i < 0 || i >= r.rows {
		return nil, types.ErrIteratorExhausted
	}
	return &Row{res: r, index: i}, nil
}

// Iterator returns a cursor positioned before the first row. Every call
// starts over.
func (r *Result) Iterator() *Iterator {
	return &Iterator{res: r}
}

// Rows yields every row in order.
func (r *Result) Rows() iter.Seq[*Row] {
	return func(yield func(*Row) bool) {
		if r.closed {
			return
		}
		for i := 0; i < r.rows; i++ {
			if !yield(&Row{res: r, index: i}) {
				return
			}
		}
	}
}

// All returns every row.
func (r *Result) All() []*Row {
	rows := make([]*Row, 0, r.rows)
	for row := range r.Rows() {
		rows = append(rows, row)
	}
	return rows
}

// Close releases the result. It is safe to call more than once.
func (r *Result) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.rs.Close()
}

// Iterator walks a result forward one row at a time.
type Iterator struct {
	res *Result
	pos int
}

// HasNext reports whether Next will return a row.
func (it *Iterator) HasNext() bool {
	return !it.res.closed && it.pos < it.res.rows
}

// Next returns the next row, or ErrIteratorExhausted after the last one.
func (it *Iterator) Next() (*Row, error) {
	if it.res.closed {
		return nil, types.ErrResultClosed
	}
	if it.pos >= it.res.rows {
		return nil, types.ErrIteratorExhausted
	}

	row := &Row{res: it.res, index: it.pos}
	it.pos++
	return row, nil
}

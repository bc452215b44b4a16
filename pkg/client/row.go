package client

import (
	"github.com/satishbabariya/pgtyped/internal/core/decoder"
	"github.com/satishbabariya/pgtyped/pkg/types"
)

// Row is one row of a Result.
//
// Typed getters check the requested type against the column's declared type
// before looking at the value, so reading an int4 column with GetInt64 fails
// even when the cell is NULL. They return nil for NULL.
type Row struct {
	res   *Result
	index int
}

// Index returns the row's position in its result.
func (r *Row) Index() int { return r.index }

// Columns returns the number of columns.
func (r *Row) Columns() int { return r.res.cols }

// Get decodes column col as t.
func (r *Row) Get(col int, t types.SemanticType) (types.Value, error) {
	if r.res.closed {
		return types.Value{}, types.ErrResultClosed
	}
	return decoder.Get(r.res.rs, r.index, col, t)
}

// GetByName decodes the first column named name as t. Unquoted names are
// matched in lower case.
func (r *Row) GetByName(name string, t types.SemanticType) (types.Value, error) {
	if r.res.closed {
		return types.Value{}, types.ErrResultClosed
	}
	return decoder.GetByName(r.res.rs, r.index, name, t)
}

// Value decodes column col as its declared type.
func (r *Row) Value(col int) (types.Value, error) {
	if r.res.closed {
		return types.Value{}, types.ErrResultClosed
	}
	return decoder.Decode(r.res.rs, r.index, col)
}

// Raw returns the server's text for column col without any type check. It is
// meant for display of columns whose type has no semantic type.
func (r *Row) Raw(col int) (text string, null bool, err error) {
	if r.res.closed {
		return "", false, types.ErrResultClosed
	}
	if col < 0 || col >= r.res.cols {
		return "", false, &types.ColumnError{Column: col, Cause: types.ErrColumnIndexOutOfBounds}
	}
	return r.res.rs.Value(r.index, col), r.res.rs.IsNull(r.index, col), nil
}

// Values decodes every column as its declared type.
func (r *Row) Values() ([]types.Value, error) {
	values := make([]types.Value, r.res.cols)
	for i := range values {
		v, err := r.Value(i)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

// GetBool reads a boolean column.
func (r *Row) GetBool(col int) (*bool, error) {
	v, err := r.Get(col, types.Bool)
	return deref(v, err, types.Value.Bool)
}

// GetInt32 reads an integer column.
func (r *Row) GetInt32(col int) (*int32, error) {
	v, err := r.Get(col, types.Int32)
	return deref(v, err, types.Value.Int32)
}

// GetInt64 reads a bigint column.
func (r *Row) GetInt64(col int) (*int64, error) {
	v, err := r.Get(col, types.Int64)
	return deref(v, err, types.Value.Int64)
}

// GetFloat32 reads a real column.
func (r *Row) GetFloat32(col int) (*float32, error) {
	v, err := r.Get(col, types.Float32)
	return deref(v, err, types.Value.Float32)
}

// GetFloat64 reads a double precision column.
func (r *Row) GetFloat64(col int) (*float64, error) {
	v, err := r.Get(col, types.Float64)
	return deref(v, err, types.Value.Float64)
}

// GetText reads a text or varchar column.
func (r *Row) GetText(col int) (*string, error) {
	v, err := r.Get(col, types.Text)
	return deref(v, err, types.Value.Text)
}

// GetBoolByName reads a boolean column by name.
func (r *Row) GetBoolByName(name string) (*bool, error) {
	v, err := r.GetByName(name, types.Bool)
	return deref(v, err, types.Value.Bool)
}

// GetInt32ByName reads an integer column by name.
func (r *Row) GetInt32ByName(name string) (*int32, error) {
	v, err := r.GetByName(name, types.Int32)
	return deref(v, err, types.Value.Int32)
}

// GetInt64ByName reads a bigint column by name.
func (r *Row) GetInt64ByName(name string) (*int64, error) {
	v, err := r.GetByName(name, types.Int64)
	return deref(v, err, types.Value.Int64)
}

// GetFloat32ByName reads a real column by name.
func (r *Row) GetFloat32ByName(name string) (*float32, error) {
	v, err := r.GetByName(name, types.Float32)
	return deref(v, err, types.Value.Float32)
}

// GetFloat64ByName reads a double precision column by name.
func (r *Row) GetFloat64ByName(name string) (*float64, error) {
	v, err := r.GetByName(name, types.Float64)
	return deref(v, err, types.Value.Float64)
}

// GetTextByName reads a text or varchar column by name.
func (r *Row) GetTextByName(name string) (*string, error) {
	v, err := r.GetByName(name, types.Text)
	return deref(v, err, types.Value.Text)
}

func deref[T any](v types.Value, err error, get func(types.Value) (T, bool)) (*T, error) {
	if err != nil {
		return nil, err
	}
	if v.IsNull() {
		return nil, nil
	}
	x, _ := get(v)
	return &x, nil
}

// Package decoder reads typed values out of a transport result set.
//
// Every access is checked in a fixed order: column bounds, declared column type
// against the requested type, then conversion of the cell text. The type check
// runs for NULL cells too, so a NULL never hides a wrong-typed read.
package decoder

import (
	"fmt"
	"strconv"

	"github.com/satishbabariya/pgtyped/internal/adapters/transport"
	"github.com/satishbabariya/pgtyped/internal/core/registry"
	"github.com/satishbabariya/pgtyped/pkg/types"
)

// Get decodes the cell at (row, col) as expected.
func Get(rs transport.ResultSet, row, col int, expected types.SemanticType) (types.Value, error) {
	if col < 0 || col >= rs.ColumnCount() {
		return types.Value{}, &types.ColumnError{
			Column:    col,
			Requested: expected,
			Detail:    fmt.Sprintf("result has %d columns", rs.ColumnCount()),
			Cause:     types.ErrColumnIndexOutOfBounds,
		}
	}

	v, err := get(rs, row, col, expected)
	if err != nil {
		err.Column = col
		return types.Value{}, err
	}
	return v, nil
}

// GetByName decodes the cell in the first column named name.
func GetByName(rs transport.ResultSet, row int, name string, expected types.SemanticType) (types.Value, error) {
	col := rs.ColumnIndex(name)
	if col < 0 {
		return types.Value{}, &types.ColumnError{
			Column:    -1,
			Name:      name,
			Requested: expected,
			Cause:     types.ErrColumnNameNotFound,
		}
	}

	v, err := get(rs, row, col, expected)
	if err != nil {
		err.Column = col
		err.Name = name
		return types.Value{}, err
	}
	return v, nil
}

// Decode reads the cell at (row, col) as the column's declared type.
func Decode(rs transport.ResultSet, row, col int) (types.Value, error) {
	t, err := ColumnType(rs, col)
	if err != nil {
		return types.Value{}, err
	}
	return Get(rs, row, col, t)
}

// ColumnType returns the semantic type of a column.
func ColumnType(rs transport.ResultSet, col int) (types.SemanticType, error) {
	if col < 0 || col >= rs.ColumnCount() {
		return 0, &types.ColumnError{
			Column: col,
			Detail: fmt.Sprintf("result has %d columns", rs.ColumnCount()),
			Cause:  types.ErrColumnIndexOutOfBounds,
		}
	}

	t, err := registry.SemanticTypeFor(rs.ColumnType(col))
	if err != nil {
		return 0, &types.ColumnError{Column: col, Detail: err.Error(), Cause: types.ErrUnsupportedType}
	}
	return t, nil
}

func get(rs transport.ResultSet, row, col int, expected types.SemanticType) (types.Value, *types.ColumnError) {
	null := rs.IsNull(row, col)
	text := rs.Value(row, col)

	actual, err := registry.SemanticTypeFor(rs.ColumnType(col))
	if err != nil {
		return types.Value{}, &types.ColumnError{Requested: expected, Detail: err.Error(), Cause: types.ErrUnsupportedType}
	}
	if actual != expected {
		return types.Value{}, &types.ColumnError{Requested: expected, Actual: actual, Cause: types.ErrColumnWrongType}
	}

	if null {
		return types.Null(expected), nil
	}

	v, perr := Parse(expected, text)
	if perr != nil {
		return types.Value{}, &types.ColumnError{
			Requested: expected,
			Actual:    actual,
			Detail:    strconv.Quote(text),
			Cause:     types.ErrInvalidLiteral,
		}
	}
	return v, nil
}

// Parse converts PostgreSQL text output to a value of type t.
func Parse(t types.SemanticType, text string) (types.Value, error) {
	switch t {
	case types.Bool:
		switch text {
		case "t":
			return types.BoolValue(true), nil
		case "f":
			return types.BoolValue(false), nil
		}
		return types.Value{}, fmt.Errorf("%w: %q is not a boolean", types.ErrInvalidLiteral, text)

	case types.Int32:
		i, err := strconv.ParseInt(text, 10, 32)
		if err != nil {
			return types.Value{}, fmt.Errorf("%w: %w", types.ErrInvalidLiteral, err)
		}
		return types.Int32Value(int32(i)), nil

	case types.Int64:
		i, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return types.Value{}, fmt.Errorf("%w: %w", types.ErrInvalidLiteral, err)
		}
		return types.Int64Value(i), nil

	case types.Float32:
		f, err := strconv.ParseFloat(text, 32)
		if err != nil {
			return types.Value{}, fmt.Errorf("%w: %w", types.ErrInvalidLiteral, err)
		}
		return types.Float32Value(float32(f)), nil

	case types.Float64:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return types.Value{}, fmt.Errorf("%w: %w", types.ErrInvalidLiteral, err)
		}
		return types.Float64Value(f), nil

	case types.Text:
		return types.TextValue(text), nil

	default:
		return types.Value{}, fmt.Errorf("%w: %s", types.ErrUnsupportedType, t)
	}
}

// Package types provides the value model shared by the pgtyped client and its decoders.
package types

import (
	"fmt"
	"strconv"
)

// SemanticType is the kind of value the client understands.
type SemanticType int

const (
	// Bool is a PostgreSQL boolean.
	Bool SemanticType = iota + 1
	// Int32 is a PostgreSQL integer (int4).
	Int32
	// Int64 is a PostgreSQL bigint (int8).
	Int64
	// Float32 is a PostgreSQL real (float4).
	Float32
	// Float64 is a PostgreSQL double precision (float8).
	Float64
	// Text is a PostgreSQL text or varchar.
	Text
)

// String returns the lowercase name of the type.
func (t SemanticType) String() string {
	switch t {
	case Bool:
		return "bool"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Text:
		return "text"
	default:
		return fmt.Sprintf("SemanticType(%d)", int(t))
	}
}

// Valid reports whether t is one of the known semantic types.
func (t SemanticType) Valid() bool {
	return t >= Bool && t <= Text
}

// AllTypes lists every semantic type in declaration order.
func AllTypes() []SemanticType {
	return []SemanticType{Bool, Int32, Int64, Float32, Float64, Text}
}

// Value is a nullable, typed cell or parameter.
type Value struct {
	typ   SemanticType
	valid bool
	v     any
}

// Null returns a SQL NULL of the given type.
func Null(t SemanticType) Value {
	return Value{typ: t}
}

// BoolValue wraps a bool.
func BoolValue(b bool) Value { return Value{typ: Bool, valid: true, v: b} }

// Int32Value wraps an int32.
func Int32Value(i int32) Value { return Value{typ: Int32, valid: true, v: i} }

// Int64Value wraps an int64.
func Int64Value(i int64) Value { return Value{typ: Int64, valid: true, v: i} }

// Float32Value wraps a float32.
func Float32Value(f float32) Value { return Value{typ: Float32, valid: true, v: f} }

// Float64Value wraps a float64.
func Float64Value(f float64) Value { return Value{typ: Float64, valid: true, v: f} }

// TextValue wraps a string.
func TextValue(s string) Value { return Value{typ: Text, valid: true, v: s} }

// Type returns the semantic type of the value, including for NULLs.
func (v Value) Type() SemanticType { return v.typ }

// IsNull reports whether the value is SQL NULL.
func (v Value) IsNull() bool { return !v.valid }

// Any returns the underlying Go value, or nil for NULL.
func (v Value) Any() any {
	if !v.valid {
		return nil
	}
	return v.v
}

// Bool returns the boolean and whether the value is a non-null bool.
func (v Value) Bool() (bool, bool) {
	b, ok := v.v.(bool)
	return b, ok && v.valid
}

// Int32 returns the int32 and whether the value is a non-null int32.
func (v Value) Int32() (int32, bool) {
	i, ok := v.v.(int32)
	return i, ok && v.valid
}

// Int64 returns the int64 and whether the value is a non-null int64.
func (v Value) Int64() (int64, bool) {
	i, ok := v.v.(int64)
	return i, ok && v.valid
}

// Float32 returns the float32 and whether the value is a non-null float32.
func (v Value) Float32() (float32, bool) {
	f, ok := v.v.(float32)
	return f, ok && v.valid
}

// Float64 returns the float64 and whether the value is a non-null float64.
func (v Value) Float64() (float64, bool) {
	f, ok := v.v.(float64)
	return f, ok && v.valid
}

// Text returns the string and whether the value is a non-null text.
func (v Value) Text() (string, bool) {
	s, ok := v.v.(string)
	return s, ok && v.valid
}

// String renders the value the way it would be sent as a text parameter.
// NULL renders as "NULL".
func (v Value) String() string {
	if !v.valid {
		return "NULL"
	}
	switch x := v.v.(type) {
	case bool:
		return strconv.FormatBool(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

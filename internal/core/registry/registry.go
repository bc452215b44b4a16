// Package registry maps semantic types to PostgreSQL type OIDs and back.
package registry

import (
	"fmt"

	"github.com/lib/pq/oid"

	"github.com/satishbabariya/pgtyped/pkg/types"
)

// Tag is a server-side type identifier.
type Tag = oid.Oid

// Unknown is the tag of a parameter whose type the server should infer.
const Unknown Tag = 0

var (
	typeToTag = map[types.SemanticType]Tag{
		types.Bool:    oid.T_bool,
		types.Int32:   oid.T_int4,
		types.Int64:   oid.T_int8,
		types.Float32: oid.T_float4,
		types.Float64: oid.T_float8,
		types.Text:    oid.T_text,
	}

	// varchar decodes as text; parameters are always sent as text.
	tagToType = map[Tag]types.SemanticType{
		oid.T_bool:    types.Bool,
		oid.T_int4:    types.Int32,
		oid.T_int8:    types.Int64,
		oid.T_float4:  types.Float32,
		oid.T_float8:  types.Float64,
		oid.T_text:    types.Text,
		oid.T_varchar: types.Text,
	}
)

// TagFor returns the tag for a Go parameter value.
func TagFor(value any) (Tag, error) {
	switch v := value.(type) {
	case bool:
		return oid.T_bool, nil
	case int32:
		return oid.T_int4, nil
	case int64, int:
		return oid.T_int8, nil
	case float32:
		return oid.T_float4, nil
	case float64:
		return oid.T_float8, nil
	case string:
		return oid.T_text, nil
	case types.Value:
		return TagOf(v.Type())
	default:
		return Unknown, fmt.Errorf("%w: %T (%v)", types.ErrUnsupportedParameterType, value, value)
	}
}

// TagOf returns the tag used when sending values of type t.
func TagOf(t types.SemanticType) (Tag, error) {
	tag, ok := typeToTag[t]
	if !ok {
		return Unknown, fmt.Errorf("%w: %s", types.ErrUnsupportedParameterType, t)
	}
	return tag, nil
}

// SemanticTypeFor returns the semantic type of a column tag.
func SemanticTypeFor(tag Tag) (types.SemanticType, error) {
	t, ok := tagToType[tag]
	if !ok {
		return 0, fmt.Errorf("%w: OID %d (%s)", types.ErrUnsupportedType, uint32(tag), Name(tag))
	}
	return t, nil
}

// Name returns the server's name for a tag, or "unknown".
func Name(tag Tag) string {
	if name, ok := oid.TypeName[tag]; ok {
		return name
	}
	return "unknown"
}

// TagForName resolves a server type name such as "INT4" to its tag.
func TagForName(name string) (Tag, bool) {
	tag, ok := nameToTag[name]
	return tag, ok
}

var nameToTag = func() map[string]Tag {
	m := make(map[string]Tag, len(oid.TypeName))
	for tag, name := range oid.TypeName {
		m[name] = tag
	}
	return m
}()

// Package params turns query arguments into type tags and text-format values.
package params

import (
	"fmt"
	"strconv"

	"github.com/satishbabariya/pgtyped/internal/core/registry"
	"github.com/satishbabariya/pgtyped/pkg/types"
)

// Encoded holds the wire form of a parameter list. Values[i] binds to $i+1;
// a nil entry is SQL NULL.
type Encoded struct {
	Tags   []registry.Tag
	Values [][]byte
}

// Len returns the number of parameters.
func (e Encoded) Len() int {
	return len(e.Tags)
}

// Encode resolves the tag of every parameter and renders it as text. It fails
// on the first unsupported parameter, before anything reaches the server.
func Encode(params []any) (Encoded, error) {
	enc := Encoded{
		Tags:   make([]registry.Tag, len(params)),
		Values: make([][]byte, len(params)),
	}

	for i, p := range params {
		tag, err := registry.TagFor(p)
		if err != nil {
			return Encoded{}, fmt.Errorf("parameter $%d: %w", i+1, err)
		}
		enc.Tags[i] = tag
		enc.Values[i] = render(p)
	}

	return enc, nil
}

func render(p any) []byte {
	switch v := p.(type) {
	case bool:
		return []byte(strconv.FormatBool(v))
	case int32:
		return strconv.AppendInt(nil, int64(v), 10)
	case int64:
		return strconv.AppendInt(nil, v, 10)
	case int:
		return strconv.AppendInt(nil, int64(v), 10)
	case float32:
		return strconv.AppendFloat(nil, float64(v), 'g', -1, 32)
	case float64:
		return strconv.AppendFloat(nil, v, 'g', -1, 64)
	case string:
		// empty text must stay distinct from NULL
		return append([]byte{}, v...)
	case types.Value:
		if v.IsNull() {
			return nil
		}
		return []byte(v.String())
	default:
		return nil
	}
}

package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/satishbabariya/pgtyped/pkg/types"
)

// paramLexer tokenizes one command line parameter such as 42, 1.5::float4,
// 'it''s' or null::text.
var paramLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Cast", Pattern: `::`},
	{Name: "String", Pattern: `'(?:[^']|'')*'`},
	{Name: "Float", Pattern: `[-+]?(?:\d+\.\d*|\.\d+)(?:[eE][-+]?\d+)?|[-+]?\d+[eE][-+]?\d+`},
	{Name: "Int", Pattern: `[-+]?\d+`},
	{Name: "Ident", Pattern: `[\p{L}_][\p{L}\p{N}_]*`},
	{Name: "Whitespace", Pattern: `\s+`},
})

type paramLiteral struct {
	Value *paramValue `parser:"@@"`
	Cast  string      `parser:"( Cast @Ident )?"`
}

type paramValue struct {
	String *string `parser:"  @String"`
	Float  *string `parser:"| @Float"`
	Int    *string `parser:"| @Int"`
	Word   *string `parser:"| @Ident"`
}

var paramParser = participle.MustBuild[paramLiteral](
	participle.Lexer(paramLexer),
	participle.Elide("Whitespace"),
)

var castTypes = map[string]types.SemanticType{
	"bool":    types.Bool,
	"boolean": types.Bool,
	"int":     types.Int32,
	"int4":    types.Int32,
	"integer": types.Int32,
	"int8":    types.Int64,
	"bigint":  types.Int64,
	"float4":  types.Float32,
	"real":    types.Float32,
	"float8":  types.Float64,
	"double":  types.Float64,
	"text":    types.Text,
	"varchar": types.Text,
}

// parseParams converts command line parameters to query arguments.
func parseParams(args []string) ([]any, error) {
	params := make([]any, len(args))
	for i, arg := range args {
		p, err := parseParam(arg)
		if err != nil {
			return nil, fmt.Errorf("parameter $%d: %w", i+1, err)
		}
		params[i] = p
	}
	return params, nil
}

// parseParam converts one parameter. Without a cast, integers become int64,
// decimals float64, true and false bool, and anything else text. A parameter
// the grammar rejects is taken verbatim as text unless it contains a cast.
func parseParam(arg string) (any, error) {
	lit, err := paramParser.ParseString("", arg)
	if err != nil {
		if strings.Contains(arg, "::") {
			return nil, fmt.Errorf("invalid parameter %q: %w", arg, err)
		}
		return arg, nil
	}
	if lit.Value == nil {
		return arg, nil
	}

	raw, kind := lit.Value.raw()

	if lit.Cast == "" {
		return untyped(raw, kind)
	}

	t, ok := castTypes[strings.ToLower(lit.Cast)]
	if !ok {
		return nil, fmt.Errorf("unsupported cast ::%s", lit.Cast)
	}

	if kind == "word" && strings.EqualFold(raw, "null") {
		return types.Null(t), nil
	}
	return convert(raw, t)
}

func (v *paramValue) raw() (string, string) {
	switch {
	case v.String != nil:
		s := *v.String
		return strings.ReplaceAll(s[1:len(s)-1], "''", "'"), "string"
	case v.Float != nil:
		return *v.Float, "float"
	case v.Int != nil:
		return *v.Int, "int"
	default:
		return *v.Word, "word"
	}
}

func untyped(raw, kind string) (any, error) {
	switch kind {
	case "int":
		return strconv.ParseInt(raw, 10, 64)
	case "float":
		return strconv.ParseFloat(raw, 64)
	case "word":
		switch strings.ToLower(raw) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		case "null":
			return nil, fmt.Errorf("null needs a type, for example null::text")
		}
	}
	return raw, nil
}

func convert(raw string, t types.SemanticType) (any, error) {
	switch t {
	case types.Bool:
		return strconv.ParseBool(raw)
	case types.Int32:
		i, err := strconv.ParseInt(raw, 10, 32)
		return int32(i), err
	case types.Int64:
		return strconv.ParseInt(raw, 10, 64)
	case types.Float32:
		f, err := strconv.ParseFloat(raw, 32)
		return float32(f), err
	case types.Float64:
		return strconv.ParseFloat(raw, 64)
	default:
		return raw, nil
	}
}

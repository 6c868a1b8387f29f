package host

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// SQLTypeHint tells the host how to bind a parameter value.
type SQLTypeHint string

// Supported type hints. The zero value means "infer from the value".
const (
	TypeText     SQLTypeHint = "text"
	TypeInteger  SQLTypeHint = "integer"
	TypeReal     SQLTypeHint = "real"
	TypeBlob     SQLTypeHint = "blob"
	TypeBoolean  SQLTypeHint = "boolean"
	TypeDatetime SQLTypeHint = "datetime"
	TypeNull     SQLTypeHint = "_null"
)

// TypedParam is a positional statement parameter with an optional type hint.
type TypedParam struct {
	Value    interface{} `json:"value"`
	TypeHint SQLTypeHint `json:"typeHint,omitempty"`
}

// Text builds a TEXT parameter.
func Text(s string) TypedParam { return TypedParam{Value: s, TypeHint: TypeText} }

// Integer builds an INTEGER parameter.
func Integer(i int64) TypedParam { return TypedParam{Value: i, TypeHint: TypeInteger} }

// ParseTypeHint accepts hints case-insensitively, so "INTEGER" and "integer" are equal.
func ParseTypeHint(s string) (SQLTypeHint, error) {
	switch h := SQLTypeHint(strings.ToLower(strings.TrimSpace(s))); h {
	case "", TypeText, TypeInteger, TypeReal, TypeBlob, TypeBoolean, TypeDatetime, TypeNull:
		return h, nil
	case "null":
		return TypeNull, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTypeHint, s)
	}
}

// bindValue converts a parameter into a value the SQL driver accepts.
// A value that does not fit its hint binds as NULL.
func (p TypedParam) bindValue() interface{} {
	v := unwrapValue(p.Value)

	switch p.TypeHint {
	case TypeNull:
		return nil
	case TypeBoolean:
		b, ok := v.(bool)
		if !ok {
			return nil
		}
		if b {
			return int64(1)
		}
		return int64(0)
	case TypeInteger:
		i, ok := asInt64(v)
		if !ok {
			return nil
		}
		return i
	case TypeReal:
		f, ok := asFloat64(v)
		if !ok {
			return nil
		}
		return f
	case TypeText, TypeDatetime, TypeBlob:
		s, ok := v.(string)
		if !ok {
			return nil
		}
		return s
	default:
		return inferValue(v)
	}
}

// unwrapValue accepts both a bare value and the {"value": x} envelope guests send.
func unwrapValue(v interface{}) interface{} {
	if m, ok := v.(map[string]interface{}); ok {
		if inner, ok := m["value"]; ok {
			return inner
		}
	}

	return v
}

func inferValue(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return nil
	case bool:
		if val {
			return int64(1)
		}
		return int64(0)
	case string:
		return val
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return nil
	}

	if i, ok := asInt64(v); ok {
		return i
	}

	if f, ok := asFloat64(v); ok {
		return f
	}

	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}

	return string(b)
}

func asInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint32:
		return int64(n), true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}

func asFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func bindAll(params []TypedParam) []interface{} {
	args := make([]interface{}, 0, len(params))
	for _, p := range params {
		args = append(args, p.bindValue())
	}

	return args
}

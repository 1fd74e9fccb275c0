package value

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/roach88/graphgate/internal/gwerr"
)

// Box converts a raw wire payload into a Value of type t.
// Scalars broadcast into vectors; a scalar color becomes (v, v, v, 1) and a
// 3-component color gets alpha 1. Int conversion truncates toward zero.
func Box(t Type, raw any) (Value, error) {
	v, err := box(t, raw)
	if err != nil {
		return nil, gwerr.Coercion(string(t), err)
	}
	return v, nil
}

func box(t Type, raw any) (Value, error) {
	switch t {
	case TypeFloat:
		f, err := toFloat(raw)
		return Float(f), err
	case TypeInt:
		f, err := toFloat(raw)
		return Int(int64(f)), err
	case TypeBool:
		b, err := toBool(raw)
		return Bool(b), err
	case TypeString:
		return String(toString(raw)), nil
	case TypeColor:
		return boxColor(raw)
	}

	n := t.Arity()
	if n < 2 {
		return nil, fmt.Errorf("unknown value type '%s'", t)
	}
	fs, err := components(raw, n)
	if err != nil {
		return nil, err
	}
	switch t {
	case TypeFloat2:
		return Float2{fs[0], fs[1]}, nil
	case TypeFloat3:
		return Float3{fs[0], fs[1], fs[2]}, nil
	case TypeFloat4:
		return Float4{fs[0], fs[1], fs[2], fs[3]}, nil
	case TypeInt2:
		return Int2{int64(fs[0]), int64(fs[1])}, nil
	case TypeInt3:
		return Int3{int64(fs[0]), int64(fs[1]), int64(fs[2])}, nil
	default:
		return Int4{int64(fs[0]), int64(fs[1]), int64(fs[2]), int64(fs[3])}, nil
	}
}

func boxColor(raw any) (Value, error) {
	if !isList(raw) {
		f, err := toFloat(raw)
		if err != nil {
			return nil, err
		}
		return Color{R: f, G: f, B: f, A: 1}, nil
	}
	fs, err := listFloats(raw)
	if err != nil {
		return nil, err
	}
	if len(fs) < 3 {
		return nil, fmt.Errorf("color needs 3 or 4 components, got %d", len(fs))
	}
	c := Color{R: fs[0], G: fs[1], B: fs[2], A: 1}
	if len(fs) > 3 {
		c.A = fs[3]
	}
	return c, nil
}

// components returns exactly n floats, broadcasting a scalar.
func components(raw any, n int) ([]float64, error) {
	if !isList(raw) {
		f, err := toFloat(raw)
		if err != nil {
			return nil, err
		}
		out := make([]float64, n)
		for i := range out {
			out[i] = f
		}
		return out, nil
	}
	fs, err := listFloats(raw)
	if err != nil {
		return nil, err
	}
	if len(fs) < n {
		return nil, fmt.Errorf("need %d components, got %d", n, len(fs))
	}
	return fs[:n], nil
}

func listFloats(raw any) ([]float64, error) {
	switch v := raw.(type) {
	case []float64:
		return v, nil
	case []int:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, nil
	case []any:
		out := make([]float64, len(v))
		for i, x := range v {
			f, err := toFloat(x)
			if err != nil {
				return nil, fmt.Errorf("component %d: %w", i, err)
			}
			out[i] = f
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected a list, got %T", raw)
}

func toFloat(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", v)
		}
		return f, nil
	}
	return 0, fmt.Errorf("not a number: %T", raw)
}

func toBool(raw any) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		return strconv.ParseBool(v)
	}
	f, err := toFloat(raw)
	if err != nil {
		return false, err
	}
	return f != 0, nil
}

func toString(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return fmt.Sprint(raw)
}

// Plain converts a Value back to a plain JSON-friendly form:
// scalars as numbers/bools/strings, vectors and colors as float lists.
func Plain(v Value) any {
	switch x := v.(type) {
	case Float:
		return Finite(float64(x))
	case Int:
		return int64(x)
	case Bool:
		return bool(x)
	case String:
		return string(x)
	case Float2:
		return Floats(x[:])
	case Float3:
		return Floats(x[:])
	case Float4:
		return Floats(x[:])
	case Int2:
		return x[:]
	case Int3:
		return x[:]
	case Int4:
		return x[:]
	case Color:
		return Floats{x.R, x.G, x.B, x.A}
	}
	return nil
}

package value

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Type identifies a host primitive.
type Type string

const (
	TypeFloat  Type = "float"
	TypeInt    Type = "int"
	TypeBool   Type = "bool"
	TypeString Type = "string"
	TypeFloat2 Type = "float2"
	TypeFloat3 Type = "float3"
	TypeFloat4 Type = "float4"
	TypeInt2   Type = "int2"
	TypeInt3   Type = "int3"
	TypeInt4   Type = "int4"
	TypeColor  Type = "color"
)

// AllTypes lists every primitive in declaration order.
var AllTypes = []Type{
	TypeFloat, TypeInt, TypeBool, TypeString,
	TypeFloat2, TypeFloat3, TypeFloat4,
	TypeInt2, TypeInt3, TypeInt4,
	TypeColor,
}

// ParseType parses a type name case-insensitively.
// "colorrgba" is accepted as an alias of color.
func ParseType(s string) (Type, error) {
	t := strings.ToLower(strings.TrimSpace(s))
	if t == "colorrgba" {
		return TypeColor, nil
	}
	for _, known := range AllTypes {
		if Type(t) == known {
			return known, nil
		}
	}
	names := make([]string, len(AllTypes))
	for i, known := range AllTypes {
		names[i] = string(known)
	}
	return "", fmt.Errorf("unknown value type '%s'. Valid: %s", s, strings.Join(names, ", "))
}

// Arity returns the number of components for vector types, 1 for scalars.
func (t Type) Arity() int {
	switch t {
	case TypeFloat2, TypeInt2:
		return 2
	case TypeFloat3, TypeInt3:
		return 3
	case TypeFloat4, TypeInt4, TypeColor:
		return 4
	default:
		return 1
	}
}

// Value is a sealed interface over the host primitives.
// Only the types declared in this file implement it.
type Value interface {
	Type() Type
	value()
}

type (
	Float  float64
	Int    int64
	Bool   bool
	String string
	Float2 [2]float64
	Float3 [3]float64
	Float4 [4]float64
	Int2   [2]int64
	Int3   [3]int64
	Int4   [4]int64
)

// Color is an RGBA color with float channels.
type Color struct {
	R, G, B, A float64
}

func (Float) Type() Type  { return TypeFloat }
func (Int) Type() Type    { return TypeInt }
func (Bool) Type() Type   { return TypeBool }
func (String) Type() Type { return TypeString }
func (Float2) Type() Type { return TypeFloat2 }
func (Float3) Type() Type { return TypeFloat3 }
func (Float4) Type() Type { return TypeFloat4 }
func (Int2) Type() Type   { return TypeInt2 }
func (Int3) Type() Type   { return TypeInt3 }
func (Int4) Type() Type   { return TypeInt4 }
func (Color) Type() Type  { return TypeColor }

func (Float) value()  {}
func (Int) value()    {}
func (Bool) value()   {}
func (String) value() {}
func (Float2) value() {}
func (Float3) value() {}
func (Float4) value() {}
func (Int2) value()   {}
func (Int3) value()   {}
func (Int4) value()   {}
func (Color) value()  {}

// Finite maps a float to something encoding/json accepts.
// +Inf and -Inf become ±1e308; NaN becomes nil (JSON null).
func Finite(f float64) any {
	switch {
	case math.IsNaN(f):
		return nil
	case math.IsInf(f, 1):
		return 1e308
	case math.IsInf(f, -1):
		return -1e308
	default:
		return f
	}
}

// Floats is a float slice that encodes with Finite applied to each element.
// Used for positions and other plain numeric lists in responses.
type Floats []float64

// MarshalJSON implements json.Marshaler.
func (fs Floats) MarshalJSON() ([]byte, error) {
	out := make([]any, len(fs))
	for i, f := range fs {
		out[i] = Finite(f)
	}
	return json.Marshal(out)
}

// MarshalJSON implements json.Marshaler.
func (f Float) MarshalJSON() ([]byte, error) {
	return json.Marshal(Finite(float64(f)))
}

var axes = [...]string{"x", "y", "z", "w"}

func floatAxes(vs []float64) map[string]any {
	m := make(map[string]any, len(vs))
	for i, v := range vs {
		m[axes[i]] = Finite(v)
	}
	return m
}

func intAxes(vs []int64) map[string]any {
	m := make(map[string]any, len(vs))
	for i, v := range vs {
		m[axes[i]] = v
	}
	return m
}

// MarshalJSON encodes vectors as {"x":..,"y":..} objects.
func (v Float2) MarshalJSON() ([]byte, error) { return json.Marshal(floatAxes(v[:])) }

// MarshalJSON encodes vectors as {"x":..,"y":..,"z":..} objects.
func (v Float3) MarshalJSON() ([]byte, error) { return json.Marshal(floatAxes(v[:])) }

// MarshalJSON encodes vectors as {"x":..,"y":..,"z":..,"w":..} objects.
func (v Float4) MarshalJSON() ([]byte, error) { return json.Marshal(floatAxes(v[:])) }

func (v Int2) MarshalJSON() ([]byte, error) { return json.Marshal(intAxes(v[:])) }
func (v Int3) MarshalJSON() ([]byte, error) { return json.Marshal(intAxes(v[:])) }
func (v Int4) MarshalJSON() ([]byte, error) { return json.Marshal(intAxes(v[:])) }

// MarshalJSON encodes colors as {"r":..,"g":..,"b":..,"a":..}.
func (c Color) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"r": Finite(c.R),
		"g": Finite(c.G),
		"b": Finite(c.B),
		"a": Finite(c.A),
	})
}

// Zero returns the zero value of a type.
func Zero(t Type) Value {
	switch t {
	case TypeInt:
		return Int(0)
	case TypeBool:
		return Bool(false)
	case TypeString:
		return String("")
	case TypeFloat2:
		return Float2{}
	case TypeFloat3:
		return Float3{}
	case TypeFloat4:
		return Float4{}
	case TypeInt2:
		return Int2{}
	case TypeInt3:
		return Int3{}
	case TypeInt4:
		return Int4{}
	case TypeColor:
		return Color{A: 1}
	default:
		return Float(0)
	}
}

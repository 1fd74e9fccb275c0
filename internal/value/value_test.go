package value

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/graphgate/internal/gwerr"
)

func TestInferTypeBareIntegerIsFloat(t *testing.T) {
	assert.Equal(t, TypeFloat, InferType(7))
	assert.Equal(t, TypeFloat, InferType(float64(7)))
	assert.Equal(t, TypeFloat, InferType(json.Number("7")))
}

func TestInferEnvelopeOverrides(t *testing.T) {
	typ, payload := Infer(map[string]any{"value": float64(7), "type": "int"})
	assert.Equal(t, TypeInt, typ)
	assert.Equal(t, float64(7), payload)

	assert.Equal(t, TypeInt, InferType(map[string]any{"value": 7, "type": "int"}))
}

func TestInferEnvelopeWithoutTypeInfersPayload(t *testing.T) {
	typ, payload := Infer(map[string]any{"value": []any{1.0, 2.0}})
	assert.Equal(t, TypeFloat2, typ)
	assert.Equal(t, []any{1.0, 2.0}, payload)
}

func TestInferShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want Type
	}{
		{"bool", true, TypeBool},
		{"string", "hello", TypeString},
		{"pair", []any{1.0, 2.0}, TypeFloat2},
		{"triple", []any{1.0, 2.0, 3.0}, TypeFloat3},
		{"quad", []any{1.0, 2.0, 3.0, 4.0}, TypeFloat4},
		{"five elements fall back to float", []any{1.0, 2.0, 3.0, 4.0, 5.0}, TypeFloat},
		{"nil", nil, TypeFloat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferType(tt.raw))
		})
	}
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		name      string
		inferred  Type
		raw       any
		authority string
		want      Type
	}{
		{"empty authority keeps inference", TypeFloat, 1.0, "", TypeFloat},
		{"primitive int wins", TypeFloat, 1.0, "int", TypeInt},
		{"primitive float wins over bool", TypeBool, true, "float", TypeFloat},
		{"case insensitive", TypeFloat2, []any{1.0, 2.0}, "Int2", TypeInt2},
		{"colorrgba", TypeFloat4, []any{1.0, 0.0, 0.0, 1.0}, "colorrgba", TypeColor},
		{"colorrgb", TypeFloat, 0.5, "colorrgb", TypeFloat3},
		{"enum scalar to int", TypeFloat, 3.0, "sbs::compositing::blendingmode", TypeInt},
		{"enum keeps vectors", TypeFloat2, []any{1.0, 2.0}, "sbs::compositing::format", TypeFloat2},
		{"int-named scalar", TypeFloat, 2.0, "uint", TypeInt},
		{"int-named vector", TypeFloat4, []any{1.0, 2.0, 3.0, 4.0}, "intvector4", TypeInt4},
		{"int-named triple", TypeFloat3, []any{1.0, 2.0, 3.0}, "intvector3", TypeInt3},
		{"float mention blocks int coercion", TypeFloat, 2.0, "floatint", TypeFloat},
		{"unknown authority keeps inference", TypeString, "x", "texture", TypeString},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Coerce(tt.inferred, tt.raw, tt.authority))
		})
	}
}

func TestBoxBroadcastsScalars(t *testing.T) {
	v, err := Box(TypeFloat3, 0.5)
	require.NoError(t, err)
	assert.Equal(t, Float3{0.5, 0.5, 0.5}, v)

	v, err = Box(TypeInt2, 2048.0)
	require.NoError(t, err)
	assert.Equal(t, Int2{2048, 2048}, v)
}

func TestBoxColor(t *testing.T) {
	v, err := Box(TypeColor, 0.25)
	require.NoError(t, err)
	assert.Equal(t, Color{R: 0.25, G: 0.25, B: 0.25, A: 1}, v)

	v, err = Box(TypeColor, []any{1.0, 0.5, 0.0})
	require.NoError(t, err)
	assert.Equal(t, Color{R: 1, G: 0.5, B: 0, A: 1}, v)

	v, err = Box(TypeColor, []any{1.0, 0.5, 0.0, 0.2})
	require.NoError(t, err)
	assert.Equal(t, Color{R: 1, G: 0.5, B: 0, A: 0.2}, v)
}

func TestBoxIntTruncates(t *testing.T) {
	v, err := Box(TypeInt, 2.9)
	require.NoError(t, err)
	assert.Equal(t, Int(2), v)

	v, err = Box(TypeInt, -2.9)
	require.NoError(t, err)
	assert.Equal(t, Int(-2), v)
}

func TestBoxFailureIsCoercionError(t *testing.T) {
	_, err := Box(TypeFloat, "not a number")
	require.Error(t, err)
	assert.Equal(t, gwerr.CodeCoercion, gwerr.CodeOf(err))

	_, err = Box(TypeFloat3, []any{1.0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "need 3 components")
}

func TestParseType(t *testing.T) {
	typ, err := ParseType("ColorRGBA")
	require.NoError(t, err)
	assert.Equal(t, TypeColor, typ)

	_, err = ParseType("float5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Valid: float, int, bool")
}

func TestFinite(t *testing.T) {
	assert.Nil(t, Finite(math.NaN()))
	assert.Equal(t, 1e308, Finite(math.Inf(1)))
	assert.Equal(t, -1e308, Finite(math.Inf(-1)))
	assert.Equal(t, 0.5, Finite(0.5))
}

func TestValueJSON(t *testing.T) {
	data, err := json.Marshal(Float2{1, math.Inf(1)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":1,"y":1e308}`, string(data))

	data, err = json.Marshal(Color{R: 1, G: 0, B: 0, A: math.NaN()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"r":1,"g":0,"b":0,"a":null}`, string(data))

	data, err = json.Marshal(Floats{1, math.Inf(-1)})
	require.NoError(t, err)
	assert.Equal(t, `[1,-1e+308]`, string(data))
}

func TestPlain(t *testing.T) {
	assert.Equal(t, int64(3), Plain(Int(3)))
	assert.Equal(t, Floats{1, 0, 0, 1}, Plain(Color{R: 1, A: 1}))
	assert.Equal(t, []int64{4, 5}, Plain(Int2{4, 5}))
}

package value

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalSortsKeys(t *testing.T) {
	data, err := MarshalCanonical(map[string]any{"b": 1, "a": "x", "c": []any{true, nil}})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x","b":1,"c":[true,null]}`, string(data))
}

func TestMarshalCanonicalRawMessage(t *testing.T) {
	raw := json.RawMessage(`{"z": 1.5, "a": {"y": 2, "x": "<&>"}}`)
	data, err := MarshalCanonical(raw)
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"x":"<&>","y":2},"z":1.5}`, string(data))
}

func TestMarshalCanonicalEmptyRaw(t *testing.T) {
	data, err := MarshalCanonical(json.RawMessage(nil))
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))
}

func TestMarshalCanonicalUTF16Order(t *testing.T) {
	// U+E000 sorts after U+1F600 in UTF-8 byte order but before it in UTF-16.
	data, err := MarshalCanonical(map[string]any{"\U0001F600": 1, "\uE000": 2})
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":1,\"\uE000\":2}", string(data))
}

func TestMarshalCanonicalNFC(t *testing.T) {
	data, err := MarshalCanonical("e\u0301")
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(data))
}

func TestMarshalCanonicalLineSeparators(t *testing.T) {
	data, err := MarshalCanonical("a\u2028b")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\"", string(data))

	data, err = MarshalCanonical(`a\u2028b`)
	require.NoError(t, err)
	assert.Equal(t, `"a\\u2028b"`, string(data))
}

func TestDigestStable(t *testing.T) {
	a, err := Digest(DomainParams, json.RawMessage(`{"a":1,"b":2}`))
	require.NoError(t, err)
	b, err := Digest(DomainParams, json.RawMessage(`{"b":2, "a":1}`))
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

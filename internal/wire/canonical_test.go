package wire

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_SortsKeys(t *testing.T) {
	data, err := MarshalCanonical(map[string]any{
		"step":   1,
		"method": "greet",
		"args":   []any{map[string]any{"b": true, "a": nil}},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"args":[{"a":null,"b":true}],"method":"greet","step":1}`, string(data))
}

func TestMarshalCanonical_NoHTMLEscaping(t *testing.T) {
	data, err := MarshalCanonical("<a&b>")
	require.NoError(t, err)
	assert.Equal(t, `"<a&b>"`, string(data))
}

func TestMarshalCanonical_LineSeparatorsStayLiteral(t *testing.T) {
	data, err := MarshalCanonical("a\u2028b\u2029c")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029c\"", string(data))

	// An escaped backslash followed by the text u2028 is not a separator.
	data, err = MarshalCanonical(`x\u2028`)
	require.NoError(t, err)
	assert.Equal(t, `"x\\u2028"`, string(data))
}

func TestMarshalCanonical_NFCNormalization(t *testing.T) {
	data, err := MarshalCanonical("e\u0301")
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(data))
}

func TestMarshalCanonical_UTF16KeyOrder(t *testing.T) {
	// U+FF61 sorts before U+1F600 in UTF-8 but after it in UTF-16.
	data, err := MarshalCanonical(map[string]any{"\U0001F600": 1, "\uFF61": 2})
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":1,\"\uFF61\":2}", string(data))
}

func TestMarshalCanonical_Numbers(t *testing.T) {
	data, err := MarshalCanonical([]any{json.Number("12"), int64(-3), 7})
	require.NoError(t, err)
	assert.Equal(t, `[12,-3,7]`, string(data))

	_, err = MarshalCanonical(1.5)
	assert.Error(t, err)

	_, err = MarshalCanonical(json.Number("1.5"))
	assert.Error(t, err)
}

func TestMarshalCanonical_RawMessage(t *testing.T) {
	data, err := MarshalCanonical(json.RawMessage(`{"z": 1, "a": [true]}`))
	require.NoError(t, err)
	assert.Equal(t, `{"a":[true],"z":1}`, string(data))
}

func TestMarshalCanonical_UnsupportedType(t *testing.T) {
	_, err := MarshalCanonical(struct{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported type")
}

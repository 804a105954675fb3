package wire

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greetRequest struct {
	Name string `json:"name"`
}

func TestNewEnvelope_RoundTrip(t *testing.T) {
	env, err := NewEnvelope("greet", greetRequest{Name: "Wizard"}, 3)
	require.NoError(t, err)

	body, err := env.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"method":"greet","args":[{"name":"Wizard"},3]}`, string(body))

	decoded, err := DecodeEnvelope(body)
	require.NoError(t, err)
	assert.Equal(t, "greet", decoded.Method)
	require.Len(t, decoded.Args, 2)

	var req greetRequest
	require.NoError(t, decoded.Arg(0, &req))
	assert.Equal(t, "Wizard", req.Name)

	var n int
	require.NoError(t, decoded.Arg(1, &n))
	assert.Equal(t, 3, n)
}

func TestNewEnvelope_NoArgsEncodesEmptyArray(t *testing.T) {
	env, err := NewEnvelope("ping")
	require.NoError(t, err)

	body, err := env.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"method":"ping","args":[]}`, string(body))
}

func TestNewEnvelope_EmptyMethod(t *testing.T) {
	_, err := NewEnvelope("")
	assert.ErrorIs(t, err, ErrMissingMethod)
}

func TestNewEnvelope_UnencodableArg(t *testing.T) {
	_, err := NewEnvelope("greet", make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encode arg 0 of greet")
}

func TestDecodeEnvelope_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{"not json", "hello", ErrNotEnvelope},
		{"json array", `[1,2]`, ErrNotEnvelope},
		{"missing method", `{"args":[]}`, ErrMissingMethod},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeEnvelope([]byte(tt.body))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestEnvelope_ArgOutOfRange(t *testing.T) {
	env := Envelope{Method: "greet"}
	err := env.Arg(0, new(string))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestEnvelope_ValueKeepsNumbers(t *testing.T) {
	env := Envelope{Method: "pay", Args: []json.RawMessage{json.RawMessage(`{"amount":9007199254740993}`)}}

	v, err := env.Value()
	require.NoError(t, err)

	args := v["args"].([]any)
	arg := args[0].(map[string]any)
	assert.Equal(t, json.Number("9007199254740993"), arg["amount"])
}

func TestDecodeJSON(t *testing.T) {
	v, err := DecodeJSON([]byte(` {"n": 1} `))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"n": json.Number("1")}, v)

	for _, input := range []string{`1}`, `"x"]`, `1 2`, `{} {}`, ``, `{`} {
		t.Run(input, func(t *testing.T) {
			_, err := DecodeJSON([]byte(input))
			assert.Error(t, err)
		})
	}
}

func TestOutcallURL(t *testing.T) {
	assert.Equal(t, "http://localhost:6969/greet", OutcallURL("greet"))
}

func TestCanonicalResultPayloads(t *testing.T) {
	ok, err := EncodeOk(map[string]string{"message": "hi"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":{"message":"hi"}}`, string(ok))

	assert.JSONEq(t, `{"err":"boom"}`, string(EncodeErr("boom")))
}

func TestRejectError(t *testing.T) {
	err := &RejectError{Code: RejectSysFatal, Message: "boom"}
	assert.Equal(t, "outcall rejected (SYS_FATAL): boom", err.Error())
	assert.Equal(t, "REJECT_9", RejectCode(9).String())
}

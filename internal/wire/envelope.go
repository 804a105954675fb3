package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// DefaultBaseURL is the address stubs send intercepted calls to.
// Nothing listens on it; the environment holds the request until a response
// is injected.
const DefaultBaseURL = "http://localhost:6969"

var (
	// ErrNotEnvelope is returned when a request body is not a JSON envelope.
	ErrNotEnvelope = errors.New("body is not a request envelope")

	// ErrMissingMethod is returned when an envelope has no method name.
	ErrMissingMethod = errors.New("envelope method is empty")
)

// Envelope is the body of an intercepted outbound call.
type Envelope struct {
	// Method names the remote method being called.
	Method string `json:"method"`

	// Args holds each argument's JSON encoding, in call order.
	Args []json.RawMessage `json:"args"`
}

// NewEnvelope encodes args into an envelope for method.
func NewEnvelope(method string, args ...any) (Envelope, error) {
	if method == "" {
		return Envelope{}, ErrMissingMethod
	}

	env := Envelope{Method: method, Args: make([]json.RawMessage, 0, len(args))}
	for i, arg := range args {
		data, err := json.Marshal(arg)
		if err != nil {
			return Envelope{}, fmt.Errorf("encode arg %d of %s: %w", i, method, err)
		}
		env.Args = append(env.Args, data)
	}
	return env, nil
}

// DecodeEnvelope parses a request body into an envelope.
func DecodeEnvelope(body []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrNotEnvelope, err)
	}
	if env.Method == "" {
		return Envelope{}, ErrMissingMethod
	}
	return env, nil
}

// Encode returns the JSON body for the envelope.
func (e Envelope) Encode() ([]byte, error) {
	if e.Method == "" {
		return nil, ErrMissingMethod
	}
	args := e.Args
	if args == nil {
		args = []json.RawMessage{}
	}
	return json.Marshal(Envelope{Method: e.Method, Args: args})
}

// Arg decodes the i-th argument into v.
func (e Envelope) Arg(i int, v any) error {
	if i < 0 || i >= len(e.Args) {
		return fmt.Errorf("%s: arg %d out of range (have %d)", e.Method, i, len(e.Args))
	}
	if err := json.Unmarshal(e.Args[i], v); err != nil {
		return fmt.Errorf("%s: decode arg %d: %w", e.Method, i, err)
	}
	return nil
}

// Value returns the envelope as generic JSON values, with numbers kept as
// json.Number. Useful for subset matching and canonical snapshots.
func (e Envelope) Value() (map[string]any, error) {
	args := make([]any, len(e.Args))
	for i, raw := range e.Args {
		v, err := DecodeJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: arg %d: %w", e.Method, i, err)
		}
		args[i] = v
	}
	return map[string]any{"method": e.Method, "args": args}, nil
}

// OutcallURL returns the URL a stub posts the envelope for method to.
func OutcallURL(method string) string {
	return strings.TrimSuffix(DefaultBaseURL, "/") + "/" + method
}

// DecodeJSON decodes data into generic values, keeping numbers as json.Number
// so large integers survive untouched.
func DecodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}
	return v, nil
}

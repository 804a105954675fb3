// Package stub is the runtime behind mock-friendly client stubs.
//
// A stub turns a call to a remote method into an outbound HTTP request whose
// body is a wire.Envelope, posted to wire.OutcallURL(method). Under test the
// environment holds the request and the mocker answers it; the stub only sees
// an HTTP reply or a rejection.
package stub

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/asyncmock/internal/wire"
)

// Outcaller issues one outbound HTTP request and blocks until it is answered.
// *sim.Context implements it.
type Outcaller interface {
	HTTPRequest(req wire.OutcallRequest) (wire.HTTPReply, error)
}

// StatusError is returned when the reply status is not 2xx.
type StatusError struct {
	Method string
	Status int
	Body   []byte
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Method, e.Status, e.Body)
}

// Call invokes method with args and decodes the reply body as T.
// A rejected request returns the *wire.RejectError unchanged.
func Call[T any](oc Outcaller, method string, args ...any) (T, error) {
	req, err := Request(method, args...)
	if err != nil {
		var zero T
		return zero, err
	}
	reply, err := oc.HTTPRequest(req)
	return Decode[T](method, reply, err)
}

// Do invokes method with args and returns the raw reply body.
func Do(oc Outcaller, method string, args ...any) ([]byte, error) {
	req, err := Request(method, args...)
	if err != nil {
		return nil, err
	}
	reply, err := oc.HTTPRequest(req)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(method, reply); err != nil {
		return nil, err
	}
	return reply.Body, nil
}

// Decode turns the answer to a request built by Request into T. It is the
// second half of Call, for callers that issue requests themselves, e.g. in
// parallel.
func Decode[T any](method string, reply wire.HTTPReply, err error) (T, error) {
	var out T
	if err != nil {
		return out, err
	}
	if err := checkStatus(method, reply); err != nil {
		return out, err
	}
	if err := json.Unmarshal(reply.Body, &out); err != nil {
		return out, fmt.Errorf("%s: decode reply: %w", method, err)
	}
	return out, nil
}

func checkStatus(method string, reply wire.HTTPReply) error {
	if reply.Status < 200 || reply.Status > 299 {
		return &StatusError{Method: method, Status: reply.Status, Body: reply.Body}
	}
	return nil
}

// Request builds the outbound request for a call to method.
func Request(method string, args ...any) (wire.OutcallRequest, error) {
	env, err := wire.NewEnvelope(method, args...)
	if err != nil {
		return wire.OutcallRequest{}, err
	}
	body, err := env.Encode()
	if err != nil {
		return wire.OutcallRequest{}, err
	}
	return wire.OutcallRequest{
		URL:        wire.OutcallURL(method),
		HTTPMethod: "POST",
		Headers:    []wire.Header{{Name: "Content-Type", Value: "application/json"}},
		Body:       body,
	}, nil
}

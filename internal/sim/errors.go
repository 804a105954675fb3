package sim

import (
	"errors"
	"fmt"

	"github.com/roach88/asyncmock/internal/wire"
)

var (
	// ErrMethodNotFound is returned when a call names a method that is not installed.
	ErrMethodNotFound = errors.New("method not found")

	// ErrUnknownCall is returned when awaiting a call id the Env never issued.
	ErrUnknownCall = errors.New("unknown call")

	// ErrUnknownRequest is returned when a response addresses no pending request.
	ErrUnknownRequest = errors.New("no pending request")

	// ErrNotCompleted is returned by AwaitCallNoTicks for a call still in flight.
	ErrNotCompleted = errors.New("call has not completed")

	// ErrAwaitTimeout is returned when a call does not complete within the
	// watchdog's tick budget.
	ErrAwaitTimeout = errors.New("call did not complete")

	// ErrClosed is returned by operations on a closed Env.
	ErrClosed = errors.New("environment closed")
)

// CallError is how a call that did not return a reply completes.
type CallError struct {
	// Code classifies the failure.
	Code wire.RejectCode

	// Method is the called method.
	Method string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *CallError) Error() string {
	return fmt.Sprintf("call to %s rejected (%s): %s", e.Method, e.Code, e.Message)
}

// Reject returns an error a Handler can return to reject its call explicitly
// with wire.RejectCanisterReject.
func Reject(message string) error {
	return &CallError{Code: wire.RejectCanisterReject, Message: message}
}

// IsCallError returns true if err is a CallError.
// Uses errors.As to handle wrapped errors.
func IsCallError(err error) bool {
	var ce *CallError
	return errors.As(err, &ce)
}

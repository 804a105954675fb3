package mocker

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingCall is returned when executing a Mocker with no call set.
	ErrMissingCall = errors.New("no call registered: use Call or WithCall before executing")

	// ErrAlreadyExecuted is returned when a Mocker is executed a second time.
	ErrAlreadyExecuted = errors.New("mocker already executed: build a new one per call")

	// ErrCallAlreadySet is returned when Call or WithCall is used twice.
	ErrCallAlreadySet = errors.New("call already registered")
)

// ErrorCode categorizes execution failures.
type ErrorCode string

const (
	// ErrCodeUsage indicates the Mocker was misconfigured or reused.
	ErrCodeUsage ErrorCode = "USAGE"

	// ErrCodeAssertionFailed indicates a checker rejected an observed request.
	ErrCodeAssertionFailed ErrorCode = "ASSERTION_FAILED"

	// ErrCodeUnmetExpectations indicates rules were left unmatched.
	ErrCodeUnmetExpectations ErrorCode = "UNMET_EXPECTATIONS"

	// ErrCodeEnvironment indicates the environment failed the call itself.
	ErrCodeEnvironment ErrorCode = "ENVIRONMENT"

	// ErrCodeDecode indicates the call's result could not be decoded.
	ErrCodeDecode ErrorCode = "DECODE"

	// ErrCodeCallError indicates the call returned a canonical {"err": ...} result.
	ErrCodeCallError ErrorCode = "CALL_ERROR"

	// ErrCodeInvalidResponse indicates a rule produced a reply that cannot be sent.
	ErrCodeInvalidResponse ErrorCode = "INVALID_RESPONSE"
)

// Error is the failure returned by Execute and ExecuteNoTicks.
//
// Error() returns Message. For ErrCodeEnvironment the message is the
// environment's own error text and Err holds the original error; for
// ErrCodeCallError it is exactly the call's error string.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Method is the request method involved (assertion and response failures).
	Method string

	// Unmatched lists method names whose rules never matched,
	// responders first, then expectations, each in registration order.
	Unmatched []string

	// Steps is how many steps the driver ran.
	Steps int

	// MaxSteps is the driver's step budget.
	MaxSteps int

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Exhausted reports whether the driver used its whole step budget.
func (e *Error) Exhausted() bool {
	return e.Steps >= e.MaxSteps
}

func newUsageError(err error) *Error {
	return &Error{Code: ErrCodeUsage, Message: "usage error: " + err.Error(), Err: err}
}

func newAssertionError(method string, err error) *Error {
	return &Error{
		Code:    ErrCodeAssertionFailed,
		Message: fmt.Sprintf("assertion failed for %s: %v", method, err),
		Method:  method,
		Err:     err,
	}
}

func newInvalidResponseError(method string, err error) *Error {
	return &Error{
		Code:    ErrCodeInvalidResponse,
		Message: fmt.Sprintf("invalid response for %s: %v", method, err),
		Method:  method,
		Err:     err,
	}
}

func newEnvironmentError(err error) *Error {
	return &Error{Code: ErrCodeEnvironment, Message: err.Error(), Err: err}
}

func newUnmetError(unmatched []string) *Error {
	return &Error{
		Code:      ErrCodeUnmetExpectations,
		Message:   "unmet expectations: " + strings.Join(unmatched, ", "),
		Unmatched: unmatched,
	}
}

func newDecodeError(err error, steps int, exhausted bool, unmatched []string) *Error {
	msg := "decode error: " + err.Error()
	if exhausted {
		msg += fmt.Sprintf("; note: exhausted %d steps before await", steps)
		if len(unmatched) > 0 {
			msg += " with unmatched rules: " + strings.Join(unmatched, ", ")
		}
	}
	return &Error{Code: ErrCodeDecode, Message: msg, Unmatched: unmatched, Err: err}
}

func newCallError(message string) *Error {
	return &Error{Code: ErrCodeCallError, Message: message}
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsUsageError returns true if err is a usage error.
func IsUsageError(err error) bool { return hasCode(err, ErrCodeUsage) }

// IsAssertionError returns true if a checker rejected a request.
func IsAssertionError(err error) bool { return hasCode(err, ErrCodeAssertionFailed) }

// IsUnmetError returns true if rules were left unmatched.
func IsUnmetError(err error) bool { return hasCode(err, ErrCodeUnmetExpectations) }

// IsEnvironmentError returns true if the environment failed the call.
func IsEnvironmentError(err error) bool { return hasCode(err, ErrCodeEnvironment) }

// IsDecodeError returns true if the result could not be decoded.
func IsDecodeError(err error) bool { return hasCode(err, ErrCodeDecode) }

// IsCallError returns true if the call returned a canonical error result.
func IsCallError(err error) bool { return hasCode(err, ErrCodeCallError) }

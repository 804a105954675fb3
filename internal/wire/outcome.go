package wire

import "fmt"

// RejectCode classifies why a request or call was rejected.
type RejectCode uint8

const (
	// RejectSysFatal is a fatal system error. Used by mock failures.
	RejectSysFatal RejectCode = 1

	// RejectSysTransient is a transient system error, e.g. an outcall nobody answered.
	RejectSysTransient RejectCode = 2

	// RejectDestinationInvalid means the called method does not exist.
	RejectDestinationInvalid RejectCode = 3

	// RejectCanisterReject means the callee explicitly rejected the call.
	RejectCanisterReject RejectCode = 4

	// RejectCanisterError means the callee returned an error or trapped.
	RejectCanisterError RejectCode = 5
)

// String returns the conventional name of the code.
func (c RejectCode) String() string {
	switch c {
	case RejectSysFatal:
		return "SYS_FATAL"
	case RejectSysTransient:
		return "SYS_TRANSIENT"
	case RejectDestinationInvalid:
		return "DESTINATION_INVALID"
	case RejectCanisterReject:
		return "CANISTER_REJECT"
	case RejectCanisterError:
		return "CANISTER_ERROR"
	default:
		return fmt.Sprintf("REJECT_%d", uint8(c))
	}
}

// Outcome is what a response rule decides for an intercepted request.
// The only implementations are Reply and Reject.
type Outcome interface {
	outcome()
}

// Reply answers the request successfully. Value is encoded as the JSON body;
// a json.RawMessage is sent as-is.
type Reply struct {
	Value any
}

// Reject fails the request with a reject code and message.
type Reject struct {
	Code    RejectCode
	Message string
}

func (Reply) outcome()  {}
func (Reject) outcome() {}

// RejectError is the error a stub returns when its outbound request was rejected.
type RejectError struct {
	Code    RejectCode
	Message string
}

// Error implements the error interface.
func (e *RejectError) Error() string {
	return fmt.Sprintf("outcall rejected (%s): %s", e.Code, e.Message)
}

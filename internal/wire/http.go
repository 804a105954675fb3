package wire

// CallID identifies a call submitted to an environment.
type CallID uint64

// Header is a single HTTP header.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// OutcallRequest is an outbound HTTP request issued by the system under test.
type OutcallRequest struct {
	URL        string
	HTTPMethod string
	Headers    []Header
	Body       []byte
}

// PendingRequest is an outbound request the environment is holding until a
// response is injected for it.
type PendingRequest struct {
	// CorrelationID identifies the request within the environment.
	CorrelationID string

	// Partition is the subnet/partition tag the request was issued from.
	// It must be echoed back when injecting a response.
	Partition string

	URL        string
	HTTPMethod string
	Headers    []Header
	Body       []byte
}

// HTTPResponse is what an environment delivers back to a pending request.
// The only implementations are HTTPReply and HTTPReject.
type HTTPResponse interface {
	httpResponse()
}

// HTTPReply is a completed HTTP response.
type HTTPReply struct {
	Status  int
	Headers []Header
	Body    []byte
}

// HTTPReject fails the request before any HTTP response exists.
type HTTPReject struct {
	Code    RejectCode
	Message string
}

func (HTTPReply) httpResponse()  {}
func (HTTPReject) httpResponse() {}

// MockResponse addresses a response to one pending request.
type MockResponse struct {
	CorrelationID string
	Partition     string
	Response      HTTPResponse
}

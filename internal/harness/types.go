package harness

// TraceEvent is one interaction as it appears in a scenario trace.
type TraceEvent struct {
	Step          int    `json:"step"`
	Kind          string `json:"kind"`
	Method        string `json:"method"`
	CorrelationID string `json:"correlation_id"`

	// Args are the request's decoded arguments.
	Args []any `json:"args"`

	// Response is the injected reply value (replied only).
	Response any `json:"response,omitempty"`

	RejectCode int    `json:"reject_code,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Output is what the call produced.
type Output struct {
	// Value is the decoded result on success.
	Value any `json:"value,omitempty"`

	// ErrorCode is the mocker error code on failure.
	ErrorCode string `json:"error_code,omitempty"`

	// Error is the failure message.
	Error string `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if the outcome matched want and every assertion held.
	Pass bool `json:"pass"`

	// Trace contains every interaction in the order it happened.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Output is the call's outcome.
	Output Output `json:"output"`

	// Steps is how many driver steps the execution took.
	Steps int `json:"steps"`

	// Calls counts trace events per method.
	Calls map[string]int `json:"calls,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

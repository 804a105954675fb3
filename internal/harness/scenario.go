package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines one mocked execution and what it should produce.
type Scenario struct {
	// Name uniquely identifies this scenario. Also names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// MaxSteps overrides the driver's step budget. Nil uses the default.
	MaxSteps *int `yaml:"max_steps,omitempty"`

	// NoTicks skips the final step before awaiting the call.
	NoTicks bool `yaml:"no_ticks,omitempty"`

	// Call is the call under test.
	Call CallStep `yaml:"call"`

	// Mocks answer outbound requests, one request each.
	Mocks []MockRule `yaml:"mocks,omitempty"`

	// Expects check outbound requests, one request each.
	Expects []ExpectRule `yaml:"expects,omitempty"`

	// Want is the expected outcome.
	Want Want `yaml:"want"`

	// Assertions validate the interaction trace.
	// Supported types: trace_contains, trace_order, trace_count
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// CallStep is the call under test.
type CallStep struct {
	// Method is the installed method to call.
	Method string `yaml:"method"`

	// Arg is JSON-encoded as the call payload. Omitted means null.
	Arg any `yaml:"arg,omitempty"`
}

// MockRule answers the next request to Method. Exactly one of Reply,
// Reject, Fail and EchoArg must be set.
type MockRule struct {
	Method string `yaml:"method"`

	// Reply is sent back as the JSON response body.
	Reply any `yaml:"reply,omitempty"`

	// Reject fails the request with a code and message.
	Reject *RejectOutcome `yaml:"reject,omitempty"`

	// Fail rejects the request with code 1 and this message.
	Fail string `yaml:"fail,omitempty"`

	// EchoArg replies with the request's argument at this index.
	EchoArg *int `yaml:"echo_arg,omitempty"`
}

// RejectOutcome is a reject code and message.
type RejectOutcome struct {
	Code    int    `yaml:"code"`
	Message string `yaml:"message"`
}

// ExpectRule checks the next request to Method.
type ExpectRule struct {
	Method string `yaml:"method"`

	// Args are matched positionally against the request's arguments.
	// Objects match as subsets; extra trailing arguments are allowed.
	Args []any `yaml:"args,omitempty"`
}

// Want is the expected outcome of the call.
type Want struct {
	// Ok is the expected decoded value. Nil accepts any successful value.
	Ok any `yaml:"ok,omitempty"`

	// Err is the expected error message. Without ErrorCode it means a
	// canonical {"err": ...} result (CALL_ERROR).
	Err string `yaml:"err,omitempty"`

	// ErrorCode is the expected execution error code.
	ErrorCode string `yaml:"error_code,omitempty"`
}

// Assertion validates the trace.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": Check a method was matched, optionally with kind and args
	// - "trace_order": Check methods were first matched in order
	// - "trace_count": Check a method was matched exactly N times
	Type string `yaml:"type"`

	// Method is used by trace_contains and trace_count.
	Method string `yaml:"method,omitempty"`

	// Kind restricts trace_contains to one interaction kind.
	Kind string `yaml:"kind,omitempty"`

	// Args are the expected request arguments (used by trace_contains).
	// Subset match, as in ExpectRule.
	Args []any `yaml:"args,omitempty"`

	// Count is the expected number of occurrences (used by trace_count).
	Count int `yaml:"count,omitempty"`

	// Methods is the expected order (used by trace_order).
	Methods []string `yaml:"methods,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
)

// LoadScenario reads, parses and validates a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or violates the scenario schema.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	if err := ValidateSchema(data); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "mock:" vs "mocks:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks the rules the schema cannot express.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Call.Method == "" {
		return fmt.Errorf("call.method is required")
	}

	if s.MaxSteps != nil && *s.MaxSteps < 0 {
		return fmt.Errorf("max_steps must be non-negative")
	}

	for i, mock := range s.Mocks {
		if mock.Method == "" {
			return fmt.Errorf("mocks[%d]: method is required", i)
		}
		set := 0
		if mock.Reply != nil {
			set++
		}
		if mock.Reject != nil {
			set++
		}
		if mock.Fail != "" {
			set++
		}
		if mock.EchoArg != nil {
			set++
		}
		if set != 1 {
			return fmt.Errorf("mocks[%d]: exactly one of reply, reject, fail, echo_arg is required", i)
		}
		if mock.Reject != nil && (mock.Reject.Code < 1 || mock.Reject.Code > 5) {
			return fmt.Errorf("mocks[%d]: reject code must be between 1 and 5", i)
		}
		if mock.EchoArg != nil && *mock.EchoArg < 0 {
			return fmt.Errorf("mocks[%d]: echo_arg must be non-negative", i)
		}
	}

	for i, exp := range s.Expects {
		if exp.Method == "" {
			return fmt.Errorf("expects[%d]: method is required", i)
		}
	}

	if s.Want.Ok != nil && (s.Want.Err != "" || s.Want.ErrorCode != "") {
		return fmt.Errorf("want: ok cannot be combined with err or error_code")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Method == "" {
			return fmt.Errorf("assertions[%d]: method is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Methods) == 0 {
			return fmt.Errorf("assertions[%d]: methods list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Method == "" {
			return fmt.Errorf("assertions[%d]: method is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

package harness

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/asyncmock/internal/wire"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s %s\n", event.Step, event.Kind, event.Method, formatValue(event.Args))
	}

	return buf.String()
}

// assertTraceContains checks the trace has an event for the method,
// optionally of the given kind, whose args match (subset semantics).
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	expected, err := normalizeArgs(assertion.Args)
	if err != nil {
		return fmt.Errorf("trace_contains: %w", err)
	}

	for _, event := range trace {
		if !eventMatches(event, assertion.Method, assertion.Kind) {
			continue
		}
		if matchArgs(event.Args, expected) {
			return nil
		}
	}

	want := fmt.Sprintf("method %s with args %s", assertion.Method, formatValue(expected))
	if assertion.Kind != "" {
		want = fmt.Sprintf("%s method %s with args %s", assertion.Kind, assertion.Method, formatValue(expected))
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: want,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks methods first appear in the specified order.
// Methods don't need to be consecutive (intervening events are allowed).
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	// 1-indexed so the zero value means "not seen"
	positions := make(map[string]int)
	for i, event := range trace {
		if positions[event.Method] == 0 {
			positions[event.Method] = i + 1
		}
	}

	for _, method := range assertion.Methods {
		if positions[method] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all methods present: %v", assertion.Methods),
				Actual:   fmt.Sprintf("missing method: %s", method),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Methods); i++ {
		prev := assertion.Methods[i-1]
		curr := assertion.Methods[i]

		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("methods in order: %v", assertion.Methods),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertTraceCount checks the method appears exactly the specified number
// of times, counting only events of Kind when it is set.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if eventMatches(event, assertion.Method, assertion.Kind) {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Method),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}

	return nil
}

func eventMatches(event TraceEvent, method, kind string) bool {
	if event.Method != method {
		return false
	}
	return kind == "" || event.Kind == kind
}

// EvaluateAssertions evaluates all assertions against the result's trace.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

// matchArgs checks actual args against expected positionally. Objects in
// expected match as subsets; extra trailing actual args are ignored.
func matchArgs(actual, expected []any) bool {
	if len(expected) > len(actual) {
		return false
	}
	for i, want := range expected {
		if !valuesMatch(actual[i], want) {
			return false
		}
	}
	return true
}

// valuesMatch compares two decoded JSON values. Expected objects need only
// a subset of actual's keys, recursively; everything else must be equal.
func valuesMatch(actual, expected any) bool {
	wantObj, ok := expected.(map[string]any)
	if !ok {
		return valuesEqual(actual, expected)
	}
	gotObj, ok := actual.(map[string]any)
	if !ok {
		return false
	}
	for key, want := range wantObj {
		got, exists := gotObj[key]
		if !exists || !valuesMatch(got, want) {
			return false
		}
	}
	return true
}

// valuesEqual compares two decoded JSON values for equality.
func valuesEqual(actual, expected any) bool {
	if actual == nil && expected == nil {
		return true
	}
	if actual == nil || expected == nil {
		return false
	}
	return reflect.DeepEqual(actual, expected)
}

// normalize converts a YAML value into the shape wire.DecodeJSON produces,
// so it compares equal to values decoded from requests and replies.
func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %v: %w", v, err)
	}
	return wire.DecodeJSON(data)
}

func normalizeArgs(args []any) ([]any, error) {
	out := make([]any, len(args))
	for i, arg := range args {
		v, err := normalize(arg)
		if err != nil {
			return nil, fmt.Errorf("args[%d]: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// formatValue renders a decoded value as compact JSON for messages.
func formatValue(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

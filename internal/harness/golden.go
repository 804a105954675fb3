package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/asyncmock/internal/wire"
)

// TraceSnapshot captures the complete outcome of a scenario execution.
// It is serialized as canonical JSON for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string
	Output       Output
	Steps        int
	Trace        []TraceEvent
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical JSON serialization.
// This is required because wire.MarshalCanonical only handles decoded JSON values.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"step":           event.Step,
			"kind":           event.Kind,
			"method":         event.Method,
			"correlation_id": event.CorrelationID,
			"args":           event.Args,
		}
		if event.Response != nil {
			eventMap["response"] = event.Response
		}
		if event.RejectCode != 0 {
			eventMap["reject_code"] = event.RejectCode
		}
		if event.Message != "" {
			eventMap["message"] = event.Message
		}
		traceList[i] = eventMap
	}

	output := map[string]any{}
	if s.Output.ErrorCode != "" || s.Output.Error != "" {
		output["error_code"] = s.Output.ErrorCode
		output["error"] = s.Output.Error
	} else {
		output["value"] = s.Output.Value
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"output":        output,
		"steps":         s.Steps,
		"trace":         traceList,
	}
}

// Snapshot returns the canonical JSON snapshot of a result.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Output:       result.Output,
		Steps:        result.Steps,
		Trace:        result.Trace,
	}
	return wire.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario, install Installer, opts ...RunOption) (*Result, error) {
	t.Helper()

	result, err := Run(scenario, install, opts...)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}

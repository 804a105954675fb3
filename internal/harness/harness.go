package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/asyncmock/internal/mocker"
	"github.com/roach88/asyncmock/internal/sim"
	"github.com/roach88/asyncmock/internal/store"
	"github.com/roach88/asyncmock/internal/wire"
)

// Installer registers the methods a scenario may call.
type Installer func(env *sim.Env)

// RunOption configures Run.
type RunOption func(*runConfig)

type runConfig struct {
	logger   *slog.Logger
	maxSteps *int
	metrics  *mocker.Metrics
}

// WithLogger sets the logger for the environment and the mocker.
// Default: discard.
func WithLogger(logger *slog.Logger) RunOption {
	return func(c *runConfig) {
		c.logger = logger
	}
}

// WithMaxSteps overrides the step budget of every scenario, including ones
// that set max_steps.
func WithMaxSteps(n int) RunOption {
	return func(c *runConfig) {
		c.maxSteps = &n
	}
}

// WithMetrics records execution metrics.
func WithMetrics(metrics *mocker.Metrics) RunOption {
	return func(c *runConfig) {
		c.metrics = metrics
	}
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh environment with its own in-memory store.
// A failed expectation is reported in the Result; the error return is for
// scenarios that could not be run at all.
//
// Execution flow:
// 1. Create the environment and install its methods
// 2. Begin a run in a fresh in-memory store
// 3. Register the scenario's mocks and expects and execute the call
// 4. Read the recorded interactions back as the trace and per-method counts
// 5. Compare the outcome with want and evaluate assertions
func Run(scenario *Scenario, install Installer, opts ...RunOption) (*Result, error) {
	cfg := runConfig{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	ctx := context.Background()
	logger := cfg.logger.With("scenario", scenario.Name)

	env := sim.New(
		sim.WithIDGenerator(sim.NewSequenceGenerator("req")),
		sim.WithLogger(logger),
	)
	defer env.Close()
	install(env)

	st, err := store.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	run, err := st.BeginRun(ctx, scenario.Name)
	if err != nil {
		return nil, err
	}

	maxSteps := mocker.DefaultMaxSteps
	if scenario.MaxSteps != nil {
		maxSteps = *scenario.MaxSteps
	}
	if cfg.maxSteps != nil {
		maxSteps = *cfg.maxSteps
	}

	m := mocker.New(env,
		mocker.WithMaxSteps(maxSteps),
		mocker.WithLogger(logger),
		mocker.WithRecorder(run),
		mocker.WithMetrics(cfg.metrics),
	)
	m.Call(scenario.Call.Method, scenario.Call.Arg)
	for _, rule := range scenario.Mocks {
		registerMock(m, rule)
	}
	for _, rule := range scenario.Expects {
		if err := registerExpect(m, rule); err != nil {
			return nil, err
		}
	}

	var value json.RawMessage
	if scenario.NoTicks {
		value, err = mocker.ExecuteNoTicks[json.RawMessage](m)
	} else {
		value, err = mocker.Execute[json.RawMessage](m)
	}

	result := NewResult()
	result.Steps = m.Steps()
	outcome := "ok"
	if err != nil {
		result.Output.Error = err.Error()
		var me *mocker.Error
		if errors.As(err, &me) {
			result.Output.ErrorCode = string(me.Code)
			outcome = string(me.Code)
		}
	} else if len(value) > 0 {
		result.Output.Value, err = wire.DecodeJSON(value)
		if err != nil {
			return nil, fmt.Errorf("decode call result: %w", err)
		}
	}

	interactions, err := st.ReadInteractions(ctx, run.ID())
	if err != nil {
		return nil, err
	}
	for _, in := range interactions {
		event, err := toTraceEvent(in)
		if err != nil {
			return nil, err
		}
		result.Trace = append(result.Trace, event)
	}

	result.Calls, err = st.CountByMethod(ctx, run.ID())
	if err != nil {
		return nil, err
	}

	if err := checkWant(result, scenario.Want); err != nil {
		result.AddError(err.Error())
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	logger.Info("scenario completed",
		"outcome", outcome,
		"steps", result.Steps,
		"interactions", len(result.Trace),
		"pass", result.Pass,
	)
	return result, nil
}

func registerMock(m *mocker.Mocker, rule MockRule) {
	switch {
	case rule.Reject != nil:
		m.MockReject(rule.Method, wire.RejectCode(rule.Reject.Code), rule.Reject.Message)
	case rule.Fail != "":
		m.MockFail(rule.Method, rule.Fail)
	case rule.EchoArg != nil:
		index := *rule.EchoArg
		m.Mock(rule.Method, func(req wire.Envelope) any {
			if index >= len(req.Args) {
				return wire.Reject{
					Code:    wire.RejectCanisterError,
					Message: fmt.Sprintf("echo_arg %d out of range: request has %d args", index, len(req.Args)),
				}
			}
			return req.Args[index]
		})
	default:
		m.MockReply(rule.Method, rule.Reply)
	}
}

func registerExpect(m *mocker.Mocker, rule ExpectRule) error {
	expected, err := normalizeArgs(rule.Args)
	if err != nil {
		return fmt.Errorf("expect %s: %w", rule.Method, err)
	}
	m.Expect(rule.Method, func(req wire.Envelope) error {
		actual, err := decodeArgs(req.Args)
		if err != nil {
			return err
		}
		if !matchArgs(actual, expected) {
			return fmt.Errorf("args %s do not match %s", formatValue(actual), formatValue(expected))
		}
		return nil
	})
	return nil
}

func decodeArgs(raw []json.RawMessage) ([]any, error) {
	args := make([]any, len(raw))
	for i, arg := range raw {
		v, err := wire.DecodeJSON(arg)
		if err != nil {
			return nil, fmt.Errorf("decode arg %d: %w", i, err)
		}
		args[i] = v
	}
	return args, nil
}

func toTraceEvent(in mocker.Interaction) (TraceEvent, error) {
	req, err := wire.DecodeEnvelope(in.Request)
	if err != nil {
		return TraceEvent{}, fmt.Errorf("trace step %d: %w", in.Step, err)
	}
	args, err := decodeArgs(req.Args)
	if err != nil {
		return TraceEvent{}, fmt.Errorf("trace step %d: %w", in.Step, err)
	}

	event := TraceEvent{
		Step:          in.Step,
		Kind:          string(in.Kind),
		Method:        in.Method,
		CorrelationID: in.CorrelationID,
		Args:          args,
		RejectCode:    int(in.RejectCode),
		Message:       in.Message,
	}
	if len(in.Response) > 0 {
		event.Response, err = wire.DecodeJSON(in.Response)
		if err != nil {
			return TraceEvent{}, fmt.Errorf("trace step %d response: %w", in.Step, err)
		}
	}
	return event, nil
}

// checkWant compares the call's outcome with the scenario's want.
func checkWant(result *Result, want Want) error {
	out := result.Output

	switch {
	case want.ErrorCode != "":
		if out.ErrorCode != want.ErrorCode {
			return fmt.Errorf("want error code %s, got %s", want.ErrorCode, describeOutput(out))
		}
		if want.Err != "" && out.Error != want.Err {
			return fmt.Errorf("want error %q, got %q", want.Err, out.Error)
		}
	case want.Err != "":
		if out.ErrorCode != string(mocker.ErrCodeCallError) || out.Error != want.Err {
			return fmt.Errorf("want call error %q, got %s", want.Err, describeOutput(out))
		}
	default:
		if out.ErrorCode != "" || out.Error != "" {
			return fmt.Errorf("want success, got %s", describeOutput(out))
		}
		if want.Ok == nil {
			return nil
		}
		expected, err := normalize(want.Ok)
		if err != nil {
			return fmt.Errorf("want ok: %w", err)
		}
		if !valuesEqual(out.Value, expected) {
			return fmt.Errorf("want ok %s, got %s", formatValue(expected), formatValue(out.Value))
		}
	}
	return nil
}

func describeOutput(out Output) string {
	if out.ErrorCode == "" && out.Error == "" {
		return fmt.Sprintf("ok %s", formatValue(out.Value))
	}
	if out.ErrorCode == "" {
		return fmt.Sprintf("error %q", out.Error)
	}
	return fmt.Sprintf("%s: %q", out.ErrorCode, out.Error)
}

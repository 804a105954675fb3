package mocker

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/asyncmock/internal/rules"
	"github.com/roach88/asyncmock/internal/wire"
)

// DefaultMaxSteps is the driver's step budget unless WithMaxSteps is used.
const DefaultMaxSteps = 50

// Environment is the step-based execution environment a Mocker drives.
// *sim.Env implements it.
type Environment interface {
	// SubmitCall starts a call to method with the given payload.
	SubmitCall(method string, payload []byte) (wire.CallID, error)

	// Tick advances the environment by one scheduling step.
	Tick()

	// PendingRequests lists the outbound requests awaiting a response.
	PendingRequests() []wire.PendingRequest

	// InjectResponse answers one pending request.
	InjectResponse(resp wire.MockResponse) error

	// AwaitCall blocks until the call completes and returns its raw result.
	AwaitCall(id wire.CallID) ([]byte, error)
}

// NoTickAwaiter is implemented by environments that can return a completed
// call's result without advancing.
type NoTickAwaiter interface {
	AwaitCallNoTicks(id wire.CallID) ([]byte, error)
}

// CallFunc submits the call under test and returns its id.
type CallFunc func(env Environment) (wire.CallID, error)

// Mocker collects rules for one call and executes it. Build it with New and
// the chained registration methods, then pass it to Execute or ExecuteNoTicks.
// A Mocker can be executed once.
type Mocker struct {
	env  Environment
	call CallFunc

	responders   *rules.Registry[rules.Responder]
	expectations *rules.Registry[rules.Checker]

	// Registration errors, reported when executing.
	errs []error

	executed bool
	steps    int
	maxSteps int
	logger   *slog.Logger
	recorder Recorder
	metrics  *Metrics
}

// Option configures a Mocker.
type Option func(*Mocker)

// WithMaxSteps sets the driver's step budget.
//
// Default: 50 steps (DefaultMaxSteps). A budget of 0 skips driving entirely;
// the call is still awaited and resolved.
func WithMaxSteps(n int) Option {
	return func(m *Mocker) {
		m.maxSteps = n
	}
}

// WithLogger sets the logger. Default: discard.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Mocker) {
		m.logger = logger
	}
}

// WithRecorder sends every interaction to r.
func WithRecorder(r Recorder) Option {
	return func(m *Mocker) {
		m.recorder = r
	}
}

// WithMetrics records execution metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(m *Mocker) {
		m.metrics = metrics
	}
}

// New creates a Mocker that will drive env.
func New(env Environment, opts ...Option) *Mocker {
	m := &Mocker{
		env:          env,
		responders:   rules.NewRegistry[rules.Responder](),
		expectations: rules.NewRegistry[rules.Checker](),
		maxSteps:     DefaultMaxSteps,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Call sets the call under test: method with arg encoded as its JSON payload.
func (m *Mocker) Call(method string, arg any) *Mocker {
	payload, err := json.Marshal(arg)
	if err != nil {
		encErr := fmt.Errorf("encode argument of call %s: %w", method, err)
		m.errs = append(m.errs, encErr)
		// The call counts as set; execution stops at the usage error.
		return m.WithCall(func(Environment) (wire.CallID, error) { return 0, encErr })
	}
	return m.WithCall(func(env Environment) (wire.CallID, error) {
		return env.SubmitCall(method, payload)
	})
}

// WithCall sets a custom function that submits the call under test.
func (m *Mocker) WithCall(fn CallFunc) *Mocker {
	if m.call != nil {
		m.errs = append(m.errs, ErrCallAlreadySet)
		return m
	}
	m.call = fn
	return m
}

// Mock answers the next request to method with whatever produce returns.
// A wire.Outcome is used as-is; any other value is sent as a reply.
func (m *Mocker) Mock(method string, produce func(wire.Envelope) any) *Mocker {
	return m.MockOutcome(method, func(req wire.Envelope) wire.Outcome {
		v := produce(req)
		if out, ok := v.(wire.Outcome); ok {
			return out
		}
		return wire.Reply{Value: v}
	})
}

// MockReply answers the next request to method with value.
func (m *Mocker) MockReply(method string, value any) *Mocker {
	return m.MockOutcome(method, func(wire.Envelope) wire.Outcome {
		return wire.Reply{Value: value}
	})
}

// MockFail rejects the next request to method with wire.RejectSysFatal and message.
func (m *Mocker) MockFail(method, message string) *Mocker {
	return m.MockReject(method, wire.RejectSysFatal, message)
}

// MockReject rejects the next request to method with code and message.
func (m *Mocker) MockReject(method string, code wire.RejectCode, message string) *Mocker {
	return m.MockOutcome(method, func(wire.Envelope) wire.Outcome {
		return wire.Reject{Code: code, Message: message}
	})
}

// MockOutcome registers a response rule for method.
func (m *Mocker) MockOutcome(method string, responder rules.Responder) *Mocker {
	if err := m.responders.Register(method, responder); err != nil {
		m.errs = append(m.errs, fmt.Errorf("mock: %w", err))
	}
	return m
}

// Expect registers an assertion rule for method. It runs against the next
// request to method, before that method's response rule.
func (m *Mocker) Expect(method string, check rules.Checker) *Mocker {
	if err := m.expectations.Register(method, check); err != nil {
		m.errs = append(m.errs, fmt.Errorf("expect: %w", err))
	}
	return m
}

// Execute runs the call, answering its requests, and decodes the result as T.
//
// Once driving ends, an environment error wins over a decode error, which
// wins over unmatched rules, which win over a canonical {"err": ...} result.
// A service that turns an unanswered outcall into {"err": ...} therefore
// reports UNMET_EXPECTATIONS when rules are left, even at a budget of 0.
// Only a result that cannot be decoded carries the
// "note: exhausted N steps before await" context.
func Execute[T any](m *Mocker) (T, error) {
	return execute[T](m, false)
}

// ExecuteNoTicks is Execute without the final step before awaiting. Use it
// when the last injected response is known to complete the call.
func ExecuteNoTicks[T any](m *Mocker) (T, error) {
	return execute[T](m, true)
}

func execute[T any](m *Mocker, noTicks bool) (T, error) {
	var zero T
	if err := m.begin(); err != nil {
		m.metrics.RecordExecution(err)
		return zero, err
	}
	defer m.release()

	out, err := resolve[T](m, noTicks)
	m.metrics.RecordExecution(err)
	return out, err
}

// Steps returns how many driver steps the last execution took.
func (m *Mocker) Steps() int {
	return m.steps
}

// begin validates the Mocker and marks it used.
func (m *Mocker) begin() error {
	if m.executed {
		return newUsageError(ErrAlreadyExecuted)
	}
	m.executed = true

	if m.call == nil {
		m.errs = append(m.errs, ErrMissingCall)
	}
	if len(m.errs) > 0 {
		err := newUsageError(errors.Join(m.errs...))
		m.release()
		return err
	}
	return nil
}

// release drops the environment so it is not held past execution.
func (m *Mocker) release() {
	m.env = nil
	m.call = nil
}

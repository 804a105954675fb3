package sim

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"

	"github.com/roach88/asyncmock/internal/wire"
)

// DefaultPartition tags requests issued by an Env unless WithPartition is used.
const DefaultPartition = "app-subnet-0"

// DefaultMaxAwaitTicks bounds how long AwaitCall keeps ticking.
const DefaultMaxAwaitTicks = 1000

// Handler implements an installed method. It receives the call payload and
// returns the reply bytes. Returning an error rejects the call.
type Handler func(ctx *Context, payload []byte) ([]byte, error)

// Env is a simulated replica. Create one with New.
type Env struct {
	clock         *Clock
	partition     string
	ids           IDGenerator
	maxAwaitTicks int
	logger        *slog.Logger

	methods  map[string]Handler
	tasks    map[wire.CallID]*task
	lastCall wire.CallID
	ready    *taskQueue
	pending  []*outcall
	closed   bool
}

// Option configures an Env.
type Option func(*Env)

// WithPartition sets the partition tag attached to every pending request.
func WithPartition(partition string) Option {
	return func(e *Env) {
		e.partition = partition
	}
}

// WithIDGenerator sets the generator for correlation ids.
//
// Default: UUIDv7Generator. Use NewSequenceGenerator for golden traces.
func WithIDGenerator(gen IDGenerator) Option {
	return func(e *Env) {
		e.ids = gen
	}
}

// WithMaxAwaitTicks sets the watchdog budget for AwaitCall.
//
// Default: 1000 ticks (DefaultMaxAwaitTicks).
func WithMaxAwaitTicks(n int) Option {
	return func(e *Env) {
		e.maxAwaitTicks = n
	}
}

// WithLogger sets the logger. Default: discard.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Env) {
		e.logger = logger
	}
}

// New creates an empty Env with no installed methods.
func New(opts ...Option) *Env {
	e := &Env{
		clock:         NewClock(),
		partition:     DefaultPartition,
		ids:           UUIDv7Generator{},
		maxAwaitTicks: DefaultMaxAwaitTicks,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		methods:       make(map[string]Handler),
		tasks:         make(map[wire.CallID]*task),
		ready:         newTaskQueue(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Install registers handler under method, replacing any previous handler.
func (e *Env) Install(method string, handler Handler) {
	e.methods[method] = handler
}

// Steps returns the number of ticks executed so far.
func (e *Env) Steps() int64 {
	return e.clock.Current()
}

// SubmitCall queues a call to method. It starts running on the next Tick.
func (e *Env) SubmitCall(method string, payload []byte) (wire.CallID, error) {
	if e.closed {
		return 0, ErrClosed
	}
	handler, ok := e.methods[method]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMethodNotFound, method)
	}

	e.lastCall++
	t := newTask(e.lastCall, method, payload, handler)
	e.tasks[t.id] = t
	e.ready.Push(t)

	e.logger.Debug("call submitted", "call", t.id, "method", method)
	return t.id, nil
}

// Tick runs every call that was ready when the tick began, in FIFO order.
// Each runs until it completes or parks on outcalls.
func (e *Env) Tick() {
	if e.closed {
		return
	}
	tick := e.clock.Next()
	batch := e.ready.Drain()
	e.logger.Debug("tick", "tick", tick, "ready", len(batch), "pending", len(e.pending))

	for _, t := range batch {
		e.step(t)
	}
}

// PendingRequests returns the outbound requests awaiting a response, in the
// order they were issued.
func (e *Env) PendingRequests() []wire.PendingRequest {
	out := make([]wire.PendingRequest, 0, len(e.pending))
	for _, oc := range e.pending {
		out = append(out, oc.pendingRequest())
	}
	return out
}

// InjectResponse answers one pending request. The call that issued it is
// resumed on the next Tick once all of its outcalls are answered.
func (e *Env) InjectResponse(resp wire.MockResponse) error {
	if e.closed {
		return ErrClosed
	}
	idx := -1
	for i, oc := range e.pending {
		if oc.correlationID == resp.CorrelationID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: correlation id %q", ErrUnknownRequest, resp.CorrelationID)
	}
	oc := e.pending[idx]
	if oc.partition != resp.Partition {
		return fmt.Errorf("%w: correlation id %q is on partition %q, not %q",
			ErrUnknownRequest, resp.CorrelationID, oc.partition, resp.Partition)
	}

	var result OutcallResult
	switch r := resp.Response.(type) {
	case wire.HTTPReply:
		result.Reply = r
	case wire.HTTPReject:
		result.Err = &wire.RejectError{Code: r.Code, Message: r.Message}
	default:
		return fmt.Errorf("unsupported response type %T", resp.Response)
	}

	e.pending = append(e.pending[:idx], e.pending[idx+1:]...)
	e.deliver(oc, result)

	e.logger.Debug("response injected",
		"correlation_id", resp.CorrelationID,
		"call", oc.task.id,
		"rejected", result.Err != nil,
	)
	return nil
}

// AwaitCall ticks until the call completes and returns its reply.
//
// When no call can make progress, every pending outcall is rejected with
// wire.RejectSysTransient so its caller can observe the failure.
func (e *Env) AwaitCall(id wire.CallID) ([]byte, error) {
	t, ok := e.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCall, id)
	}

	for ticks := 0; !t.done; ticks++ {
		if e.closed {
			return nil, ErrClosed
		}
		if ticks >= e.maxAwaitTicks {
			return nil, fmt.Errorf("%w: call %d to %s within %d ticks", ErrAwaitTimeout, id, t.method, e.maxAwaitTicks)
		}
		if e.ready.Len() == 0 {
			if len(e.pending) == 0 {
				return nil, fmt.Errorf("%w: call %d to %s cannot make progress", ErrAwaitTimeout, id, t.method)
			}
			e.expirePending()
		}
		e.Tick()
	}
	return t.outcome()
}

// AwaitCallNoTicks returns the call's result without advancing the Env.
// It fails with ErrNotCompleted when the call is still in flight.
func (e *Env) AwaitCallNoTicks(id wire.CallID) ([]byte, error) {
	t, ok := e.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCall, id)
	}
	if !t.done {
		return nil, fmt.Errorf("%w: call %d to %s", ErrNotCompleted, id, t.method)
	}
	return t.outcome()
}

// Close aborts every call still in flight. The Env cannot be used afterwards.
func (e *Env) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	for _, t := range e.tasks {
		if t.started && !t.done {
			t.resume <- false
			<-t.yield
		}
	}
	e.pending = nil
	return nil
}

// expirePending rejects every pending outcall, as a replica does when an
// outcall times out.
func (e *Env) expirePending() {
	expired := e.pending
	e.pending = nil
	for _, oc := range expired {
		e.logger.Debug("outcall expired", "correlation_id", oc.correlationID, "call", oc.task.id)
		e.deliver(oc, OutcallResult{Err: &wire.RejectError{
			Code:    wire.RejectSysTransient,
			Message: "outcall timed out: no response was provided",
		}})
	}
}

func (e *Env) deliver(oc *outcall, result OutcallResult) {
	t := oc.task
	t.results[oc.index] = result
	t.outstanding--
	if t.outstanding == 0 {
		e.ready.Push(t)
	}
}

// step hands control to t and waits until it completes or parks.
func (e *Env) step(t *task) {
	if !t.started {
		t.started = true
		go e.run(t)
	} else {
		t.resume <- true
	}
	<-t.yield
}

// run executes t's handler on its own goroutine.
func (e *Env) run(t *task) {
	finished := false
	defer func() {
		r := recover()
		switch {
		case r != nil:
			t.err = &CallError{
				Code:    wire.RejectCanisterError,
				Method:  t.method,
				Message: fmt.Sprintf("trapped: %v", r),
			}
		case !finished:
			// runtime.Goexit from an aborted park.
			t.err = ErrClosed
		}
		t.done = true
		e.logger.Debug("call completed", "call", t.id, "method", t.method, "error", t.err)
		t.yield <- struct{}{}
	}()

	ctx := &Context{env: e, task: t}
	reply, err := t.handler(ctx, t.payload)
	finished = true
	if err != nil {
		t.err = asCallError(t.method, err)
		return
	}
	t.reply = reply
}

func asCallError(method string, err error) *CallError {
	var ce *CallError
	if errors.As(err, &ce) {
		out := *ce
		out.Method = method
		return &out
	}
	return &CallError{Code: wire.RejectCanisterError, Method: method, Message: err.Error()}
}

// park yields control back to the Env until the task is resumed.
// Called on the task's goroutine.
func (t *task) park() {
	t.yield <- struct{}{}
	if ok := <-t.resume; !ok {
		runtime.Goexit()
	}
}

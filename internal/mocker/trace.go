package mocker

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/roach88/asyncmock/internal/wire"
)

// InteractionKind describes what the driver did with a request.
type InteractionKind string

const (
	// KindChecked means an assertion rule accepted the request.
	KindChecked InteractionKind = "checked"

	// KindAssertionFailed means an assertion rule rejected the request.
	KindAssertionFailed InteractionKind = "assertion_failed"

	// KindReplied means a reply was injected.
	KindReplied InteractionKind = "replied"

	// KindRejected means a rejection was injected.
	KindRejected InteractionKind = "rejected"
)

// Interaction is one rule match observed by the driver.
type Interaction struct {
	// Step is the driver step (1-based) the match happened in.
	Step int `json:"step"`

	Kind          InteractionKind `json:"kind"`
	Method        string          `json:"method"`
	CorrelationID string          `json:"correlation_id"`

	// Request is the intercepted envelope body.
	Request json.RawMessage `json:"request"`

	// Response is the injected reply body (KindReplied only).
	Response json.RawMessage `json:"response,omitempty"`

	// RejectCode is set for KindRejected.
	RejectCode wire.RejectCode `json:"reject_code,omitempty"`

	// Message is the reject message or the assertion failure.
	Message string `json:"message,omitempty"`
}

// Recorder receives every interaction as it happens.
// A Recorder error is logged and does not fail the execution.
type Recorder interface {
	Record(ctx context.Context, in Interaction) error
}

// Trace is an in-memory Recorder.
//
// Thread-safety: Trace is safe for concurrent use.
type Trace struct {
	mu    sync.Mutex
	items []Interaction
}

// Record appends in to the trace.
func (t *Trace) Record(_ context.Context, in Interaction) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = append(t.items, in)
	return nil
}

// Interactions returns a copy of the recorded interactions in order.
func (t *Trace) Interactions() []Interaction {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Interaction, len(t.items))
	copy(out, t.items)
	return out
}

// Methods returns the method of each recorded interaction in order.
func (t *Trace) Methods() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.items))
	for i, in := range t.items {
		out[i] = in.Method
	}
	return out
}

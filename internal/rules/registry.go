// Package rules holds the one-shot rule registries the mocker consults while
// driving an execution: response rules that answer intercepted requests and
// assertion rules that inspect them.
package rules

import (
	"errors"
	"fmt"

	"github.com/roach88/asyncmock/internal/wire"
)

// ErrDuplicateRule is returned when a method already has an unmatched rule.
var ErrDuplicateRule = errors.New("rule already registered for method")

// Responder decides the outcome of an intercepted request.
type Responder func(wire.Envelope) wire.Outcome

// Checker inspects an intercepted request. A non-nil error fails the execution.
type Checker func(wire.Envelope) error

// Registry maps method names to at most one pending rule each.
//
// Rules are one-shot: Take removes the rule it returns. Pending reports the
// remaining method names in registration order, which keeps failure messages
// stable across runs.
//
// Registry is not safe for concurrent use. The mocker drives it from a single
// goroutine.
type Registry[R any] struct {
	order []string
	slots map[string]R
}

// NewRegistry creates an empty registry.
func NewRegistry[R any]() *Registry[R] {
	return &Registry[R]{slots: make(map[string]R)}
}

// Register adds rule for method. Registering a method that still has an
// unmatched rule fails with ErrDuplicateRule and leaves the existing rule.
func (r *Registry[R]) Register(method string, rule R) error {
	if _, ok := r.slots[method]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateRule, method)
	}
	r.slots[method] = rule
	r.order = append(r.order, method)
	return nil
}

// Take removes and returns the rule for method.
func (r *Registry[R]) Take(method string) (R, bool) {
	rule, ok := r.slots[method]
	if !ok {
		var zero R
		return zero, false
	}
	delete(r.slots, method)
	for i, m := range r.order {
		if m == method {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return rule, true
}

// IsEmpty reports whether every rule has been matched.
func (r *Registry[R]) IsEmpty() bool {
	return len(r.slots) == 0
}

// Pending returns the unmatched method names in registration order.
func (r *Registry[R]) Pending() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

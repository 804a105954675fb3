package mocker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/asyncmock/internal/wire"
)

// resolve submits the call, drives it and turns its outcome into (T, error).
//
// Order of precedence once the driver is done: environment errors, decode
// errors, unmatched rules, then a canonical {"err": ...} result.
func resolve[T any](m *Mocker, noTicks bool) (T, error) {
	var zero T
	ctx := context.Background()

	id, err := m.call(m.env)
	if err != nil {
		return zero, m.finish(newEnvironmentError(err), 0)
	}
	m.logger.Debug("call submitted", "call", id, "max_steps", m.maxSteps)

	steps, err := m.drive(ctx)
	if err != nil {
		return zero, m.finish(err, steps)
	}
	exhausted := steps >= m.maxSteps
	if exhausted {
		m.logger.Debug("step budget exhausted", "steps", steps, "unmatched", m.unmatched())
	}

	raw, err := m.await(id, noTicks)
	if err != nil {
		return zero, m.finish(newEnvironmentError(err), steps)
	}

	out, callErr, err := decodeResult[T](raw)
	if err != nil {
		return zero, m.finish(newDecodeError(err, steps, exhausted, m.unmatched()), steps)
	}

	if !m.satisfied() {
		return zero, m.finish(newUnmetError(m.unmatched()), steps)
	}

	if callErr != nil {
		return zero, m.finish(newCallError(*callErr), steps)
	}
	m.steps = steps
	return out, nil
}

func (m *Mocker) await(id wire.CallID, noTicks bool) ([]byte, error) {
	if noTicks {
		if nt, ok := m.env.(NoTickAwaiter); ok {
			return nt.AwaitCallNoTicks(id)
		}
		return m.env.AwaitCall(id)
	}
	m.env.Tick()
	return m.env.AwaitCall(id)
}

func (m *Mocker) finish(err error, steps int) error {
	m.steps = steps
	var e *Error
	if errors.As(err, &e) {
		e.Steps = steps
		e.MaxSteps = m.maxSteps
	}
	return err
}

// decodeResult decodes raw as a canonical result or, failing that, as T.
//
// Tier 1 is an object with exactly one key: "ok" holding a T, or "err"
// holding a string. Tier 2 is the whole payload as T. Both tiers decode
// strictly: unknown fields and trailing data are errors. When both fail the
// tier 2 error is returned.
func decodeResult[T any](raw []byte) (T, *string, error) {
	var out T

	var shape map[string]json.RawMessage
	if err := json.Unmarshal(raw, &shape); err == nil && len(shape) == 1 {
		if okRaw, ok := shape["ok"]; ok {
			if err := decodeStrict(okRaw, &out); err == nil {
				return out, nil, nil
			}
			out = *new(T)
		}
		if errRaw, ok := shape["err"]; ok {
			var msg string
			if err := json.Unmarshal(errRaw, &msg); err == nil {
				return out, &msg, nil
			}
		}
	}

	if err := decodeStrict(raw, &out); err != nil {
		return *new(T), nil, err
	}
	return out, nil, nil
}

func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("unexpected data after JSON value")
	}
	return nil
}

package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/roach88/asyncmock/internal/mocker"
)

// createTestStore creates a new in-memory store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open()
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun begins a run named after the test.
func createTestRun(t *testing.T, s *Store) *Run {
	t.Helper()
	run, err := s.BeginRun(context.Background(), t.Name())
	if err != nil {
		t.Fatalf("BeginRun() failed: %v", err)
	}
	return run
}

// replied builds a replied interaction with minimal fields.
func replied(step int, method, correlationID, response string) mocker.Interaction {
	return mocker.Interaction{
		Step:          step,
		Kind:          mocker.KindReplied,
		Method:        method,
		CorrelationID: correlationID,
		Request:       json.RawMessage(`{"method":"` + method + `","args":[]}`),
		Response:      json.RawMessage(response),
	}
}

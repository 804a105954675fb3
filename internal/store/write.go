package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/asyncmock/internal/mocker"
)

// Run records the interactions of one execution. It implements
// mocker.Recorder.
//
// Thread-safety: Run is safe for concurrent use.
type Run struct {
	store *Store
	id    string

	mu  sync.Mutex
	seq int64
}

// ID returns the run's id (a UUIDv7).
func (r *Run) ID() string {
	return r.id
}

// BeginRun starts a new run for scenario.
func (s *Store) BeginRun(ctx context.Context, scenario string) (*Run, error) {
	id := uuid.Must(uuid.NewV7()).String()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, seq, scenario)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM runs), ?)
	`, id, scenario)
	if err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}
	return &Run{store: s, id: id}, nil
}

// Record appends an interaction to the run.
func (r *Run) Record(ctx context.Context, in mocker.Interaction) error {
	request, err := canonicalText(in.Request)
	if err != nil {
		return fmt.Errorf("record %s request: %w", in.Method, err)
	}
	response, err := nullableText(in.Response)
	if err != nil {
		return fmt.Errorf("record %s response: %w", in.Method, err)
	}

	var rejectCode, message any
	if in.Kind == mocker.KindRejected {
		rejectCode = int64(in.RejectCode)
	}
	if in.Message != "" {
		message = in.Message
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, err = r.store.db.ExecContext(ctx, `
		INSERT INTO interactions
		(run_id, seq, step, kind, method, correlation_id, request, response, reject_code, message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.id,
		r.seq+1,
		in.Step,
		string(in.Kind),
		in.Method,
		in.CorrelationID,
		request,
		response,
		rejectCode,
		message,
	)
	if err != nil {
		return fmt.Errorf("record %s: %w", in.Method, err)
	}
	r.seq++
	return nil
}

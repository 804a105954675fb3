package sim

import "github.com/roach88/asyncmock/internal/wire"

// task is one submitted call.
type task struct {
	id      wire.CallID
	method  string
	payload []byte
	handler Handler

	started bool
	done    bool
	reply   []byte
	err     error

	// Parallel outcalls in flight. results is indexed like the request batch.
	outstanding int
	results     []OutcallResult

	resume chan bool
	yield  chan struct{}
}

func newTask(id wire.CallID, method string, payload []byte, handler Handler) *task {
	return &task{
		id:      id,
		method:  method,
		payload: payload,
		handler: handler,
		resume:  make(chan bool),
		yield:   make(chan struct{}),
	}
}

func (t *task) outcome() ([]byte, error) {
	if t.err != nil {
		return nil, t.err
	}
	return t.reply, nil
}

// outcall is a request issued by a task and held by the Env.
type outcall struct {
	correlationID string
	partition     string
	request       wire.OutcallRequest
	task          *task
	index         int
}

func (oc *outcall) pendingRequest() wire.PendingRequest {
	return wire.PendingRequest{
		CorrelationID: oc.correlationID,
		Partition:     oc.partition,
		URL:           oc.request.URL,
		HTTPMethod:    oc.request.HTTPMethod,
		Headers:       oc.request.Headers,
		Body:          oc.request.Body,
	}
}

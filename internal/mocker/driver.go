package mocker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/roach88/asyncmock/internal/wire"
)

// drive advances the environment until every rule has matched or the step
// budget is spent. It returns the number of steps taken. Only assertion
// failures, unsendable replies and injection failures stop it early with an
// error.
func (m *Mocker) drive(ctx context.Context) (int, error) {
	steps := 0
	for steps < m.maxSteps {
		m.env.Tick()
		steps++
		m.metrics.RecordStep()

		pending := m.env.PendingRequests()
		m.logger.Debug("step", "step", steps, "pending", len(pending))

		if err := m.resolveOne(ctx, steps, pending); err != nil {
			return steps, err
		}

		if m.satisfied() {
			m.logger.Debug("all rules matched", "step", steps)
			break
		}
	}
	return steps, nil
}

// resolveOne scans pending in order and answers at most one request.
func (m *Mocker) resolveOne(ctx context.Context, step int, pending []wire.PendingRequest) error {
	for _, req := range pending {
		env, err := wire.DecodeEnvelope(req.Body)
		if err != nil {
			m.logger.Warn("skipping request without envelope",
				"correlation_id", req.CorrelationID,
				"url", req.URL,
				"error", err,
			)
			continue
		}
		method := env.Method

		if check, ok := m.expectations.Take(method); ok {
			if err := check(env); err != nil {
				m.metrics.RecordAssertion(method, false)
				m.record(ctx, Interaction{
					Step:          step,
					Kind:          KindAssertionFailed,
					Method:        method,
					CorrelationID: req.CorrelationID,
					Request:       req.Body,
					Message:       err.Error(),
				})
				return newAssertionError(method, err)
			}
			m.metrics.RecordAssertion(method, true)
			m.record(ctx, Interaction{
				Step:          step,
				Kind:          KindChecked,
				Method:        method,
				CorrelationID: req.CorrelationID,
				Request:       req.Body,
			})
		}

		respond, ok := m.responders.Take(method)
		if !ok {
			continue
		}

		in, resp, err := translate(respond(env))
		if err != nil {
			return newInvalidResponseError(method, err)
		}
		if err := m.env.InjectResponse(wire.MockResponse{
			CorrelationID: req.CorrelationID,
			Partition:     req.Partition,
			Response:      resp,
		}); err != nil {
			return newEnvironmentError(err)
		}

		in.Step = step
		in.Method = method
		in.CorrelationID = req.CorrelationID
		in.Request = req.Body
		m.metrics.RecordInjection(method, in.Kind)
		m.record(ctx, in)
		m.logger.Debug("injected response",
			"step", step,
			"method", method,
			"correlation_id", req.CorrelationID,
			"kind", in.Kind,
		)
		return nil
	}
	return nil
}

var errNilOutcome = errors.New("rule returned no outcome")

// translate turns a rule outcome into the environment's response shape.
// Replies go out as status 200 with no headers and a JSON body.
func translate(out wire.Outcome) (Interaction, wire.HTTPResponse, error) {
	switch o := out.(type) {
	case *wire.Reply:
		if o == nil {
			return Interaction{}, nil, errNilOutcome
		}
		return translate(*o)
	case *wire.Reject:
		if o == nil {
			return Interaction{}, nil, errNilOutcome
		}
		return translate(*o)
	case wire.Reply:
		body, err := json.Marshal(o.Value)
		if err != nil {
			return Interaction{}, nil, err
		}
		return Interaction{Kind: KindReplied, Response: body},
			wire.HTTPReply{Status: 200, Headers: []wire.Header{}, Body: body}, nil
	case wire.Reject:
		return Interaction{Kind: KindRejected, RejectCode: o.Code, Message: o.Message},
			wire.HTTPReject{Code: o.Code, Message: o.Message}, nil
	default:
		return Interaction{}, nil, errNilOutcome
	}
}

func (m *Mocker) record(ctx context.Context, in Interaction) {
	if m.recorder == nil {
		return
	}
	if err := m.recorder.Record(ctx, in); err != nil {
		m.logger.Warn("failed to record interaction", "method", in.Method, "error", err)
	}
}

func (m *Mocker) satisfied() bool {
	return m.responders.IsEmpty() && m.expectations.IsEmpty()
}

// unmatched lists rule methods still pending, responders first, without repeats.
func (m *Mocker) unmatched() []string {
	var out []string
	seen := make(map[string]bool)
	for _, name := range append(m.responders.Pending(), m.expectations.Pending()...) {
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

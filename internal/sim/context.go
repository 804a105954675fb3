package sim

import (
	"log/slog"

	"github.com/roach88/asyncmock/internal/wire"
)

// OutcallResult is the answer to one outcall: a reply, or a *wire.RejectError.
type OutcallResult struct {
	Reply wire.HTTPReply
	Err   error
}

// Context is what a Handler sees of the Env while it runs.
type Context struct {
	env  *Env
	task *task
}

// Logger returns the Env's logger annotated with the call.
func (c *Context) Logger() *slog.Logger {
	return c.env.logger.With("call", c.task.id, "method", c.task.method)
}

// HTTPRequest issues one outbound request and parks the call until it is
// answered. A rejected request returns a *wire.RejectError.
func (c *Context) HTTPRequest(req wire.OutcallRequest) (wire.HTTPReply, error) {
	results := c.HTTPRequests(req)
	return results[0].Reply, results[0].Err
}

// HTTPRequests issues reqs together and parks the call until all of them are
// answered. Results are in request order.
func (c *Context) HTTPRequests(reqs ...wire.OutcallRequest) []OutcallResult {
	if len(reqs) == 0 {
		return nil
	}
	t := c.task
	t.results = make([]OutcallResult, len(reqs))
	t.outstanding = len(reqs)
	for i, req := range reqs {
		if req.HTTPMethod == "" {
			req.HTTPMethod = "POST"
		}
		oc := &outcall{
			correlationID: c.env.ids.Generate(),
			partition:     c.env.partition,
			request:       req,
			task:          t,
			index:         i,
		}
		c.env.pending = append(c.env.pending, oc)
		c.env.logger.Debug("outcall issued",
			"call", t.id,
			"correlation_id", oc.correlationID,
			"url", req.URL,
		)
	}

	t.park()

	results := t.results
	t.results = nil
	return results
}

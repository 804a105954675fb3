// Package demo contains small services used by tests, scenarios and the CLI.
// They call their dependencies through stub, so every outbound call shows up
// as a pending request the mocker can answer.
package demo

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/asyncmock/internal/sim"
	"github.com/roach88/asyncmock/internal/stub"
	"github.com/roach88/asyncmock/internal/wire"
)

// GreetRequest is the argument of greet.
type GreetRequest struct {
	Name string `json:"name"`
}

// GreetResponse is the result of greet.
type GreetResponse struct {
	Greeting string `json:"greeting"`
}

// QuoteRequest is the argument of quote.
type QuoteRequest struct {
	Symbol string `json:"symbol"`
}

// Price is what price_a and price_b return, in integer cents.
type Price struct {
	Cents int64 `json:"cents"`
}

// Quote is the result of quote.
type Quote struct {
	Symbol string `json:"symbol"`
	Low    int64  `json:"low"`
	High   int64  `json:"high"`
}

// Install registers every demo method on env.
func Install(env *sim.Env) {
	env.Install("greet", Greet)
	env.Install("quote", QuoteHandler)
	env.Install("echo", Echo)
	env.Install("blob", Blob)
}

// Greet asks prepare_greet for a prefix, then asks greet to build the
// greeting from it. A rejected dependency becomes a canonical error result.
func Greet(ctx *sim.Context, payload []byte) ([]byte, error) {
	var req GreetRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("decode greet request: %w", err)
	}

	prefix, err := stub.Call[string](ctx, "prepare_greet", req.Name)
	if err != nil {
		return wire.EncodeErr(failure(err)), nil
	}

	greeting, err := stub.Call[string](ctx, "greet", prefix, req.Name)
	if err != nil {
		return wire.EncodeErr(failure(err)), nil
	}

	ctx.Logger().Debug("greeting built", "name", req.Name)
	return wire.EncodeOk(GreetResponse{Greeting: greeting})
}

// QuoteHandler asks price_a and price_b in parallel and reports the range.
func QuoteHandler(ctx *sim.Context, payload []byte) ([]byte, error) {
	var req QuoteRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("decode quote request: %w", err)
	}

	sources := []string{"price_a", "price_b"}
	reqs := make([]wire.OutcallRequest, len(sources))
	for i, method := range sources {
		r, err := stub.Request(method, req.Symbol)
		if err != nil {
			return nil, err
		}
		reqs[i] = r
	}

	results := ctx.HTTPRequests(reqs...)
	prices := make([]int64, len(sources))
	for i, res := range results {
		p, err := stub.Decode[Price](sources[i], res.Reply, res.Err)
		if err != nil {
			return wire.EncodeErr(failure(err)), nil
		}
		prices[i] = p.Cents
	}

	q := Quote{Symbol: req.Symbol, Low: min(prices[0], prices[1]), High: max(prices[0], prices[1])}
	return wire.EncodeOk(q)
}

// Echo returns its payload as a canonical ok result without calling anything.
func Echo(_ *sim.Context, payload []byte) ([]byte, error) {
	return wire.EncodeOk(json.RawMessage(payload))
}

// Blob returns bytes that are not JSON.
func Blob(_ *sim.Context, _ []byte) ([]byte, error) {
	return []byte("\x00\x01blob"), nil
}

// failure is the message a demo service reports for a failed dependency.
func failure(err error) string {
	var re *wire.RejectError
	if errors.As(err, &re) {
		return re.Message
	}
	return err.Error()
}

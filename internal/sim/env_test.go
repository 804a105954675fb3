package sim

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/asyncmock/internal/wire"
)

func newTestEnv(t *testing.T, opts ...Option) *Env {
	t.Helper()
	opts = append([]Option{WithIDGenerator(NewSequenceGenerator("req"))}, opts...)
	env := New(opts...)
	t.Cleanup(func() { _ = env.Close() })
	return env
}

// fetch issues one outcall to url and returns its body, or the reject as text.
func fetch(url string) Handler {
	return func(ctx *Context, payload []byte) ([]byte, error) {
		reply, err := ctx.HTTPRequest(wire.OutcallRequest{URL: url, Body: payload})
		if err != nil {
			return []byte("failed: " + err.Error()), nil
		}
		return reply.Body, nil
	}
}

func TestEnv_SubmitUnknownMethod(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.SubmitCall("missing", nil)
	assert.ErrorIs(t, err, ErrMethodNotFound)
}

func TestEnv_CallStartsOnNextTick(t *testing.T) {
	env := newTestEnv(t)
	env.Install("echo", func(_ *Context, payload []byte) ([]byte, error) {
		return payload, nil
	})

	id, err := env.SubmitCall("echo", []byte(`"hi"`))
	require.NoError(t, err)

	_, err = env.AwaitCallNoTicks(id)
	require.ErrorIs(t, err, ErrNotCompleted)

	env.Tick()
	assert.Equal(t, int64(1), env.Steps())

	out, err := env.AwaitCallNoTicks(id)
	require.NoError(t, err)
	assert.Equal(t, `"hi"`, string(out))
}

func TestEnv_OutcallLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.Install("fetch", fetch("http://localhost:6969/price"))

	id, err := env.SubmitCall("fetch", []byte(`{"method":"price","args":[]}`))
	require.NoError(t, err)
	assert.Empty(t, env.PendingRequests())

	env.Tick()
	pending := env.PendingRequests()
	require.Len(t, pending, 1)
	assert.Equal(t, "req-1", pending[0].CorrelationID)
	assert.Equal(t, DefaultPartition, pending[0].Partition)
	assert.Equal(t, "http://localhost:6969/price", pending[0].URL)
	assert.Equal(t, "POST", pending[0].HTTPMethod)
	assert.JSONEq(t, `{"method":"price","args":[]}`, string(pending[0].Body))

	require.NoError(t, env.InjectResponse(wire.MockResponse{
		CorrelationID: "req-1",
		Partition:     DefaultPartition,
		Response:      wire.HTTPReply{Status: 200, Body: []byte(`42`)},
	}))
	assert.Empty(t, env.PendingRequests())

	_, err = env.AwaitCallNoTicks(id)
	require.ErrorIs(t, err, ErrNotCompleted, "resumes only on the next tick")

	env.Tick()
	out, err := env.AwaitCallNoTicks(id)
	require.NoError(t, err)
	assert.Equal(t, "42", string(out))
}

func TestEnv_InjectResponseErrors(t *testing.T) {
	env := newTestEnv(t, WithPartition("p-1"))
	env.Install("fetch", fetch("http://localhost:6969/x"))
	_, err := env.SubmitCall("fetch", nil)
	require.NoError(t, err)
	env.Tick()

	tests := []struct {
		name string
		resp wire.MockResponse
	}{
		{"unknown correlation id", wire.MockResponse{CorrelationID: "nope", Partition: "p-1", Response: wire.HTTPReply{Status: 200}}},
		{"wrong partition", wire.MockResponse{CorrelationID: "req-1", Partition: "p-2", Response: wire.HTTPReply{Status: 200}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.InjectResponse(tt.resp)
			assert.ErrorIs(t, err, ErrUnknownRequest)
		})
	}
	assert.Len(t, env.PendingRequests(), 1, "failed injections leave the request pending")
}

func TestEnv_InjectedRejectReachesHandler(t *testing.T) {
	env := newTestEnv(t)
	env.Install("fetch", fetch("http://localhost:6969/x"))
	id, err := env.SubmitCall("fetch", nil)
	require.NoError(t, err)
	env.Tick()

	require.NoError(t, env.InjectResponse(wire.MockResponse{
		CorrelationID: "req-1",
		Partition:     DefaultPartition,
		Response:      wire.HTTPReject{Code: wire.RejectSysFatal, Message: "boom"},
	}))

	out, err := env.AwaitCall(id)
	require.NoError(t, err)
	assert.Equal(t, "failed: outcall rejected (SYS_FATAL): boom", string(out))
}

func TestEnv_ParallelOutcallsResumeWhenAllAnswered(t *testing.T) {
	env := newTestEnv(t)
	env.Install("both", func(ctx *Context, _ []byte) ([]byte, error) {
		results := ctx.HTTPRequests(
			wire.OutcallRequest{URL: "http://localhost:6969/a"},
			wire.OutcallRequest{URL: "http://localhost:6969/b"},
		)
		return fmt.Appendf(nil, "%s+%s", results[0].Reply.Body, results[1].Reply.Body), nil
	})

	id, err := env.SubmitCall("both", nil)
	require.NoError(t, err)
	env.Tick()

	pending := env.PendingRequests()
	require.Len(t, pending, 2)
	assert.Equal(t, "http://localhost:6969/a", pending[0].URL)
	assert.Equal(t, "http://localhost:6969/b", pending[1].URL)

	inject := func(id, body string) {
		require.NoError(t, env.InjectResponse(wire.MockResponse{
			CorrelationID: id,
			Partition:     DefaultPartition,
			Response:      wire.HTTPReply{Status: 200, Body: []byte(body)},
		}))
	}

	inject(pending[1].CorrelationID, "B")
	env.Tick()
	_, err = env.AwaitCallNoTicks(id)
	require.ErrorIs(t, err, ErrNotCompleted)

	inject(pending[0].CorrelationID, "A")
	env.Tick()
	out, err := env.AwaitCallNoTicks(id)
	require.NoError(t, err)
	assert.Equal(t, "A+B", string(out))
}

func TestEnv_HandlerFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler Handler
		code    wire.RejectCode
		message string
	}{
		{
			name:    "returned error",
			handler: func(*Context, []byte) ([]byte, error) { return nil, errors.New("bad input") },
			code:    wire.RejectCanisterError,
			message: "bad input",
		},
		{
			name:    "explicit reject",
			handler: func(*Context, []byte) ([]byte, error) { return nil, Reject("not allowed") },
			code:    wire.RejectCanisterReject,
			message: "not allowed",
		},
		{
			name:    "panic",
			handler: func(*Context, []byte) ([]byte, error) { panic("index out of range") },
			code:    wire.RejectCanisterError,
			message: "trapped: index out of range",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.Install("m", tt.handler)
			id, err := env.SubmitCall("m", nil)
			require.NoError(t, err)

			_, err = env.AwaitCall(id)
			var ce *CallError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.code, ce.Code)
			assert.Equal(t, "m", ce.Method)
			assert.Equal(t, tt.message, ce.Message)
			assert.True(t, IsCallError(err))
		})
	}
}

func TestEnv_AwaitCallExpiresUnansweredOutcalls(t *testing.T) {
	env := newTestEnv(t)
	env.Install("fetch", fetch("http://localhost:6969/x"))
	id, err := env.SubmitCall("fetch", nil)
	require.NoError(t, err)

	out, err := env.AwaitCall(id)
	require.NoError(t, err)
	assert.Equal(t, "failed: outcall rejected (SYS_TRANSIENT): outcall timed out: no response was provided", string(out))
	assert.Empty(t, env.PendingRequests())
}

func TestEnv_AwaitCallWatchdog(t *testing.T) {
	env := newTestEnv(t, WithMaxAwaitTicks(5))
	env.Install("forever", func(ctx *Context, _ []byte) ([]byte, error) {
		for {
			_, _ = ctx.HTTPRequest(wire.OutcallRequest{URL: "http://localhost:6969/poll"})
		}
	})
	id, err := env.SubmitCall("forever", nil)
	require.NoError(t, err)

	_, err = env.AwaitCall(id)
	require.ErrorIs(t, err, ErrAwaitTimeout)
	assert.Contains(t, err.Error(), "within 5 ticks")
}

func TestEnv_AwaitUnknownCall(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.AwaitCall(99)
	assert.ErrorIs(t, err, ErrUnknownCall)
	_, err = env.AwaitCallNoTicks(99)
	assert.ErrorIs(t, err, ErrUnknownCall)
}

func TestEnv_CloseAbortsParkedCalls(t *testing.T) {
	env := New(WithIDGenerator(NewSequenceGenerator("req")))
	env.Install("fetch", fetch("http://localhost:6969/x"))
	id, err := env.SubmitCall("fetch", nil)
	require.NoError(t, err)
	env.Tick()
	require.Len(t, env.PendingRequests(), 1)

	require.NoError(t, env.Close())
	require.NoError(t, env.Close(), "close is idempotent")

	_, err = env.AwaitCallNoTicks(id)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = env.SubmitCall("fetch", nil)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestEnv_CallsRunInSubmissionOrder(t *testing.T) {
	env := newTestEnv(t)
	env.Install("fetch", func(ctx *Context, payload []byte) ([]byte, error) {
		_, err := ctx.HTTPRequest(wire.OutcallRequest{URL: "http://localhost:6969/" + string(payload)})
		return nil, err
	})
	for _, name := range []string{"first", "second", "third"} {
		_, err := env.SubmitCall("fetch", []byte(name))
		require.NoError(t, err)
	}
	env.Tick()

	var urls []string
	for _, p := range env.PendingRequests() {
		urls = append(urls, p.URL)
	}
	assert.Equal(t, []string{
		"http://localhost:6969/first",
		"http://localhost:6969/second",
		"http://localhost:6969/third",
	}, urls)
}

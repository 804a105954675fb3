// Package harness runs declarative mocking scenarios.
//
// A scenario names one call, the rules that answer the outbound requests it
// makes, the outcome the call should produce and assertions over the
// resulting interaction trace. The harness executes it through the mocker
// against a fresh simulated environment, so a scenario file exercises
// exactly the same code path as a hand-written Go test.
//
// # Scenario Format
//
//	name: greet_happy_path
//	description: "greet resolves both of its outcalls"
//	max_steps: 10
//	call:
//	  method: greet
//	  arg: { name: Wizard }
//	mocks:
//	  - method: prepare_greet
//	    reply: Hello
//	  - method: greet
//	    reply: "Hello, Wizard!"
//	expects:
//	  - method: prepare_greet
//	    args: [Wizard]
//	want:
//	  ok: { greeting: "Hello, Wizard!" }
//	assertions:
//	  - type: trace_order
//	    methods: [prepare_greet, greet]
//
// A mock answers with exactly one of: reply (a value), reject (code and
// message), fail (a message, reject code 1) or echo_arg (the request's
// argument at that index).
//
// want selects the expected outcome: ok (the decoded value), err (a
// canonical error result's message) or error_code (any execution error code,
// optionally with err as the exact message).
//
// # Assertion Types
//
//   - trace_contains: a matching interaction exists (method, optional kind and args)
//   - trace_order: methods were first matched in the given order
//   - trace_count: method was matched exactly N times
//
// # Deterministic Testing
//
// Every run uses sequential correlation ids (req-1, req-2, ...) and an
// in-memory SQLite store, so traces are identical across runs and can be
// compared against golden files.
package harness

// Package sim implements a deterministic, in-process replica environment.
//
// Env plays the role a local replica plays for integration tests: it accepts
// calls to installed methods, advances them one step per Tick, holds the
// outbound HTTP requests they issue, and resumes them once a response is
// injected. Nothing ever leaves the process.
//
// EXECUTION MODEL:
//
// Each submitted call runs its Handler in its own goroutine, but control is
// handed back and forth over channels so exactly one goroutine runs at any
// moment. A call makes progress only inside Tick:
//  1. A submitted call starts on the next Tick.
//  2. A call that issues outcalls parks until every one of them is answered.
//  3. An injected response readies its call for the following Tick.
//
// Ticks are counted by a logical Clock. No wall-clock time is involved, so the
// same sequence of operations always produces the same pending requests in
// the same order.
//
// AwaitCall keeps ticking until the call completes. Outcalls that nobody can
// answer anymore are rejected with wire.RejectSysTransient, and a watchdog
// (WithMaxAwaitTicks) bounds the wait so a broken handler cannot hang a test.
//
// Env is not safe for concurrent use.
package sim

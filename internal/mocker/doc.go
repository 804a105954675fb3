// Package mocker drives a call through a step-based environment while
// answering the outbound requests it issues from a set of one-shot rules.
//
// A Mocker is built fluently and executed once:
//
//	out, err := mocker.Execute[GreetResponse](
//		mocker.New(env).
//			Call("greet", GreetRequest{Name: "Wizard"}).
//			MockReply("prepare_greet", "Hello").
//			MockFail("greet", "service unavailable"),
//	)
//
// EXECUTION:
//
// Driver: after submitting the call, the Mocker advances the environment one
// step at a time. Each step it scans the pending requests in the order the
// environment lists them and resolves at most one: the first request whose
// method has a response rule. Assertion rules for a method run before its
// response rule. The driver stops early once every rule has matched, or when
// the step budget (WithMaxSteps) runs out.
//
// Resolver: the Mocker then awaits the call's outcome and decodes it. A
// canonical {"ok": T} / {"err": string} result is preferred; anything else is
// decoded directly as T. Rules left unmatched fail the execution even when the
// result decodes, so a test cannot pass while skipping an interaction.
//
// Every failure is a *Error carrying one of the ErrCode* codes. Nothing is
// retried.
package mocker

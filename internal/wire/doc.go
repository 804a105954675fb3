// Package wire defines the data that crosses the boundary between a system
// under test, the simulated environment it runs in, and the mocking harness.
//
// # Request Envelope
//
// Every intercepted outbound call carries a JSON body of the form:
//
//	{"method": "greet", "args": [{"name": "Wizard"}]}
//
// The body is POSTed to OutcallURL(method). Stubs produce envelopes with
// NewEnvelope; the harness reads them back with DecodeEnvelope.
//
// # Outcomes
//
// A response rule answers an intercepted request with an Outcome, which is
// either a Reply carrying a JSON-encodable value or a Reject carrying a reject
// code and message. The environment receives the translated HTTPResponse.
//
// # Canonical Result Shape
//
// Calls that can fail report their result as a single-key JSON object:
//
//	{"ok": <value>}   or   {"err": "message"}
//
// EncodeOk and EncodeErr build these payloads.
//
// # Canonical JSON
//
// MarshalCanonical produces RFC 8785 style canonical JSON. It is used for
// golden trace snapshots and stored payloads, where byte-identical output
// across runs matters.
package wire

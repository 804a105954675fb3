// Package store records the interactions of mocked executions in SQLite.
//
// Each execution is a run. Every rule match the driver makes is appended to
// the run as an interaction row, with the request and response bodies stored
// as RFC 8785 canonical JSON so snapshots built from the store are
// byte-stable.
//
// The database is always private and in memory. A Store lives as long as the
// process (or test) that opened it.
//
// # Ordering
//
//   - Interactions are ordered by their per-run seq, assigned in record order
//   - Runs are ordered by their store-wide seq
//   - Queries never order by wall-clock time
package store

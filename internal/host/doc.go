// Package host provides backends for the scheduler's host yield channel: a
// way to say "call me again on a later turn of the event loop" without tying
// the scheduler to one mechanism.
//
//   - [Manual] is a headless run queue turned by hand, for tests and
//     deterministic runs.
//   - [Loop] is a message-passing loopback driven by one goroutine.
//   - [Frame] runs callbacks once per tick of a frame clock.
//
// Every backend runs callbacks one at a time and never inside the
// RequestCallback call that queued them.
package host

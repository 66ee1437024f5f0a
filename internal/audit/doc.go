// Package audit implements asynchronous delivery of login and session events.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, no-op).
//   - [Dispatcher]: buffered relay with drop-if-full or block-if-full semantics.
//   - [Event]: one record: timestamp, type, user, session, client address, outcome.
//
// # Architecture boundaries
//
// This package owns buffering and sink delivery. It does NOT decide which
// events to emit; the Engine and flow functions do.
//
// # What this package must NOT do
//
//   - Filter events based on business logic.
//   - Import goSession or any sibling internal package.
//   - Carry passwords or raw session tokens in events.
package audit

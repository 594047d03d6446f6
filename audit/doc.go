// Package audit records best-effort action entries for the dashboard and
// delivers them to pluggable sinks.
//
// # Components
//
//   - [Recorder] builds an [Entry] from the active session and hands it to a sink.
//   - [Sink] is the consumer interface (storage list, JSON writer, zap log, channel, no-op).
//   - [Dispatcher] is a buffered async relay with drop-if-full / block-if-full semantics.
//
// # Architecture boundaries
//
// This package owns entry construction, buffering and sink delivery. It does
// NOT decide which actions to record; the router, search controller and shell
// do that.
//
// # What this package must NOT do
//
//   - Fail the caller's action because a sink failed.
//   - Import goConsole, router or search.
//   - Record anything without an active session.
package audit

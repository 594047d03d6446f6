// Package goConsole is the client runtime of an operations console: it owns
// the user session, gates module navigation by capability, records audit
// entries, drives the active-module state machine and ranks global search.
//
// The package is designed around one event loop: [Shell] methods post their
// work onto it and wait, and timer expiries and fragment retrieval
// completions are posted to the same loop, so no two handlers ever
// interleave. A Shell is assembled with [Builder.Build] from a [Config].
//
// # Architecture boundaries
//
// goConsole is the composition root. Component behavior lives in the
// session, permission, audit, router and search packages; render supplies
// the stock HTML view. The Shell only wires them together, maps component
// signals to metrics and exposes the combined surface.
//
// # What this package must NOT do
//
//   - Render markup itself or decide what a fragment contains.
//   - Block the event loop on network or storage latency beyond a single
//     storage round-trip per call.
//   - Import any sub-package that re-imports goConsole (no import cycles).
package goConsole

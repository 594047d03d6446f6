// Package prometheus exposes shell metrics in Prometheus text format.
//
// Counters are grouped into labelled families such as
// goconsole_navigation_total{outcome="denied"}. The fragment retrieval
// latency is a histogram and audit dispatch is reported as
// goconsole_audit_entries_total.
//
// # What this package must NOT do
//
//   - Register metrics in a global registry; callers mount the Handler.
//   - Mutate shell state.
package prometheus

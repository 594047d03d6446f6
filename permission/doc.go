// Package permission decides which navigable targets the current session may
// open and keeps the lock state of the dashboard's navigation affordances.
//
// # Capabilities
//
// A capability is an opaque label such as "finance.view". The [Registry]
// records the labels a deployment knows about so configuration can reject
// affordances that require an unregistered capability. Membership itself is
// answered by the session's permission set.
//
// # Architecture boundaries
//
// This package is a pure in-memory structure with no I/O. It reads the
// session through [SessionSource] and never triggers logout or redirects.
//
// # What this package must NOT do
//
//   - Access storage, the network, or the view.
//   - Import goConsole or router.
//   - Cache a grant decision: lock state is re-derived on every [Gate.Enforce].
package permission

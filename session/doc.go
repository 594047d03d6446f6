// Package session owns the dashboard's single active session: decoding the
// persisted opaque token, expiry detection, logout and background
// re-validation.
//
// # Token formats
//
// A token is an encoding of [Claims]. [Base64JSONCodec] reads the
// base64-encoded JSON format issued by the login surface; the jwt package
// provides a signed alternative behind the same [TokenCodec] interface.
//
// # Architecture boundaries
//
// This package owns the [Store], the [Session] model and the [Storage]
// abstraction over persisted keys (memory or Redis). It does NOT evaluate
// navigation permissions or render anything: callers observe logout and
// expiry through [Hooks].
//
// # What this package must NOT do
//
//   - Import goConsole, jwt, permission or router (no upward imports).
//   - Expose a partially valid session: a session is either valid or absent.
//   - Touch Store state from more than one goroutine; the shell confines it
//     to its event loop.
package session

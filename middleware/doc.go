// Package middleware adapts goSession.Engine to net/http.
//
// # Guards
//
//   - [Guard] requires `Authorization: Bearer <token>` and stores the
//     resolved identity in the request context.
//   - [RequireAdmin] additionally requires Identity.Admin.
//
// Every authentication failure is a bare 401, whatever the cause.
//
// # Client details
//
// [ClientResolver] extracts the caller address (X-Forwarded-For, then
// X-Real-IP, then the peer address, only trusting headers from configured
// proxies) and the User-Agent, both defaulting to "unknown".
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT parse
// tokens or touch the database itself.
package middleware

// Package session provides relational session persistence for the login
// hot path.
//
// # Model
//
// A [Session] row is keyed by an opaque 256-bit token. Rows are never
// deleted: logout, supersession, administrative revocation and expiry only
// flip IsActive and record EndReason, so the table doubles as an audit trail.
//
// # Single active session
//
// At most one row per user has is_active set. [Migrate] installs a partial
// unique index on user_sessions(user_id) WHERE is_active and [Store.Create]
// deactivates and inserts inside one transaction, retrying when a concurrent
// login wins the index.
//
// # Architecture boundaries
//
// This package owns the [Store] and the [Session] model. It does NOT
// interpret JWT tokens or enforce authentication policy; those belong to the
// Engine.
//
// # What this package must NOT do
//
//   - Import goSession or jwt (no upward imports).
//   - Delete session rows.
package session

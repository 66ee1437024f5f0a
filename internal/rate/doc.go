// Package rate provides the persistent login attempt log and the lockout
// evaluation built on top of it.
//
// # Window semantics
//
// Attempts are keyed on the (username, ip) pair. A pair is locked while at
// least MaxLoginAttempts failed attempts have attempted_at strictly inside
// the trailing LockoutDuration; an attempt exactly at the boundary has aged
// out.
//
// # What this package must NOT do
//
//   - Skip recording an attempt because the pair is locked.
//   - Be imported outside the goSession module.
package rate

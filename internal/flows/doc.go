// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunLogin, RunAuthenticate, RunLogout, RunLogoutAll,
// RunListSessions) accepts a typed dependency struct of func fields and
// returns results without side-effects beyond those dependencies. Tests drive
// the flows with fake dependencies and the Engine type stays thin.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the session store, the attempt limiter,
// the JWT manager, the user provider, audit and metrics. They do NOT own any
// of these resources; ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goSession (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency funcs.
package flows

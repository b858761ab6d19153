// Package flows contains the auth-refresh coordinator used by the authpipe Client.
//
// The Coordinator owns the Idle/Refreshing state and the FIFO queue of calls that
// failed authentication while a refresh was in flight. It issues at most one refresh
// at a time, replays queued calls in arrival order with the new access token, and
// collapses a failed refresh into a single sign-in prompt.
//
// # Architecture boundaries
//
// The Coordinator does not know how calls are built, sent, or normalized. It is
// generic over the call spec S and the result R, and reaches the outside world only
// through CoordinatorDeps: the session store, the refresh call, the replay function,
// and the login-required callback. Ownership of those resources stays with the
// Client.
//
// # What this package must NOT do
//
//   - Keep package-level state. Every Client owns one Coordinator value.
//   - Import authpipe (to avoid import cycles).
//   - Attach a stale access token to a replayed call.
package flows

// Package authpipe is a client-side request pipeline for JSON APIs that answer in a
// {code, data, message} envelope and authenticate with short-lived bearer tokens.
//
// Every call goes through [Client.Send] (or the [Do], [DoPage] and Get/Post helpers):
// the call is validated, the current access token is injected, GET requests are
// cache-busted, and the response envelope is normalized into a [Response] or a
// classified [*Error]. A call rejected with an auth failure is replayed once after the
// access token has been refreshed. Concurrent auth failures share a single refresh;
// calls that fail while it is in flight are queued and replayed in arrival order.
// When refreshing is impossible the session is cleared and the [Notifier] is asked
// exactly once to send the user to sign-in.
//
// Client methods are safe to call from multiple goroutines after [Builder.Build].
//
// # Architecture boundaries
//
// authpipe is the public surface. It exposes [Client], [Builder], [Config], and value
// types (CallSpec, Response, Error, MetricsSnapshot). Refresh coordination, envelope
// normalization and failure classification live under internal/ and are never
// exported. Session persistence, token inspection, the HTTP transport and user
// notifications are separate packages so they can be replaced independently.
//
// # What this package must NOT do
//
//   - Retry a call more than once, or retry any failure other than an auth failure.
//   - Send the refresh call with credentials, or route it through the refresh
//     coordinator.
//   - Log or emit access and refresh tokens.
package authpipe

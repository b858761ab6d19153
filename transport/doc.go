// Package transport carries a single request to the remote API and returns its raw
// response. It does not interpret status codes or envelopes.
package transport

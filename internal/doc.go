// Package internal contains helpers that are private to authpipe.
//
// # Sub-packages
//
//   - classify: maps call outcomes onto the failure taxonomy
//   - envelope: normalizes raw responses into payloads or classified errors
//   - flows: the single-flight auth refresh coordinator
//
// # What this package must NOT do
//
//   - Export types that appear in the public authpipe API.
//   - Be imported by any package outside the authpipe module.
package internal

// Package classify maps raw call outcomes onto the fixed failure taxonomy used by
// authpipe.
//
// # Architecture boundaries
//
// Classification is a pure, deterministic table lookup. The package knows HTTP-ish
// status codes, envelope codes and transport errors; it does not know about sessions,
// refresh, or how callers present messages to users.
//
// # What this package must NOT do
//
//   - Perform I/O or log.
//   - Import authpipe or any sibling package.
//   - Panic on any input.
package classify

// Package envelope turns a raw transport response into a normalized result:
// either the payload of a successful {code, data, message} envelope or a classified
// error record.
//
// Normalize never panics and never performs I/O.
package envelope

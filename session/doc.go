// Package session provides the credential record read by authpipe and the stores
// that persist it.
//
// # Stores
//
// [MemoryStore] keeps the session in process memory and is the default. [RedisStore]
// persists it in Redis using the compact binary encoding of [Encode]/[Decode].
// [SQLiteStore] keeps one row per profile on local disk and backs the arpctl CLI.
//
// # Binary encoding
//
// Encoded sessions start with a schema version byte (v1, v2). Decoding accepts
// every known version; new versions add fields but never reinterpret old ones.
//
// # What this package must NOT do
//
//   - Import authpipe or jwt (no upward imports).
//   - Mutate a stored session in place. Callers replace or clear it.
//   - Issue network calls other than to its own backing store.
package session

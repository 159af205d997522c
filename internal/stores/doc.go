// Package stores provides Redis-backed, short-lived record stores for the
// confirmation/linking workflow: single-use confirmation codes and the
// action-scoped temp payloads staged alongside them.
//
// # Design
//
// Each confirmation record is a versioned, binary-encoded blob stored in
// Redis with a TTL. Consume runs a server-side Lua script so that observe
// and delete happen in one atomic step; a plain read-then-delete pair
// would let two concurrent callers both redeem a single-use code. Records
// are physically removed on success; a code mismatch leaves the record in
// place so the caller can retry until the TTL elapses.
//
// # Architecture boundaries
//
// This package owns persistence and concurrency control for transient
// records. It does NOT generate codes, resolve accounts, or drive flow
// transitions — those belong to the root package and internal/flows.
//
// # What this package must NOT do
//
//   - Import the root package or any sibling internal package.
//   - Store or return plaintext codes; only SHA-256 hashes are persisted.
//   - Distinguish "expired" from "never existed" in anything it returns.
package stores

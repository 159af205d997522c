// Package linking implements the confirmation and linking workflow engine
// of the SharkFlow backend: sensitive account mutations (OAuth provider
// connect/disconnect, TOTP setup/disable, soft-deleted account restore)
// are gated behind short-lived, single-use confirmation codes held in
// Redis.
//
// The package is designed for concurrent server workloads: Engine methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// linking is the public surface. It exposes [Engine], [Builder], [Config],
// collaborator interfaces ([IdentityStore], [Deliverer], [Clock]), and
// value types. Record encoding, the atomic consume script, and the flow
// state machine live under internal/ and are never exported.
//
// # What this package must NOT do
//
//   - Log, rate-limit, or make multi-factor policy decisions. It returns
//     typed errors and emits optional [AuditEvent]s; everything else is
//     the caller's business.
//   - Touch the persistent identity store except through [IdentityStore].
//   - Sweep expired records. Redis TTL is the only garbage collection.
//
// # Correctness contract
//
// ValidateAndConsume is a single server-side script: a record is observed
// and deleted in one atomic step, so exactly one of N concurrent callers
// holding the correct code succeeds. "Expired", "consumed", and "never
// issued" are deliberately indistinguishable to callers.
package linking

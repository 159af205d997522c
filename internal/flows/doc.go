// Package flows models the per-(action, subject) linking lifecycle as an
// explicit tagged state machine, independent of what is or is not sitting
// in Redis at any moment.
//
// Confirm-only actions (provider disable, TOTP disable, restore) walk
// Idle → PendingConfirmation → Idle. Setup actions that stage a payload
// before confirmation (provider connect, TOTP setup) walk
// Idle → PendingSecret → PendingConfirmation → Active. There is no
// explicit cancel: expiry silently reverts any pending state to Idle.
//
// # Architecture boundaries
//
// The machine validates transition legality only. It performs no I/O and
// holds no references to stores or collaborators; the root package drives
// it while talking to storage.
package flows

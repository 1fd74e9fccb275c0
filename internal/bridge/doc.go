// Package bridge runs work on the host's single owning execution context.
//
// The host graph API is not thread-safe. Every call into it goes through one
// goroutine, the owner, which drains a FIFO queue of work units one at a time.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// Bridge.Run is the owner. Network goroutines call RunOnOwner, which enqueues
// a unit and blocks on its completion channel until the command timeout.
// This gives:
//   - Mutual exclusion on the host API
//   - Enqueue-order serialization of concurrent callers
//   - No reentrancy hazard: work already on the owner runs inline
//
// Timeouts:
// A caller that times out gets a TIMEOUT error. The unit stays queued and may
// still run later with nobody waiting for it. It is never enqueued twice.
//
// Unavailable host:
// A Bridge built with Unavailable fails every dispatch immediately instead of
// queueing work that nothing will drain.
//
// CP-2: Logical Clock
// Every unit is stamped with a monotonic seq from Clock.Next(). The seq is
// the owner's execution order and is what the command journal records.
package bridge

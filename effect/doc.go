// Package effect models side effects as inert algebraic values.
//
// An Effect describes zero, one, or many future actions without performing
// any work. Reducers return effects; the store's runner executes them. This
// split keeps transition functions pure and makes effect composition a matter
// of ordinary value construction.
//
// # Construction
//
//   - None() performs nothing.
//   - Send(a) / Batch(a, b, c) emit synchronously-known actions.
//   - Run(body) wraps an asynchronous task that emits through a callback.
//
// # Combination
//
//   - Merge(e1, e2, ...) runs operands concurrently.
//   - Concat(e1, e2, ...) runs operands strictly in order.
//   - Map(e, f) retags every emitted action into another action type.
//
// None is the identity of Merge and Concat; both flatten at construction so
// the algebraic laws hold structurally, not just observably.
//
// # Cancellation
//
// e.Cancellable(id, cancelInFlight) registers the running work under id;
// Cancel(id) is an effect terminating everything registered under an equal
// id. Cancellation is cooperative: task bodies observe it through their
// context and via the emit callback, which drops actions once cancelled.
//
// Effects are consumed exactly once: created fresh on every reduction,
// merged upward through the reducer tree, then handed to the runner.
package effect

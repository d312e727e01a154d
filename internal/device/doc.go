// Package device implements the device-state cache core: per-device
// Records with serialisation gates, the freshness/reconciliation policy,
// and the known-device Registry.
//
// # Data Model
//
// Each Record holds one physical device's identity, a cached Snapshot (the
// complete last-known vendor payload), the epoch after which that snapshot
// is stale, and the optimistic pending-transition marker used by slow
// actuators. Every mutable field is guarded by the Record's gate.
//
// # Gate Discipline
//
// The gate is a per-device binary lock. Acquire it before any
// read-modify-write of cached state and release it on every exit path,
// normally via defer. Methods with the Locked suffix assume the caller
// already holds the gate; that is how nested operations avoid
// re-acquisition. The upstream API misbehaves under concurrent in-flight
// requests for the same device; per-device rather than global granularity
// preserves cross-device concurrency.
//
// # Reconciliation
//
// EnsureFreshLocked embodies the pull policy (absent, always-refetch, or
// expired snapshots trigger a blocking pull; failures keep prior data and
// mark the device faulted). MergePushLocked embodies the push policy
// (shallow field-wise merge into the state sub-object, online mark,
// synthesized report timestamps). Push events for never-pulled devices are
// rejected with ErrNoSnapshot: merging into an absent base has no
// well-defined result.
package device

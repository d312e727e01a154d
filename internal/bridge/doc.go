// Package bridge is the orchestration core: it reconciles the pull-based
// state poll, the push report stream, and host-initiated commands into the
// per-device cache, and exposes the host-facing get/set surface.
//
// Control flow for a read: the device's gate is acquired, the cache
// freshness window is checked, a stale snapshot triggers a blocking pull
// through the session manager and retry engine, the gate is released, and
// the value is returned. Push reports independently acquire the same gate,
// merge into the same cache, and notify the host. Commands run a single
// upstream attempt, merge the returned state, and hold the gate through a
// short cooldown so the upstream device is never flooded.
//
// Failures inside a critical section are always resolved before the gate is
// released: read paths swallow them after logging (the device degrades to
// offline rather than the process crashing), write paths return them to the
// caller.
package bridge

package device

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-yolink/internal/yolink"
)

// StatePuller fetches a full state snapshot for one device from upstream.
// Implementations wrap the vendor client with the session manager and the
// retry engine; the cache core stays transport-agnostic.
type StatePuller interface {
	PullState(ctx context.Context, info yolink.DeviceInfo) (Snapshot, error)
}

// Record is the in-memory representation of one physical device: its
// identity, per-device configuration, and cached state.
//
// The embedded gate serialises every state-changing or state-fetching
// operation for this device. All fields below the gate are mutated only
// while it is held. Methods with the Locked suffix require the caller to
// hold the gate; this is how an operation that already owns the gate invokes
// sub-operations without re-acquisition. Distinct devices have distinct
// gates, so cross-device reads during a held gate are safe.
//
// Identity is guarded by its own mutex rather than the gate: a device-list
// sync refreshing names and tokens must never queue behind a gate held
// across a slow pull, or the registry lock it holds would stall every other
// device.
type Record struct {
	infoMu sync.RWMutex
	info   yolink.DeviceInfo

	cfg Config
	now func() time.Time

	// gate is the per-device serialisation primitive. At most one
	// state-changing or state-fetching operation holds it at a time.
	gate sync.Mutex

	// Guarded by gate.
	data        Snapshot
	updateTime  time.Time
	targetState string
	targetGen   uint64
	faulted     bool
}

// newRecord creates a Record for a discovered device.
func newRecord(info yolink.DeviceInfo, cfg Config, now func() time.Time) *Record {
	if now == nil {
		now = time.Now
	}
	return &Record{
		info: info,
		cfg:  cfg,
		now:  now,
	}
}

// Lock acquires the device's serialisation gate.
// Release with Unlock on every exit path, normally via defer.
func (r *Record) Lock() {
	r.gate.Lock()
}

// Unlock releases the device's serialisation gate.
func (r *Record) Unlock() {
	r.gate.Unlock()
}

// ID returns the stable device identifier.
func (r *Record) ID() string {
	r.infoMu.RLock()
	defer r.infoMu.RUnlock()
	return r.info.DeviceID
}

// Info returns the device's upstream identity (id, type, name, token).
// It does not touch the gate and is safe whether or not the gate is held.
func (r *Record) Info() yolink.DeviceInfo {
	r.infoMu.RLock()
	defer r.infoMu.RUnlock()
	return r.info
}

// UpdateInfo refreshes mutable identity fields (display name, device token)
// from a newer device-list entry. It never blocks on the gate.
func (r *Record) UpdateInfo(info yolink.DeviceInfo) {
	r.infoMu.Lock()
	defer r.infoMu.Unlock()
	r.info = info
}

// EnsureFreshLocked guarantees the cached snapshot is inside its freshness
// window, pulling from upstream when it is not. Caller must hold the gate.
//
// A pull happens when the snapshot is absent, the refresh interval is zero
// (always refetch), or the current time is at or past updateTime. On success
// the snapshot is overwritten wholesale and updateTime advances to
// now + RefreshInterval. On failure the prior snapshot is left untouched,
// the device is marked faulted, and ErrPullFailed is returned; callers
// must treat the device as offline rather than trusting stale data.
func (r *Record) EnsureFreshLocked(ctx context.Context, puller StatePuller) error {
	now := r.now()
	if r.data != nil && r.cfg.RefreshInterval > 0 && now.Before(r.updateTime) {
		return nil
	}

	snap, err := puller.PullState(ctx, r.Info())
	if err != nil {
		r.faulted = true
		return fmt.Errorf("%w: %w", ErrPullFailed, err)
	}

	r.data = snap
	r.updateTime = now.Add(r.cfg.RefreshInterval)
	r.faulted = false
	return nil
}

// MergePushLocked folds a partial push payload into the cached snapshot.
// Caller must hold the gate.
//
// The device is marked online and the payload's fields are shallow-merged
// into the nested state sub-object: incoming keys overwrite, keys absent
// from the payload are preserved. A payload with no report timestamp gets
// one synthesized from the current time so freshness heuristics keep
// working. Applying the same payload twice yields the same state.
//
// A push for a device that has never been pulled returns ErrNoSnapshot and
// leaves the cache untouched: merging into an absent base has no
// well-defined result.
func (r *Record) MergePushLocked(payload map[string]any) error {
	if r.data == nil {
		return ErrNoSnapshot
	}

	r.data[keyOnline] = true

	state, _ := r.data[keyState].(map[string]any)
	if state == nil {
		state = make(map[string]any)
		r.data[keyState] = state
	}

	reportAt := ""
	for k, v := range payload {
		if k == keyReportAt {
			reportAt, _ = v.(string)
			continue
		}
		state[k] = deepCopyValue(v)
	}

	if reportAt == "" {
		reportAt = r.now().UTC().Format(time.RFC3339)
	}
	r.data[keyReportAt] = reportAt

	return nil
}

// ApplySetResultLocked folds the state returned by a successful set command
// into the snapshot and advances the freshness window, so a read inside the
// command cooldown is served from cache without another upstream call.
// Caller must hold the gate.
func (r *Record) ApplySetResultLocked(result map[string]any) {
	if r.data == nil {
		// Set before any pull: the command response is the first and only
		// authoritative data we have.
		r.data = Snapshot{keyState: map[string]any{}}
	}
	_ = r.MergePushLocked(result)
	r.updateTime = r.now().Add(r.cfg.RefreshInterval)
	r.faulted = false
}

// HasSnapshotLocked reports whether the device has ever been pulled.
// Caller must hold the gate.
func (r *Record) HasSnapshotLocked() bool {
	return r.data != nil
}

// SnapshotLocked returns an independent copy of the cached snapshot, or nil
// when absent. Caller must hold the gate.
func (r *Record) SnapshotLocked() Snapshot {
	return r.data.DeepCopy()
}

// StateValueLocked returns one field of the nested state sub-object.
// Caller must hold the gate.
func (r *Record) StateValueLocked(field string) (any, bool) {
	state := r.data.State()
	if state == nil {
		return nil, false
	}
	v, ok := state[field]
	return v, ok
}

// FaultedLocked reports whether the last pull for this device failed.
// Caller must hold the gate.
func (r *Record) FaultedLocked() bool {
	return r.faulted
}

// OnlineLocked reports the snapshot's online flag. Caller must hold the gate.
func (r *Record) OnlineLocked() bool {
	return r.data.Online()
}

// SetTargetStateLocked records the optimistic pending-transition marker for
// slow actuators and returns a generation identifying this transition.
// Caller must hold the gate.
func (r *Record) SetTargetStateLocked(target string) uint64 {
	r.targetState = target
	r.targetGen++
	return r.targetGen
}

// TargetStateLocked returns the pending-transition marker, empty when none.
// Caller must hold the gate.
func (r *Record) TargetStateLocked() string {
	return r.targetState
}

// ClearTargetStateLocked clears the pending-transition marker and reports
// whether it was still set. Caller must hold the gate.
func (r *Record) ClearTargetStateLocked() bool {
	if r.targetState == "" {
		return false
	}
	r.targetState = ""
	return true
}

// ClearTargetStateIfCurrentLocked clears the marker only when gen matches
// the transition that set it, reporting whether anything was cleared. A
// fallback timer armed for a superseded transition no-ops here instead of
// discarding the newer marker. Caller must hold the gate.
func (r *Record) ClearTargetStateIfCurrentLocked(gen uint64) bool {
	if r.targetState == "" || gen != r.targetGen {
		return false
	}
	r.targetState = ""
	return true
}

// ExpireLocked forces the next EnsureFreshLocked to pull regardless of the
// freshness window. Caller must hold the gate.
func (r *Record) ExpireLocked() {
	r.updateTime = time.Time{}
}

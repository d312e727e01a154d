package bridge

import (
	"context"

	"github.com/nerrad567/gray-logic-yolink/internal/device"
)

// GetCurrentValue is the blocking read path: it guarantees the device's
// snapshot is inside its freshness window before answering, pulling from
// upstream when it is not.
//
// A failed pull is swallowed after logging and reported as a nil value with
// the device left faulted, so an upstream outage degrades the one device
// rather than erroring past the accessory boundary. Only an unknown device
// returns an error. While a slow actuator is mid-transition, the state field
// reads as the optimistic pending target.
func (b *Bridge) GetCurrentValue(ctx context.Context, deviceID, field string) (any, error) {
	rec, ok := b.registry.Get(deviceID)
	if !ok {
		return nil, device.ErrUnknownDevice
	}

	rec.Lock()
	defer rec.Unlock()

	if err := rec.EnsureFreshLocked(ctx, b); err != nil {
		b.log.Warn("state pull failed, reporting device offline",
			"device_id", deviceID,
			"error", err,
		)
		return nil, nil
	}

	return b.fieldValueLocked(rec, field), nil
}

// ReadCached is phase one of the two-phase read: it answers immediately from
// the cache without consulting upstream. The second return reports whether a
// value was available. Pair with ScheduleRefresh to bring the cache current.
func (b *Bridge) ReadCached(deviceID, field string) (any, bool) {
	rec, ok := b.registry.Get(deviceID)
	if !ok {
		return nil, false
	}

	rec.Lock()
	defer rec.Unlock()

	if !rec.HasSnapshotLocked() {
		return nil, false
	}
	if field == fieldState {
		if target := rec.TargetStateLocked(); target != "" {
			return target, true
		}
	}
	return rec.StateValueLocked(field)
}

// ScheduleRefresh is phase two of the two-phase read: it brings the device's
// snapshot current in the background and, when that results in a pull,
// notifies the host so stale values handed out by ReadCached get corrected.
func (b *Bridge) ScheduleRefresh(ctx context.Context, deviceID string) {
	rec, ok := b.registry.Get(deviceID)
	if !ok {
		return
	}

	go func() {
		rec.Lock()
		err := rec.EnsureFreshLocked(ctx, b)
		var snap device.Snapshot
		if err == nil {
			snap = rec.SnapshotLocked()
		}
		rec.Unlock()

		if err != nil {
			b.log.Warn("background refresh failed",
				"device_id", deviceID,
				"error", err,
			)
			return
		}
		b.host.NotifyChange(deviceID, snap)
	}()
}

// fieldValueLocked resolves one state field, honouring a pending-transition
// marker for the state field. Caller must hold the gate.
func (b *Bridge) fieldValueLocked(rec *device.Record, field string) any {
	if field == fieldState {
		if target := rec.TargetStateLocked(); target != "" {
			return target
		}
	}
	v, _ := rec.StateValueLocked(field)
	return v
}

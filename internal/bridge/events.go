package bridge

import (
	"context"
	"errors"

	"github.com/nerrad567/gray-logic-yolink/internal/device"
	"github.com/nerrad567/gray-logic-yolink/internal/push"
	"github.com/nerrad567/gray-logic-yolink/internal/retry"
)

// HandleEvent routes one push report into the device cache and notifies the
// host. It is the push channel's Handler.
//
// A report for a device outside the known set is treated as a signal that a
// new device appeared: the device list is re-polled once, and the report is
// dropped with a warning if the device is still unknown. A report for a
// known but never-pulled device is ignored with a warning, since merging
// into an absent base has no well-defined result; neither case is a failure.
func (b *Bridge) HandleEvent(ev push.Event) error {
	rec, ok := b.registry.Get(ev.DeviceID)
	if !ok {
		b.log.Info("report for unknown device, refreshing device list",
			"device_id", ev.DeviceID,
			"event", ev.Event,
		)
		if err := b.syncDevices(context.Background(), retry.Profile{Attempts: 1}); err != nil {
			b.log.Warn("device list refresh failed", "error", err)
		}
		rec, ok = b.registry.Get(ev.DeviceID)
		if !ok {
			b.log.Warn("dropping report for unknown device",
				"device_id", ev.DeviceID,
				"event", ev.Event,
			)
			return nil
		}
	}

	rec.Lock()
	if err := rec.MergePushLocked(ev.Data); err != nil {
		rec.Unlock()
		if errors.Is(err, device.ErrNoSnapshot) {
			b.log.Warn("ignoring report for never-pulled device",
				"device_id", ev.DeviceID,
				"event", ev.Event,
			)
			return nil
		}
		return err
	}

	// A report confirming the pending target ends the transition; the
	// timeout fallback then no-ops.
	if target := rec.TargetStateLocked(); target != "" {
		if state, _ := ev.Data[fieldState].(string); state == target {
			rec.ClearTargetStateLocked()
		}
	}

	snap := rec.SnapshotLocked()
	rec.Unlock()
	info := rec.Info()

	b.host.NotifyChange(ev.DeviceID, snap)
	b.recordState(info, sourcePush, snap)
	return nil
}

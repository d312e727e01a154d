package bridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/nerrad567/gray-logic-yolink/internal/device"
	"github.com/nerrad567/gray-logic-yolink/internal/retry"
	"github.com/nerrad567/gray-logic-yolink/internal/yolink"
)

// SetValue issues a state-changing command to one device.
//
// Commands are never replayed: the retry profile allows a single attempt,
// and failures are returned to the caller rather than retried, since a
// command that may already have reached a physical actuator must not be
// silently re-issued. On success the returned state is merged into the
// snapshot so a read inside the cooldown is served from cache, the host is
// notified, and slow actuators get an optimistic pending-transition marker
// backed by a timeout fallback.
//
// Every exit path, including failures, holds the device gate through the
// set cooldown so the next operation for this device cannot reach upstream
// immediately after a command.
func (b *Bridge) SetValue(ctx context.Context, deviceID, field string, value any) error {
	rec, ok := b.registry.Get(deviceID)
	if !ok {
		return device.ErrUnknownDevice
	}

	snap, err := b.setUnderGate(ctx, rec, field, value)
	if snap != nil {
		b.host.NotifyChange(deviceID, snap)
		b.recordState(rec.Info(), sourceSet, snap)
	}
	return err
}

// setUnderGate performs the command inside the device's critical section.
func (b *Bridge) setUnderGate(ctx context.Context, rec *device.Record, field string, value any) (device.Snapshot, error) {
	rec.Lock()
	defer rec.Unlock()
	defer b.sleep(b.cfg.SetCooldown)

	info := rec.Info()
	params := map[string]any{field: value}

	var result map[string]any
	err := retry.Do(ctx, retry.Command, b.log, "device state set", func(ctx context.Context) error {
		token, err := b.session.AccessToken(ctx)
		if err != nil {
			return err
		}
		data, err := b.client.SetDeviceState(ctx, token, info, params)
		if err != nil {
			if errors.Is(err, yolink.ErrAuth) {
				b.session.Invalidate()
			}
			return err
		}
		result = data
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("set %s %s: %w", info.DeviceID, field, err)
	}

	if field == fieldState && slowActuator(info.Type) {
		if target, ok := value.(string); ok && target != "" {
			gen := rec.SetTargetStateLocked(target)
			b.armTransitFallback(rec, gen)
		}
	}

	if result != nil {
		rec.ApplySetResultLocked(result)
	}
	return rec.SnapshotLocked(), nil
}

// armTransitFallback schedules the timeout that clears a pending-transition
// marker no confirming report ever arrived for. The fallback no-ops when a
// genuine report already cleared the marker or a later command replaced it
// with its own transition; otherwise it forces one fresh pull to
// resynchronize, the system's only timeout-driven correction.
func (b *Bridge) armTransitFallback(rec *device.Record, gen uint64) {
	deviceID := rec.ID()
	b.afterFunc(b.cfg.TransitTimeout, func() {
		rec.Lock()
		if !rec.ClearTargetStateIfCurrentLocked(gen) {
			rec.Unlock()
			return
		}
		b.log.Warn("pending transition timed out, forcing pull", "device_id", deviceID)
		rec.ExpireLocked()
		err := rec.EnsureFreshLocked(context.Background(), b)
		var snap device.Snapshot
		if err == nil {
			snap = rec.SnapshotLocked()
		}
		rec.Unlock()

		if err != nil {
			b.log.Warn("resynchronizing pull failed",
				"device_id", deviceID,
				"error", err,
			)
			return
		}
		b.host.NotifyChange(deviceID, snap)
	})
}

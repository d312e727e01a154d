package bridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-yolink/internal/retry"
	"github.com/nerrad567/gray-logic-yolink/internal/yolink"
)

// SyncDevices pulls the upstream device list and reconciles the registry
// against it, registering host accessories for newly-discovered devices and
// unregistering devices that disappeared or are hidden by configuration.
//
// The device list must eventually succeed for the bridge to be useful, so
// this retries forever; cancel the context to abandon it.
func (b *Bridge) SyncDevices(ctx context.Context) error {
	return b.syncDevices(ctx, b.listProfile)
}

func (b *Bridge) syncDevices(ctx context.Context, profile retry.Profile) error {
	var list []yolink.DeviceInfo
	err := retry.Do(ctx, profile, b.log, "device list", func(ctx context.Context) error {
		token, err := b.session.AccessToken(ctx)
		if err != nil {
			return err
		}
		l, err := b.client.GetDeviceList(ctx, token)
		if err != nil {
			if errors.Is(err, yolink.ErrAuth) {
				b.session.Invalidate()
			}
			return err
		}
		list = l
		return nil
	})
	if err != nil {
		return fmt.Errorf("device list: %w", err)
	}

	added, removed := b.registry.Sync(list)
	for _, rec := range added {
		b.host.RegisterAccessory(rec.Info())
	}
	for _, rec := range removed {
		b.host.UnregisterAccessory(rec.ID())
	}
	if len(added) > 0 || len(removed) > 0 {
		b.log.Info("device list reconciled",
			"added", len(added),
			"removed", len(removed),
			"total", b.registry.Count(),
		)
	}
	return nil
}

// Run drives periodic device discovery until the context is cancelled.
// Call SyncDevices once before Run for the startup discovery.
func (b *Bridge) Run(ctx context.Context) error {
	ticker := time.NewTicker(b.cfg.ListInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := b.SyncDevices(ctx); err != nil {
				b.log.Error("periodic device discovery failed", "error", err)
			}
		}
	}
}

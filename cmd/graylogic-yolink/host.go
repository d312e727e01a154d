package main

import (
	"github.com/nerrad567/gray-logic-yolink/internal/device"
	"github.com/nerrad567/gray-logic-yolink/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-yolink/internal/yolink"
)

// loggingHost is the headless accessory host: it logs lifecycle and state
// changes instead of driving a plugin framework. Useful for soak-testing the
// synchronization core against a real account before a host is attached.
type loggingHost struct {
	log *logging.Logger
}

func newLoggingHost(log *logging.Logger) *loggingHost {
	return &loggingHost{log: log}
}

func (h *loggingHost) RegisterAccessory(info yolink.DeviceInfo) {
	h.log.Info("accessory registered",
		"device_id", info.DeviceID,
		"type", info.Type,
		"name", info.Name,
	)
}

func (h *loggingHost) UnregisterAccessory(deviceID string) {
	h.log.Info("accessory unregistered", "device_id", deviceID)
}

func (h *loggingHost) NotifyChange(deviceID string, snapshot device.Snapshot) {
	h.log.Debug("state changed",
		"device_id", deviceID,
		"online", snapshot.Online(),
		"state", snapshot.State(),
	)
}

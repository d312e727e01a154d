package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-yolink/internal/device"
)

// stateMeasurement is the measurement holding device state history.
const stateMeasurement = "device_state"

// RecordState writes one committed cache change as a history point.
// It implements the bridge's Recorder interface.
//
// The point is tagged with the device identity and the change source
// ("pull", "push" or "set") and carries the snapshot's online flag plus the
// scalar fields of the state sub-object. Nested objects are skipped: state
// history is for graphing scalars, not archiving payloads. The write is
// non-blocking; data is batched and sent asynchronously.
func (c *Client) RecordState(deviceID, deviceType, source string, snapshot device.Snapshot) {
	if !c.IsConnected() {
		return
	}

	point := statePoint(deviceID, deviceType, source, snapshot, time.Now())
	if point == nil {
		return
	}
	c.writeAPI.WritePoint(point)
}

// statePoint converts a snapshot into a write point, or nil when the
// snapshot has no recordable fields.
func statePoint(deviceID, deviceType, source string, snapshot device.Snapshot, at time.Time) *write.Point {
	fields := make(map[string]interface{})
	fields["online"] = snapshot.Online()

	for k, v := range snapshot.State() {
		switch val := v.(type) {
		case float64, int, int64, bool, string:
			fields[k] = val
		}
	}
	if len(fields) == 0 {
		return nil
	}

	return write.NewPoint(
		stateMeasurement,
		map[string]string{
			"device_id":   deviceID,
			"device_type": deviceType,
			"source":      source,
		},
		fields,
		at,
	)
}

package push

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Event is one device report published by the upstream broker.
//
// The event name carries the device type and the report kind joined with a
// dot, e.g. "DoorSensor.Alert" or "GarageDoor.Report". Data holds the
// partial state payload to be merged into the device's cached snapshot.
type Event struct {
	Event    string         `json:"event"`
	Time     int64          `json:"time"`
	DeviceID string         `json:"deviceId"`
	Data     map[string]any `json:"data"`
}

// Type returns the device-type half of the event name ("DoorSensor" for
// "DoorSensor.Alert"), or the whole name when there is no dot.
func (e Event) Type() string {
	if i := strings.IndexByte(e.Event, '.'); i >= 0 {
		return e.Event[:i]
	}
	return e.Event
}

// Kind returns the report-kind half of the event name ("Alert" for
// "DoorSensor.Alert"), or empty when there is no dot.
func (e Event) Kind() string {
	if i := strings.IndexByte(e.Event, '.'); i >= 0 {
		return e.Event[i+1:]
	}
	return ""
}

// ParseEvent decodes a raw report payload.
//
// Payloads without a device identifier or without a data object cannot be
// routed and are rejected with ErrBadEvent.
func ParseEvent(payload []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrBadEvent, err)
	}
	if ev.DeviceID == "" {
		return Event{}, fmt.Errorf("%w: missing deviceId", ErrBadEvent)
	}
	if ev.Data == nil {
		return Event{}, fmt.Errorf("%w: missing data", ErrBadEvent)
	}
	return ev, nil
}

package influxdb

import (
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-yolink/internal/device"
)

func TestStatePoint(t *testing.T) {
	snap := device.Snapshot{
		"online": true,
		"state": map[string]any{
			"state":      "open",
			"battery":    4.0,
			"alertType":  nil,
			"soundLevel": map[string]any{"level": 2.0}, // nested, skipped
		},
		"reportAt": "2026-01-15T12:00:00Z",
	}

	point := statePoint("d1", "GarageDoor", "push", snap, time.Unix(0, 0))
	if point == nil {
		t.Fatal("statePoint() = nil, want a point")
	}

	tags := make(map[string]string)
	for _, tag := range point.TagList() {
		tags[tag.Key] = tag.Value
	}
	if tags["device_id"] != "d1" || tags["device_type"] != "GarageDoor" || tags["source"] != "push" {
		t.Errorf("tags = %v, want device identity and source", tags)
	}

	fields := make(map[string]interface{})
	for _, field := range point.FieldList() {
		fields[field.Key] = field.Value
	}
	if fields["online"] != true {
		t.Errorf("online field = %v, want true", fields["online"])
	}
	if fields["state"] != "open" {
		t.Errorf("state field = %v, want open", fields["state"])
	}
	if fields["battery"] != 4.0 {
		t.Errorf("battery field = %v, want 4.0", fields["battery"])
	}
	if _, ok := fields["soundLevel"]; ok {
		t.Error("nested objects must be skipped")
	}
}

func TestStatePointMinimalSnapshot(t *testing.T) {
	// Even a snapshot with no state sub-object records the online flag.
	point := statePoint("d1", "Hub", "pull", device.Snapshot{"online": false}, time.Unix(0, 0))
	if point == nil {
		t.Fatal("statePoint() = nil, want a point with the online field")
	}
	for _, field := range point.FieldList() {
		if field.Key == "online" && field.Value == false {
			return
		}
	}
	t.Error("online=false field missing")
}

package push

import (
	"errors"
	"testing"
)

func TestParseEvent(t *testing.T) {
	payload := []byte(`{
		"event": "DoorSensor.Alert",
		"time": 1767873600123,
		"deviceId": "d1",
		"data": {"state": "open", "battery": 4}
	}`)

	ev, err := ParseEvent(payload)
	if err != nil {
		t.Fatalf("ParseEvent() error = %v", err)
	}
	if ev.DeviceID != "d1" {
		t.Errorf("DeviceID = %q, want d1", ev.DeviceID)
	}
	if ev.Type() != "DoorSensor" {
		t.Errorf("Type() = %q, want DoorSensor", ev.Type())
	}
	if ev.Kind() != "Alert" {
		t.Errorf("Kind() = %q, want Alert", ev.Kind())
	}
	if ev.Data["state"] != "open" {
		t.Errorf("Data[state] = %v, want open", ev.Data["state"])
	}
}

func TestParseEventRejectsBadPayloads(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `{{{`},
		{"missing deviceId", `{"event":"DoorSensor.Alert","data":{}}`},
		{"missing data", `{"event":"DoorSensor.Alert","deviceId":"d1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEvent([]byte(tt.payload))
			if !errors.Is(err, ErrBadEvent) {
				t.Errorf("ParseEvent() error = %v, want ErrBadEvent", err)
			}
		})
	}
}

func TestEventNameWithoutDot(t *testing.T) {
	ev := Event{Event: "Report"}
	if ev.Type() != "Report" {
		t.Errorf("Type() = %q, want Report", ev.Type())
	}
	if ev.Kind() != "" {
		t.Errorf("Kind() = %q, want empty", ev.Kind())
	}
}

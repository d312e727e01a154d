package yolink

import "encoding/json"

// StateKind tags the decoded variant of a device state payload.
type StateKind string

// Known state variants.
const (
	KindLock        StateKind = "lock"
	KindGarageDoor  StateKind = "garage_door"
	KindDoorSensor  StateKind = "door_sensor"
	KindLeakSensor  StateKind = "leak_sensor"
	KindMotion      StateKind = "motion_sensor"
	KindTHSensor    StateKind = "th_sensor"
	KindValve       StateKind = "valve"
	KindOutlet      StateKind = "outlet"
	KindSwitch      StateKind = "switch"
	KindUnknown     StateKind = "unknown"
)

// LockState is the typed state of a smart lock.
type LockState struct {
	State   string  `json:"state"` // "locked" / "unlocked"
	Battery float64 `json:"battery"`
}

// GarageDoorState is the typed state of a garage door controller; the door
// position itself comes from the bound sensor device.
type GarageDoorState struct {
	State string `json:"state"` // "open" / "closed"
}

// ContactState is the shared shape of door and window contact sensors.
type ContactState struct {
	State   string  `json:"state"` // "open" / "closed"
	Battery float64 `json:"battery"`
}

// LeakState is the typed state of a water leak sensor.
type LeakState struct {
	State   string  `json:"state"` // "normal" / "alert" / "full"
	Battery float64 `json:"battery"`
}

// MotionState is the typed state of a motion sensor.
type MotionState struct {
	State   string  `json:"state"` // "normal" / "alert"
	Battery float64 `json:"battery"`
}

// THState is the typed state of a temperature/humidity sensor.
type THState struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Battery     float64 `json:"battery"`
}

// ValveState is the typed state of a water valve controller.
type ValveState struct {
	State   string  `json:"state"` // "open" / "closed"
	Battery float64 `json:"battery"`
}

// PowerState is the shared shape of outlets and switches.
type PowerState struct {
	State string  `json:"state"` // "open" (on) / "closed" (off)
	Power float64 `json:"power,omitempty"`
}

// DecodedState is the tagged union over the known state variants. Exactly
// one typed field is populated according to Kind; Raw always preserves the
// original payload and is the only populated field for KindUnknown, where
// it exists for logging rather than interpretation.
type DecodedState struct {
	Kind StateKind

	Lock    *LockState
	Garage  *GarageDoorState
	Contact *ContactState
	Leak    *LeakState
	Motion  *MotionState
	TH      *THState
	Valve   *ValveState
	Power   *PowerState

	Raw map[string]any
}

// DecodeState interprets the nested state sub-object of a snapshot according
// to the vendor device type. Unrecognised types decode to KindUnknown with
// the raw payload preserved.
//
// The cache itself always works on the raw map (permissive merge); this
// typed view is for per-device-type adapters that need strongly-typed
// fields.
func DecodeState(deviceType string, state map[string]any) DecodedState {
	d := DecodedState{Kind: KindUnknown, Raw: state}
	if state == nil {
		return d
	}

	encoded, err := json.Marshal(state)
	if err != nil {
		return d
	}

	decode := func(kind StateKind, dst any) {
		if json.Unmarshal(encoded, dst) == nil {
			d.Kind = kind
		}
	}

	switch deviceType {
	case "Lock", "LockV2":
		d.Lock = &LockState{}
		decode(KindLock, d.Lock)
	case "GarageDoor", "Finger":
		d.Garage = &GarageDoorState{}
		decode(KindGarageDoor, d.Garage)
	case "DoorSensor":
		d.Contact = &ContactState{}
		decode(KindDoorSensor, d.Contact)
	case "LeakSensor":
		d.Leak = &LeakState{}
		decode(KindLeakSensor, d.Leak)
	case "MotionSensor", "VibrationSensor":
		d.Motion = &MotionState{}
		decode(KindMotion, d.Motion)
	case "THSensor":
		d.TH = &THState{}
		decode(KindTHSensor, d.TH)
	case "Manipulator", "WaterMeterController":
		d.Valve = &ValveState{}
		decode(KindValve, d.Valve)
	case "Outlet", "MultiOutlet":
		d.Power = &PowerState{}
		decode(KindOutlet, d.Power)
	case "Switch":
		d.Power = &PowerState{}
		decode(KindSwitch, d.Power)
	}

	return d
}

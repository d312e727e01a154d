package device

import "time"

// Snapshot is the vendor-specific nested mapping holding a device's
// last-known state: an online flag, a "state" sub-object, battery readings,
// and report timestamps. Shapes vary per device type, so the cache keeps the
// raw map and leaves typed interpretation to adapters.
//
// A Snapshot is either absent (the device has never been pulled) or a
// complete last-known copy; it is never partially written outside a
// gate-protected critical section.
type Snapshot map[string]any

// Snapshot field keys used by the cache core.
const (
	keyOnline   = "online"
	keyState    = "state"
	keyReportAt = "reportAt"
)

// State returns the nested state sub-object, or nil if absent.
func (s Snapshot) State() map[string]any {
	if s == nil {
		return nil
	}
	state, _ := s[keyState].(map[string]any)
	return state
}

// Online reports the snapshot's online flag.
func (s Snapshot) Online() bool {
	if s == nil {
		return false
	}
	online, _ := s[keyOnline].(bool)
	return online
}

// ReportAt returns the snapshot's report timestamp string, if present.
func (s Snapshot) ReportAt() string {
	if s == nil {
		return ""
	}
	at, _ := s[keyReportAt].(string)
	return at
}

// DeepCopy creates a complete independent copy of the Snapshot.
// Nested maps and slices are cloned so modifications to the copy do not
// affect the cached original. This is essential for cache isolation.
func (s Snapshot) DeepCopy() Snapshot {
	if s == nil {
		return nil
	}
	return deepCopyMap(s)
}

// deepCopyMap creates a deep copy of a map[string]any.
// Nested maps and slices are recursively copied.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = deepCopyValue(v)
	}
	return cpy
}

// deepCopyValue recursively copies a value, handling nested maps and slices.
func deepCopyValue(v any) any {
	if v == nil {
		return nil
	}
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	default:
		// Primitives (string, bool, int, float64, etc.) are safe to copy by value
		return v
	}
}

// Config holds per-device cache behaviour.
type Config struct {
	// RefreshInterval is the freshness window. Zero means cached data is
	// never trusted and every read pulls upstream.
	RefreshInterval time.Duration
}

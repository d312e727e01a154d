package device

import (
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-yolink/internal/yolink"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry is the known-device set: one Record per physical device, keyed
// by the stable device identifier.
//
// Records are created when a device first appears in the upstream device
// list and removed when it disappears or is hidden by configuration. The
// registry map itself is guarded by its own mutex; per-device state is
// guarded by each Record's gate.
//
// All public methods are thread-safe.
type Registry struct {
	cfg    Config
	hidden map[string]bool
	now    func() time.Time
	logger Logger

	mu      sync.RWMutex
	records map[string]*Record
}

// NewRegistry creates an empty device registry.
//
// Parameters:
//   - cfg: Per-device cache configuration applied to every record
//   - hidden: Device IDs that must never be registered
func NewRegistry(cfg Config, hidden []string) *Registry {
	hiddenSet := make(map[string]bool, len(hidden))
	for _, id := range hidden {
		hiddenSet[id] = true
	}
	return &Registry{
		cfg:     cfg,
		hidden:  hiddenSet,
		now:     time.Now,
		logger:  noopLogger{},
		records: make(map[string]*Record),
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// SetClock overrides the time source (used by tests).
func (r *Registry) SetClock(now func() time.Time) {
	r.now = now
}

// Get returns the Record for a device ID.
func (r *Registry) Get(id string) (*Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	return rec, ok
}

// All returns the current records in no particular order.
func (r *Registry) All() []*Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	records := make([]*Record, 0, len(r.records))
	for _, rec := range r.records {
		records = append(records, rec)
	}
	return records
}

// Count returns the number of known devices.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// Sync reconciles the registry against a fresh upstream device list.
//
// New devices get Records (unless hidden); devices present in both have
// their identity fields refreshed (names and device tokens change upstream);
// devices missing from the list are removed.
//
// Returns:
//   - added: Records created by this sync
//   - removed: Records torn down by this sync
func (r *Registry) Sync(list []yolink.DeviceInfo) (added, removed []*Record) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool, len(list))
	for _, info := range list {
		if r.hidden[info.DeviceID] {
			r.logger.Debug("skipping hidden device", "device_id", info.DeviceID)
			continue
		}
		seen[info.DeviceID] = true

		if rec, ok := r.records[info.DeviceID]; ok {
			rec.UpdateInfo(info)
			continue
		}

		rec := newRecord(info, r.cfg, r.now)
		r.records[info.DeviceID] = rec
		added = append(added, rec)
		r.logger.Info("device discovered",
			"device_id", info.DeviceID,
			"type", info.Type,
			"name", info.Name,
		)
	}

	for id, rec := range r.records {
		if !seen[id] {
			delete(r.records, id)
			removed = append(removed, rec)
			r.logger.Info("device removed", "device_id", id)
		}
	}

	return added, removed
}

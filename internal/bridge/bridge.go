package bridge

import (
	"context"
	"errors"
	"time"

	"github.com/nerrad567/gray-logic-yolink/internal/device"
	"github.com/nerrad567/gray-logic-yolink/internal/retry"
	"github.com/nerrad567/gray-logic-yolink/internal/yolink"
)

// State-change sources recorded against the history sink.
const (
	sourcePull = "pull"
	sourcePush = "push"
	sourceSet  = "set"
)

// fieldState is the state sub-object field carrying the primary device
// position ("open", "locked", ...). Pending-transition handling keys off it.
const fieldState = "state"

// Default timings.
const (
	// defaultSetCooldown is the pause after any set command, held under the
	// device gate so the next operation for that device cannot reach
	// upstream inside it. The upstream API misbehaves under rapid repeated
	// commands to one device.
	defaultSetCooldown = 250 * time.Millisecond

	// defaultTransitTimeout bounds how long a pending-transition marker may
	// wait for a confirming report before the fallback resynchronizes.
	defaultTransitTimeout = 45 * time.Second

	// defaultListInterval is the periodic device discovery interval.
	defaultListInterval = time.Hour
)

// SessionManager supplies valid access tokens and accepts invalidation on
// auth failures. Implemented by yolink.Session.
type SessionManager interface {
	AccessToken(ctx context.Context) (string, error)
	Invalidate()
}

// APIClient is the upstream request surface the bridge needs.
// Implemented by yolink.Client.
type APIClient interface {
	GetDeviceList(ctx context.Context, accessToken string) ([]yolink.DeviceInfo, error)
	GetDeviceState(ctx context.Context, accessToken string, dev yolink.DeviceInfo) (map[string]any, error)
	SetDeviceState(ctx context.Context, accessToken string, dev yolink.DeviceInfo, params map[string]any) (map[string]any, error)
}

// AccessoryHost is the abstract host-facing surface: accessory lifecycle
// plus change notification. The host plugin framework implements it; the
// bridge never depends on how characteristics are modelled.
//
// NotifyChange is fire-and-forget relative to the cache commit that
// triggered it: implementations must not call back into the bridge
// synchronously for the same device.
type AccessoryHost interface {
	RegisterAccessory(info yolink.DeviceInfo)
	UnregisterAccessory(deviceID string)
	NotifyChange(deviceID string, snapshot device.Snapshot)
}

// Recorder receives every committed cache change for observability.
// Optional; see SetRecorder.
type Recorder interface {
	RecordState(deviceID, deviceType, source string, snapshot device.Snapshot)
}

// Logger defines the logging interface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config holds bridge-level timings.
type Config struct {
	// ListInterval is the period of the discovery poller.
	ListInterval time.Duration

	// SetCooldown is the post-command pause per device.
	SetCooldown time.Duration

	// TransitTimeout is the pending-transition fallback window for slow
	// actuators (a garage door takes seconds to physically move).
	TransitTimeout time.Duration
}

// Bridge reconciles the three sources of truth about device state (pull,
// push, set results) into the device cache and exposes the host-facing
// get/set surface.
//
// All methods are safe for concurrent use; per-device work is serialized by
// each Record's gate.
type Bridge struct {
	cfg      Config
	session  SessionManager
	client   APIClient
	registry *device.Registry
	host     AccessoryHost
	recorder Recorder
	log      Logger

	// Retry schedules per call site.
	pullProfile retry.Profile
	listProfile retry.Profile

	// Injectable for tests.
	sleep     func(time.Duration)
	afterFunc func(time.Duration, func()) *time.Timer
}

// New creates a Bridge. Zero Config fields take the package defaults.
func New(cfg Config, session SessionManager, client APIClient, registry *device.Registry, host AccessoryHost) *Bridge {
	if cfg.ListInterval <= 0 {
		cfg.ListInterval = defaultListInterval
	}
	if cfg.SetCooldown <= 0 {
		cfg.SetCooldown = defaultSetCooldown
	}
	if cfg.TransitTimeout <= 0 {
		cfg.TransitTimeout = defaultTransitTimeout
	}
	return &Bridge{
		cfg:         cfg,
		session:     session,
		client:      client,
		registry:    registry,
		host:        host,
		log:         noopLogger{},
		pullProfile: retry.StatePull,
		listProfile: retry.Endless,
		sleep:       time.Sleep,
		afterFunc:   time.AfterFunc,
	}
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(log Logger) {
	b.log = log
}

// SetRecorder attaches an optional state-history sink.
func (b *Bridge) SetRecorder(rec Recorder) {
	b.recorder = rec
}

// PullState fetches one device's full snapshot through the session manager
// and the retry engine. It implements device.StatePuller.
//
// Auth failures invalidate the session so the next attempt re-logs-in; the
// retry budget is the bounded state-pull profile, so a persistent outage
// eventually surfaces to the caller instead of blocking forever.
func (b *Bridge) PullState(ctx context.Context, info yolink.DeviceInfo) (device.Snapshot, error) {
	var snap device.Snapshot
	err := retry.Do(ctx, b.pullProfile, b.log, "device state pull", func(ctx context.Context) error {
		token, err := b.session.AccessToken(ctx)
		if err != nil {
			return err
		}
		data, err := b.client.GetDeviceState(ctx, token, info)
		if err != nil {
			if errors.Is(err, yolink.ErrAuth) {
				b.session.Invalidate()
			}
			return err
		}
		snap = device.Snapshot(data)
		return nil
	})
	if err != nil {
		return nil, err
	}
	b.recordState(info, sourcePull, snap.DeepCopy())
	return snap, nil
}

// recordState forwards a committed cache change to the history sink.
func (b *Bridge) recordState(info yolink.DeviceInfo, source string, snap device.Snapshot) {
	if b.recorder == nil {
		return
	}
	b.recorder.RecordState(info.DeviceID, info.Type, source, snap)
}

// slowActuator reports whether a device type transitions slowly enough to
// need the pending-transition marker.
func slowActuator(deviceType string) bool {
	switch deviceType {
	case "GarageDoor", "Finger":
		return true
	}
	return false
}

package push

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// Connection constants.
const (
	// connectTimeout is the maximum time to wait for the initial CONNACK.
	connectTimeout = 10 * time.Second

	// subscribeTimeout is the maximum time to wait for the SUBACK.
	subscribeTimeout = 5 * time.Second

	// disconnectQuiesce is the time to wait for in-flight work on teardown.
	disconnectQuiesce = 250 // milliseconds

	// keepAlive is the MQTT keepalive interval.
	keepAlive = 60 * time.Second

	// defaultRestartDelay debounces reconnection after a lost connection or
	// founding-token expiry, so a flapping broker does not trigger a tight
	// reconnect loop.
	defaultRestartDelay = 5 * time.Second

	// reportQoS is the QoS level for report subscriptions. Reports are
	// periodic and partial, so at-most-once delivery is acceptable.
	reportQoS = 0

	// reportTopicFormat is the home-scoped wildcard topic carrying every
	// device's reports. The single argument is the home identifier.
	reportTopicFormat = "yl-home/%s/+/report"

	// clientIDPrefix namespaces this service's broker sessions.
	clientIDPrefix = "graylogic-yolink"

	tlsMinVersion = tls.VersionTLS12
)

// TokenSource supplies the credential and home scope for broker sessions.
// The session manager implements it.
type TokenSource interface {
	// AccessToken returns a currently-valid access token, refreshing or
	// re-logging-in as needed.
	AccessToken(ctx context.Context) (string, error)

	// HomeID returns the home identifier the reports are scoped to.
	HomeID() string

	// ExpiresAt returns the expiry instant of the current token.
	ExpiresAt() time.Time
}

// Handler is the callback signature for parsed report events.
//
// Handlers are invoked on paho's delivery goroutines and should not block
// for extended periods. A returned error is logged but does not affect
// message acknowledgment.
type Handler func(ev Event) error

// Logger defines the logging interface used by the push channel.
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

// Config holds broker endpoint settings for the push channel.
type Config struct {
	Host string
	Port int
	TLS  bool
}

// Channel maintains the broker connection that delivers device reports.
//
// A connection is founded on the access token current at connect time. The
// broker rejects sessions whose founding token has expired, so the channel
// never relies on paho's auto-reconnect (it would replay the stale
// credential): instead it owns the lifecycle, tearing the session down and
// reconnecting with a freshly-obtained token. Reconnection is debounced so
// connection flapping cannot turn into a tight loop.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Channel struct {
	cfg     Config
	tokens  TokenSource
	handler Handler
	log     Logger

	// newClient is the paho constructor, replaceable in tests.
	newClient    func(*pahomqtt.ClientOptions) pahomqtt.Client
	restartDelay time.Duration

	mu           sync.Mutex
	client       pahomqtt.Client
	closed       bool
	restartTimer *time.Timer
	expiryTimer  *time.Timer

	// generation invalidates callbacks from torn-down connections.
	generation uint64
}

// New creates a push channel. Set a handler with SetHandler before Start.
func New(cfg Config, tokens TokenSource) *Channel {
	return &Channel{
		cfg:          cfg,
		tokens:       tokens,
		handler:      func(Event) error { return nil },
		log:          noopLogger{},
		newClient:    pahomqtt.NewClient,
		restartDelay: defaultRestartDelay,
	}
}

// SetLogger sets the logger for the channel.
func (c *Channel) SetLogger(log Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.log = log
}

// SetHandler sets the report callback. Must be called before Start.
func (c *Channel) SetHandler(h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = h
}

// Start connects to the broker and subscribes to the home's report topic.
//
// After a successful Start the channel keeps itself alive: lost connections
// and founding-token expiry trigger a debounced teardown-and-reconnect with
// a fresh token. Start itself does not retry; callers wrap it in a retry
// profile when startup must outlast a broker outage.
func (c *Channel) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return c.connectLocked(ctx)
}

// Close permanently shuts the channel down.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.restartTimer != nil {
		c.restartTimer.Stop()
		c.restartTimer = nil
	}
	c.teardownLocked()
	return nil
}

// Connected reports whether a broker session is currently established.
func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client != nil && c.client.IsConnected()
}

// connectLocked establishes one broker session founded on a fresh token.
// Caller must hold mu.
func (c *Channel) connectLocked(ctx context.Context) error {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return fmt.Errorf("%w: obtaining access token: %w", ErrConnectFailed, err)
	}
	homeID := c.tokens.HomeID()
	expiresAt := c.tokens.ExpiresAt()

	c.generation++
	gen := c.generation

	opts := c.buildOptions(token)
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, lostErr error) {
		c.connectionLost(gen, lostErr)
	})

	client := c.newClient(opts)
	connTok := client.Connect()
	if !connTok.WaitTimeout(connectTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrConnectFailed, connectTimeout)
	}
	if err := connTok.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectFailed, err)
	}

	topic := fmt.Sprintf(reportTopicFormat, homeID)
	subTok := client.Subscribe(topic, reportQoS, c.onMessage)
	if !subTok.WaitTimeout(subscribeTimeout) {
		client.Disconnect(disconnectQuiesce)
		return fmt.Errorf("%w: timeout after %v", ErrSubscribeFailed, subscribeTimeout)
	}
	if err := subTok.Error(); err != nil {
		client.Disconnect(disconnectQuiesce)
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}

	c.client = client

	// The broker drops sessions whose founding token has expired; reconnect
	// proactively just before that happens.
	if d := time.Until(expiresAt); d > 0 {
		c.expiryTimer = time.AfterFunc(d, func() {
			c.tokenExpired(gen)
		})
	}

	c.log.Info("push channel connected", "topic", topic)
	return nil
}

// buildOptions creates the paho options for one session. The access token
// is the broker credential.
func (c *Channel) buildOptions(token string) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	scheme := "tcp"
	if c.cfg.TLS {
		scheme = "ssl"
		opts.SetTLSConfig(&tls.Config{MinVersion: tlsMinVersion})
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, c.cfg.Host, c.cfg.Port))

	// A random suffix avoids client-id collisions when several bridge
	// instances share the upstream account.
	opts.SetClientID(clientIDPrefix + "-" + uuid.NewString()[:8])
	opts.SetUsername(token)

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetKeepAlive(keepAlive)

	return opts
}

// onMessage parses a raw report and hands it to the handler, with panic
// recovery so a misbehaving payload cannot kill paho's delivery goroutine.
func (c *Channel) onMessage(_ pahomqtt.Client, msg pahomqtt.Message) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("push handler panic recovered",
				"topic", msg.Topic(),
				"panic", r,
			)
		}
	}()

	ev, err := ParseEvent(msg.Payload())
	if err != nil {
		c.log.Warn("dropping unparseable report",
			"topic", msg.Topic(),
			"error", err,
		)
		return
	}

	c.log.Debug("report received",
		"device_id", ev.DeviceID,
		"event", ev.Event,
	)

	if err := c.handler(ev); err != nil {
		c.log.Warn("report handler returned error",
			"device_id", ev.DeviceID,
			"event", ev.Event,
			"error", err,
		)
	}
}

// connectionLost reacts to a dropped session by scheduling a restart.
func (c *Channel) connectionLost(gen uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || gen != c.generation {
		return
	}
	c.log.Warn("push channel connection lost", "error", err)
	c.scheduleRestartLocked()
}

// tokenExpired reacts to the founding token reaching its expiry instant.
func (c *Channel) tokenExpired(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || gen != c.generation {
		return
	}
	c.log.Info("founding token expired, reconnecting push channel")
	c.scheduleRestartLocked()
}

// scheduleRestartLocked arms the debounced restart timer. A timer already
// pending absorbs further triggers. Caller must hold mu.
func (c *Channel) scheduleRestartLocked() {
	if c.restartTimer != nil {
		return
	}
	c.restartTimer = time.AfterFunc(c.restartDelay, c.restart)
}

// restart tears the old session down and connects with a fresh token.
// A failed attempt re-arms the debounce timer, so the channel keeps trying
// for as long as it is not closed.
func (c *Channel) restart() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.restartTimer = nil
	if c.closed {
		return
	}

	c.teardownLocked()
	if err := c.connectLocked(context.Background()); err != nil {
		c.log.Error("push channel reconnect failed", "error", err)
		c.scheduleRestartLocked()
	}
}

// teardownLocked disconnects the current session and disarms the expiry
// timer. Caller must hold mu.
func (c *Channel) teardownLocked() {
	if c.expiryTimer != nil {
		c.expiryTimer.Stop()
		c.expiryTimer = nil
	}
	if c.client != nil {
		c.client.Disconnect(disconnectQuiesce)
		c.client = nil
	}
	c.generation++
}

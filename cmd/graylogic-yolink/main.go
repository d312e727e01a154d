// Gray Logic YoLink Bridge
//
// This is the main entry point for the YoLink bridge daemon. It reconciles
// the YoLink cloud API (JSON-over-HTTPS request envelope plus an MQTT push
// feed) into an abstract smart-home accessory host, serializing per-device
// access and maintaining freshness guarantees against the rate-limited,
// session-based upstream.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/gray-logic-yolink/internal/bridge"
	"github.com/nerrad567/gray-logic-yolink/internal/device"
	"github.com/nerrad567/gray-logic-yolink/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-yolink/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-yolink/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-yolink/internal/push"
	"github.com/nerrad567/gray-logic-yolink/internal/retry"
	"github.com/nerrad567/gray-logic-yolink/internal/yolink"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Gray Logic YoLink bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Upstream API client and session
	client := yolink.NewClient(cfg.Upstream.APIURL)
	client.SetLogger(log)

	session := yolink.NewSession(cfg.Upstream, client)
	session.SetLogger(log)
	defer func() {
		log.Info("closing session")
		session.Close()
	}()

	// Missing credentials are fatal; anything else retries inside Login
	// until the upstream comes back.
	if err := session.Login(ctx); err != nil {
		return fmt.Errorf("logging in: %w", err)
	}
	log.Info("logged in", "home_id", session.HomeID())

	// Device registry
	registry := device.NewRegistry(device.Config{
		RefreshInterval: time.Duration(cfg.Devices.RefreshInterval) * time.Second,
	}, cfg.Devices.Hidden)
	registry.SetLogger(log)

	// Accessory host plugin. The host framework is an external collaborator;
	// until one is attached the bridge runs headless with a logging host,
	// which is also the mode used for soak-testing against a real account.
	host := newLoggingHost(log)

	// Bridge core
	br := bridge.New(bridge.Config{
		ListInterval:   time.Duration(cfg.Devices.ListInterval) * time.Second,
		TransitTimeout: time.Duration(cfg.Devices.GarageTransitSeconds) * time.Second,
	}, session, client, registry, host)
	br.SetLogger(log)

	// Optional state-history sink
	if cfg.InfluxDB.Enabled {
		influxClient, err := influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		br.SetRecorder(influxClient)
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Startup discovery; retries forever, so cancellation is the only way out.
	if err := br.SyncDevices(ctx); err != nil {
		return fmt.Errorf("initial device discovery: %w", err)
	}
	log.Info("initial device discovery complete", "devices", registry.Count())

	// Push channel: reports route through the bridge into the cache.
	channel := push.New(push.Config{
		Host: cfg.Upstream.MQTT.Host,
		Port: cfg.Upstream.MQTT.Port,
		TLS:  cfg.Upstream.MQTT.TLS,
	}, session)
	channel.SetLogger(log)
	channel.SetHandler(br.HandleEvent)

	// The channel keeps itself alive once started; only the first connect
	// needs a retry wrapper to outlast a broker outage at boot.
	err = retry.Do(ctx, retry.Endless, log, "push channel start", func(ctx context.Context) error {
		return channel.Start(ctx)
	})
	if err != nil {
		return fmt.Errorf("starting push channel: %w", err)
	}
	defer func() {
		log.Info("closing push channel")
		if closeErr := channel.Close(); closeErr != nil {
			log.Error("error closing push channel", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal")

	// Periodic discovery runs until the shutdown signal arrives.
	if err := br.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("discovery loop: %w", err)
	}

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. Push channel
	// 2. InfluxDB (if enabled)
	// 3. Session (heartbeat timer)

	log.Info("Gray Logic YoLink bridge stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses GLYOLINK_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GLYOLINK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the Gray Logic YoLink bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Upstream UpstreamConfig `yaml:"upstream"`
	Devices  DevicesConfig  `yaml:"devices"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// UpstreamConfig contains the YoLink cloud API connection settings.
type UpstreamConfig struct {
	// APIURL is the JSON-over-HTTPS request endpoint.
	APIURL string `yaml:"api_url"`

	// TokenURL is the OAuth2-style token exchange endpoint.
	TokenURL string `yaml:"token_url"`

	// UAID and SecretKey are the long-lived account credentials exchanged
	// for access/refresh token pairs. Both are required at login; missing
	// credentials abort startup rather than being retried.
	UAID      string `yaml:"ua_id"`
	SecretKey string `yaml:"secret_key"`

	// MQTT describes the vendor's push broker. The channel authenticates
	// with the current access token, not with static credentials.
	MQTT UpstreamMQTTConfig `yaml:"mqtt"`
}

// UpstreamMQTTConfig contains the push broker connection details.
type UpstreamMQTTConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	TLS  bool   `yaml:"tls"`
}

// DevicesConfig contains device cache and discovery settings.
type DevicesConfig struct {
	// RefreshInterval is the cache freshness window in seconds.
	// 0 means cached data is never trusted and every read pulls upstream.
	RefreshInterval int `yaml:"refresh_interval"`

	// ListInterval is how often the device list is re-polled, in seconds.
	ListInterval int `yaml:"list_interval"`

	// Hidden lists device IDs that are skipped at discovery and never
	// registered with the accessory host.
	Hidden []string `yaml:"hidden"`

	// GarageTransitSeconds bounds how long a garage door's pending
	// transition marker may stand before the fallback clears it and
	// forces a resynchronising pull.
	GarageTransitSeconds int `yaml:"garage_transit_seconds"`
}

// InfluxDBConfig contains the optional state-history sink settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GLYOLINK_SECTION_KEY
// For example: GLYOLINK_UPSTREAM_UAID, GLYOLINK_INFLUXDB_TOKEN
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Upstream: UpstreamConfig{
			APIURL:   "https://api.yosmart.com/open/yolink/v2/api",
			TokenURL: "https://api.yosmart.com/open/yolink/token",
			MQTT: UpstreamMQTTConfig{
				Host: "api.yosmart.com",
				Port: 8003,
			},
		},
		Devices: DevicesConfig{
			RefreshInterval:      300,
			ListInterval:         3600,
			GarageTransitSeconds: 45,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: GLYOLINK_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Upstream credentials (preferred over config-file secrets in production)
	if v := os.Getenv("GLYOLINK_UPSTREAM_UAID"); v != "" {
		cfg.Upstream.UAID = v
	}
	if v := os.Getenv("GLYOLINK_UPSTREAM_SECRET_KEY"); v != "" {
		cfg.Upstream.SecretKey = v
	}
	if v := os.Getenv("GLYOLINK_UPSTREAM_API_URL"); v != "" {
		cfg.Upstream.APIURL = v
	}
	if v := os.Getenv("GLYOLINK_UPSTREAM_TOKEN_URL"); v != "" {
		cfg.Upstream.TokenURL = v
	}
	if v := os.Getenv("GLYOLINK_UPSTREAM_MQTT_HOST"); v != "" {
		cfg.Upstream.MQTT.Host = v
	}

	// InfluxDB
	if v := os.Getenv("GLYOLINK_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("GLYOLINK_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// Credentials are deliberately not validated here: a missing UAID or secret
// key surfaces as a fatal login error so the failure is reported through the
// same path as any other authentication problem.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if !strings.HasPrefix(c.Upstream.APIURL, "http") {
		errs = append(errs, "upstream.api_url must be an http(s) URL")
	}
	if !strings.HasPrefix(c.Upstream.TokenURL, "http") {
		errs = append(errs, "upstream.token_url must be an http(s) URL")
	}
	if c.Upstream.MQTT.Host == "" {
		errs = append(errs, "upstream.mqtt.host is required")
	}
	if c.Upstream.MQTT.Port <= 0 || c.Upstream.MQTT.Port > 65535 {
		errs = append(errs, "upstream.mqtt.port must be between 1 and 65535")
	}

	if c.Devices.RefreshInterval < 0 {
		errs = append(errs, "devices.refresh_interval must not be negative")
	}
	if c.Devices.ListInterval <= 0 {
		errs = append(errs, "devices.list_interval must be positive")
	}
	if c.Devices.GarageTransitSeconds <= 0 {
		errs = append(errs, "devices.garage_transit_seconds must be positive")
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.bucket is required when influxdb is enabled")
		}
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, "logging.level must be one of: debug, info, warn, error")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}

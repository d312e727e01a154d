package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeConfig writes YAML content to a temp file and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "upstream:\n  ua_id: \"ua_test\"\n  secret_key: \"sec_test\"\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Upstream.APIURL != "https://api.yosmart.com/open/yolink/v2/api" {
		t.Errorf("APIURL = %q, want default", cfg.Upstream.APIURL)
	}
	if cfg.Devices.RefreshInterval != 300 {
		t.Errorf("RefreshInterval = %d, want 300", cfg.Devices.RefreshInterval)
	}
	if cfg.Upstream.MQTT.Port != 8003 {
		t.Errorf("MQTT.Port = %d, want 8003", cfg.Upstream.MQTT.Port)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
upstream:
  ua_id: "ua_test"
  secret_key: "sec_test"
devices:
  refresh_interval: 0
  list_interval: 600
  hidden: ["dev-1", "dev-2"]
logging:
  level: "debug"
  format: "text"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Devices.RefreshInterval != 0 {
		t.Errorf("RefreshInterval = %d, want 0 (always refetch)", cfg.Devices.RefreshInterval)
	}
	if len(cfg.Devices.Hidden) != 2 {
		t.Errorf("Hidden = %v, want 2 entries", cfg.Devices.Hidden)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Logging.Format = %q, want text", cfg.Logging.Format)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("GLYOLINK_UPSTREAM_UAID", "ua_from_env")
	t.Setenv("GLYOLINK_UPSTREAM_SECRET_KEY", "sec_from_env")
	t.Setenv("GLYOLINK_LOGGING_LEVEL", "warn")

	path := writeConfig(t, "upstream:\n  ua_id: \"ua_file\"\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Upstream.UAID != "ua_from_env" {
		t.Errorf("UAID = %q, want env override", cfg.Upstream.UAID)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", cfg.Logging.Level)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err == nil {
		t.Fatal("Load() expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(*Config) {},
		},
		{
			name:    "bad api url",
			mutate:  func(c *Config) { c.Upstream.APIURL = "ftp://nope" },
			wantErr: "api_url",
		},
		{
			name:    "missing mqtt host",
			mutate:  func(c *Config) { c.Upstream.MQTT.Host = "" },
			wantErr: "mqtt.host",
		},
		{
			name:    "negative refresh interval",
			mutate:  func(c *Config) { c.Devices.RefreshInterval = -1 },
			wantErr: "refresh_interval",
		},
		{
			name:    "influx enabled without url",
			mutate:  func(c *Config) { c.InfluxDB.Enabled = true },
			wantErr: "influxdb.url",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "logging.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

// Package config provides configuration loading for the Gray Logic YoLink bridge.
//
// Configuration is loaded from a YAML file with environment variable
// overrides for deployment-specific and secret values.
//
// # Loading Order
//
//  1. Hardcoded defaults (public YoLink cloud endpoints, conservative intervals)
//  2. YAML file values
//  3. Environment variables (GLYOLINK_SECTION_KEY pattern)
//
// # Example
//
//	upstream:
//	  ua_id: "ua_..."
//	  secret_key: "sec_..."
//	devices:
//	  refresh_interval: 300
//	  hidden: ["d88b4c0100012345"]
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Security
//
// Credentials should be supplied via GLYOLINK_UPSTREAM_UAID and
// GLYOLINK_UPSTREAM_SECRET_KEY rather than committed to config files.
package config

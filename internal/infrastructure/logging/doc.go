// Package logging provides structured logging for the Gray Logic YoLink bridge.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the entire application.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - Thread-safe for concurrent use
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("device discovered", "device_id", id)
//	logger.Error("pull failed", "error", err)
//
// # Security
//
// Never log access tokens, refresh tokens, or the account secret key.
// Log token lifetimes and expiry epochs instead.
package logging

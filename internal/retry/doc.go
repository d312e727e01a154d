// Package retry provides the uniform failure-recovery substrate for every
// upstream call the bridge makes (login, token refresh, device list,
// per-device get and set).
//
// # Design
//
// Each call site supplies a Profile (attempt budget plus additive backoff
// schedule); Do re-invokes the operation until success, budget exhaustion,
// a fatal-tagged error, or context cancellation. A zero attempt budget
// means "retry forever".
//
// # Fatal Errors
//
// Errors that no amount of retrying can fix (missing credentials, rejected
// commands) are wrapped with Fatal and detected with errors.Is:
//
//	return retry.Fatal(yolink.ErrMissingCredentials)
//
// This replaces ad-hoc message inspection with the standard error-chain
// mechanism.
package retry

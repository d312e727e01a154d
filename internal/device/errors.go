package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrUnknownDevice) {
//	    // trigger a device-list re-poll
//	}
var (
	// ErrUnknownDevice is returned when a device ID is not in the registry.
	ErrUnknownDevice = errors.New("device: unknown device")

	// ErrNoSnapshot is returned when an operation needs cached data for a
	// device that has never been successfully pulled.
	ErrNoSnapshot = errors.New("device: no snapshot")

	// ErrPullFailed is returned when a state pull exhausted its retry
	// budget; the previous snapshot, if any, is left untouched.
	ErrPullFailed = errors.New("device: state pull failed")
)

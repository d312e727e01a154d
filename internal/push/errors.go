package push

import "errors"

// Domain-specific errors for the push channel.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrConnectFailed is returned when a broker connection attempt fails.
	ErrConnectFailed = errors.New("push: connection failed")

	// ErrSubscribeFailed is returned when the report subscription fails.
	ErrSubscribeFailed = errors.New("push: subscribe failed")

	// ErrClosed is returned when starting a channel that has been closed.
	ErrClosed = errors.New("push: channel closed")

	// ErrBadEvent is returned when a report payload cannot be parsed or is
	// missing its device identifier.
	ErrBadEvent = errors.New("push: malformed event payload")
)

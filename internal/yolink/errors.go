package yolink

import (
	"errors"
	"fmt"
)

// Domain errors for the yolink package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, yolink.ErrMissingCredentials) {
//	    // abort startup
//	}
var (
	// ErrMissingCredentials is returned when the UAID or secret key is absent.
	// This is a fatal configuration error; no retry can fix it.
	ErrMissingCredentials = errors.New("yolink: missing credentials")

	// ErrNotLoggedIn is returned when a call requires a session that could
	// not be established.
	ErrNotLoggedIn = errors.New("yolink: not logged in")

	// ErrBadResponse is returned when the upstream payload cannot be decoded
	// or lacks required fields.
	ErrBadResponse = errors.New("yolink: malformed upstream response")

	// ErrAuth is wrapped into API errors whose code indicates an expired or
	// invalid token; callers react by invalidating the session.
	ErrAuth = errors.New("yolink: authentication failed")
)

// APIError is a typed failure raised for every non-success response code.
type APIError struct {
	Method string
	Code   string
	Desc   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("yolink: %s failed: code=%s desc=%q", e.Method, e.Code, e.Desc)
}

// Is makes errors.Is(err, ErrAuth) true for authentication-class codes.
func (e *APIError) Is(target error) bool {
	return target == ErrAuth && IsAuthCode(e.Code)
}

package retry

import "errors"

// ErrFatal marks an error as non-retryable.
//
// Call sites check it with errors.Is():
//
//	if errors.Is(err, retry.ErrFatal) {
//	    // abort, do not retry
//	}
var ErrFatal = errors.New("retry: fatal")

// fatalError tags an underlying error as fatal while preserving its chain.
type fatalError struct {
	err error
}

func (e *fatalError) Error() string {
	return e.err.Error()
}

// Unwrap exposes both the fatal marker and the original cause, so
// errors.Is matches ErrFatal as well as the wrapped error.
func (e *fatalError) Unwrap() []error {
	return []error{ErrFatal, e.err}
}

// Fatal wraps err so the retry engine aborts immediately instead of
// retrying. A nil err returns nil.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

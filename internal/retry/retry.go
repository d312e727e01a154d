package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Logger is the minimal logging interface the retry engine needs.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Warn(msg string, args ...any)
}

// Profile describes the retry schedule for one upstream call site.
//
// The backoff is additive: the wait before attempt N is
// min(Initial + Increment*(N-1), Max).
type Profile struct {
	// Attempts is the maximum number of attempts. 0 means retry forever.
	Attempts int

	// Initial is the wait before the first retry.
	Initial time.Duration

	// Increment is added to the wait after each failed attempt.
	Increment time.Duration

	// Max caps the computed wait.
	Max time.Duration
}

// Do invokes op until it succeeds, the attempt budget is exhausted, the
// error is tagged fatal, or the context is cancelled.
//
// Each retry logs the failure cause and the computed next interval at warn
// level. Fatal errors (wrapped with Fatal, detected via errors.Is against
// ErrFatal) abort after the first failing attempt regardless of the budget.
// Context cancellation is likewise never retried.
//
// Parameters:
//   - ctx: Context for cancellation between attempts
//   - p: Retry schedule for this call site
//   - log: Logger for per-retry diagnostics (must not be nil)
//   - name: Short operation name included in log fields
//   - op: The operation to invoke
//
// Returns:
//   - error: nil on success, otherwise the last failure (unwrapped fatal
//     errors keep their cause chain)
func Do(ctx context.Context, p Profile, log Logger, name string, op func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("retry %s: %w", name, err)
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if errors.Is(err, ErrFatal) {
			return err
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if p.Attempts > 0 && attempt >= p.Attempts {
			return lastErr
		}

		wait := p.interval(attempt)
		log.Warn("retrying upstream operation",
			"operation", name,
			"attempt", attempt,
			"next_interval", wait.String(),
			"error", err,
		)

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry %s: %w", name, ctx.Err())
		case <-time.After(wait):
		}
	}
}

// interval computes the additive-backoff wait after the given failed attempt.
func (p Profile) interval(attempt int) time.Duration {
	wait := p.Initial + p.Increment*time.Duration(attempt-1)
	if p.Max > 0 && wait > p.Max {
		wait = p.Max
	}
	if wait < 0 {
		wait = 0
	}
	return wait
}

package retry

import "time"

// Standard profiles for the bridge's upstream call sites.
//
// Login and device-list calls must eventually succeed for the bridge to be
// useful, so they retry forever. State pulls get a large bounded budget.
// State-changing commands are never replayed: a command that may already
// have reached a physical actuator must not be silently re-issued.
var (
	// Endless retries forever with 15s initial backoff, +15s per attempt,
	// capped at 60s. Used for login and device-list calls.
	Endless = Profile{
		Attempts:  0,
		Initial:   15 * time.Second,
		Increment: 15 * time.Second,
		Max:       60 * time.Second,
	}

	// StatePull is the per-device state fetch budget: large but bounded,
	// 5s initial backoff, +5s per attempt, capped at 30s.
	StatePull = Profile{
		Attempts:  20,
		Initial:   5 * time.Second,
		Increment: 5 * time.Second,
		Max:       30 * time.Second,
	}

	// Command is the state-changing profile: a single attempt, with the
	// failure reported to the caller instead of retried.
	Command = Profile{
		Attempts: 1,
	}
)

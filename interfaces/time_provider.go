package interfaces

import "time"

// TimeProvider supplies the current time for cache expiry checks and logging.
// Injected so tests can use a fixed clock instead of time.Now().
//
// Implemented by service.NewTimeProvider, which wraps a now func such as
// func() time.Time { return time.Now().UTC() }.
type TimeProvider interface {
	// Now returns current time (UTC in prod; fixed in tests, for deterministic expiry checks).
	Now() time.Time
}

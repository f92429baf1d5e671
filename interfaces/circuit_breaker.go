package interfaces

import "context"

// CircuitState mirrors the three gobreaker states exposed to callers for metrics/logging.
type CircuitState string

const (
	CircuitClosed   CircuitState = "closed"
	CircuitOpen     CircuitState = "open"
	CircuitHalfOpen CircuitState = "half-open"
)

// CircuitBreaker guards calls to one backend, tripping Open after consecutive backend
// faults and probing HalfOpen after a cooldown (component C2).
//
// One instance per domain.Backend, constructed in cmd/main from the backend's
// CircuitBreakerConfig.
type CircuitBreaker interface {
	// Call executes op if the breaker is Closed or probing HalfOpen; returns
	// ErrCircuitOpen immediately without invoking op when the breaker is Open and the
	// cooldown has not elapsed.
	Call(ctx context.Context, op func(ctx context.Context) error) error

	// State reports the breaker's current state for metrics and the admin surface.
	State() CircuitState
}

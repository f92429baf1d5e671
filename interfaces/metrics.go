package interfaces

import "time"

// Metrics records the three observability series named in the configuration surface:
// request totals/durations and gRPC-call outcomes. Backed by prometheus/client_golang
// in production; a no-op implementation is used in tests that don't care.
type Metrics interface {
	ObserveRequest(path, method, status string, d time.Duration)
	ObserveGRPCCall(service, method, outcome string)
	SetCircuitState(backend string, state CircuitState)
	SetRateLimiterTracked(n int)
}

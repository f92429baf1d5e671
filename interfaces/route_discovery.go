package interfaces

import (
	"context"

	"apigateway/domain"
)

// RouteDiscovery runs a one-shot discovery pass across all auto-discover backends
// and a periodic background refresh (component C8).
type RouteDiscovery interface {
	// Discover queries every backend in backends that has AutoDiscover set, maps
	// methods via the convention mapper, merges in overrides, dedups, and returns the
	// resulting route list plus a per-backend outcome summary.
	Discover(ctx context.Context, backends []domain.Backend, overrides []domain.RouteOverride) ([]domain.Route, []domain.BackendDiscoveryResult)

	// Run ticks Discover on refreshInterval and pushes each result into RoutingTable.Update,
	// until ctx is cancelled. The first tick is skipped — discovery already ran once at startup.
	Run(ctx context.Context)

	// LastResults returns the outcome of the most recent discovery pass, for the admin endpoint.
	LastResults() []domain.BackendDiscoveryResult

	// SetDescriptorSink installs the callback invoked with a freshly built descriptor
	// pool every time a backend's discovery pass succeeds. cmd/main wires this to
	// BackendRegistry.SetDescriptorPool so C8 and C6 stay decoupled.
	SetDescriptorSink(sink func(domain.BackendName, DescriptorPool))
}

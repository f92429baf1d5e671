package service

import (
	"context"
	"sync"
	"time"

	"apigateway/domain"
	"apigateway/helpers"
	"apigateway/interfaces"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"google.golang.org/protobuf/types/descriptorpb"
)

// reflectionClientFactory builds a ReflectionClient for one backend, deferred so
// routeDiscovery doesn't need to know how connections are pooled.
type reflectionClientFactory func(backend domain.Backend) (interfaces.ReflectionClient, error)

// routeDiscovery implements interfaces.RouteDiscovery: one-shot discovery across every
// auto-discover backend plus a ticking background refresh (component C8), grounded on
// the teacher's connectionPool refresh-goroutine idiom generalized from "poll instance
// list" to "poll reflection, map, merge, swap".
type routeDiscovery struct {
	newReflectionClient reflectionClientFactory
	refreshInterval     time.Duration
	table               interfaces.RoutingTable
	logger              log.Logger

	backends  []domain.Backend
	overrides []domain.RouteOverride

	mu            sync.Mutex
	last          []domain.BackendDiscoveryResult
	known         map[domain.BackendName][]domain.Route // last successful route set, retained across transient failures
	onDescriptors func(domain.BackendName, interfaces.DescriptorPool)
}

// NewRouteDiscovery builds a routeDiscovery over a fixed backend/override set (both
// immutable after startup, per the configuration surface). Panics on nil table/logger/factory.
//
// Called from cmd/main.
func NewRouteDiscovery(newReflectionClient reflectionClientFactory, refreshInterval time.Duration, table interfaces.RoutingTable, logger log.Logger, backends []domain.Backend, overrides []domain.RouteOverride) interfaces.RouteDiscovery {
	return &routeDiscovery{
		newReflectionClient: helpers.NilPanic(newReflectionClient, "service.route_discovery.go: newReflectionClient is required"),
		refreshInterval:     refreshInterval,
		table:               helpers.NilPanic(table, "service.route_discovery.go: table is required"),
		logger:              helpers.NilPanic(logger, "service.route_discovery.go: logger is required"),
		backends:            backends,
		overrides:           overrides,
		known:               make(map[domain.BackendName][]domain.Route),
	}
}

// Discover queries every auto-discover backend. See interfaces.RouteDiscovery.
func (d *routeDiscovery) Discover(ctx context.Context, backends []domain.Backend, overrides []domain.RouteOverride) ([]domain.Route, []domain.BackendDiscoveryResult) {
	var results []domain.BackendDiscoveryResult
	var routes []domain.Route

	for _, backend := range backends {
		if !backend.AutoDiscover {
			continue
		}
		backendRoutes, outcome := d.discoverBackend(ctx, backend)
		results = append(results, outcome)

		d.mu.Lock()
		switch outcome.Outcome {
		case domain.OutcomeSuccess:
			d.known[backend.Name] = backendRoutes
		case domain.OutcomeEmptyService:
			delete(d.known, backend.Name) // purge: the service now advertises nothing
		default:
			// transient failure (reflection unsupported / query failed) or duplicate route:
			// retain the last known set
			backendRoutes = d.known[backend.Name]
		}
		d.mu.Unlock()

		routes = append(routes, backendRoutes...)
	}

	routes = applyOverrides(routes, overrides)
	routes = dedupRoutes(routes, d.logger)

	d.mu.Lock()
	d.last = results
	d.mu.Unlock()
	return routes, results
}

func (d *routeDiscovery) discoverBackend(ctx context.Context, backend domain.Backend) ([]domain.Route, domain.BackendDiscoveryResult) {
	client, err := d.newReflectionClient(backend)
	if err != nil {
		return nil, domain.BackendDiscoveryResult{Backend: backend.Name, Outcome: domain.OutcomeQueryFailed, Err: err}
	}

	services, err := client.ListServices(ctx)
	if err != nil {
		if err == ErrReflectionNotSupported {
			return nil, domain.BackendDiscoveryResult{Backend: backend.Name, Outcome: domain.OutcomeReflectionNotSupported, Err: err}
		}
		return nil, domain.BackendDiscoveryResult{Backend: backend.Name, Outcome: domain.OutcomeQueryFailed, Err: err}
	}

	var routes []domain.Route
	seenFiles := map[string]bool{}
	var fds []*descriptorpb.FileDescriptorProto
	for _, svc := range services {
		methods, svcFiles, err := client.ListMethods(ctx, svc)
		if err != nil {
			level.Warn(d.logger).Log("msg", "listing methods failed", "backend", backend.Name, "service", svc, "err", err)
			continue
		}
		for _, fd := range svcFiles {
			if name := fd.GetName(); !seenFiles[name] {
				seenFiles[name] = true
				fds = append(fds, fd)
			}
		}
		for _, m := range methods {
			route, ok := MapMethod(m.MethodName, m.FullMethod)
			if !ok {
				continue
			}
			route.Backend = backend.Name
			routes = append(routes, route)
		}
	}

	if len(routes) == 0 {
		return nil, domain.BackendDiscoveryResult{Backend: backend.Name, Outcome: domain.OutcomeEmptyService}
	}

	if dup, ok := duplicateRoute(routes); ok {
		level.Warn(d.logger).Log("msg", "duplicate route within backend", "backend", backend.Name, "method", dup.HTTPMethod, "path", dup.PathPattern)
		return nil, domain.BackendDiscoveryResult{Backend: backend.Name, Outcome: domain.OutcomeDuplicateRoute}
	}

	if len(fds) > 0 {
		pool, err := NewDescriptorPool(string(backend.Name), fds)
		if err != nil {
			level.Warn(d.logger).Log("msg", "building descriptor pool failed", "backend", backend.Name, "err", err)
		} else {
			d.mu.Lock()
			sink := d.onDescriptors
			d.mu.Unlock()
			if sink != nil {
				sink(backend.Name, pool)
			}
		}
	}

	return routes, domain.BackendDiscoveryResult{Backend: backend.Name, Outcome: domain.OutcomeSuccess, RouteCount: len(routes)}
}

// duplicateRoute reports the first route within routes whose (http_method, http_path)
// collides with an earlier one in the same slice, per §4.8 step 4: two routes from the
// same backend sharing a method+path is a discovery error for that backend, distinct
// from the cross-backend dedup applyOverrides/dedupRoutes perform on the merged table.
func duplicateRoute(routes []domain.Route) (domain.Route, bool) {
	seen := make(map[string]bool, len(routes))
	for _, r := range routes {
		key := domain.RouteKey(r.HTTPMethod, r.PathPattern)
		if seen[key] {
			return r, true
		}
		seen[key] = true
	}
	return domain.Route{}, false
}

// applyOverrides merges configured overrides into discovered routes per §4.8: Replace
// entries remove any existing route with the same (method, path) before inserting;
// Add entries append unconditionally (dedup catches collisions).
func applyOverrides(routes []domain.Route, overrides []domain.RouteOverride) []domain.Route {
	for _, o := range overrides {
		if o.Mode == domain.OverrideReplace {
			filtered := routes[:0]
			for _, r := range routes {
				if r.HTTPMethod == o.HTTPMethod && r.PathPattern == o.PathPattern {
					continue
				}
				filtered = append(filtered, r)
			}
			routes = filtered
		}
		routes = append(routes, o.Route)
	}
	return routes
}

// dedupRoutes enforces the table's (http_method, http_path_pattern) uniqueness
// invariant with a first-wins policy, logging every route dropped as a duplicate.
func dedupRoutes(routes []domain.Route, logger log.Logger) []domain.Route {
	seen := make(map[string]bool, len(routes))
	out := make([]domain.Route, 0, len(routes))
	for _, r := range routes {
		key := domain.RouteKey(r.HTTPMethod, r.PathPattern)
		if seen[key] {
			level.Warn(logger).Log("msg", "dropping duplicate route", "method", r.HTTPMethod, "path", r.PathPattern, "backend", r.Backend)
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

// Run ticks Discover on refreshInterval and pushes each result into table.Update,
// until ctx is cancelled. The initial discovery pass already ran in cmd/main before
// Run starts, so the first tick here is the first *refresh*, not a duplicate of it.
// See interfaces.RouteDiscovery.
func (d *routeDiscovery) Run(ctx context.Context) {
	ticker := time.NewTicker(d.refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			routes, results := d.Discover(ctx, d.backends, d.overrides)
			d.table.Update(routes)
			for _, r := range results {
				if r.Outcome != domain.OutcomeSuccess {
					level.Warn(d.logger).Log("msg", "discovery refresh outcome", "backend", r.Backend, "outcome", r.Outcome, "err", r.Err)
				}
			}
		}
	}
}

// LastResults returns the most recent per-backend outcomes. See interfaces.RouteDiscovery.
func (d *routeDiscovery) LastResults() []domain.BackendDiscoveryResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]domain.BackendDiscoveryResult(nil), d.last...)
}

// SetDescriptorSink installs sink. See interfaces.RouteDiscovery.
func (d *routeDiscovery) SetDescriptorSink(sink func(domain.BackendName, interfaces.DescriptorPool)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onDescriptors = sink
}

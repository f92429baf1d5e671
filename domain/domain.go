// Package domain holds the gateway's core value types: backends, routes, auth
// policy and the per-request context threaded through the pipeline. Nothing in
// this package talks to the network; it is pure data plus validation.
package domain

import (
	"fmt"
	"time"
)

// BackendName identifies a configured gRPC backend (e.g. "user-svc", "auth").
type BackendName string

// CircuitBreakerConfig parameterizes a backend's circuit breaker (component C2).
type CircuitBreakerConfig struct {
	FailureThreshold int           // consecutive failures before tripping to Open
	SuccessThreshold int           // consecutive half-open successes before closing
	Timeout          time.Duration // Open → HalfOpen cooldown
}

// Backend is a configured gRPC service the gateway dispatches to. Immutable after
// startup; created once from configuration.
type Backend struct {
	Name           BackendName
	Endpoint       string
	Timeout        time.Duration
	PoolSize       int
	CircuitBreaker CircuitBreakerConfig
	AutoDiscover   bool
}

// Validate checks the invariants a Backend must satisfy before it can be dialed.
func (b Backend) Validate() error {
	if b.Name == "" {
		return fmt.Errorf("backend: name must be non-empty")
	}
	if b.Endpoint == "" {
		return fmt.Errorf("backend %q: endpoint must be non-empty", b.Name)
	}
	if b.PoolSize <= 0 {
		return fmt.Errorf("backend %q: pool_size must be positive", b.Name)
	}
	if b.Timeout <= 0 {
		return fmt.Errorf("backend %q: timeout must be positive", b.Name)
	}
	if b.CircuitBreaker.FailureThreshold <= 0 {
		return fmt.Errorf("backend %q: circuit_breaker.failure_threshold must be positive", b.Name)
	}
	return nil
}

// RouteOverrideMode selects how a configured override interacts with discovered routes.
type RouteOverrideMode string

const (
	// OverrideReplace removes any existing route with the same (method, path) before inserting.
	OverrideReplace RouteOverrideMode = "replace"
	// OverrideAdd appends unconditionally; later dedup (first-wins) resolves collisions.
	OverrideAdd RouteOverrideMode = "add"
)

// Route is an HTTP-to-gRPC mapping: a method+path pattern dispatched as a unary call
// to (Backend, GRPCMethod). PathPattern segments are literal or ":name" parameters.
type Route struct {
	HTTPMethod  string
	PathPattern string
	Backend     BackendName
	GRPCMethod  string // "package.Service/Method"
}

// RouteOverride is a configured route that bypasses or augments discovery, per §4.8.
type RouteOverride struct {
	Route
	Mode RouteOverrideMode
}

// PathSegment is one element of a parsed PathPattern.
type PathSegment struct {
	Literal   string
	ParamName string // non-empty when this segment is ":name"
}

// IsParam reports whether this segment binds a path parameter.
func (s PathSegment) IsParam() bool { return s.ParamName != "" }

// AuthPolicy is the cached authorization requirement for one gRPC method (component C10).
type AuthPolicy struct {
	Service      string
	Method       string
	RequireAuth  bool
	RequiredRoles []string
	CachedAt     time.Time
	TTL          time.Duration
}

// Expired reports whether the policy must be refetched from the auth backend.
func (p AuthPolicy) Expired(now time.Time) bool {
	return now.Sub(p.CachedAt) >= p.TTL
}

// TokenClaims is what the auth backend returns for a validated bearer token.
type TokenClaims struct {
	UserID string
	Roles  []string
}

// HasAnyRole reports whether claims carries at least one of required (required empty
// means any authenticated caller suffices).
func (c TokenClaims) HasAnyRole(required []string) bool {
	if len(required) == 0 {
		return true
	}
	have := make(map[string]struct{}, len(c.Roles))
	for _, r := range c.Roles {
		have[r] = struct{}{}
	}
	for _, r := range required {
		if _, ok := have[r]; ok {
			return true
		}
	}
	return false
}

// RoutingDecision is the result of matching an inbound request against the routing
// table: the resolved Route plus the bound path-parameter values.
type RoutingDecision struct {
	Route      Route
	PathParams map[string]string
}

// DiscoveryOutcome classifies what happened when discovery queried one backend (§4.8).
type DiscoveryOutcome string

const (
	OutcomeSuccess                DiscoveryOutcome = "success"
	OutcomeReflectionNotSupported DiscoveryOutcome = "reflection_not_supported"
	OutcomeEmptyService           DiscoveryOutcome = "empty_service"
	OutcomeQueryFailed            DiscoveryOutcome = "query_failed"
	OutcomeDuplicateRoute         DiscoveryOutcome = "duplicate_route"
)

// BackendDiscoveryResult summarizes one backend's discovery pass, surfaced both in
// logs and in the admin refresh-routes response (§D of the expanded spec).
type BackendDiscoveryResult struct {
	Backend    BackendName
	Outcome    DiscoveryOutcome
	RouteCount int
	Err        error
}

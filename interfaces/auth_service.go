package interfaces

import (
	"context"
	"net/http"

	"apigateway/domain"
)

// AuthService extracts and validates bearer tokens and resolves per-method
// authorization policy against the auth backend, with a process-wide policy cache
// (component C10).
type AuthService interface {
	// ExtractToken pulls the bearer token from an inbound HTTP request's Authorization
	// header. Returns ("", false) when absent or malformed.
	ExtractToken(h http.Header) (string, bool)

	// ValidateToken calls the auth backend to validate token and returns its claims.
	ValidateToken(ctx context.Context, token string) (domain.TokenClaims, error)

	// GetPolicy returns the cached (or freshly fetched) AuthPolicy for (service, method).
	// Fails secure: any error fetching an uncached policy is treated as require_auth=true,
	// required_roles=nil (deny until proven otherwise).
	GetPolicy(ctx context.Context, service, method string) (domain.AuthPolicy, error)

	// CheckAuthorization reports whether claims satisfies policy's role requirement.
	CheckAuthorization(policy domain.AuthPolicy, claims domain.TokenClaims) bool
}

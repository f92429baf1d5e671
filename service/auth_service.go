package service

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"apigateway/domain"
	"apigateway/helpers"
	"apigateway/interfaces"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// authValidateMethod and authPolicyMethod are the well-known full methods the gateway
// expects the configured auth backend to expose — the auth backend is addressed as
// just another reflectable gRPC service (component C10), not a bespoke stub.
const (
	authValidateMethod = "gateway.auth.v1.AuthService/ValidateToken"
	authPolicyMethod   = "gateway.auth.v1.AuthService/GetPolicy"
)

// authService implements interfaces.AuthService: token extraction, validation against
// the auth backend via the dynamic invoker, and a policy cache replaced (never
// mutated) on refresh — mirroring the teacher's "replace on swap" idiom from
// connectionPool's instance-list refresh, generalized to policy entries (component C10).
type authService struct {
	conn    *grpc.ClientConn
	pool    interfaces.DescriptorPool
	invoker interfaces.DynamicInvoker
	logger  log.Logger

	mu     sync.RWMutex
	cached map[string]domain.AuthPolicy // key: service+"/"+method
	now    func() time.Time
}

// NewAuthService builds an authService over the auth backend's connection and
// descriptor pool. Panics on any nil dependency.
//
// Called from cmd/main.
func NewAuthService(conn *grpc.ClientConn, pool interfaces.DescriptorPool, invoker interfaces.DynamicInvoker, logger log.Logger, now func() time.Time) interfaces.AuthService {
	return &authService{
		conn:    helpers.NilPanic(conn, "service.auth_service.go: conn is required"),
		pool:    helpers.NilPanic(pool, "service.auth_service.go: pool is required"),
		invoker: helpers.NilPanic(invoker, "service.auth_service.go: invoker is required"),
		logger:  helpers.NilPanic(logger, "service.auth_service.go: logger is required"),
		cached:  make(map[string]domain.AuthPolicy),
		now:     helpers.NilPanic(now, "service.auth_service.go: now is required"),
	}
}

// ExtractToken pulls the bearer token from the Authorization header. See
// interfaces.AuthService.
func (a *authService) ExtractToken(h http.Header) (string, bool) {
	return helpers.ExtractBearerToken(h.Get(helpers.HeaderAuthorization))
}

type validateTokenRequest struct {
	Token string `json:"token"`
}

type validateTokenResponse struct {
	UserID string   `json:"user_id"`
	Roles  []string `json:"roles"`
}

// ValidateToken calls the auth backend's ValidateToken method. See interfaces.AuthService.
func (a *authService) ValidateToken(ctx context.Context, token string) (domain.TokenClaims, error) {
	payload, err := json.Marshal(validateTokenRequest{Token: token})
	if err != nil {
		return domain.TokenClaims{}, err
	}
	raw, err := a.invoker.Invoke(ctx, a.conn, a.pool, authValidateMethod, payload, metadata.MD{})
	if err != nil {
		return domain.TokenClaims{}, err
	}
	var resp validateTokenResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return domain.TokenClaims{}, err
	}
	return domain.TokenClaims{UserID: resp.UserID, Roles: resp.Roles}, nil
}

type getPolicyRequest struct {
	Service string `json:"service"`
	Method  string `json:"method"`
}

type getPolicyResponse struct {
	RequireAuth   bool     `json:"require_auth"`
	RequiredRoles []string `json:"required_roles"`
	TTLSeconds    int64    `json:"ttl_seconds"`
}

// GetPolicy returns the cached or freshly fetched policy. Fails secure on fetch
// error: require_auth=true, required_roles=nil. See interfaces.AuthService.
func (a *authService) GetPolicy(ctx context.Context, svc, method string) (domain.AuthPolicy, error) {
	key := svc + "/" + method
	now := a.now()

	a.mu.RLock()
	cached, ok := a.cached[key]
	a.mu.RUnlock()
	if ok && !cached.Expired(now) {
		return cached, nil
	}

	payload, err := json.Marshal(getPolicyRequest{Service: svc, Method: method})
	if err != nil {
		return failSecurePolicy(svc, method, now), err
	}
	raw, err := a.invoker.Invoke(ctx, a.conn, a.pool, authPolicyMethod, payload, metadata.MD{})
	if err != nil {
		level.Warn(a.logger).Log("msg", "auth policy fetch failed, failing secure", "service", svc, "method", method, "err", err)
		return failSecurePolicy(svc, method, now), err
	}
	var resp getPolicyResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return failSecurePolicy(svc, method, now), err
	}

	policy := domain.AuthPolicy{
		Service:       svc,
		Method:        method,
		RequireAuth:   resp.RequireAuth,
		RequiredRoles: resp.RequiredRoles,
		CachedAt:      now,
		TTL:           time.Duration(resp.TTLSeconds) * time.Second,
	}
	a.mu.Lock()
	a.cached[key] = policy
	a.mu.Unlock()
	return policy, nil
}

func failSecurePolicy(svc, method string, now time.Time) domain.AuthPolicy {
	return domain.AuthPolicy{Service: svc, Method: method, RequireAuth: true, CachedAt: now, TTL: 0}
}

// CheckAuthorization reports whether claims satisfies policy. See interfaces.AuthService.
func (a *authService) CheckAuthorization(policy domain.AuthPolicy, claims domain.TokenClaims) bool {
	if !policy.RequireAuth {
		return true
	}
	return claims.HasAnyRole(policy.RequiredRoles)
}

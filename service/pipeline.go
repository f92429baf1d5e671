package service

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"apigateway/domain"
	"apigateway/helpers"
	"apigateway/interfaces"
	"apigateway/service/gatewayerr"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"google.golang.org/grpc/metadata"
)

// PipelineRequest is the framework-agnostic shape the pipeline operates on — an
// adapter (adapters/http_server.go) translates an inbound echo.Context into this
// before calling Handle, and translates the PipelineResponse back.
type PipelineRequest struct {
	Method     string
	Path       string
	Header     http.Header
	Body       []byte
	RemoteAddr string
}

// PipelineResponse is what Handle always returns — success and error alike are
// rendered to a status code, headers and body here, never as a raw Go error, so the
// adapter layer has nothing left to interpret.
type PipelineResponse struct {
	Status int
	Header http.Header
	Body   []byte
}

// pipeline implements component C11: the ten-step request dispatch pipeline tying
// every other component together. Grounded on the teacher's TransparentProxy.Handler
// (service/transparent.go) as the "one orchestrating method, fail fast on each step"
// idiom, generalized from gRPC-stream forwarding to HTTP-to-gRPC unary dispatch.
type pipeline struct {
	table    interfaces.RoutingTable
	auth     interfaces.AuthService
	limiter  interfaces.RateLimiter
	invoker  interfaces.DynamicInvoker
	registry *BackendRegistry
	metrics  interfaces.Metrics
	logger   log.Logger
	now      func() time.Time
	cfg      PipelineConfig
}

// NewPipeline wires the pipeline's dependencies. Panics on any nil dependency.
//
// Called from cmd/main.
func NewPipeline(
	table interfaces.RoutingTable,
	auth interfaces.AuthService,
	limiter interfaces.RateLimiter,
	invoker interfaces.DynamicInvoker,
	registry *BackendRegistry,
	metrics interfaces.Metrics,
	logger log.Logger,
	now func() time.Time,
	cfg PipelineConfig,
) *pipeline {
	return &pipeline{
		table:    helpers.NilPanic(table, "service.pipeline.go: table is required"),
		auth:     helpers.NilPanic(auth, "service.pipeline.go: auth is required"),
		limiter:  helpers.NilPanic(limiter, "service.pipeline.go: limiter is required"),
		invoker:  helpers.NilPanic(invoker, "service.pipeline.go: invoker is required"),
		registry: helpers.NilPanic(registry, "service.pipeline.go: registry is required"),
		metrics:  helpers.NilPanic(metrics, "service.pipeline.go: metrics is required"),
		logger:   helpers.NilPanic(logger, "service.pipeline.go: logger is required"),
		now:      helpers.NilPanic(now, "service.pipeline.go: now is required"),
		cfg:      cfg,
	}
}

// BodyLimitFor exposes the configured body limit for path so the HTTP adapter can
// apply http.MaxBytesReader before handing the body to Handle.
func (p *pipeline) BodyLimitFor(path string) int64 {
	return p.cfg.BodyLimitFor(path)
}

// Handle runs the ten steps of §4.11 in order and always returns a fully rendered
// response.
func (p *pipeline) Handle(ctx context.Context, req *PipelineRequest) *PipelineResponse {
	start := p.now()

	// Step 1: deadline.
	ctx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
	defer cancel()

	traceID := inboundTraceID(req.Header)

	resp := p.dispatch(ctx, req, traceID)
	resp.Header.Set(helpers.HeaderTraceID, traceID)

	p.metrics.ObserveRequest(req.Path, req.Method, statusLabel(resp.Status), p.now().Sub(start))
	return resp
}

func (p *pipeline) dispatch(ctx context.Context, req *PipelineRequest, traceID string) *PipelineResponse {
	// Step 3: rate limit by connection IP.
	ip := helpers.ClientIP(req.RemoteAddr, req.Header.Get(helpers.HeaderForwardedFor), p.cfg.TrustedProxies)
	if !p.limiter.Allow(ip) {
		return errorResponse(gatewayerr.New(gatewayerr.RateLimitExceeded, "too many requests"), traceID)
	}

	// Step 4: body limit (the adapter already applied http.MaxBytesReader; this is the backstop).
	if int64(len(req.Body)) > p.cfg.BodyLimitFor(req.Path) {
		return errorResponse(gatewayerr.New(gatewayerr.PayloadTooLarge, "request body too large"), traceID)
	}

	// Step 5: routing + auth.
	decision, ok := p.table.Match(req.Method, req.Path)
	if !ok {
		return errorResponse(gatewayerr.New(gatewayerr.RouteNotFound, "no route for "+req.Method+" "+req.Path), traceID)
	}

	claims, gwErr := p.authorize(ctx, decision, req)
	if gwErr != nil {
		return errorResponse(gwErr, traceID)
	}

	// Step 6: acquire the backend's registered dependencies (channel acquisition itself
	// happens inside the dispatched call via pool.Acquire(), so an open breaker never
	// touches the pool).
	backend, pool, breaker, descriptors, err := p.registry.Lookup(decision.Route.Backend)
	if err != nil || descriptors == nil {
		return errorResponse(gatewayerr.Wrap(gatewayerr.ServiceUnavailable, "backend unavailable", err), traceID)
	}

	// Step 7: marshal HTTP -> payload JSON.
	payload, gwErr := buildPayload(req.Body, decision.PathParams, claims)
	if gwErr != nil {
		return errorResponse(gwErr, traceID)
	}
	outMD := metadata.MD{}
	helpers.CopyTraceHeaders(req.Header, outMD)

	// Step 8: dispatch, wrapped by the circuit breaker when configured. Retries for
	// transient statuses happen transparently inside conn.Invoke via the pool's dial-time
	// retry interceptor (service/connection_pool.go), so the breaker counts one failure
	// per backend call, never per retry.
	var raw []byte
	call := func(callCtx context.Context) error {
		var invokeErr error
		raw, invokeErr = p.invoker.Invoke(callCtx, pool.Acquire(), descriptors, decision.Route.GRPCMethod, payload, outMD)
		return invokeErr
	}

	svc, method, _ := splitFullMethod(decision.Route.GRPCMethod)
	if breaker != nil {
		err = breaker.Call(ctx, call)
	} else {
		err = call(ctx)
	}

	// Step 9: unmarshal response / map errors.
	if err != nil {
		outcome := "error"
		var gwe *gatewayerr.Error
		if err == ErrCircuitOpen {
			outcome = "circuit_open"
			gwe = gatewayerr.New(gatewayerr.CircuitOpen, "circuit open for "+string(backend.Name))
		} else if ctx.Err() == context.DeadlineExceeded {
			gwe = gatewayerr.Wrap(gatewayerr.Timeout, "request deadline exceeded", err)
		} else {
			gwe = gatewayerr.FromUpstream(err, traceID)
		}
		level.Error(p.logger).Log("msg", "backend call failed", "trace_id", traceID, "service", svc, "method", method, "err", err)
		p.metrics.ObserveGRPCCall(svc, method, outcome)
		return errorResponse(gwe, traceID)
	}

	p.metrics.ObserveGRPCCall(svc, method, "success")
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	return &PipelineResponse{Status: http.StatusOK, Header: h, Body: raw}
}

// authorize resolves the auth policy for decision's method and checks the caller
// against it, per §4.10's check_authorization. Returns empty claims when the method
// requires no auth.
func (p *pipeline) authorize(ctx context.Context, decision domain.RoutingDecision, req *PipelineRequest) (domain.TokenClaims, *gatewayerr.Error) {
	svc, method, _ := splitFullMethod(decision.Route.GRPCMethod)
	policy, err := p.auth.GetPolicy(ctx, svc, method)
	if err != nil {
		level.Warn(p.logger).Log("msg", "policy fetch failed, evaluating fail-secure policy", "service", svc, "method", method, "err", err)
	}
	if !policy.RequireAuth {
		return domain.TokenClaims{}, nil
	}

	token, ok := p.auth.ExtractToken(req.Header)
	if !ok {
		return domain.TokenClaims{}, gatewayerr.New(gatewayerr.MissingToken, "missing bearer token")
	}
	claims, err := p.auth.ValidateToken(ctx, token)
	if err != nil {
		return domain.TokenClaims{}, gatewayerr.Wrap(gatewayerr.InvalidToken, "token validation failed", err)
	}
	if !p.auth.CheckAuthorization(policy, claims) {
		return domain.TokenClaims{}, gatewayerr.New(gatewayerr.InsufficientPermissions, "caller lacks a required role")
	}
	return claims, nil
}

// buildPayload merges sanitized path params and (when authenticated) auth context
// into the request body's JSON object, per §4.11 step 7.
func buildPayload(body []byte, pathParams map[string]string, claims domain.TokenClaims) ([]byte, *gatewayerr.Error) {
	obj := map[string]any{}
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, &obj); err != nil {
			return nil, gatewayerr.Wrap(gatewayerr.InvalidJSONBody, "request body is not valid JSON", err)
		}
	}

	for name, value := range pathParams {
		if err := sanitizePathParam(value); err != nil {
			return nil, gatewayerr.Wrap(gatewayerr.InvalidPathParam, "invalid path parameter "+name, err)
		}
		obj[name] = value
	}

	if claims.UserID != "" || len(claims.Roles) > 0 {
		obj["auth_user_id"] = claims.UserID
		obj["auth_roles"] = claims.Roles
	}

	out, err := json.Marshal(obj)
	if err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.Internal, "failed to build upstream payload", err)
	}
	return out, nil
}

// sanitizePathParam rejects values that could be used to traverse or inject path
// segments into the upstream payload, per §4.11 step 7.
func sanitizePathParam(v string) error {
	if strings.Contains(v, "..") || strings.Contains(v, "/") || strings.Contains(v, "\x00") || strings.HasPrefix(v, "/") {
		return errInvalidPathParam
	}
	return nil
}

var errInvalidPathParam = &pathParamError{}

type pathParamError struct{}

func (*pathParamError) Error() string { return "path parameter contains disallowed characters" }

// inboundTraceID echoes the client's traceparent header verbatim, or mints a fresh
// UUID when the client sent none — see SPEC_FULL.md's trace-ID generation note.
func inboundTraceID(h http.Header) string {
	if v := h.Get(helpers.HeaderTraceParent); v != "" {
		return v
	}
	return uuid.NewString()
}

func errorResponse(gwErr *gatewayerr.Error, traceID string) *PipelineResponse {
	gwErr.TraceID = traceID
	body := map[string]any{
		"error": map[string]any{
			"code":     gwErr.Kind.Code(),
			"message":  gwErr.Message,
			"trace_id": traceID,
		},
	}
	if gwErr.Kind == gatewayerr.UpstreamGrpc && len(gwErr.Details) > 0 {
		body["error"].(map[string]any)["details"] = gwErr.Details
	}
	raw, _ := json.Marshal(body)
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	return &PipelineResponse{Status: gwErr.HTTPStatus(), Header: h, Body: raw}
}

func statusLabel(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 400 && status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

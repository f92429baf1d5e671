// Package adapters holds the gateway's edges to the outside world: the Echo-based
// HTTP ingress and its operational endpoints. Grounded on MyDiscoverer/handlers/http.go
// (handler methods on a struct, taking echo.Context, returning error) and
// MyDiscoverer/cmd/main.go's echo.New()/e.HideBanner/e.Start wiring.
package adapters

import (
	"context"
	"io"
	"net/http"
	"time"

	"apigateway/domain"
	"apigateway/helpers"
	"apigateway/interfaces"
	"apigateway/service"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline is the subset of *service.pipeline HTTPServer depends on, kept narrow so
// the adapter can be tested against a fake.
type Pipeline interface {
	Handle(ctx context.Context, req *service.PipelineRequest) *service.PipelineResponse
	BodyLimitFor(path string) int64
}

// HTTPServer wires Echo to the request pipeline (C11) plus the reserved operational
// paths of §6: /health, /health/live, /health/ready, /metrics, /admin/refresh-routes.
type HTTPServer struct {
	pipeline          Pipeline
	discovery         interfaces.RouteDiscovery
	table             interfaces.RoutingTable
	auth              interfaces.AuthService
	backends          []domain.Backend
	overrides         []domain.RouteOverride
	readinessBackends []domain.Backend
	healthPool        func(domain.BackendName) (interfaces.ConnectionPool, bool)
	logger            log.Logger
}

// NewHTTPServer builds an HTTPServer. backends and overrides are the immutable
// configuration set discovery was started with; readinessBackends is the (usually
// larger) set checked by /health/ready — every auto_discover backend plus the auth
// backend, per SPEC_FULL.md §D, since auth isn't itself a routable backend. healthPool
// resolves a backend's connection pool for readiness checks. Panics on any nil
// dependency.
//
// Called from cmd/main.
func NewHTTPServer(
	pipeline Pipeline,
	discovery interfaces.RouteDiscovery,
	table interfaces.RoutingTable,
	auth interfaces.AuthService,
	backends []domain.Backend,
	overrides []domain.RouteOverride,
	readinessBackends []domain.Backend,
	healthPool func(domain.BackendName) (interfaces.ConnectionPool, bool),
	logger log.Logger,
) *HTTPServer {
	return &HTTPServer{
		pipeline:          helpers.NilPanic(pipeline, "adapters.http_server.go: pipeline is required"),
		discovery:         helpers.NilPanic(discovery, "adapters.http_server.go: discovery is required"),
		table:             helpers.NilPanic(table, "adapters.http_server.go: table is required"),
		auth:              helpers.NilPanic(auth, "adapters.http_server.go: auth is required"),
		backends:          backends,
		overrides:         overrides,
		readinessBackends: readinessBackends,
		healthPool:        helpers.NilPanic(healthPool, "adapters.http_server.go: healthPool is required"),
		logger:            helpers.NilPanic(logger, "adapters.http_server.go: logger is required"),
	}
}

// Register mounts every reserved path ahead of the catch-all. Echo's own router
// resolves these directly, so they never reach the gateway's dynamic routing table,
// per §6's reserved-path carve-out.
func (s *HTTPServer) Register(e *echo.Echo) {
	e.GET("/health", s.handleHealth)
	e.GET("/health/live", s.handleLive)
	e.GET("/health/ready", s.handleReady)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.POST("/admin/refresh-routes", s.handleRefreshRoutes)
	e.Any("/*", s.handleProxy)
}

// handleHealth is the legacy combined liveness+readiness probe some orchestrators
// still poll at a single path; it reports process-up only, same as handleLive.
func (s *HTTPServer) handleHealth(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

// handleLive reports whether the process itself is up — it never touches a backend.
func (s *HTTPServer) handleLive(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

// handleReady additionally calls HealthCheck against every auto-discover backend's
// connection pool, returning 503 if any is unreachable — the readiness/liveness split
// supplemented in SPEC_FULL.md beyond the distilled spec.
func (s *HTTPServer) handleReady(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	var unhealthy []string
	for _, b := range s.readinessBackends {
		if !b.AutoDiscover {
			continue
		}
		pool, ok := s.healthPool(b.Name)
		if !ok {
			unhealthy = append(unhealthy, string(b.Name))
			continue
		}
		if err := pool.HealthCheck(ctx); err != nil {
			level.Warn(s.logger).Log("msg", "readiness check failed", "backend", b.Name, "err", err)
			unhealthy = append(unhealthy, string(b.Name))
		}
	}
	if len(unhealthy) > 0 {
		return c.JSON(http.StatusServiceUnavailable, map[string]any{"status": "not_ready", "unhealthy": unhealthy})
	}
	return c.JSON(http.StatusOK, map[string]any{"status": "ready"})
}

// refreshReport is the admin endpoint's response shape: the {discovered, retained,
// dropped, total} summary plus the per-backend outcome list discovery produced.
type refreshReport struct {
	Discovered int                            `json:"discovered"`
	Retained   int                             `json:"retained"`
	Dropped    int                             `json:"dropped"`
	Total      int                             `json:"total"`
	Backends   []domain.BackendDiscoveryResult `json:"backends"`
}

// handleRefreshRoutes runs an immediate discovery pass outside the ticking interval
// and swaps it into the routing table, for operators who don't want to wait for the
// next tick.
func (s *HTTPServer) handleRefreshRoutes(c echo.Context) error {
	token, ok := s.auth.ExtractToken(c.Request().Header)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]any{
			"error": map[string]any{"code": "UNAUTHENTICATED", "message": "missing bearer token"},
		})
	}
	if _, err := s.auth.ValidateToken(c.Request().Context(), token); err != nil {
		return c.JSON(http.StatusForbidden, map[string]any{
			"error": map[string]any{"code": "FORBIDDEN", "message": "token validation failed"},
		})
	}

	before := len(s.table.Routes())

	routes, results := s.discovery.Discover(c.Request().Context(), s.backends, s.overrides)
	s.table.Update(routes)

	discovered, retained := 0, 0
	for _, r := range results {
		switch r.Outcome {
		case domain.OutcomeSuccess:
			discovered += r.RouteCount
		case domain.OutcomeQueryFailed, domain.OutcomeReflectionNotSupported, domain.OutcomeDuplicateRoute:
			retained++
		}
	}
	dropped := before - len(routes)
	if dropped < 0 {
		dropped = 0
	}

	return c.JSON(http.StatusOK, refreshReport{
		Discovered: discovered,
		Retained:   retained,
		Dropped:    dropped,
		Total:      len(routes),
		Backends:   results,
	})
}

// handleProxy is the catch-all: it caps and reads the body per pipeline.BodyLimitFor,
// runs it through the pipeline, and writes back the already fully rendered response —
// nothing here interprets a Go error, since Handle never returns one.
func (s *HTTPServer) handleProxy(c echo.Context) error {
	req := c.Request()
	limit := s.pipeline.BodyLimitFor(req.URL.Path)
	req.Body = http.MaxBytesReader(c.Response(), req.Body, limit)

	body, err := io.ReadAll(req.Body)
	if err != nil {
		return c.JSON(http.StatusRequestEntityTooLarge, map[string]any{
			"error": map[string]any{"code": "PAYLOAD_TOO_LARGE", "message": "request body exceeds limit"},
		})
	}

	resp := s.pipeline.Handle(req.Context(), &service.PipelineRequest{
		Method:     req.Method,
		Path:       req.URL.Path,
		Header:     req.Header,
		Body:       body,
		RemoteAddr: req.RemoteAddr,
	})

	header := c.Response().Header()
	for k, values := range resp.Header {
		for _, v := range values {
			header.Add(k, v)
		}
	}
	return c.Blob(resp.Status, "application/json", resp.Body)
}

// Package main is the gateway's entry point. It loads configuration, dials every
// configured backend (plus the auth backend) into connection pools and circuit
// breakers, runs an initial route-discovery pass, and starts the Echo HTTP listener.
// Grounded on MyDiscoverer/cmd/main.go's scoped var-block wiring and echo.Start/
// e.Shutdown bootstrap idiom, generalized from a single Redis-backed handler to the
// gateway's full backend/discovery/auth/pipeline wiring.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"apigateway/adapters"
	"apigateway/domain"
	"apigateway/interfaces"
	"apigateway/service"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/labstack/echo/v4"
	"google.golang.org/protobuf/types/descriptorpb"
)

func main() {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.WithPrefix(logger, "ts", log.DefaultTimestampUTC)
	logger = log.WithPrefix(logger, "caller", log.DefaultCaller)

	level.Info(logger).Log("msg", "starting gateway")

	cfg, err := LoadConfig()
	if err != nil {
		level.Error(logger).Log("msg", "failed to load configuration", "err", err)
		os.Exit(1)
	}

	now := func() time.Time { return time.Now().UTC() }
	backends := cfg.Backends()

	registry := service.NewBackendRegistry()
	pools := map[domain.BackendName]interfaces.ConnectionPool{}
	{
		for _, b := range backends {
			pool, err := service.NewConnectionPool(b, logger)
			if err != nil {
				level.Error(logger).Log("msg", "failed to dial backend", "backend", b.Name, "err", err)
				os.Exit(1)
			}
			breaker := service.NewCircuitBreaker(string(b.Name), b.CircuitBreaker)
			registry.Register(b, pool, breaker)
			pools[b.Name] = pool
		}
	}
	defer closeAll(pools, logger)

	authBackend := cfg.AuthBackend()
	var authService interfaces.AuthService
	{
		authPool, err := service.NewConnectionPool(authBackend, logger)
		if err != nil {
			level.Error(logger).Log("msg", "failed to dial auth backend", "err", err)
			os.Exit(1)
		}
		pools[authBackend.Name] = authPool

		ctx, cancel := context.WithTimeout(context.Background(), authBackend.Timeout)
		reflClient := service.NewReflectionClient(authPool.Acquire(), logger)
		authDescriptors, err := bootstrapDescriptorPool(ctx, reflClient, string(authBackend.Name), logger)
		cancel()
		if err != nil {
			level.Error(logger).Log("msg", "failed to discover auth backend's service descriptors", "err", err)
			os.Exit(1)
		}

		invoker := service.NewDynamicInvoker()
		authService = service.NewAuthService(authPool.Acquire(), authDescriptors, invoker, logger, now)
	}

	table := service.NewRoutingTable()
	var discovery interfaces.RouteDiscovery
	{
		newReflectionClient := func(b domain.Backend) (interfaces.ReflectionClient, error) {
			pool, ok := pools[b.Name]
			if !ok {
				return nil, fmt.Errorf("cmd/main: no connection pool registered for backend %s", b.Name)
			}
			return service.NewReflectionClient(pool.Acquire(), logger), nil
		}
		refreshInterval := time.Duration(cfg.Discovery.RefreshIntervalSeconds) * time.Second
		discovery = service.NewRouteDiscovery(newReflectionClient, refreshInterval, table, logger, backends, cfg.RouteOverridesDomain())
		discovery.SetDescriptorSink(registry.SetDescriptorPool)
	}

	if cfg.Discovery.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		routes, results := discovery.Discover(ctx, backends, cfg.RouteOverridesDomain())
		cancel()
		table.Update(routes)
		for _, r := range results {
			level.Info(logger).Log("msg", "initial route discovery", "backend", r.Backend, "outcome", r.Outcome, "routes", r.RouteCount)
		}
	}

	var limiter interfaces.RateLimiter
	{
		if cfg.RateLimit.Enabled {
			limiter = service.NewRateLimiter(service.RateLimitConfig{
				RequestsPerWindow: cfg.RateLimit.RequestsPerMinute,
				Window:            time.Duration(cfg.RateLimit.WindowSeconds) * time.Second,
				Capacity:          cfg.RateLimit.Capacity,
				IdleTTL:           time.Duration(cfg.RateLimit.IdleTTLSeconds) * time.Second,
			}, now)
		} else {
			limiter = service.NewNoopRateLimiter()
		}
	}

	evictionDone := make(chan struct{})
	go limiter.RunEviction(evictionDone, time.Duration(cfg.RateLimit.EvictionTickSeconds)*time.Second)
	defer close(evictionDone)

	discoveryCtx, stopDiscovery := context.WithCancel(context.Background())
	if cfg.Discovery.Enabled {
		go discovery.Run(discoveryCtx)
	}
	defer stopDiscovery()

	pipelineCfg := service.PipelineConfig{
		RequestTimeout:   time.Duration(cfg.Server.RequestTimeoutMs) * time.Millisecond,
		DefaultBodyLimit: cfg.MaxRequestBodySize,
		UploadBodyLimit:  cfg.MaxUploadBodySize,
		UploadPaths:      cfg.UploadPaths,
		TrustedProxies:   cfg.TrustedProxySet(),
	}
	pipeline := service.NewPipeline(table, authService, limiter, service.NewDynamicInvoker(), registry, service.NewMetrics(), logger, now, pipelineCfg)

	var e *echo.Echo
	{
		e = echo.New()
		e.HideBanner = true
		if cfg.CORS.Enabled {
			e.Use(adapters.NewCORSMiddleware(adapters.CORSConfig{
				AllowedOrigins: cfg.CORS.AllowedOrigins,
				AllowedMethods: cfg.CORS.AllowedMethods,
				AllowedHeaders: cfg.CORS.AllowedHeaders,
			}))
		}
		healthPool := func(name domain.BackendName) (interfaces.ConnectionPool, bool) {
			p, ok := pools[name]
			return p, ok
		}
		readinessBackends := append(append([]domain.Backend{}, backends...), authBackend)
		server := adapters.NewHTTPServer(pipeline, discovery, table, authService, backends, cfg.RouteOverridesDomain(), readinessBackends, healthPool, logger)
		server.Register(e)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		level.Info(logger).Log("msg", "starting HTTP server", "addr", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			level.Error(logger).Log("msg", "HTTP server error", "err", err)
		}
	}()

	<-quit
	level.Info(logger).Log("msg", "shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		level.Error(logger).Log("msg", "error during server shutdown", "err", err)
	}

	level.Info(logger).Log("msg", "server stopped")
}

// bootstrapDescriptorPool queries every service the auth backend's reflection exposes
// and builds one descriptor pool spanning all of them — the same collect-dedup-build
// shape as routeDiscovery.discoverBackend, run once at startup rather than on a
// recurring tick, since the auth backend isn't part of the routed backend set.
func bootstrapDescriptorPool(ctx context.Context, client interfaces.ReflectionClient, name string, logger log.Logger) (interfaces.DescriptorPool, error) {
	services, err := client.ListServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("cmd/main: list services for %s: %w", name, err)
	}

	seen := map[string]bool{}
	var fds []*descriptorpb.FileDescriptorProto
	for _, svc := range services {
		_, files, err := client.ListMethods(ctx, svc)
		if err != nil {
			level.Warn(logger).Log("msg", "listing methods failed during bootstrap", "backend", name, "service", svc, "err", err)
			continue
		}
		for _, fd := range files {
			if n := fd.GetName(); !seen[n] {
				seen[n] = true
				fds = append(fds, fd)
			}
		}
	}
	return service.NewDescriptorPool(name, fds)
}

func closeAll(pools map[domain.BackendName]interfaces.ConnectionPool, logger log.Logger) {
	for name, pool := range pools {
		closed := pool.Close()
		level.Info(logger).Log("msg", "closed connection pool", "backend", name, "channels_closed", closed)
	}
}

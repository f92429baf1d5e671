package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"apigateway/domain"
	"apigateway/helpers"
	"apigateway/interfaces"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	grpc_retry "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/retry"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
)

// retryableCodes mirrors the transient set from the error taxonomy's retry policy
// (gatewayerr.IsTransient): only these are worth a same-backend retry, everything
// else (validation, auth, NotFound, ...) is terminal.
var retryableCodes = []codes.Code{codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted}

const (
	retryMaxAttempts  = 3
	retryBackoffFloor = 50 * time.Millisecond
)

// connectionPool implements interfaces.ConnectionPool: a fixed set of gRPC channels
// dialed once at startup for one backend, handed out round-robin (component C1).
// Unlike the teacher's dynamic-discoverer-fed pool, this spec's backends are static
// config entries, so there is no instance churn to track — Acquire is a lock-free
// atomic counter instead of a mutex-guarded round-robin index.
type connectionPool struct {
	conns  []*grpc.ClientConn
	rr     atomic.Uint64
	logger log.Logger
}

// NewConnectionPool dials backend.PoolSize channels to backend.Endpoint. Panics on a
// nil logger (fail-fast, matching the teacher's constructor convention).
//
// Returns interfaces.ConnectionPool and an error if any channel fails to dial.
//
// Called from cmd/main, once per configured backend.
func NewConnectionPool(backend domain.Backend, logger log.Logger) (interfaces.ConnectionPool, error) {
	logger = helpers.NilPanic(logger, "service.connection_pool.go: logger is required")

	// BackoffExponential approximates §4.11's initial_backoff * multiplier^(attempt-1)
	// policy; the circuit breaker wraps the whole call (interceptor retries included),
	// so the breaker counts one failure per backend call, never per retry.
	retryOpts := []grpc_retry.CallOption{
		grpc_retry.WithBackoff(grpc_retry.BackoffExponential(retryBackoffFloor)),
		grpc_retry.WithCodes(retryableCodes...),
		grpc_retry.WithMax(retryMaxAttempts),
	}

	conns := make([]*grpc.ClientConn, 0, backend.PoolSize)
	for i := 0; i < backend.PoolSize; i++ {
		conn, err := grpc.NewClient(
			backend.Endpoint,
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithKeepaliveParams(keepalive.ClientParameters{
				Time:                30 * time.Second,
				Timeout:             10 * time.Second,
				PermitWithoutStream: true,
			}),
			grpc.WithChainUnaryInterceptor(grpc_retry.UnaryClientInterceptor(retryOpts...)),
		)
		if err != nil {
			for _, c := range conns {
				_ = c.Close()
			}
			return nil, fmt.Errorf("connection_pool: dial %s channel %d: %w", backend.Name, i, err)
		}
		conns = append(conns, conn)
	}
	level.Info(logger).Log("msg", "connection pool ready", "backend", backend.Name, "pool_size", backend.PoolSize)
	return &connectionPool{conns: conns, logger: logger}, nil
}

// Acquire returns the next channel, round-robin. See interfaces.ConnectionPool.
func (p *connectionPool) Acquire() *grpc.ClientConn {
	n := p.rr.Add(1)
	return p.conns[int(n-1)%len(p.conns)]
}

// HealthCheck probes the first channel via the standard gRPC health service. See
// interfaces.ConnectionPool.
func (p *connectionPool) HealthCheck(ctx context.Context) error {
	client := grpc_health_v1.NewHealthClient(p.conns[0])
	resp, err := client.Check(ctx, &grpc_health_v1.HealthCheckRequest{})
	if err != nil {
		return fmt.Errorf("connection_pool: health check: %w", err)
	}
	if resp.Status != grpc_health_v1.HealthCheckResponse_SERVING {
		return fmt.Errorf("connection_pool: backend reports status %s", resp.Status)
	}
	return nil
}

// Close closes every channel, bounded by a 5s budget per channel. See
// interfaces.ConnectionPool.
func (p *connectionPool) Close() int {
	var wg sync.WaitGroup
	var closed atomic.Int32
	for _, c := range p.conns {
		wg.Add(1)
		go func(c *grpc.ClientConn) {
			defer wg.Done()
			done := make(chan struct{})
			go func() {
				_ = c.Close()
				close(done)
			}()
			select {
			case <-done:
				closed.Add(1)
			case <-time.After(5 * time.Second):
				level.Warn(p.logger).Log("msg", "channel close timed out")
			}
		}(c)
	}
	wg.Wait()
	return int(closed.Load())
}

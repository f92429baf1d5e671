package interfaces

import (
	"context"

	"google.golang.org/grpc"
)

// ConnectionPool manages a fixed set of dialed gRPC channels to one backend and hands
// them out round-robin (component C1).
//
// Constructed in cmd/main as service.NewConnectionPool(backend, logger) and dialed once
// at startup; Close is called from main on shutdown.
type ConnectionPool interface {
	// Acquire returns the next channel in round-robin order. Never returns nil once the
	// pool has been built successfully.
	Acquire() *grpc.ClientConn

	// HealthCheck probes one channel via the standard gRPC health service and reports
	// whether the backend currently answers SERVING.
	HealthCheck(ctx context.Context) error

	// Close tears down every channel in the pool, bounded by an internal timeout, and
	// returns the count of channels closed.
	Close() int
}

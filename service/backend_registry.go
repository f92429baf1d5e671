package service

import (
	"fmt"
	"sync"
	"sync/atomic"

	"apigateway/domain"
	"apigateway/interfaces"
)

// backendEntry bundles one backend's static wiring (connection pool, circuit breaker)
// with its descriptor pool, which is rebuilt and swapped every time discovery
// refreshes that backend successfully — mirroring the routing table's atomic-swap
// idiom (service/routing_table.go) at the per-backend granularity.
type backendEntry struct {
	backend     domain.Backend
	pool        interfaces.ConnectionPool
	breaker     interfaces.CircuitBreaker
	descriptors atomic.Value // holds interfaces.DescriptorPool
}

func (e *backendEntry) DescriptorPool() interfaces.DescriptorPool {
	v := e.descriptors.Load()
	if v == nil {
		return nil
	}
	return v.(interfaces.DescriptorPool)
}

// BackendRegistry is the pipeline's lookup from domain.BackendName to its wired
// dependencies. Built once in cmd/main as backends are dialed; descriptor pools are
// registered lazily as discovery completes for each backend.
type BackendRegistry struct {
	mu      sync.RWMutex
	entries map[domain.BackendName]*backendEntry
}

// NewBackendRegistry returns an empty registry ready for Register calls.
func NewBackendRegistry() *BackendRegistry {
	return &BackendRegistry{entries: make(map[domain.BackendName]*backendEntry)}
}

// Register adds backend's pool and breaker. Called once per configured backend from
// cmd/main, before the HTTP listener starts accepting.
func (r *BackendRegistry) Register(backend domain.Backend, pool interfaces.ConnectionPool, breaker interfaces.CircuitBreaker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[backend.Name] = &backendEntry{backend: backend, pool: pool, breaker: breaker}
}

// SetDescriptorPool installs the descriptor pool most recently built for name by
// discovery. Safe to call concurrently with in-flight dynamic invocations against the
// previous pool — they keep the pool reference they already captured.
func (r *BackendRegistry) SetDescriptorPool(name domain.BackendName, pool interfaces.DescriptorPool) {
	r.mu.RLock()
	entry, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return
	}
	entry.descriptors.Store(pool)
}

// errBackendNotFound is returned when a route names a backend the registry never saw
// at startup — a configuration error surfaced at request time rather than hidden.
var errBackendNotFound = fmt.Errorf("backend_registry: backend not registered")

// Lookup returns backend, pool, breaker and descriptor pool for name.
func (r *BackendRegistry) Lookup(name domain.BackendName) (domain.Backend, interfaces.ConnectionPool, interfaces.CircuitBreaker, interfaces.DescriptorPool, error) {
	r.mu.RLock()
	entry, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return domain.Backend{}, nil, nil, nil, fmt.Errorf("%w: %s", errBackendNotFound, name)
	}
	return entry.backend, entry.pool, entry.breaker, entry.DescriptorPool(), nil
}

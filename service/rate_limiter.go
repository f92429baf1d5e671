package service

import (
	"sync"
	"time"

	"apigateway/interfaces"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/juju/ratelimit"
)

// bucketEntry pairs a token bucket with the time it was last touched, so the
// eviction loop can purge buckets idle past idle_ttl (component C3).
type bucketEntry struct {
	bucket      *ratelimit.Bucket
	lastTouched time.Time
}

// rateLimiter is a per-IP token-bucket limiter capped at a fixed number of tracked
// IPs via an LRU cache (component C3). The LRU's own evict-on-insert-when-full
// behavior is the capacity cap the configuration surface calls for; a separate
// ticker purges buckets that have simply gone idle.
type rateLimiter struct {
	mu                sync.Mutex
	buckets           *lru.Cache[string, *bucketEntry]
	requestsPerWindow int64
	window            time.Duration
	idleTTL           time.Duration
	now               func() time.Time
}

// RateLimitConfig parameterizes NewRateLimiter, mirroring the configuration surface's
// rate_limit.* keys.
type RateLimitConfig struct {
	RequestsPerWindow int
	Window            time.Duration
	Capacity          int
	IdleTTL           time.Duration
}

// NewRateLimiter builds a rateLimiter. Panics if cfg.Capacity <= 0 (fail-fast, an
// unbounded cache would defeat the point of the cap).
//
// Called from cmd/main.
func NewRateLimiter(cfg RateLimitConfig, now func() time.Time) interfaces.RateLimiter {
	if cfg.Capacity <= 0 {
		panic("service.rate_limiter.go: capacity must be positive")
	}
	cache, err := lru.New[string, *bucketEntry](cfg.Capacity)
	if err != nil {
		panic(err)
	}
	return &rateLimiter{
		buckets:           cache,
		requestsPerWindow: int64(cfg.RequestsPerWindow),
		window:            cfg.Window,
		idleTTL:           cfg.IdleTTL,
		now:               now,
	}
}

// Allow consumes one token from ip's bucket, creating it on first sight. See
// interfaces.RateLimiter.
func (r *rateLimiter) Allow(ip string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.buckets.Get(ip)
	if !ok {
		rate := float64(r.requestsPerWindow) / r.window.Seconds()
		entry = &bucketEntry{bucket: ratelimit.NewBucketWithRate(rate, r.requestsPerWindow)}
		r.buckets.Add(ip, entry)
	}
	entry.lastTouched = r.now()
	return entry.bucket.TakeAvailable(1) == 1
}

// Tracked reports the current bucket count. See interfaces.RateLimiter.
func (r *rateLimiter) Tracked() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buckets.Len()
}

// RunEviction purges buckets idle past idleTTL, ticking every tick until done is
// closed. Started once as a background goroutine from cmd/main, mirroring the
// teacher's refresh-goroutine idiom (service.connectionPool's refresh loop).
func (r *rateLimiter) RunEviction(done <-chan struct{}, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			r.evictIdle()
		}
	}
}

func (r *rateLimiter) evictIdle() {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-r.idleTTL)
	for _, ip := range r.buckets.Keys() {
		entry, ok := r.buckets.Peek(ip)
		if !ok {
			continue
		}
		if entry.lastTouched.Before(cutoff) {
			r.buckets.Remove(ip)
		}
	}
}

// noopRateLimiter allows every request, for rate_limit.enabled=false deployments —
// mirrors noopMetrics's "discard everything" idiom.
type noopRateLimiter struct{}

// NewNoopRateLimiter returns a RateLimiter that never throttles.
func NewNoopRateLimiter() interfaces.RateLimiter { return noopRateLimiter{} }

func (noopRateLimiter) Allow(string) bool                              { return true }
func (noopRateLimiter) Tracked() int                                   { return 0 }
func (noopRateLimiter) RunEviction(done <-chan struct{}, tick time.Duration) {
	<-done
}

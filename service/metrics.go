package service

import (
	"time"

	"apigateway/interfaces"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// promMetrics implements interfaces.Metrics over prometheus/client_golang, grounded on
// the logistics gateway's GatewayMetrics (Hola-to-network_logistics_problem/services/
// gateway-svc/internal/metrics/metrics.go): promauto-registered vectors under a fixed
// namespace, one vec per observed dimension.
type promMetrics struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	grpcCallsTotal   *prometheus.CounterVec
	circuitState     *prometheus.GaugeVec
	rateLimiterSize  prometheus.Gauge
}

// NewMetrics registers and returns the gateway's prometheus collectors against the
// default registry. Safe to call once per process; call from cmd/main.
func NewMetrics() interfaces.Metrics {
	return &promMetrics{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gateway",
			Name:      "requests_total",
			Help:      "Total HTTP requests handled by the gateway, by path, method and status.",
		}, []string{"path", "method", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gateway",
			Name:      "request_duration_seconds",
			Help:      "Gateway request duration in seconds, by path and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path", "method"}),

		grpcCallsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gateway",
			Name:      "grpc_calls_total",
			Help:      "Total dynamic gRPC calls dispatched to backends, by service, method and outcome.",
		}, []string{"service", "method", "outcome"}),

		circuitState: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "gateway",
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state per backend (0=closed, 1=half-open, 2=open).",
		}, []string{"backend"}),

		rateLimiterSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "gateway",
			Name:      "rate_limiter_tracked_buckets",
			Help:      "Number of per-IP token buckets currently tracked by the rate limiter.",
		}),
	}
}

func (m *promMetrics) ObserveRequest(path, method, status string, d time.Duration) {
	m.requestsTotal.WithLabelValues(path, method, status).Inc()
	m.requestDuration.WithLabelValues(path, method).Observe(d.Seconds())
}

func (m *promMetrics) ObserveGRPCCall(service, method, outcome string) {
	m.grpcCallsTotal.WithLabelValues(service, method, outcome).Inc()
}

func (m *promMetrics) SetCircuitState(backend string, state interfaces.CircuitState) {
	var v float64
	switch state {
	case interfaces.CircuitClosed:
		v = 0
	case interfaces.CircuitHalfOpen:
		v = 1
	case interfaces.CircuitOpen:
		v = 2
	}
	m.circuitState.WithLabelValues(backend).Set(v)
}

func (m *promMetrics) SetRateLimiterTracked(n int) {
	m.rateLimiterSize.Set(float64(n))
}

// noopMetrics discards every observation — used in tests that construct a pipeline
// without caring about metrics wiring.
type noopMetrics struct{}

// NewNoopMetrics returns a Metrics implementation that records nothing.
func NewNoopMetrics() interfaces.Metrics { return &noopMetrics{} }

func (noopMetrics) ObserveRequest(path, method, status string, d time.Duration)    {}
func (noopMetrics) ObserveGRPCCall(service, method, outcome string)                {}
func (noopMetrics) SetCircuitState(backend string, state interfaces.CircuitState)  {}
func (noopMetrics) SetRateLimiterTracked(n int)                                    {}

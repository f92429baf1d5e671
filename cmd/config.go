package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"apigateway/domain"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix      = "GATEWAY_"
	envConfigPath  = "CONFIG_PATH"
	envMaxBody     = "MAX_REQUEST_BODY_SIZE"
	envMaxUpload   = "MAX_UPLOAD_BODY_SIZE"
	envUploadPaths = "UPLOAD_PATHS"
)

// defaultConfigPaths is the short search list tried when CONFIG_PATH is unset.
var defaultConfigPaths = []string{"config.yaml", "config/config.yaml", "/etc/gateway/config.yaml"}

// Config is the full gateway configuration, per §6's configuration surface. Loaded
// by LoadConfig from defaults, an optional YAML file, and GATEWAY_-prefixed
// environment overrides, in that priority order.
type Config struct {
	Server         ServerConfig             `koanf:"server"`
	Services       map[string]ServiceConfig `koanf:"services"`
	Discovery      DiscoveryConfig          `koanf:"discovery"`
	Auth           AuthConfig               `koanf:"auth"`
	RateLimit      RateLimitConfig          `koanf:"rate_limit"`
	CORS           CORSConfig               `koanf:"cors"`
	RouteOverrides []RouteOverrideConfig    `koanf:"route_overrides"`
	TrustedProxies []string                 `koanf:"trusted_proxies"`

	// Read directly from plain (unprefixed) env vars, per SPEC_FULL.md's A.1 note.
	MaxRequestBodySize int64
	MaxUploadBodySize  int64
	UploadPaths        []string
}

// ServerConfig is §6's server.* group.
type ServerConfig struct {
	Host             string `koanf:"host"`
	Port             int    `koanf:"port"`
	RequestTimeoutMs int    `koanf:"request_timeout_ms"`
}

// ServiceConfig is one services[i] entry, keyed by backend name in Config.Services.
type ServiceConfig struct {
	Endpoint           string               `koanf:"endpoint"`
	TimeoutMs          int                  `koanf:"timeout_ms"`
	ConnectionPoolSize int                  `koanf:"connection_pool_size"`
	AutoDiscover       bool                 `koanf:"auto_discover"`
	CircuitBreaker     CircuitBreakerConfig `koanf:"circuit_breaker"`
}

// CircuitBreakerConfig is services[i].circuit_breaker.*.
type CircuitBreakerConfig struct {
	FailureThreshold int `koanf:"failure_threshold"`
	SuccessThreshold int `koanf:"success_threshold"`
	TimeoutMs        int `koanf:"timeout_ms"`
}

// DiscoveryConfig is discovery.*.
type DiscoveryConfig struct {
	Enabled                 bool `koanf:"enabled"`
	RefreshIntervalSeconds  int  `koanf:"refresh_interval_seconds"`
}

// AuthConfig is auth.*: the auth backend's own location, addressed like any other
// reflectable gRPC service (component C10).
type AuthConfig struct {
	ServiceEndpoint string `koanf:"service_endpoint"`
	TimeoutMs       int    `koanf:"timeout_ms"`
	PoolSize        int    `koanf:"pool_size"`
	CircuitBreaker  CircuitBreakerConfig `koanf:"circuit_breaker"`
}

// RateLimitConfig is rate_limit.*.
type RateLimitConfig struct {
	Enabled             bool `koanf:"enabled"`
	RequestsPerMinute   int  `koanf:"requests_per_minute"`
	WindowSeconds       int  `koanf:"window_seconds"`
	Capacity            int  `koanf:"capacity"`
	IdleTTLSeconds      int  `koanf:"idle_ttl_seconds"`
	EvictionTickSeconds int  `koanf:"eviction_tick_seconds"`
}

// CORSConfig is cors.*.
type CORSConfig struct {
	Enabled        bool     `koanf:"enabled"`
	AllowedOrigins []string `koanf:"allowed_origins"`
	AllowedMethods []string `koanf:"allowed_methods"`
	AllowedHeaders []string `koanf:"allowed_headers"`
}

// RouteOverrideConfig is one route_overrides[] entry (§4.8).
type RouteOverrideConfig struct {
	HTTPMethod  string `koanf:"http_method"`
	PathPattern string `koanf:"path_pattern"`
	Backend     string `koanf:"backend"`
	GRPCMethod  string `koanf:"grpc_method"`
	Mode        string `koanf:"mode"` // "replace" | "add"
}

// LoadConfig builds Config from defaults, an optional YAML file at CONFIG_PATH (or
// the default search list), and GATEWAY_-prefixed environment overrides, then
// validates it. Mirrors the layered-loader idiom (defaults -> file -> env -> validate)
// used across the example pack's config loaders.
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaultValues(), "."), nil); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	if err := loadConfigFile(k); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	// Env names spell dots and underscores alike, so each name is mapped back to the
	// already-loaded key it spells before falling back to one dot per underscore.
	knownKeys := make(map[string]string)
	for _, key := range k.Keys() {
		knownKeys[strings.ReplaceAll(key, ".", "_")] = key
	}
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		name := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		if key, ok := knownKeys[name]; ok {
			return key
		}
		return strings.ReplaceAll(name, "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.MaxRequestBodySize = envInt64(envMaxBody, 4<<20)
	cfg.MaxUploadBodySize = envInt64(envMaxUpload, 32<<20)
	if raw := strings.TrimSpace(os.Getenv(envUploadPaths)); raw != "" {
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				cfg.UploadPaths = append(cfg.UploadPaths, p)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadConfigFile(k *koanf.Koanf) error {
	if path := strings.TrimSpace(os.Getenv(envConfigPath)); path != "" {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("%s set but not readable: %w", envConfigPath, err)
		}
		return k.Load(file.Provider(path), yaml.Parser())
	}
	for _, path := range defaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return k.Load(file.Provider(path), yaml.Parser())
		}
	}
	return fmt.Errorf("no config file found in %v, using defaults + env", defaultConfigPaths)
}

func envInt64(name string, fallback int64) int64 {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return v
}

func defaultValues() map[string]any {
	return map[string]any{
		"server.host":               "0.0.0.0",
		"server.port":               8080,
		"server.request_timeout_ms": 10_000,

		"discovery.enabled":                  true,
		"discovery.refresh_interval_seconds": 30,

		"auth.service_endpoint":                 "",
		"auth.timeout_ms":                       5_000,
		"auth.pool_size":                        2,
		"auth.circuit_breaker.failure_threshold": 5,
		"auth.circuit_breaker.success_threshold": 2,
		"auth.circuit_breaker.timeout_ms":        10_000,

		"rate_limit.enabled":               true,
		"rate_limit.requests_per_minute":   600,
		"rate_limit.window_seconds":        60,
		"rate_limit.capacity":              10_000,
		"rate_limit.idle_ttl_seconds":      600,
		"rate_limit.eviction_tick_seconds": 60,

		"cors.enabled":         false,
		"cors.allowed_origins": []string{},
		"cors.allowed_methods": []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		"cors.allowed_headers": []string{"Authorization", "Content-Type"},
	}
}

// Validate checks the invariants LoadConfig's caller relies on before dialing any
// backend: port range, required auth endpoint, and per-backend Backend.Validate.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	if strings.TrimSpace(c.Auth.ServiceEndpoint) == "" {
		return fmt.Errorf("auth.service_endpoint is required")
	}
	for name, svc := range c.Services {
		backend := backendFromConfig(name, svc)
		if err := backend.Validate(); err != nil {
			return err
		}
	}
	for _, o := range c.RouteOverrides {
		if o.Mode != "replace" && o.Mode != "add" {
			return fmt.Errorf("route_overrides: backend %q: mode must be replace|add, got %q", o.Backend, o.Mode)
		}
	}
	return nil
}

// backendFromConfig translates one ServiceConfig entry into the domain.Backend the
// rest of the gateway operates on.
func backendFromConfig(name string, svc ServiceConfig) domain.Backend {
	return domain.Backend{
		Name:     domain.BackendName(name),
		Endpoint: svc.Endpoint,
		Timeout:  time.Duration(svc.TimeoutMs) * time.Millisecond,
		PoolSize: svc.ConnectionPoolSize,
		CircuitBreaker: domain.CircuitBreakerConfig{
			FailureThreshold: svc.CircuitBreaker.FailureThreshold,
			SuccessThreshold: svc.CircuitBreaker.SuccessThreshold,
			Timeout:          time.Duration(svc.CircuitBreaker.TimeoutMs) * time.Millisecond,
		},
		AutoDiscover: svc.AutoDiscover,
	}
}

// TrustedProxySet returns TrustedProxies as a lookup set for helpers.ClientIP.
func (c *Config) TrustedProxySet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.TrustedProxies))
	for _, p := range c.TrustedProxies {
		set[p] = struct{}{}
	}
	return set
}

// Backends returns every configured backend as domain.Backend, in a stable order
// (sorted by name) so discovery sweeps and logs are deterministic across runs.
func (c *Config) Backends() []domain.Backend {
	names := make([]string, 0, len(c.Services))
	for name := range c.Services {
		names = append(names, name)
	}
	sort.Strings(names)

	backends := make([]domain.Backend, 0, len(names))
	for _, name := range names {
		backends = append(backends, backendFromConfig(name, c.Services[name]))
	}
	return backends
}

// AuthBackend translates auth.* into the domain.Backend the auth backend is dialed
// and discovered as — per §C10, the auth service is addressed like any other
// reflectable gRPC backend, not given a bespoke wiring path.
func (c *Config) AuthBackend() domain.Backend {
	return domain.Backend{
		Name:     "auth",
		Endpoint: c.Auth.ServiceEndpoint,
		Timeout:  time.Duration(c.Auth.TimeoutMs) * time.Millisecond,
		PoolSize: c.Auth.PoolSize,
		CircuitBreaker: domain.CircuitBreakerConfig{
			FailureThreshold: c.Auth.CircuitBreaker.FailureThreshold,
			SuccessThreshold: c.Auth.CircuitBreaker.SuccessThreshold,
			Timeout:          time.Duration(c.Auth.CircuitBreaker.TimeoutMs) * time.Millisecond,
		},
		AutoDiscover: true,
	}
}

// RouteOverridesDomain translates the configured overrides into domain.RouteOverride.
func (c *Config) RouteOverridesDomain() []domain.RouteOverride {
	out := make([]domain.RouteOverride, 0, len(c.RouteOverrides))
	for _, o := range c.RouteOverrides {
		mode := domain.OverrideAdd
		if o.Mode == "replace" {
			mode = domain.OverrideReplace
		}
		out = append(out, domain.RouteOverride{
			Route: domain.Route{
				HTTPMethod:  o.HTTPMethod,
				PathPattern: o.PathPattern,
				Backend:     domain.BackendName(o.Backend),
				GRPCMethod:  o.GRPCMethod,
			},
			Mode: mode,
		})
	}
	return out
}


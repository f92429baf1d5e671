package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"apigateway/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_YAML(t *testing.T) {
	content := `
server:
  host: 0.0.0.0
  port: 9090
  request_timeout_ms: 5000
auth:
  service_endpoint: auth-svc:50051
  timeout_ms: 2000
services:
  user-svc:
    endpoint: user-svc:50052
    timeout_ms: 3000
    connection_pool_size: 4
    auto_discover: true
    circuit_breaker:
      failure_threshold: 5
      success_threshold: 2
      timeout_ms: 10000
route_overrides:
  - http_method: POST
    path_pattern: /api/legacy
    backend: user-svc
    grpc_method: user.UserService/Legacy
    mode: add
trusted_proxies:
  - 10.0.0.1
`
	t.Setenv(envConfigPath, writeConfigFile(t, content))

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "auth-svc:50051", cfg.Auth.ServiceEndpoint)
	require.Contains(t, cfg.Services, "user-svc")
	assert.Equal(t, 4, cfg.Services["user-svc"].ConnectionPoolSize)
	assert.True(t, cfg.Services["user-svc"].AutoDiscover)
	require.Len(t, cfg.RouteOverrides, 1)
	assert.Equal(t, []string{"10.0.0.1"}, cfg.TrustedProxies)

	backends := cfg.Backends()
	require.Len(t, backends, 1)
	assert.Equal(t, domain.BackendName("user-svc"), backends[0].Name)
	assert.Equal(t, 3*time.Second, backends[0].Timeout)

	overrides := cfg.RouteOverridesDomain()
	require.Len(t, overrides, 1)
	assert.Equal(t, domain.OverrideAdd, overrides[0].Mode)
}

func TestLoadConfig_DefaultsApplyWithoutFile(t *testing.T) {
	t.Setenv(envConfigPath, "")
	t.Setenv("GATEWAY_AUTH_SERVICE_ENDPOINT", "auth-svc:50051")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 600, cfg.RateLimit.RequestsPerMinute)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	content := `
server:
  port: 9090
auth:
  service_endpoint: auth-svc:50051
`
	t.Setenv(envConfigPath, writeConfigFile(t, content))
	t.Setenv("GATEWAY_SERVER_PORT", "7000")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
}

func TestLoadConfig_MissingAuthEndpoint(t *testing.T) {
	t.Setenv(envConfigPath, writeConfigFile(t, "server:\n  port: 8080\n"))
	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.service_endpoint")
}

func TestLoadConfig_InvalidPort(t *testing.T) {
	content := `
server:
  port: 70000
auth:
  service_endpoint: auth-svc:50051
`
	t.Setenv(envConfigPath, writeConfigFile(t, content))
	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
}

func TestLoadConfig_BodyLimitEnv(t *testing.T) {
	content := "auth:\n  service_endpoint: auth-svc:50051\n"
	t.Setenv(envConfigPath, writeConfigFile(t, content))
	t.Setenv(envMaxBody, "1048576")
	t.Setenv(envMaxUpload, "10485760")
	t.Setenv(envUploadPaths, "/api/uploads, /api/imports")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, int64(1048576), cfg.MaxRequestBodySize)
	assert.Equal(t, int64(10485760), cfg.MaxUploadBodySize)
	assert.Equal(t, []string{"/api/uploads", "/api/imports"}, cfg.UploadPaths)
}

func TestLoadConfig_InvalidOverrideMode(t *testing.T) {
	content := `
auth:
  service_endpoint: auth-svc:50051
route_overrides:
  - http_method: GET
    path_pattern: /api/x
    backend: user-svc
    grpc_method: user.UserService/X
    mode: bogus
`
	t.Setenv(envConfigPath, writeConfigFile(t, content))
	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mode must be replace|add")
}

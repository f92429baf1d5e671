package adapters

import (
	"github.com/labstack/echo/v4"
	"github.com/rs/cors"
)

// CORSConfig is the gateway's cross-origin policy, read from the configuration surface
// (cors.allowed_origins / allowed_methods / allowed_headers).
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// NewCORSMiddleware wraps rs/cors as Echo middleware, rather than Echo's own CORS
// middleware — rs/cors is the CORS library the example pack already depends on
// (mishaeljj-permify-fork), so the gateway reuses it instead of introducing Echo's
// parallel implementation.
func NewCORSMiddleware(cfg CORSConfig) echo.MiddlewareFunc {
	c := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: cfg.AllowedMethods,
		AllowedHeaders: cfg.AllowedHeaders,
	})
	return echo.WrapMiddleware(c.Handler)
}

package service

import (
	"strings"
	"time"
)

// PipelineConfig holds the per-process parameters §4.11's pipeline reads on every
// request: body limits, trusted proxies and the overall request deadline. Built once
// in cmd/main from the koanf-loaded configuration surface.
type PipelineConfig struct {
	RequestTimeout  time.Duration
	DefaultBodyLimit int64
	UploadBodyLimit  int64
	UploadPaths      []string
	TrustedProxies   map[string]struct{}
}

// BodyLimitFor returns UploadBodyLimit when path matches any prefix in UploadPaths,
// else DefaultBodyLimit — per the Open Question resolution in §9: prefix match, not
// exact-path match.
func (c PipelineConfig) BodyLimitFor(path string) int64 {
	for _, prefix := range c.UploadPaths {
		if strings.HasPrefix(path, prefix) {
			return c.UploadBodyLimit
		}
	}
	return c.DefaultBodyLimit
}

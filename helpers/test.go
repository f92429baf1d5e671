package helpers

import (
	"time"
)

// TestNow returns a fixed time (2026-02-11 12:00:00 UTC) for deterministic tests.
//
// Parameters: none.
//
// Returns: time.Time in UTC.
//
// For tests that need a fixed "current" time; no package in this module calls it yet.
func TestNow() time.Time {
	return time.Date(2026, 2, 11, 12, 0, 0, 0, time.UTC)
}

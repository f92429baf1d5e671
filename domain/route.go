package domain

import "strings"

// ParsePathPattern splits a path pattern like "/api/users/:id" into segments.
//
// Parameters: pattern — a path pattern; empty and "/" both yield zero segments.
//
// Returns: the ordered segment list.
func ParsePathPattern(pattern string) []PathSegment {
	trimmed := strings.Trim(pattern, "/")
	if trimmed == "" {
		return nil
	}
	parts := strings.Split(trimmed, "/")
	segments := make([]PathSegment, len(parts))
	for i, p := range parts {
		if strings.HasPrefix(p, ":") && len(p) > 1 {
			segments[i] = PathSegment{ParamName: p[1:]}
		} else {
			segments[i] = PathSegment{Literal: p}
		}
	}
	return segments
}

// IsStatic reports whether pattern contains no ":param" segments, making it eligible
// for the routing table's O(1) exact-match index (component C9).
func IsStatic(pattern string) bool {
	for _, seg := range ParsePathPattern(pattern) {
		if seg.IsParam() {
			return false
		}
	}
	return true
}

// MatchPath attempts to match requestPath's segments against pattern's segments,
// binding ":name" segments into the returned map.
//
// Parameters: pattern — a route's path pattern; requestPath — the inbound request path.
//
// Returns: (params, true) on a structural match (equal segment count, every literal
// segment equal); (nil, false) otherwise.
func MatchPath(pattern, requestPath string) (map[string]string, bool) {
	patternSegs := ParsePathPattern(pattern)
	reqSegs := ParsePathPattern(requestPath)
	if len(patternSegs) != len(reqSegs) {
		return nil, false
	}
	params := make(map[string]string)
	for i, seg := range patternSegs {
		if seg.IsParam() {
			params[seg.ParamName] = reqSegs[i].Literal
			continue
		}
		if seg.Literal != reqSegs[i].Literal {
			return nil, false
		}
	}
	return params, true
}

// RouteKey is the exact-match key for a fully static (method, path) pair, used by
// the routing table's O(1) index.
func RouteKey(httpMethod, path string) string {
	return httpMethod + " " + path
}

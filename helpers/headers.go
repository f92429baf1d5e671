package helpers

import (
	"net/http"
	"strings"

	"google.golang.org/grpc/metadata"
)

// HeaderAuthorization is the inbound HTTP header carrying "Bearer <token>".
const HeaderAuthorization = "Authorization"

// HeaderForwardedFor is the standard proxy-chain client-IP header.
const HeaderForwardedFor = "X-Forwarded-For"

// HeaderTraceParent is the W3C trace-context header propagated into gRPC metadata untouched.
const HeaderTraceParent = "traceparent"

// HeaderTraceState is the W3C trace-state header, carried alongside traceparent when present.
const HeaderTraceState = "tracestate"

// HeaderTraceID is the response header the pipeline always sets, either echoing the inbound
// trace or one minted locally when the client sent none.
const HeaderTraceID = "X-Trace-Id"

// HeaderRequestID is the common reverse-proxy request-correlation header, propagated
// alongside the W3C/B3 trace headers when the client sends one.
const HeaderRequestID = "x-request-id"

// b3Headers are the multi-header B3 propagation variant's field names (single-header
// "b3" form included), propagated untouched alongside traceparent/tracestate.
var b3Headers = []string{
	"b3",
	"x-b3-traceid",
	"x-b3-spanid",
	"x-b3-parentspanid",
	"x-b3-sampled",
	"x-b3-flags",
}

// ExtractBearerToken returns the raw token from an "Authorization: Bearer <token>" header value.
//
// Parameters: raw — the full header value (e.g. "Bearer abc123"); empty string is valid input.
//
// Returns: (token, true) when the header has the "Bearer " prefix and a non-empty remainder;
// ("", false) otherwise (missing, wrong scheme, or empty token).
//
// Called from service.authService.ExtractToken.
func ExtractBearerToken(raw string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(raw, prefix) {
		return "", false
	}
	token := strings.TrimSpace(raw[len(prefix):])
	if token == "" {
		return "", false
	}
	return token, true
}

// ClientIP resolves the caller's IP for rate limiting: the left-most X-Forwarded-For hop
// that is not itself a trusted proxy, when the immediate peer is a trusted proxy; else the
// raw remote address.
//
// Parameters: remoteAddr — net/http RemoteAddr (host:port); forwardedFor — the X-Forwarded-For
// header value, may be empty; trustedProxies — set of proxy IPs the deployment trusts.
//
// Returns: best-effort client IP string; never errors.
//
// Called from service.pipeline when establishing the rate-limiting key.
func ClientIP(remoteAddr, forwardedFor string, trustedProxies map[string]struct{}) string {
	host := remoteAddr
	if i := strings.LastIndex(remoteAddr, ":"); i >= 0 {
		host = remoteAddr[:i]
	}
	if forwardedFor == "" {
		return host
	}
	if _, trusted := trustedProxies[host]; !trusted {
		return host
	}
	for _, hop := range strings.Split(forwardedFor, ",") {
		hop = strings.TrimSpace(hop)
		if _, trusted := trustedProxies[hop]; hop != "" && !trusted {
			return hop
		}
	}
	return host
}

// CopyTraceHeaders copies the W3C trace-context headers (traceparent, tracestate), the B3
// family (both the single "b3" header and the multi-header x-b3-* variant), and a
// propagated x-request-id from an incoming HTTP request into outgoing gRPC metadata. No
// other header, and never the JSON body, crosses into metadata.
//
// Parameters: h — the inbound http.Header; md — outgoing gRPC metadata to augment (mutated in place).
//
// Called from service.pipeline when building the outgoing gRPC call context.
func CopyTraceHeaders(h http.Header, md metadata.MD) {
	if v := h.Get(HeaderTraceParent); v != "" {
		md.Set(HeaderTraceParent, v)
	}
	if v := h.Get(HeaderTraceState); v != "" {
		md.Set(HeaderTraceState, v)
	}
	for _, name := range b3Headers {
		if v := h.Get(name); v != "" {
			md.Set(name, v)
		}
	}
	if v := h.Get(HeaderRequestID); v != "" {
		md.Set(HeaderRequestID, v)
	}
}

package helpers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/metadata"
)

func TestExtractBearerToken_Present(t *testing.T) {
	tok, ok := ExtractBearerToken("Bearer abc123")
	require.True(t, ok)
	assert.Equal(t, "abc123", tok)
}

func TestExtractBearerToken_WrongScheme(t *testing.T) {
	_, ok := ExtractBearerToken("Basic abc123")
	assert.False(t, ok)
}

func TestExtractBearerToken_Empty(t *testing.T) {
	_, ok := ExtractBearerToken("")
	assert.False(t, ok)
}

func TestExtractBearerToken_EmptyTokenAfterPrefix(t *testing.T) {
	_, ok := ExtractBearerToken("Bearer    ")
	assert.False(t, ok)
}

func TestClientIP_NoForwardedFor(t *testing.T) {
	ip := ClientIP("203.0.113.5:4532", "", nil)
	assert.Equal(t, "203.0.113.5", ip)
}

func TestClientIP_UntrustedPeerIgnoresForwardedFor(t *testing.T) {
	trusted := map[string]struct{}{"10.0.0.1": {}}
	ip := ClientIP("198.51.100.9:1111", "1.2.3.4", trusted)
	assert.Equal(t, "198.51.100.9", ip)
}

func TestClientIP_TrustedPeerUsesLeftmostHop(t *testing.T) {
	trusted := map[string]struct{}{"10.0.0.1": {}}
	ip := ClientIP("10.0.0.1:5555", "1.2.3.4, 10.0.0.1", trusted)
	assert.Equal(t, "1.2.3.4", ip)
}

func TestClientIP_NoTrustedProxiesConfiguredIgnoresHeader(t *testing.T) {
	ip := ClientIP("10.0.0.1:5555", "1.2.3.4", nil)
	assert.Equal(t, "10.0.0.1", ip)
}

func TestCopyTraceHeaders_CopiesBothWhenPresent(t *testing.T) {
	h := http.Header{}
	h.Set(HeaderTraceParent, "00-trace-span-01")
	h.Set(HeaderTraceState, "vendor=value")
	md := metadata.MD{}
	CopyTraceHeaders(h, md)
	require.Equal(t, []string{"00-trace-span-01"}, md.Get(HeaderTraceParent))
	require.Equal(t, []string{"vendor=value"}, md.Get(HeaderTraceState))
}

func TestCopyTraceHeaders_CopiesB3AndRequestID(t *testing.T) {
	h := http.Header{}
	h.Set("b3", "80f198ee56343ba864fe8b2a57d3eff7-e457b5a2e4d86bd1-1")
	h.Set("x-b3-traceid", "80f198ee56343ba864fe8b2a57d3eff7")
	h.Set("x-b3-spanid", "e457b5a2e4d86bd1")
	h.Set("x-b3-parentspanid", "05e3ac9a4f6e3b90")
	h.Set("x-b3-sampled", "1")
	h.Set("x-b3-flags", "1")
	h.Set(HeaderRequestID, "req-123")
	md := metadata.MD{}
	CopyTraceHeaders(h, md)
	require.Equal(t, []string{"80f198ee56343ba864fe8b2a57d3eff7-e457b5a2e4d86bd1-1"}, md.Get("b3"))
	require.Equal(t, []string{"80f198ee56343ba864fe8b2a57d3eff7"}, md.Get("x-b3-traceid"))
	require.Equal(t, []string{"e457b5a2e4d86bd1"}, md.Get("x-b3-spanid"))
	require.Equal(t, []string{"05e3ac9a4f6e3b90"}, md.Get("x-b3-parentspanid"))
	require.Equal(t, []string{"1"}, md.Get("x-b3-sampled"))
	require.Equal(t, []string{"1"}, md.Get("x-b3-flags"))
	require.Equal(t, []string{"req-123"}, md.Get(HeaderRequestID))
}

func TestCopyTraceHeaders_NoneSetWhenAbsent(t *testing.T) {
	h := http.Header{}
	md := metadata.MD{}
	CopyTraceHeaders(h, md)
	assert.Empty(t, md)
}

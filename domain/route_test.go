package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePathPattern(t *testing.T) {
	segs := ParsePathPattern("/api/users/:id")
	require.Len(t, segs, 3)
	assert.Equal(t, "api", segs[0].Literal)
	assert.Equal(t, "users", segs[1].Literal)
	assert.True(t, segs[2].IsParam())
	assert.Equal(t, "id", segs[2].ParamName)
}

func TestParsePathPattern_Root(t *testing.T) {
	assert.Nil(t, ParsePathPattern("/"))
	assert.Nil(t, ParsePathPattern(""))
}

func TestIsStatic(t *testing.T) {
	assert.True(t, IsStatic("/api/users"))
	assert.False(t, IsStatic("/api/users/:id"))
}

func TestMatchPath_Static(t *testing.T) {
	params, ok := MatchPath("/api/users", "/api/users")
	require.True(t, ok)
	assert.Empty(t, params)
}

func TestMatchPath_WithParam(t *testing.T) {
	params, ok := MatchPath("/api/users/:id", "/api/users/42")
	require.True(t, ok)
	assert.Equal(t, "42", params["id"])
}

func TestMatchPath_SegmentCountMismatch(t *testing.T) {
	_, ok := MatchPath("/api/users/:id", "/api/users/42/groups")
	assert.False(t, ok)
}

func TestMatchPath_LiteralMismatch(t *testing.T) {
	_, ok := MatchPath("/api/users/:id", "/api/orders/42")
	assert.False(t, ok)
}

func TestMatchPath_NestedParams(t *testing.T) {
	params, ok := MatchPath("/api/groups/:id/members/:member_id", "/api/groups/7/members/9")
	require.True(t, ok)
	assert.Equal(t, "7", params["id"])
	assert.Equal(t, "9", params["member_id"])
}

func TestRouteKey(t *testing.T) {
	assert.Equal(t, "GET /api/users", RouteKey("GET", "/api/users"))
}

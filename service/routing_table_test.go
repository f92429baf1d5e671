package service

import (
	"testing"

	"apigateway/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoutingTable_MatchesStaticExact(t *testing.T) {
	rt := NewRoutingTable()
	rt.Update([]domain.Route{
		{HTTPMethod: "GET", PathPattern: "/api/users", Backend: "user-svc", GRPCMethod: "user.UserService/ListUsers"},
	})
	decision, ok := rt.Match("GET", "/api/users")
	require.True(t, ok)
	assert.Equal(t, domain.BackendName("user-svc"), decision.Route.Backend)
}

func TestRoutingTable_MatchesParameterized(t *testing.T) {
	rt := NewRoutingTable()
	rt.Update([]domain.Route{
		{HTTPMethod: "GET", PathPattern: "/api/users/:id", Backend: "user-svc", GRPCMethod: "user.UserService/GetUser"},
	})
	decision, ok := rt.Match("GET", "/api/users/42")
	require.True(t, ok)
	assert.Equal(t, "42", decision.PathParams["id"])
}

func TestRoutingTable_NoMatch(t *testing.T) {
	rt := NewRoutingTable()
	_, ok := rt.Match("GET", "/api/nothing")
	assert.False(t, ok)
}

func TestRoutingTable_UpdateReplacesAtomically(t *testing.T) {
	rt := NewRoutingTable()
	rt.Update([]domain.Route{{HTTPMethod: "GET", PathPattern: "/api/a", Backend: "svc-a"}})
	rt.Update([]domain.Route{{HTTPMethod: "GET", PathPattern: "/api/b", Backend: "svc-b"}})

	_, ok := rt.Match("GET", "/api/a")
	assert.False(t, ok)
	decision, ok := rt.Match("GET", "/api/b")
	require.True(t, ok)
	assert.Equal(t, domain.BackendName("svc-b"), decision.Route.Backend)
}

func TestRoutingTable_Routes_Snapshot(t *testing.T) {
	rt := NewRoutingTable()
	rt.Update([]domain.Route{{HTTPMethod: "GET", PathPattern: "/api/a", Backend: "svc-a"}})
	routes := rt.Routes()
	require.Len(t, routes, 1)
	assert.Equal(t, "/api/a", routes[0].PathPattern)
}

func TestRoutingTable_ExactTakesPriorityOverPattern(t *testing.T) {
	rt := NewRoutingTable()
	rt.Update([]domain.Route{
		{HTTPMethod: "GET", PathPattern: "/api/users/:id", Backend: "generic-svc"},
		{HTTPMethod: "GET", PathPattern: "/api/users/me", Backend: "me-svc"},
	})
	decision, ok := rt.Match("GET", "/api/users/me")
	require.True(t, ok)
	assert.Equal(t, domain.BackendName("me-svc"), decision.Route.Backend)
}

package service

import (
	"sync/atomic"

	"apigateway/domain"
	"apigateway/interfaces"
)

// tableData is the routing table's immutable snapshot: an exact-match index for
// fully static routes plus a slice of parameterized ones scanned in order. Update
// builds a new tableData and swaps the pointer, so readers never see a partial
// update (component C9).
type tableData struct {
	exact    map[string]domain.Route
	patterns []domain.Route
	all      []domain.Route
}

// routingTable implements interfaces.RoutingTable over an atomically-swapped tableData.
type routingTable struct {
	data atomic.Pointer[tableData]
}

// NewRoutingTable builds an empty routingTable. Called once from cmd/main; Update is
// called after the first discovery pass and on every refresh thereafter.
func NewRoutingTable() interfaces.RoutingTable {
	rt := &routingTable{}
	rt.data.Store(&tableData{exact: map[string]domain.Route{}})
	return rt
}

// Match looks up the exact index first, then scans parameterized patterns. See
// interfaces.RoutingTable.
func (rt *routingTable) Match(httpMethod, path string) (domain.RoutingDecision, bool) {
	data := rt.data.Load()
	if route, ok := data.exact[domain.RouteKey(httpMethod, path)]; ok {
		return domain.RoutingDecision{Route: route, PathParams: map[string]string{}}, true
	}
	for _, route := range data.patterns {
		if route.HTTPMethod != httpMethod {
			continue
		}
		if params, ok := domain.MatchPath(route.PathPattern, path); ok {
			return domain.RoutingDecision{Route: route, PathParams: params}, true
		}
	}
	return domain.RoutingDecision{}, false
}

// Update atomically replaces the table contents. See interfaces.RoutingTable.
func (rt *routingTable) Update(routes []domain.Route) {
	next := &tableData{
		exact: make(map[string]domain.Route),
		all:   append([]domain.Route(nil), routes...),
	}
	for _, r := range routes {
		if domain.IsStatic(r.PathPattern) {
			next.exact[domain.RouteKey(r.HTTPMethod, r.PathPattern)] = r
		} else {
			next.patterns = append(next.patterns, r)
		}
	}
	rt.data.Store(next)
}

// Routes returns a snapshot of every installed route. See interfaces.RoutingTable.
func (rt *routingTable) Routes() []domain.Route {
	return append([]domain.Route(nil), rt.data.Load().all...)
}

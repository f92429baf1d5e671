package interfaces

import "apigateway/domain"

// RoutingTable is the gateway's read-mostly index from (method, path) to Route
// (component C9). Reads never block writers and never see a partially updated table:
// Update swaps the whole table atomically.
type RoutingTable interface {
	// Match looks up routes first by exact (method, path) index, then by scanning
	// parameterized patterns. Returns the matched route with bound path params, or
	// (zero, false) when nothing matches.
	Match(httpMethod, path string) (domain.RoutingDecision, bool)

	// Update atomically replaces the table contents with routes.
	Update(routes []domain.Route)

	// Routes returns a snapshot of every route currently installed, for the admin endpoint.
	Routes() []domain.Route
}

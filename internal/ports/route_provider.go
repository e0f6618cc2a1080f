package ports

import (
	"context"
	"distance-request-service/internal/domain"
)

// Contract for computing a route through an ordered list of coordinates.
type RouteProvider interface {
	// Return the route visiting every coordinate in order.
	GetRoute(ctx context.Context, coords []domain.Coordinates) (domain.Route, error)
}

// Contract for resolving a free-form address to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (domain.Coordinates, error)
}

// Contract for starting a route computation for a transaction.
// The call records its own outcome on the transaction.
type RouteService interface {
	GetRoute(ctx context.Context, transactionID string, waypoints domain.WaypointSet) error
}

package domain

// Route is the result of a route computation across the valid waypoints of a transaction.
// Geometry holds the polyline as [lon, lat] pairs, in travel order.
type Route struct {
	DistanceMeters  int         `json:"distance"`
	DurationSeconds int         `json:"duration"`
	Geometry        [][]float64 `json:"geometry,omitempty"`
}

// HasGeometry reports whether the route carries drawable coordinates.
func (r *Route) HasGeometry() bool {
	return r != nil && len(r.Geometry) > 0
}

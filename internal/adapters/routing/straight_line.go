package routing

import (
	"context"
	"errors"
	"math"

	"distance-request-service/internal/domain"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// Mean earth radius in meters (IUGG).
const earthRadiusMeters = 6371008.8

// StraightLineProvider routes along great circles between consecutive stops.
// It needs no network access and backs local runs without an ORS key.
type StraightLineProvider struct {
	// SpeedMetersPerSecond converts distance to duration; zero means 50 km/h.
	SpeedMetersPerSecond float64
}

func earthDistance(a s1.Angle) float64 { return a.Radians() * earthRadiusMeters }

func (p StraightLineProvider) GetRoute(_ context.Context, coords []domain.Coordinates) (domain.Route, error) {
	if len(coords) < 2 {
		return domain.Route{}, errors.New("straight line route: at least two coordinates are required")
	}

	speed := p.SpeedMetersPerSecond
	if speed <= 0 {
		speed = 50_000.0 / 3600
	}

	var meters float64
	geometry := make([][]float64, 0, len(coords))
	prev := s2.LatLngFromDegrees(coords[0].Lat, coords[0].Lon)
	if !prev.IsValid() {
		return domain.Route{}, errors.New("straight line route: coordinate out of range")
	}
	geometry = append(geometry, coords[0].CoordsToList())

	for _, c := range coords[1:] {
		ll := s2.LatLngFromDegrees(c.Lat, c.Lon)
		if !ll.IsValid() {
			return domain.Route{}, errors.New("straight line route: coordinate out of range")
		}
		meters += earthDistance(prev.Distance(ll))
		geometry = append(geometry, c.CoordsToList())
		prev = ll
	}

	return domain.Route{
		DistanceMeters:  int(math.Round(meters)),
		DurationSeconds: int(math.Round(meters / speed)),
		Geometry:        geometry,
	}, nil
}

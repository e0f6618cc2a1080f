package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"distance-request-service/internal/domain"
	"distance-request-service/internal/platform/db"
	"distance-request-service/internal/platform/obs"
)

// SQLRouteCache stores computed routes keyed by the ordered coordinate list
// they were computed for.
type SQLRouteCache struct {
	DB      *sql.DB
	Dialect db.Dialect
}

func NewSQLRouteCache(conn *sql.DB, dialect db.Dialect) *SQLRouteCache {
	return &SQLRouteCache{DB: conn, Dialect: dialect}
}

// RouteKey renders coords as "lon,lat;lon,lat;..." with six decimals (~10cm),
// so equal stops hit the same entry regardless of float noise.
func RouteKey(coords []domain.Coordinates) string {
	parts := make([]string, 0, len(coords))
	for _, c := range coords {
		parts = append(parts,
			strconv.FormatFloat(c.Lon, 'f', 6, 64)+","+strconv.FormatFloat(c.Lat, 'f', 6, 64))
	}
	return strings.Join(parts, ";")
}

// Get returns the cached route for coords; ok is false on a miss.
func (s *SQLRouteCache) Get(ctx context.Context, coords []domain.Coordinates) (_ domain.Route, ok bool, err error) {
	defer obs.Time(ctx, "route.cache.Get")(&err)

	if s.DB == nil {
		return domain.Route{}, false, errors.New("route cache: db is nil")
	}

	q := `
	SELECT distance_meters, duration_seconds, geometry
	FROM route_cache
	WHERE coords_key = ?;
	`

	var (
		route    domain.Route
		geometry string
	)
	err = s.DB.QueryRowContext(ctx, s.Dialect.Rebind(q), RouteKey(coords)).
		Scan(&route.DistanceMeters, &route.DurationSeconds, &geometry)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Route{}, false, nil
	}
	if err != nil {
		return domain.Route{}, false, fmt.Errorf("get route cache: query route_cache table: %w", err)
	}

	if err := json.Unmarshal([]byte(geometry), &route.Geometry); err != nil {
		return domain.Route{}, false, fmt.Errorf("get route cache: decode geometry: %w", err)
	}
	return route, true, nil
}

// Put stores route as the result for coords, replacing any earlier entry.
func (s *SQLRouteCache) Put(ctx context.Context, coords []domain.Coordinates, route domain.Route) error {
	if s.DB == nil {
		return errors.New("route cache: db is nil")
	}
	if len(coords) < 2 {
		return errors.New("insert route cache: at least two coordinates are required")
	}

	geometry, err := json.Marshal(route.Geometry)
	if err != nil {
		return fmt.Errorf("insert route cache: encode geometry: %w", err)
	}

	q := `
	INSERT INTO route_cache (coords_key, distance_meters, duration_seconds, geometry)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (coords_key) DO UPDATE
	SET distance_meters = EXCLUDED.distance_meters,
		duration_seconds = EXCLUDED.duration_seconds,
		geometry = EXCLUDED.geometry;
	`
	_, err = s.DB.ExecContext(ctx, s.Dialect.Rebind(q),
		RouteKey(coords), route.DistanceMeters, route.DurationSeconds, string(geometry))
	if err != nil {
		return fmt.Errorf("insert route cache: %w", err)
	}

	return nil
}

package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"distance-request-service/internal/domain"
	"distance-request-service/internal/platform/db"
	"distance-request-service/internal/platform/obs"
)

// SQLGeocodeCache maps address strings to geographic coordinates.
// Address keys are expected to be normalized by the caller.
type SQLGeocodeCache struct {
	DB      *sql.DB
	Dialect db.Dialect
}

func NewSQLGeocodeCache(conn *sql.DB, dialect db.Dialect) *SQLGeocodeCache {
	return &SQLGeocodeCache{DB: conn, Dialect: dialect}
}

// group renders n copies of a placeholder tuple, e.g. "(?, ?), (?, ?)".
func group(n int, tuple string) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = tuple
	}
	return strings.Join(parts, ", ")
}

// GetMany returns the cached coordinates of addresses. Misses are simply absent.
func (s *SQLGeocodeCache) GetMany(ctx context.Context, addresses []string) (_ map[string]domain.Coordinates, err error) {
	defer obs.Time(ctx, "geocode.cache.GetMany")(&err)

	if s.DB == nil {
		return nil, errors.New("geocode cache: db is nil")
	}

	keys := make([]any, 0, len(addresses))
	for _, a := range addresses {
		a = strings.TrimSpace(a)
		if a != "" && !slices.Contains(keys, any(a)) {
			keys = append(keys, a)
		}
	}
	out := make(map[string]domain.Coordinates, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	q := "SELECT address, lon, lat FROM geocode_cache WHERE address IN (" + group(len(keys), "?") + ")"
	rows, err := s.DB.QueryContext(ctx, s.Dialect.Rebind(q), keys...)
	if err != nil {
		return nil, fmt.Errorf("geocode cache lookup: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			addr string
			c    domain.Coordinates
		)
		if err := rows.Scan(&addr, &c.Lon, &c.Lat); err != nil {
			return nil, fmt.Errorf("geocode cache lookup: scan: %w", err)
		}
		out[addr] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("geocode cache lookup: %w", err)
	}
	return out, nil
}

// PutMany upserts every mapping in a single statement.
func (s *SQLGeocodeCache) PutMany(ctx context.Context, results map[string]domain.Coordinates) (err error) {
	defer obs.Time(ctx, "geocode.cache.PutMany")(&err)

	if s.DB == nil {
		return errors.New("geocode cache: db is nil")
	}
	if len(results) == 0 {
		return nil
	}

	addrs := make([]string, 0, len(results))
	for addr := range results {
		if strings.TrimSpace(addr) == "" {
			return errors.New("geocode cache store: empty address key")
		}
		addrs = append(addrs, addr)
	}
	slices.Sort(addrs)

	args := make([]any, 0, 3*len(addrs))
	for _, addr := range addrs {
		c := results[addr]
		args = append(args, addr, c.Lon, c.Lat)
	}

	q := "INSERT INTO geocode_cache (address, lon, lat) VALUES " + group(len(addrs), "(?, ?, ?)") +
		" ON CONFLICT (address) DO UPDATE SET lon = EXCLUDED.lon, lat = EXCLUDED.lat"
	if _, err := s.DB.ExecContext(ctx, s.Dialect.Rebind(q), args...); err != nil {
		return fmt.Errorf("geocode cache store %d addresses: %w", len(addrs), err)
	}
	return nil
}

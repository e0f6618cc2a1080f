package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"distance-request-service/internal/domain"
	"distance-request-service/internal/platform/obs"

	"github.com/rs/zerolog/log"
)

// GeocodeCache is the persistent address cache consulted before geocoding.
type GeocodeCache interface {
	GetMany(ctx context.Context, addresses []string) (map[string]domain.Coordinates, error)
	PutMany(ctx context.Context, results map[string]domain.Coordinates) error
}

type geocodeResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// ORSGeocoder resolves addresses with the OpenRouteService search endpoint.
type ORSGeocoder struct {
	client  *orsClient
	cache   GeocodeCache
	country string
}

// NewORSGeocoder builds a geocoder. country, when set, restricts results to an
// ISO 3166 country; cache may be nil.
func NewORSGeocoder(apiKey, country string, cache GeocodeCache, opts ...Option) (*ORSGeocoder, error) {
	client, err := newORSClient(apiKey, opts...)
	if err != nil {
		return nil, err
	}
	return &ORSGeocoder{client: client, cache: cache, country: country}, nil
}

func (g *ORSGeocoder) Geocode(ctx context.Context, address string) (_ domain.Coordinates, err error) {
	defer obs.Time(ctx, "ors.Geocode")(&err)

	norm := normalize(address)
	if norm == "" {
		return domain.Coordinates{}, errors.New("geocode: address must be non-empty")
	}

	if g.cache != nil {
		hits, err := g.cache.GetMany(ctx, []string{norm})
		if err != nil {
			log.Warn().Err(err).Msg("geocode cache read failed")
		} else if c, ok := hits[norm]; ok {
			return c, nil
		}
	}

	endpoint := g.client.baseURL + "/geocode/search"
	resp, err := g.client.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := g.client.newRequest(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		q := req.URL.Query()
		q.Set("text", norm)
		q.Set("size", "1")
		if g.country != "" {
			q.Set("boundary.country", g.country)
		}
		req.URL.RawQuery = q.Encode()
		return req, nil
	})
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("geocode %q: %w", norm, err)
	}
	defer resp.Body.Close()

	var decoded geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.Coordinates{}, fmt.Errorf("geocode %q: decode response: %w", norm, err)
	}

	if len(decoded.Features) == 0 {
		return domain.Coordinates{}, fmt.Errorf("geocode %q: %w", norm, domain.ErrAddressNotFound)
	}

	coords := decoded.Features[0].Geometry.Coordinates
	if len(coords) != 2 {
		return domain.Coordinates{}, fmt.Errorf("geocode %q: invalid coordinate format", norm)
	}

	out := domain.Coordinates{Lon: coords[0], Lat: coords[1]}
	if g.cache != nil {
		if err := g.cache.PutMany(ctx, map[string]domain.Coordinates{norm: out}); err != nil {
			log.Warn().Err(err).Msg("geocode cache write failed")
		}
	}

	return out, nil
}

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

// RouteCache is the persistent cache consulted before calling the directions API.
type RouteCache interface {
	Get(ctx context.Context, coords []domain.Coordinates) (domain.Route, bool, error)
	Put(ctx context.Context, coords []domain.Coordinates, route domain.Route) error
}

type directionsRequest struct {
	Coordinates [][]float64 `json:"coordinates"`
}

type directionsResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			Summary struct {
				Distance float64 `json:"distance"`
				Duration float64 `json:"duration"`
			} `json:"summary"`
		} `json:"properties"`
	} `json:"features"`
}

// ORSRouteProvider implements RouteProvider with the OpenRouteService directions API.
//
// Results are cached by their ordered coordinate list. The provider is safe for
// concurrent use.
type ORSRouteProvider struct {
	client  *orsClient
	profile string
	cache   RouteCache
}

// NewORSRouteProvider builds a provider for the driving-car profile. cache may be nil.
func NewORSRouteProvider(apiKey string, cache RouteCache, opts ...Option) (*ORSRouteProvider, error) {
	client, err := newORSClient(apiKey, opts...)
	if err != nil {
		return nil, err
	}
	return &ORSRouteProvider{client: client, profile: "driving-car", cache: cache}, nil
}

func (o *ORSRouteProvider) GetRoute(ctx context.Context, coords []domain.Coordinates) (_ domain.Route, err error) {
	defer obs.Time(ctx, "ors.GetRoute")(&err)

	if len(coords) < 2 {
		return domain.Route{}, errors.New("get ORS route: at least two coordinates are required")
	}

	if o.cache != nil {
		route, ok, err := o.cache.Get(ctx, coords)
		if err != nil {
			log.Warn().Err(err).Msg("route cache read failed")
		} else if ok {
			return route, nil
		}
	}

	route, err := o.fetchDirections(ctx, coords)
	if err != nil {
		return domain.Route{}, fmt.Errorf("get ORS route: %w", err)
	}

	if o.cache != nil {
		if err := o.cache.Put(ctx, coords, route); err != nil {
			log.Warn().Err(err).Msg("route cache write failed")
		}
	}

	return route, nil
}

func (o *ORSRouteProvider) fetchDirections(ctx context.Context, coords []domain.Coordinates) (domain.Route, error) {
	endpoint := fmt.Sprintf("%s/v2/directions/%s/geojson", o.client.baseURL, o.profile)

	body := directionsRequest{Coordinates: make([][]float64, 0, len(coords))}
	for _, c := range coords {
		body.Coordinates = append(body.Coordinates, c.CoordsToList())
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return domain.Route{}, fmt.Errorf("encode directions request: %w", err)
	}

	resp, err := o.client.doWithRetry(ctx, func() (*http.Request, error) {
		return o.client.newRequest(ctx, http.MethodPost, endpoint, payload)
	})
	if err != nil {
		return domain.Route{}, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	var decoded directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.Route{}, fmt.Errorf("decode directions response: %w", err)
	}

	if len(decoded.Features) == 0 {
		return domain.Route{}, errors.New("directions response has no route")
	}

	f := decoded.Features[0]
	if len(f.Geometry.Coordinates) < 2 {
		return domain.Route{}, errors.New("directions response has no geometry")
	}

	return domain.Route{
		DistanceMeters:  int(f.Properties.Summary.Distance + 0.5),
		DurationSeconds: int(f.Properties.Summary.Duration + 0.5),
		Geometry:        f.Geometry.Coordinates,
	}, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"distance-request-service/internal/domain"
	"distance-request-service/internal/i18n"
	"distance-request-service/internal/platform/obs"
	"distance-request-service/internal/ports"
)

// RouteFetcher computes the route of a transaction and records the outcome on it:
// the route and its priced amount on success, a route field error on failure.
type RouteFetcher struct {
	Store          ports.TransactionStore
	Provider       ports.RouteProvider
	Translator     ports.Translator
	Rate           domain.MileageRate
	CurrencySymbol string
	Now            func() time.Time
}

func (f *RouteFetcher) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

func (f *RouteFetcher) GetRoute(ctx context.Context, transactionID string, waypoints domain.WaypointSet) (err error) {
	defer obs.Time(ctx, "route.GetRoute")(&err)

	if len(waypoints) < 2 {
		return errors.New("get route: at least two waypoints are required")
	}

	if err := f.Store.SetRouteLoading(ctx, transactionID); err != nil {
		return fmt.Errorf("get route: mark loading: %w", err)
	}

	route, perr := f.Provider.GetRoute(ctx, waypoints.Coordinates())
	if perr != nil {
		obs.RouteFetches.WithLabelValues("error").Inc()
		msg := f.Translator.Translate(i18n.KeyGenericDistanceError)
		if err := f.Store.SetRouteError(ctx, transactionID, f.now(), msg); err != nil {
			return fmt.Errorf("get route: record failure %v: %w", perr, err)
		}
		return fmt.Errorf("get route for %q: %w", transactionID, perr)
	}

	obs.RouteFetches.WithLabelValues("ok").Inc()
	price := f.Rate.Price(route.DistanceMeters, f.CurrencySymbol)
	if err := f.Store.SetRoute(ctx, transactionID, waypoints, route, price); err != nil {
		return fmt.Errorf("get route: store route: %w", err)
	}

	return nil
}

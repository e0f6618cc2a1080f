package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"distance-request-service/internal/adapters/store"
	"distance-request-service/internal/domain"

	"github.com/shopspring/decimal"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

// fakeProvider returns a fixed route, or err when set.
type fakeProvider struct {
	mu     sync.Mutex
	meters int
	err    error
	calls  atomic.Int32
	coords [][]domain.Coordinates
}

func (p *fakeProvider) GetRoute(_ context.Context, coords []domain.Coordinates) (domain.Route, error) {
	p.calls.Add(1)
	p.mu.Lock()
	defer p.mu.Unlock()

	p.coords = append(p.coords, coords)
	if p.err != nil {
		return domain.Route{}, p.err
	}
	geometry := make([][]float64, 0, len(coords))
	for _, c := range coords {
		geometry = append(geometry, c.CoordsToList())
	}
	return domain.Route{DistanceMeters: p.meters, DurationSeconds: p.meters / 10, Geometry: geometry}, nil
}

func (p *fakeProvider) fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

type keyTranslator struct{}

func (keyTranslator) Translate(key string) string { return key }

func newFetcher(mem *store.Memory, provider *fakeProvider) *RouteFetcher {
	return &RouteFetcher{
		Store:          mem,
		Provider:       provider,
		Translator:     keyTranslator{},
		Rate:           domain.MileageRate{Rate: decimal.RequireFromString("0.655"), Unit: domain.UnitMiles, Currency: "USD"},
		CurrencySymbol: "$",
		Now:            func() time.Time { return testNow },
	}
}

func TestRouteFetcherPricesRoute(t *testing.T) {
	ctx := context.Background()
	mem, _ := seededMemory(t, domain.WaypointSet{stopA, stopB})
	provider := &fakeProvider{meters: 16093}

	if err := newFetcher(mem, provider).GetRoute(ctx, "t1", domain.WaypointSet{stopA, stopB}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := mem.Get(ctx, "t1")
	if !got.HasRoute() {
		t.Fatal("expected a route")
	}
	if got.IsLoadingRoute() {
		t.Fatal("expected loading to be cleared")
	}
	if got.Amount.StringFixed(2) != "6.55" {
		t.Fatalf("expected amount 6.55, got %s", got.Amount.StringFixed(2))
	}
	if got.Merchant != "10.00 mi @ $0.655 / mi" {
		t.Fatalf("unexpected merchant %q", got.Merchant)
	}
	if len(provider.coords) != 1 || provider.coords[0][0] != stopA.Coordinates() {
		t.Fatalf("unexpected provider input %v", provider.coords)
	}
}

func TestRouteFetcherRecordsFailure(t *testing.T) {
	ctx := context.Background()
	mem, _ := seededMemory(t, domain.WaypointSet{stopA, stopB})
	provider := &fakeProvider{}
	boom := errors.New("upstream unavailable")
	provider.fail(boom)

	err := newFetcher(mem, provider).GetRoute(ctx, "t1", domain.WaypointSet{stopA, stopB})
	if !errors.Is(err, boom) {
		t.Fatalf("expected the provider error, got %v", err)
	}

	got, _ := mem.Get(ctx, "t1")
	if got.IsLoadingRoute() || got.HasRoute() {
		t.Fatal("expected neither a route nor a loading flag")
	}
	latest := got.ErrorFields.Latest(domain.ErrorFieldRoute)
	if latest[testNow.UnixMicro()] != "iou.error.genericDistanceError" {
		t.Fatalf("unexpected route error %v", latest)
	}
}

func TestRouteFetcherNeedsTwoWaypoints(t *testing.T) {
	mem, _ := seededMemory(t, domain.WaypointSet{stopA})
	provider := &fakeProvider{}

	err := newFetcher(mem, provider).GetRoute(context.Background(), "t1", domain.WaypointSet{stopA})
	if err == nil {
		t.Fatal("expected an error")
	}
	if provider.calls.Load() != 0 {
		t.Fatal("expected the provider not to be called")
	}
}

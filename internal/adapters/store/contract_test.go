package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"distance-request-service/internal/domain"
	"distance-request-service/internal/ports"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reactiveStore interface {
	ports.TransactionStore
	ports.BackupStore
	ports.WalletDetailsStore
}

type fakePersister struct {
	mu    sync.Mutex
	saved map[string]*domain.Transaction
	saves int
}

func newFakePersister() *fakePersister {
	return &fakePersister{saved: map[string]*domain.Transaction{}}
}

func (p *fakePersister) SaveTransaction(_ context.Context, tx *domain.Transaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saved[tx.TransactionID] = tx.Clone()
	p.saves++
	return nil
}

func (p *fakePersister) LoadTransaction(_ context.Context, id string) (*domain.Transaction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	tx, ok := p.saved[id]
	if !ok {
		return nil, fmt.Errorf("load %q: %w", id, domain.ErrTransactionNotFound)
	}
	return tx.Clone(), nil
}

func (p *fakePersister) saveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saves
}

func newRedisStore(t *testing.T, opts ...Option) *Redis {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client, opts...)
}

var storeFactories = map[string]func(t *testing.T, p ports.TransactionPersister) reactiveStore{
	"memory": func(t *testing.T, p ports.TransactionPersister) reactiveStore {
		return NewMemory(p)
	},
	"redis": func(t *testing.T, p ports.TransactionPersister) reactiveStore {
		if p == nil {
			return newRedisStore(t)
		}
		return newRedisStore(t, WithPersister(p))
	},
}

func place(addr string, lat, lng float64) domain.Waypoint {
	return domain.Waypoint{Address: addr, Lat: lat, Lng: lng, KeyForList: "k-" + addr}
}

var (
	wpA = place("A St", 1, 1)
	wpB = place("B St", 2, 2)
	wpC = place("C St", 3, 3)
)

func seed(t *testing.T, s reactiveStore, id string, waypoints domain.WaypointSet) {
	t.Helper()
	tx := &domain.Transaction{
		TransactionID: id,
		Comment:       domain.Comment{Waypoints: waypoints},
		Created:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.Put(context.Background(), tx, true))
}

func next(t *testing.T, ch <-chan *domain.Transaction) *domain.Transaction {
	t.Helper()
	select {
	case tx := <-ch:
		return tx
	case <-time.After(2 * time.Second):
		t.Fatal("no change notification received")
		return nil
	}
}

func TestStoreContract(t *testing.T) {
	for name, newStore := range storeFactories {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			t.Run("get missing", func(t *testing.T) {
				s := newStore(t, nil)
				_, err := s.Get(ctx, "nope")
				assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
			})

			t.Run("put and get", func(t *testing.T) {
				s := newStore(t, nil)
				seed(t, s, "t1", domain.WaypointSet{wpA, wpB})

				got, err := s.Get(ctx, "t1")
				require.NoError(t, err)
				assert.Equal(t, domain.WaypointSet{wpA, wpB}, got.Waypoints())
			})

			t.Run("initial waypoints", func(t *testing.T) {
				s := newStore(t, nil)
				seed(t, s, "t1", nil)
				require.NoError(t, s.CreateInitialWaypoints(ctx, "t1"))

				got, err := s.Get(ctx, "t1")
				require.NoError(t, err)
				require.Len(t, got.Waypoints(), 2)
				for _, w := range got.Waypoints() {
					assert.True(t, w.IsEmpty())
					assert.NotEmpty(t, w.KeyForList)
				}
			})

			t.Run("update notifies subscribers and clears route", func(t *testing.T) {
				s := newStore(t, nil)
				seed(t, s, "t1", domain.WaypointSet{wpA, wpB})
				require.NoError(t, s.SetRoute(ctx, "t1", domain.WaypointSet{wpA, wpB}, domain.Route{DistanceMeters: 10, Geometry: [][]float64{{1, 1}, {2, 2}}}, domain.Pricing{}))

				subCtx, cancel := context.WithCancel(ctx)
				defer cancel()
				ch, err := s.Subscribe(subCtx, "t1")
				require.NoError(t, err)

				require.NoError(t, s.UpdateWaypoints(ctx, "t1", domain.WaypointSet{wpB, wpA}, true))

				got := next(t, ch)
				assert.Equal(t, domain.WaypointSet{wpB, wpA}, got.Waypoints())
				assert.False(t, got.HasRoute())
				assert.Equal(t, domain.PendingActionUpdate, got.PendingAction)
			})

			t.Run("subscription closes with its context", func(t *testing.T) {
				s := newStore(t, nil)
				seed(t, s, "t1", nil)

				subCtx, cancel := context.WithCancel(ctx)
				ch, err := s.Subscribe(subCtx, "t1")
				require.NoError(t, err)
				cancel()

				assert.Eventually(t, func() bool {
					select {
					case _, ok := <-ch:
						return !ok
					default:
						return false
					}
				}, 2*time.Second, 10*time.Millisecond)
			})

			t.Run("remove waypoint", func(t *testing.T) {
				s := newStore(t, nil)
				seed(t, s, "t1", domain.WaypointSet{wpA, wpB, wpC})
				snapshot, err := s.Get(ctx, "t1")
				require.NoError(t, err)

				require.NoError(t, s.RemoveWaypoint(ctx, snapshot, 1, true))
				got, err := s.Get(ctx, "t1")
				require.NoError(t, err)
				assert.Equal(t, domain.WaypointSet{wpA, wpC}, got.Waypoints())

				// The snapshot is stale now; removing through it is dropped.
				require.NoError(t, s.RemoveWaypoint(ctx, snapshot, 0, true))
				got, err = s.Get(ctx, "t1")
				require.NoError(t, err)
				assert.Equal(t, domain.WaypointSet{wpA, wpC}, got.Waypoints())

				require.NoError(t, s.RemoveWaypoint(ctx, got, 7, true))
				require.NoError(t, s.RemoveWaypoint(ctx, got, -1, true))
				again, err := s.Get(ctx, "t1")
				require.NoError(t, err)
				assert.Equal(t, got.Waypoints(), again.Waypoints())
			})

			t.Run("reorder commands converge in either order", func(t *testing.T) {
				current := domain.WaypointSet{wpA, {}, wpC}
				reordered := domain.WaypointSet{{}, wpA, wpC}

				for _, removeFirst := range []bool{true, false} {
					s := newStore(t, nil)
					seed(t, s, "t1", current)
					snapshot, err := s.Get(ctx, "t1")
					require.NoError(t, err)

					if removeFirst {
						require.NoError(t, s.RemoveWaypoint(ctx, snapshot, 0, true))
						require.NoError(t, s.UpdateWaypoints(ctx, "t1", reordered, true))
					} else {
						require.NoError(t, s.UpdateWaypoints(ctx, "t1", reordered, true))
						require.NoError(t, s.RemoveWaypoint(ctx, snapshot, 0, true))
					}

					got, err := s.Get(ctx, "t1")
					require.NoError(t, err)
					assert.True(t, got.Waypoints().SameLocations(reordered), "removeFirst=%v", removeFirst)
				}
			})

			t.Run("route lifecycle", func(t *testing.T) {
				s := newStore(t, nil)
				seed(t, s, "t1", domain.WaypointSet{wpA, wpB})
				valid := domain.WaypointSet{wpA, wpB}

				require.NoError(t, s.SetRouteLoading(ctx, "t1"))
				got, _ := s.Get(ctx, "t1")
				assert.True(t, got.IsLoadingRoute())

				price := domain.Pricing{Amount: decimal.RequireFromString("6.55"), Currency: "USD", Merchant: "10.00 mi @ $0.655 / mi"}
				route := domain.Route{DistanceMeters: 16093, DurationSeconds: 900, Geometry: [][]float64{{1, 1}, {2, 2}}}
				require.NoError(t, s.SetRoute(ctx, "t1", valid, route, price))

				got, _ = s.Get(ctx, "t1")
				assert.False(t, got.IsLoadingRoute())
				assert.True(t, got.HasRoute())
				assert.Equal(t, "6.55", got.Amount.StringFixed(2))
				assert.Equal(t, price.Merchant, got.Merchant)

				at := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
				require.NoError(t, s.SetRouteLoading(ctx, "t1"))
				require.NoError(t, s.SetRouteError(ctx, "t1", at, "no route"))
				got, _ = s.Get(ctx, "t1")
				assert.False(t, got.IsLoadingRoute())
				assert.False(t, got.HasRoute())
				assert.Equal(t, map[int64]string{at.UnixMicro(): "no route"}, got.ErrorFields.Latest(domain.ErrorFieldRoute))
			})

			t.Run("stale route is not attached", func(t *testing.T) {
				s := newStore(t, nil)
				seed(t, s, "t1", domain.WaypointSet{wpA, wpB})
				require.NoError(t, s.SetRouteLoading(ctx, "t1"))
				require.NoError(t, s.UpdateWaypoints(ctx, "t1", domain.WaypointSet{wpA, wpC}, true))

				route := domain.Route{DistanceMeters: 5, Geometry: [][]float64{{1, 1}, {2, 2}}}
				require.NoError(t, s.SetRoute(ctx, "t1", domain.WaypointSet{wpA, wpB}, route, domain.Pricing{}))

				got, _ := s.Get(ctx, "t1")
				assert.False(t, got.HasRoute())
				assert.False(t, got.IsLoadingRoute())
			})

			t.Run("backup restore", func(t *testing.T) {
				s := newStore(t, nil)
				seed(t, s, "t1", domain.WaypointSet{wpA, wpB})
				original, _ := s.Get(ctx, "t1")
				require.NoError(t, s.CreateBackup(ctx, original))

				require.NoError(t, s.UpdateWaypoints(ctx, "t1", domain.WaypointSet{wpC, wpB}, true))

				subCtx, cancel := context.WithCancel(ctx)
				defer cancel()
				ch, err := s.Subscribe(subCtx, "t1")
				require.NoError(t, err)

				require.NoError(t, s.RestoreFromBackup(ctx, "t1"))
				assert.Equal(t, domain.WaypointSet{wpA, wpB}, next(t, ch).Waypoints())

				err = s.RestoreFromBackup(ctx, "t1")
				assert.ErrorIs(t, err, domain.ErrBackupNotFound)
			})

			t.Run("backup discard", func(t *testing.T) {
				s := newStore(t, nil)
				seed(t, s, "t1", domain.WaypointSet{wpA, wpB})
				original, _ := s.Get(ctx, "t1")
				require.NoError(t, s.CreateBackup(ctx, original))
				require.NoError(t, s.DiscardBackup(ctx, "t1"))
				assert.ErrorIs(t, s.RestoreFromBackup(ctx, "t1"), domain.ErrBackupNotFound)
			})

			t.Run("write through only when not optimistic", func(t *testing.T) {
				p := newFakePersister()
				s := newStore(t, p)
				seed(t, s, "t1", domain.WaypointSet{wpA, wpB})

				require.NoError(t, s.UpdateWaypoints(ctx, "t1", domain.WaypointSet{wpB, wpA}, true))
				assert.Equal(t, 0, p.saveCount())

				require.NoError(t, s.UpdateWaypoints(ctx, "t1", domain.WaypointSet{wpB, wpC}, false))
				assert.Equal(t, 1, p.saveCount())
				saved, err := p.LoadTransaction(ctx, "t1")
				require.NoError(t, err)
				assert.Equal(t, domain.WaypointSet{wpB, wpC}, saved.Waypoints())
			})

			t.Run("loads from durable storage", func(t *testing.T) {
				p := newFakePersister()
				require.NoError(t, p.SaveTransaction(ctx, &domain.Transaction{
					TransactionID: "durable",
					Comment:       domain.Comment{Waypoints: domain.WaypointSet{wpA, wpC}},
				}))
				s := newStore(t, p)

				got, err := s.Get(ctx, "durable")
				require.NoError(t, err)
				assert.Equal(t, domain.WaypointSet{wpA, wpC}, got.Waypoints())
			})

			t.Run("wallet additional details", func(t *testing.T) {
				s := newStore(t, nil)
				empty, err := s.GetWalletAdditionalDetails(ctx)
				require.NoError(t, err)
				assert.Empty(t, empty.Questions)

				details := &domain.WalletAdditionalDetails{
					Questions: []domain.WalletAdditionalQuestion{{Prompt: "Which street?", Type: "street", Answer: []string{"Main", "Oak"}}},
					IDNumber:  "123",
				}
				details.IsLoading = true
				require.NoError(t, s.SetWalletAdditionalDetails(ctx, details))

				got, err := s.GetWalletAdditionalDetails(ctx)
				require.NoError(t, err)
				assert.Equal(t, details, got)
			})
		})
	}
}

package repositories

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"distance-request-service/internal/domain"
	"distance-request-service/internal/platform/db"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, InitSchema(context.Background(), conn))
	return conn
}

func TestSQLTransactionRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLTransactionRepository(openTestDB(t), db.SQLite)

	tx := &domain.Transaction{
		TransactionID: "t1",
		ReportID:      "r1",
		Amount:        decimal.RequireFromString("6.55"),
		Currency:      "USD",
		Merchant:      "10.00 mi @ $0.655 / mi",
		Comment: domain.Comment{
			Comment: "client visit",
			Waypoints: domain.WaypointSet{
				{Address: "1 Apple St", Lat: 1, Lng: 2, KeyForList: "a"},
				{Address: "2 Birch Rd", Lat: 3, Lng: 4, KeyForList: "b"},
			},
		},
		Route:   &domain.Route{DistanceMeters: 16093, DurationSeconds: 900, Geometry: [][]float64{{2, 1}, {4, 3}}},
		Created: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, repo.SaveTransaction(ctx, tx))

	got, err := repo.LoadTransaction(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, tx.Waypoints(), got.Waypoints())
	assert.Equal(t, tx.Route, got.Route)
	assert.True(t, tx.Amount.Equal(got.Amount))
	assert.Equal(t, tx.Merchant, got.Merchant)
	assert.Equal(t, "client visit", got.Comment.Comment)
	assert.True(t, tx.Created.Equal(got.Created))

	// Saving again updates in place.
	tx.Route = nil
	tx.Comment.Waypoints = tx.Comment.Waypoints[:1]
	require.NoError(t, repo.SaveTransaction(ctx, tx))

	got, err = repo.LoadTransaction(ctx, "t1")
	require.NoError(t, err)
	assert.Nil(t, got.Route)
	assert.Len(t, got.Waypoints(), 1)
}

func TestSQLTransactionRepositoryMissing(t *testing.T) {
	repo := NewSQLTransactionRepository(openTestDB(t), db.SQLite)
	_, err := repo.LoadTransaction(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
}

func TestSeedFromJSON(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)

	path := filepath.Join(t.TempDir(), "transactions.json")
	seed := `[
		{
			"transactionID": "seed-1",
			"reportID": "r1",
			"amount": "0",
			"comment": {"waypoints": {
				"waypoint0": {"address": "1 Apple St", "lat": 1, "lng": 2},
				"waypoint1": {"address": "2 Birch Rd", "lat": 3, "lng": 4}
			}},
			"created": "2026-01-01T00:00:00Z"
		}
	]`
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o600))

	n, err := SeedFromJSON(ctx, conn, db.SQLite, path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := NewSQLTransactionRepository(conn, db.SQLite).LoadTransaction(ctx, "seed-1")
	require.NoError(t, err)
	require.Len(t, got.Waypoints(), 2)
	assert.Equal(t, "2 Birch Rd", got.Waypoints()[1].Address)
}

func TestSeedFromJSONRejectsMissingID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"reportID": "r1"}]`), 0o600))

	_, err := SeedFromJSON(context.Background(), openTestDB(t), db.SQLite, path)
	assert.Error(t, err)
}

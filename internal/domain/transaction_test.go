package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestErrorFieldsLatest(t *testing.T) {
	tx := &Transaction{}
	assert.Nil(t, tx.ErrorFields.Latest(ErrorFieldRoute))
	assert.False(t, tx.HasRouteError())

	older := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	newer := older.Add(time.Minute)
	tx.SetError(ErrorFieldRoute, newer, "second")
	tx.SetError(ErrorFieldRoute, older, "first")

	assert.True(t, tx.HasRouteError())
	assert.Equal(t, map[int64]string{newer.UnixMicro(): "second"}, tx.ErrorFields.Latest(ErrorFieldRoute))
}

func TestTransactionClearRoute(t *testing.T) {
	tx := &Transaction{
		Amount:   decimal.NewFromInt(12),
		Merchant: "7.00 mi @ $0.655 / mi",
		Route:    &Route{DistanceMeters: 10, Geometry: [][]float64{{1, 2}, {3, 4}}},
	}
	tx.SetError(ErrorFieldRoute, time.Now(), "boom")
	assert.True(t, tx.HasRoute())

	tx.ClearRoute()

	assert.False(t, tx.HasRoute())
	assert.False(t, tx.HasRouteError())
	assert.True(t, tx.Amount.IsZero())
	assert.Empty(t, tx.Merchant)
}

func TestTransactionCloneIsDeep(t *testing.T) {
	tx := &Transaction{
		TransactionID: "t1",
		Comment:       Comment{Waypoints: WaypointSet{{Address: "A"}}},
		Route:         &Route{DistanceMeters: 5},
	}
	tx.SetError(ErrorFieldRoute, time.Now(), "x")

	c := tx.Clone()
	c.Comment.Waypoints[0].Address = "B"
	c.Route.DistanceMeters = 7
	delete(c.ErrorFields, ErrorFieldRoute)

	assert.Equal(t, "A", tx.Comment.Waypoints[0].Address)
	assert.Equal(t, 5, tx.Route.DistanceMeters)
	assert.True(t, tx.HasRouteError())
}

func TestMileageRate(t *testing.T) {
	rate := MileageRate{Rate: decimal.RequireFromString("0.655"), Unit: UnitMiles, Currency: "USD"}

	assert.Equal(t, "10.00", rate.Distance(16093).StringFixed(2))
	assert.Equal(t, "6.55", rate.Amount(16093).StringFixed(2))
	assert.Equal(t, "10.00 mi @ $0.655 / mi", rate.Merchant(16093, "$"))

	km := MileageRate{Rate: decimal.RequireFromString("0.30"), Unit: UnitKilometers, Currency: "EUR"}
	assert.Equal(t, "3.00", km.Amount(10000).StringFixed(2))
}

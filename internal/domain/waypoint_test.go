package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wp(addr string, lat, lng float64) Waypoint {
	return Waypoint{Address: addr, Lat: lat, Lng: lng}
}

func TestSlotKeyRoundTrip(t *testing.T) {
	for _, i := range []int{0, 1, 9, 10, 24} {
		got, err := ParseSlotKey(SlotKey(i))
		require.NoError(t, err)
		assert.Equal(t, i, got)
	}

	for _, bad := range []string{"", "waypoint", "point1", "waypoint-1", "waypointx"} {
		_, err := ParseSlotKey(bad)
		assert.Error(t, err, bad)
	}
}

func TestWaypointSetValid(t *testing.T) {
	a := wp("1 Main St", 33.1, -112.1)
	b := wp("2 Oak Ave", 33.2, -112.2)
	c := wp("3 Elm Rd", 33.3, -112.3)

	tests := []struct {
		name string
		set  WaypointSet
		want WaypointSet
	}{
		{"too few slots", WaypointSet{a}, WaypointSet{}},
		{"all valid", WaypointSet{a, b, c}, WaypointSet{a, b, c}},
		{"empty slot skipped and reindexed", WaypointSet{a, {}, c}, WaypointSet{a, c}},
		{"address without coordinates", WaypointSet{a, {Address: "nowhere"}}, WaypointSet{a}},
		{"adjacent duplicate dropped", WaypointSet{a, a, b}, WaypointSet{a, b}},
		{"duplicate after gap dropped", WaypointSet{a, {}, a}, WaypointSet{a}},
		{"non adjacent repeat kept", WaypointSet{a, b, a}, WaypointSet{a, b, a}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.set.Valid())
		})
	}
}

func TestWaypointSetValidTooMany(t *testing.T) {
	set := make(WaypointSet, MaxWaypoints+1)
	for i := range set {
		set[i] = wp(SlotKey(i), float64(i+1), float64(i+1))
	}
	assert.Empty(t, set.Valid())
	assert.Len(t, set[:MaxWaypoints].Valid(), MaxWaypoints)
}

func TestWaypointSetSameLocationsIgnoresIdentity(t *testing.T) {
	a := wp("1 Main St", 1, 2)
	a2 := a
	a2.KeyForList = "other"
	a2.Name = "Home"

	assert.True(t, WaypointSet{a}.SameLocations(WaypointSet{a2}))
	assert.False(t, WaypointSet{a}.Equal(WaypointSet{a2}))
	assert.True(t, WaypointSet{}.SameLocations(nil))
}

func TestWaypointSetJSON(t *testing.T) {
	set := WaypointSet{wp("A", 1, 1), {}, wp("C", 3, 3)}

	b, err := json.Marshal(set)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.Len(t, raw, 3)
	assert.Contains(t, raw, "waypoint2")

	var back WaypointSet
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, set, back)
}

func TestWaypointSetJSONOrdersBySuffix(t *testing.T) {
	var set WaypointSet
	err := json.Unmarshal([]byte(`{"waypoint10":{"address":"K"},"waypoint2":{"address":"C"},"waypoint0":{"address":"A"}}`), &set)
	require.NoError(t, err)

	require.Len(t, set, 11)
	assert.Equal(t, "A", set[0].Address)
	assert.Equal(t, "C", set[2].Address)
	assert.Equal(t, "K", set[10].Address)
	assert.True(t, set[1].IsEmpty())

	err = json.Unmarshal([]byte(`{"stop1":{}}`), &set)
	assert.Error(t, err)
}

func TestWaypointSetWithWithout(t *testing.T) {
	set := WaypointSet{wp("A", 1, 1), wp("B", 2, 2)}

	grown, err := set.With(2, wp("C", 3, 3))
	require.NoError(t, err)
	assert.Len(t, grown, 3)
	assert.Len(t, set, 2, "original must not be mutated")

	_, err = set.With(5, Waypoint{})
	assert.ErrorIs(t, err, ErrWaypointIndex)

	shrunk, err := grown.Without(0)
	require.NoError(t, err)
	assert.Equal(t, WaypointSet{wp("B", 2, 2), wp("C", 3, 3)}, shrunk)
	assert.Equal(t, "A", grown[0].Address)

	_, err = grown.Without(-1)
	assert.ErrorIs(t, err, ErrWaypointIndex)

	full := make(WaypointSet, MaxWaypoints)
	_, err = full.With(MaxWaypoints, Waypoint{})
	assert.ErrorIs(t, err, ErrTooManyWaypoints)
}

package services

import (
	"errors"
	"testing"

	"distance-request-service/internal/domain"
)

var (
	stopA = domain.Waypoint{Address: "1 Apple St", Lat: 10, Lng: 10, KeyForList: "a"}
	stopB = domain.Waypoint{Address: "2 Birch Rd", Lat: 20, Lng: 20, KeyForList: "b"}
	stopC = domain.Waypoint{Address: "3 Cedar Ave", Lat: 30, Lng: 30, KeyForList: "c"}
	blank = domain.Waypoint{KeyForList: "blank"}
)

func TestReorderWaypointsMovesLastToFirst(t *testing.T) {
	res, err := ReorderWaypoints(domain.WaypointSet{stopA, stopB, stopC}, []string{"waypoint2", "waypoint0", "waypoint1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := domain.WaypointSet{stopC, stopA, stopB}
	if !res.Waypoints.Equal(want) {
		t.Fatalf("expected %v, got %v", want, res.Waypoints)
	}
	if res.EmptiedIndex != -1 {
		t.Fatalf("expected no emptied slot, got %d", res.EmptiedIndex)
	}
	if !res.Changed {
		t.Fatal("expected the reorder to report a change")
	}
}

func TestReorderWaypointsReportsEmptiedSlot(t *testing.T) {
	res, err := ReorderWaypoints(domain.WaypointSet{stopA, stopB, blank}, []string{"waypoint2", "waypoint0", "waypoint1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := domain.WaypointSet{blank, stopA, stopB}
	if !res.Waypoints.Equal(want) {
		t.Fatalf("expected %v, got %v", want, res.Waypoints)
	}
	if res.EmptiedIndex != 0 {
		t.Fatalf("expected slot 0 to be emptied, got %d", res.EmptiedIndex)
	}
}

func TestReorderWaypointsSameOrderIsNoop(t *testing.T) {
	current := domain.WaypointSet{stopA, stopB}
	res, err := ReorderWaypoints(current, []string{"waypoint0", "waypoint1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Changed {
		t.Fatal("expected no change")
	}
	if res.EmptiedIndex != -1 {
		t.Fatalf("expected no emptied slot, got %d", res.EmptiedIndex)
	}
	if !res.Waypoints.Equal(current) {
		t.Fatalf("expected %v, got %v", current, res.Waypoints)
	}
}

func TestReorderWaypointsRejectsNonPermutations(t *testing.T) {
	current := domain.WaypointSet{stopA, stopB, stopC}

	cases := map[string][]string{
		"too short":    {"waypoint1", "waypoint0"},
		"duplicate":    {"waypoint0", "waypoint0", "waypoint1"},
		"out of range": {"waypoint0", "waypoint1", "waypoint3"},
		"foreign key":  {"stop0", "waypoint1", "waypoint2"},
	}

	for name, order := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ReorderWaypoints(current, order)
			if !errors.Is(err, domain.ErrInvalidOrdering) {
				t.Fatalf("expected ErrInvalidOrdering, got %v", err)
			}
		})
	}
}

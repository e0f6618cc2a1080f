package services

import (
	"fmt"
	"slices"

	"distance-request-service/internal/domain"
)

// ReorderResult is the outcome of remapping waypoints after a drag gesture.
type ReorderResult struct {
	Waypoints domain.WaypointSet
	// EmptiedIndex is the slot that became empty while it previously held a
	// waypoint, or -1.
	EmptiedIndex int
	Changed      bool
}

// ReorderWaypoints remaps current onto sequential slots following order, the
// sequence of previous slot keys produced by a drag. Slot i receives the content
// previously stored under order[i].
func ReorderWaypoints(current domain.WaypointSet, order []string) (ReorderResult, error) {
	if slices.Equal(order, current.Keys()) {
		return ReorderResult{Waypoints: current.Clone(), EmptiedIndex: -1}, nil
	}

	if len(order) != len(current) {
		return ReorderResult{}, fmt.Errorf(
			"reorder waypoints: got %d keys for %d slots: %w",
			len(order), len(current), domain.ErrInvalidOrdering,
		)
	}

	seen := make([]bool, len(current))
	out := make(domain.WaypointSet, len(order))
	emptied := -1

	for i, key := range order {
		from, err := domain.ParseSlotKey(key)
		if err != nil {
			return ReorderResult{}, fmt.Errorf("reorder waypoints: %w: %w", domain.ErrInvalidOrdering, err)
		}
		if from >= len(current) || seen[from] {
			return ReorderResult{}, fmt.Errorf("reorder waypoints: key %q: %w", key, domain.ErrInvalidOrdering)
		}
		seen[from] = true

		out[i] = current[from]
		if out[i].IsEmpty() && !current[i].IsEmpty() {
			emptied = i
		}
	}

	return ReorderResult{Waypoints: out, EmptiedIndex: emptied, Changed: true}, nil
}

package domain

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// MaxWaypoints bounds how many stops a single distance request may carry.
const MaxWaypoints = 25

const slotPrefix = "waypoint"

// Waypoint is a single location point of a distance request.
// KeyForList is a stable identity assigned on creation; it survives reordering.
type Waypoint struct {
	Address    string  `json:"address,omitempty"`
	Name       string  `json:"name,omitempty"`
	Lat        float64 `json:"lat,omitempty"`
	Lng        float64 `json:"lng,omitempty"`
	KeyForList string  `json:"keyForList,omitempty"`
}

func (w Waypoint) Coordinates() Coordinates { return Coordinates{Lon: w.Lng, Lat: w.Lat} }

// IsEmpty reports whether the waypoint carries no location content.
// KeyForList is identity, not content, and is ignored.
func (w Waypoint) IsEmpty() bool {
	return strings.TrimSpace(w.Address) == "" && w.Name == "" && w.Coordinates().IsZero()
}

// IsValid reports whether the waypoint has enough resolved data to be routed.
func (w Waypoint) IsValid() bool {
	return strings.TrimSpace(w.Address) != "" && !w.Coordinates().IsZero()
}

func (w Waypoint) sameLocation(o Waypoint) bool {
	return strings.TrimSpace(w.Address) == strings.TrimSpace(o.Address) && w.Lat == o.Lat && w.Lng == o.Lng
}

// SlotKey returns the wire key of the slot at index i ("waypoint0", "waypoint1", ...).
func SlotKey(i int) string { return slotPrefix + strconv.Itoa(i) }

// ParseSlotKey is the inverse of SlotKey.
func ParseSlotKey(key string) (int, error) {
	rest, ok := strings.CutPrefix(key, slotPrefix)
	if !ok || rest == "" {
		return 0, fmt.Errorf("parse slot key %q: missing %q prefix", key, slotPrefix)
	}

	i, err := strconv.Atoi(rest)
	if err != nil || i < 0 {
		return 0, fmt.Errorf("parse slot key %q: invalid index", key)
	}

	return i, nil
}

// WaypointSet is the ordered list of waypoint slots of a transaction.
// Position in the slice is the slot index; an empty Waypoint is an empty slot.
// On the wire it is an object keyed by SlotKey.
type WaypointSet []Waypoint

// Keys returns the slot keys in order.
func (s WaypointSet) Keys() []string {
	keys := make([]string, len(s))
	for i := range s {
		keys[i] = SlotKey(i)
	}
	return keys
}

func (s WaypointSet) Clone() WaypointSet {
	if s == nil {
		return nil
	}
	return slices.Clone(s)
}

// Equal is full value equality, slot by slot.
func (s WaypointSet) Equal(o WaypointSet) bool { return slices.Equal(s, o) }

// SameLocations compares address and coordinates only, ignoring names and list keys.
func (s WaypointSet) SameLocations(o WaypointSet) bool {
	return slices.EqualFunc(s, o, Waypoint.sameLocation)
}

// Valid returns the dense, filtered view of routable waypoints.
//
// Slots without a routable location are skipped, as is a waypoint repeating the
// address of the previously accepted one. Sets outside [2, MaxWaypoints] yield nothing.
func (s WaypointSet) Valid() WaypointSet {
	if len(s) < 2 || len(s) > MaxWaypoints {
		return WaypointSet{}
	}

	out := make(WaypointSet, 0, len(s))
	for _, w := range s {
		if !w.IsValid() {
			continue
		}
		if n := len(out); n > 0 && strings.TrimSpace(out[n-1].Address) == strings.TrimSpace(w.Address) {
			continue
		}
		out = append(out, w)
	}

	return out
}

// Without drops the slot at index and shifts later slots down.
func (s WaypointSet) Without(index int) (WaypointSet, error) {
	if index < 0 || index >= len(s) {
		return nil, fmt.Errorf("remove waypoint %d of %d: %w", index, len(s), ErrWaypointIndex)
	}
	return slices.Delete(s.Clone(), index, index+1), nil
}

// With sets the slot at index, growing the set by one when index == len(s).
func (s WaypointSet) With(index int, w Waypoint) (WaypointSet, error) {
	if index < 0 || index > len(s) {
		return nil, fmt.Errorf("set waypoint %d of %d: %w", index, len(s), ErrWaypointIndex)
	}
	if index == len(s) && len(s) >= MaxWaypoints {
		return nil, ErrTooManyWaypoints
	}

	out := s.Clone()
	if index == len(out) {
		return append(out, w), nil
	}
	out[index] = w
	return out, nil
}

func (s WaypointSet) Coordinates() []Coordinates {
	out := make([]Coordinates, 0, len(s))
	for _, w := range s {
		out = append(out, w.Coordinates())
	}
	return out
}

func (s WaypointSet) MarshalJSON() ([]byte, error) {
	m := make(map[string]Waypoint, len(s))
	for i, w := range s {
		m[SlotKey(i)] = w
	}
	return json.Marshal(m)
}

func (s *WaypointSet) UnmarshalJSON(b []byte) error {
	var m map[string]Waypoint
	if err := json.Unmarshal(b, &m); err != nil {
		return fmt.Errorf("decode waypoints: %w", err)
	}
	if m == nil {
		*s = nil
		return nil
	}

	size := 0
	byIndex := make(map[int]Waypoint, len(m))
	for k, w := range m {
		i, err := ParseSlotKey(k)
		if err != nil {
			return fmt.Errorf("decode waypoints: %w", err)
		}
		if i >= MaxWaypoints*2 {
			return fmt.Errorf("decode waypoints: slot %q: %w", k, ErrWaypointIndex)
		}
		byIndex[i] = w
		size = max(size, i+1)
	}

	out := make(WaypointSet, size)
	for i, w := range byIndex {
		out[i] = w
	}
	*s = out
	return nil
}

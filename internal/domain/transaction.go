package domain

import (
	"maps"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Field-level error keys.
const (
	ErrorFieldRoute = "route"
)

// Pending actions mark records with unconfirmed local changes.
const (
	PendingActionAdd    = "add"
	PendingActionUpdate = "update"
	PendingActionDelete = "delete"
)

// ErrorFields maps a field name to its error messages keyed by a microsecond timestamp.
type ErrorFields map[string]map[int64]string

// Latest returns the most recent error recorded for field, or nil.
func (e ErrorFields) Latest(field string) map[int64]string {
	errs := e[field]
	if len(errs) == 0 {
		return nil
	}
	latest := slices.Max(slices.Collect(maps.Keys(errs)))
	return map[int64]string{latest: errs[latest]}
}

func (e ErrorFields) Has(field string) bool { return len(e[field]) > 0 }

func (e ErrorFields) Clone() ErrorFields {
	if e == nil {
		return nil
	}
	out := make(ErrorFields, len(e))
	for k, v := range e {
		out[k] = maps.Clone(v)
	}
	return out
}

// Comment carries the distance specific part of a transaction.
// IsLoading is true while a route computation is in flight.
type Comment struct {
	Comment   string      `json:"comment,omitempty"`
	Waypoints WaypointSet `json:"waypoints,omitempty"`
	IsLoading bool        `json:"isLoading,omitempty"`
}

// Transaction is the distance expense record. It is owned by the store; sessions only
// read snapshots of it and issue commands against it.
type Transaction struct {
	TransactionID string          `json:"transactionID"`
	ReportID      string          `json:"reportID,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency,omitempty"`
	Merchant      string          `json:"merchant,omitempty"`
	Comment       Comment         `json:"comment"`
	Route         *Route          `json:"route,omitempty"`
	IsLoading     bool            `json:"isLoading,omitempty"`
	ErrorFields   ErrorFields     `json:"errorFields,omitempty"`
	PendingAction string          `json:"pendingAction,omitempty"`
	Created       time.Time       `json:"created"`
}

func (t *Transaction) Waypoints() WaypointSet { return t.Comment.Waypoints }

// HasRoute reports whether a computed route with geometry is attached.
func (t *Transaction) HasRoute() bool { return t.Route.HasGeometry() }

func (t *Transaction) HasRouteError() bool { return t.ErrorFields.Has(ErrorFieldRoute) }

func (t *Transaction) IsLoadingRoute() bool { return t.Comment.IsLoading }

// ClearRoute drops the computed route, its error and the amount derived from it.
func (t *Transaction) ClearRoute() {
	t.Route = nil
	t.Amount = decimal.Zero
	t.Merchant = ""
	delete(t.ErrorFields, ErrorFieldRoute)
}

// SetError records msg for field at ts.
func (t *Transaction) SetError(field string, ts time.Time, msg string) {
	if t.ErrorFields == nil {
		t.ErrorFields = ErrorFields{}
	}
	if t.ErrorFields[field] == nil {
		t.ErrorFields[field] = map[int64]string{}
	}
	t.ErrorFields[field][ts.UnixMicro()] = msg
}

// Clone returns a deep copy.
func (t *Transaction) Clone() *Transaction {
	if t == nil {
		return nil
	}
	out := *t
	out.Comment.Waypoints = t.Comment.Waypoints.Clone()
	out.ErrorFields = t.ErrorFields.Clone()
	if t.Route != nil {
		r := *t.Route
		r.Geometry = slices.Clone(t.Route.Geometry)
		out.Route = &r
	}
	return &out
}

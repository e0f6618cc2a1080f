package services

import "distance-request-service/internal/domain"

type triggerDeps struct {
	shouldFetch   bool
	transactionID string
	valid         domain.WaypointSet
	offline       bool
}

func (d triggerDeps) equal(o triggerDeps) bool {
	return d.shouldFetch == o.shouldFetch &&
		d.transactionID == o.transactionID &&
		d.offline == o.offline &&
		d.valid.SameLocations(o.valid)
}

// RouteTrigger decides, on each evaluation of a transaction, whether a new route
// computation has to be issued. It fires once per transition into eligibility.
//
// The zero value is ready to use. It is not safe for concurrent use.
type RouteTrigger struct {
	prevValid domain.WaypointSet
	hasPrev   bool

	last    triggerDeps
	hasLast bool
}

// ShouldFetch reports whether tx, with the given effective waypoints, warrants a route.
// changed tells whether the valid waypoints differ from the previous evaluation.
func ShouldFetch(tx *domain.Transaction, valid domain.WaypointSet, changed bool) bool {
	routeAbsentWithoutErrors := !tx.HasRoute() && !tx.HasRouteError()
	return (routeAbsentWithoutErrors || changed) && !tx.IsLoadingRoute() && len(valid) >= 2
}

// Evaluate returns the valid waypoints to route and true when a fetch must be issued now.
func (t *RouteTrigger) Evaluate(tx *domain.Transaction, waypoints domain.WaypointSet, offline bool) (domain.WaypointSet, bool) {
	valid := waypoints.Valid()
	changed := t.hasPrev && !valid.SameLocations(t.prevValid)
	t.prevValid, t.hasPrev = valid, true

	deps := triggerDeps{
		shouldFetch:   ShouldFetch(tx, valid, changed),
		transactionID: tx.TransactionID,
		valid:         valid,
		offline:       offline,
	}
	fresh := !t.hasLast || !deps.equal(t.last)
	t.last, t.hasLast = deps, true

	if !fresh || offline || !deps.shouldFetch {
		return nil, false
	}
	return valid, true
}

// Package store holds the reactive transaction stores: a Redis store with
// pub/sub notifications and an in-process store with the same semantics.
package store

import (
	"time"

	"distance-request-service/internal/domain"

	"github.com/google/uuid"
)

const (
	TransactionPrefix = "transactions_"
	BackupPrefix      = "transactionsBackup_"
	WalletDetailsKey  = "walletAdditionalDetails"
)

// mutation edits a transaction in place and reports whether anything changed.
type mutation func(tx *domain.Transaction) bool

func initialWaypoints() domain.WaypointSet {
	return domain.WaypointSet{
		{KeyForList: uuid.NewString()},
		{KeyForList: uuid.NewString()},
	}
}

func createInitialWaypoints(tx *domain.Transaction) bool {
	tx.Comment.Waypoints = initialWaypoints()
	tx.ClearRoute()
	return true
}

func updateWaypoints(waypoints domain.WaypointSet) mutation {
	return func(tx *domain.Transaction) bool {
		waypoints := waypoints.Clone()
		for i := range waypoints {
			if waypoints[i].KeyForList == "" {
				waypoints[i].KeyForList = uuid.NewString()
			}
		}
		tx.Comment.Waypoints = waypoints
		tx.ClearRoute()
		tx.PendingAction = domain.PendingActionUpdate
		return true
	}
}

// removeWaypoint deletes a slot only while the stored waypoints still equal the
// snapshot the caller looked at; stale removals are dropped.
func removeWaypoint(snapshot domain.WaypointSet, index int) mutation {
	return func(tx *domain.Transaction) bool {
		current := tx.Waypoints()
		if !current.Equal(snapshot) {
			return false
		}

		next, err := current.Without(index)
		if err != nil {
			return false
		}

		prevValid := current.Valid()
		tx.Comment.Waypoints = next
		if !next.Valid().SameLocations(prevValid) {
			tx.ClearRoute()
		}
		tx.PendingAction = domain.PendingActionUpdate
		return true
	}
}

func setRouteLoading(tx *domain.Transaction) bool {
	tx.Comment.IsLoading = true
	delete(tx.ErrorFields, domain.ErrorFieldRoute)
	return true
}

func setRoute(forWaypoints domain.WaypointSet, route domain.Route, price domain.Pricing) mutation {
	return func(tx *domain.Transaction) bool {
		tx.Comment.IsLoading = false
		if !tx.Waypoints().Valid().SameLocations(forWaypoints) {
			return true
		}

		tx.Route = &route
		tx.Amount = price.Amount
		tx.Currency = price.Currency
		tx.Merchant = price.Merchant
		delete(tx.ErrorFields, domain.ErrorFieldRoute)
		return true
	}
}

func setRouteError(at time.Time, msg string) mutation {
	return func(tx *domain.Transaction) bool {
		tx.Comment.IsLoading = false
		tx.Route = nil
		tx.SetError(domain.ErrorFieldRoute, at, msg)
		return true
	}
}

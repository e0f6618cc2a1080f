package services

import (
	"context"
	"fmt"

	"distance-request-service/internal/domain"
	"distance-request-service/internal/ports"
)

// ConfirmWaypoints returns the submit callback used by the server: the submitted
// transaction, with its route and amount, is written through to durable storage.
func ConfirmWaypoints(store ports.TransactionStore) SubmitFunc {
	return func(ctx context.Context, tx *domain.Transaction, waypoints domain.WaypointSet) error {
		confirmed := tx.Clone()
		confirmed.Comment.Waypoints = waypoints.Clone()
		confirmed.PendingAction = ""
		if err := store.Put(ctx, confirmed, false); err != nil {
			return fmt.Errorf("confirm waypoints: %w", err)
		}
		return nil
	}
}

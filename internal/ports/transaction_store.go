package ports

import (
	"context"
	"distance-request-service/internal/domain"
	"time"
)

// Port: the reactive key-value store that owns Transaction records.
//
// Every command publishes the resulting snapshot to subscribers of the transaction.
// Optimistic commands only touch the reactive store; the others are also written
// through to durable storage.
type TransactionStore interface {
	// Return the current snapshot of a transaction.
	Get(ctx context.Context, transactionID string) (*domain.Transaction, error)
	// Stream snapshots on every change until ctx ends.
	Subscribe(ctx context.Context, transactionID string) (<-chan *domain.Transaction, error)
	// Persist a whole transaction record.
	Put(ctx context.Context, tx *domain.Transaction, optimistic bool) error

	CreateInitialWaypoints(ctx context.Context, transactionID string) error
	UpdateWaypoints(ctx context.Context, transactionID string, waypoints domain.WaypointSet, optimistic bool) error
	// Remove slot index, provided the stored waypoints still match the tx snapshot.
	RemoveWaypoint(ctx context.Context, tx *domain.Transaction, index int, optimistic bool) error

	SetRouteLoading(ctx context.Context, transactionID string) error
	// Attach a computed route unless the valid waypoints moved on since it was requested.
	SetRoute(ctx context.Context, transactionID string, forWaypoints domain.WaypointSet, route domain.Route, price domain.Pricing) error
	SetRouteError(ctx context.Context, transactionID string, at time.Time, msg string) error
}

// Port: point-in-time copies of transactions taken while they are being edited.
type BackupStore interface {
	CreateBackup(ctx context.Context, tx *domain.Transaction) error
	// Replace the transaction with its backup and drop the backup.
	RestoreFromBackup(ctx context.Context, transactionID string) error
	DiscardBackup(ctx context.Context, transactionID string) error
}

// Port: durable storage behind the reactive store.
type TransactionPersister interface {
	SaveTransaction(ctx context.Context, tx *domain.Transaction) error
	LoadTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error)
}

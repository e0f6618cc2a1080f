package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"distance-request-service/internal/domain"
	"distance-request-service/internal/platform/obs"
	"distance-request-service/internal/ports"
)

type EditState int

const (
	EditIdle EditState = iota
	EditEditing
	EditSaved
	EditDiscarded
)

func (s EditState) String() string {
	switch s {
	case EditEditing:
		return "editing"
	case EditSaved:
		return "saved"
	case EditDiscarded:
		return "discarded"
	default:
		return "idle"
	}
}

// EditSession backs up a transaction while it is edited and restores the backup
// when the edit ends without being saved.
type EditSession struct {
	backups       ports.BackupStore
	transactionID string
	saved         atomic.Bool

	mu    sync.Mutex
	state EditState
	end   sync.Once
}

func NewEditSession(backups ports.BackupStore, transactionID string) *EditSession {
	return &EditSession{backups: backups, transactionID: transactionID}
}

// Begin snapshots tx. It may only be called once.
func (e *EditSession) Begin(ctx context.Context, tx *domain.Transaction) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != EditIdle {
		return fmt.Errorf("begin edit of %q: session is %s", e.transactionID, e.state)
	}
	if tx == nil || tx.TransactionID != e.transactionID {
		return errors.New("begin edit: snapshot does not match the edited transaction")
	}

	if err := e.backups.CreateBackup(ctx, tx); err != nil {
		return fmt.Errorf("begin edit of %q: %w", e.transactionID, err)
	}
	e.state = EditEditing
	return nil
}

// MarkSaved suppresses the restore on End.
func (e *EditSession) MarkSaved() { e.saved.Store(true) }

func (e *EditSession) State() EditState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// End settles the session exactly once, reading the saved flag at call time.
// Later calls return the settled state.
func (e *EditSession) End(ctx context.Context) (state EditState, err error) {
	e.end.Do(func() {
		e.mu.Lock()
		defer e.mu.Unlock()

		if e.state != EditEditing {
			return
		}

		if e.saved.Load() {
			e.state = EditSaved
			if derr := e.backups.DiscardBackup(ctx, e.transactionID); derr != nil {
				err = fmt.Errorf("end edit of %q: discard backup: %w", e.transactionID, derr)
			}
			return
		}

		e.state = EditDiscarded
		obs.BackupRestores.Inc()
		if rerr := e.backups.RestoreFromBackup(ctx, e.transactionID); rerr != nil {
			err = fmt.Errorf("end edit of %q: restore backup: %w", e.transactionID, rerr)
		}
	})

	return e.State(), err
}

package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"distance-request-service/internal/domain"
	"distance-request-service/internal/ports"

	"github.com/rs/zerolog/log"
)

type subscriber struct {
	ctx context.Context
	ch  chan *domain.Transaction
}

// Memory is an in-process reactive store. It has the same semantics as the Redis
// store and is meant for local runs and tests.
type Memory struct {
	mu        sync.Mutex
	txs       map[string]*domain.Transaction
	backups   map[string]*domain.Transaction
	subs      map[string]map[*subscriber]struct{}
	wallet    *domain.WalletAdditionalDetails
	persister ports.TransactionPersister
}

func NewMemory(persister ports.TransactionPersister) *Memory {
	return &Memory{
		txs:       make(map[string]*domain.Transaction),
		backups:   make(map[string]*domain.Transaction),
		subs:      make(map[string]map[*subscriber]struct{}),
		persister: persister,
	}
}

func (m *Memory) Get(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	m.mu.Lock()
	tx, ok := m.txs[transactionID]
	m.mu.Unlock()
	if ok {
		return tx.Clone(), nil
	}

	if m.persister == nil {
		return nil, fmt.Errorf("memory store get %q: %w", transactionID, domain.ErrTransactionNotFound)
	}

	loaded, err := m.persister.LoadTransaction(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("memory store get %q: %w", transactionID, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if tx, ok := m.txs[transactionID]; ok {
		return tx.Clone(), nil
	}
	m.txs[transactionID] = loaded
	return loaded.Clone(), nil
}

func (m *Memory) Subscribe(ctx context.Context, transactionID string) (<-chan *domain.Transaction, error) {
	sub := &subscriber{ctx: ctx, ch: make(chan *domain.Transaction, 16)}

	m.mu.Lock()
	if m.subs[transactionID] == nil {
		m.subs[transactionID] = make(map[*subscriber]struct{})
	}
	m.subs[transactionID][sub] = struct{}{}
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.subs[transactionID], sub)
		close(sub.ch)
		m.mu.Unlock()
	}()

	return sub.ch, nil
}

// notifyLocked delivers tx to every live subscriber. The caller holds m.mu, which
// also keeps subscriber channels from being closed mid-send.
func (m *Memory) notifyLocked(transactionID string, tx *domain.Transaction) {
	for sub := range m.subs[transactionID] {
		select {
		case sub.ch <- tx.Clone():
		case <-sub.ctx.Done():
		}
	}
}

func (m *Memory) store(ctx context.Context, tx *domain.Transaction, optimistic bool) error {
	m.mu.Lock()
	m.txs[tx.TransactionID] = tx
	m.notifyLocked(tx.TransactionID, tx)
	m.mu.Unlock()

	return m.persist(ctx, tx, optimistic)
}

func (m *Memory) persist(ctx context.Context, tx *domain.Transaction, optimistic bool) error {
	if optimistic || m.persister == nil {
		return nil
	}
	if err := m.persister.SaveTransaction(ctx, tx.Clone()); err != nil {
		return fmt.Errorf("persist transaction %q: %w", tx.TransactionID, err)
	}
	return nil
}

func (m *Memory) mutate(ctx context.Context, transactionID string, optimistic bool, fn mutation) error {
	if _, err := m.Get(ctx, transactionID); err != nil {
		return err
	}

	m.mu.Lock()
	next := m.txs[transactionID].Clone()
	if !fn(next) {
		m.mu.Unlock()
		return nil
	}
	m.txs[transactionID] = next
	m.notifyLocked(transactionID, next)
	m.mu.Unlock()

	return m.persist(ctx, next, optimistic)
}

func (m *Memory) Put(ctx context.Context, tx *domain.Transaction, optimistic bool) error {
	if tx == nil || tx.TransactionID == "" {
		return fmt.Errorf("memory store put: transaction id is required")
	}
	return m.store(ctx, tx.Clone(), optimistic)
}

func (m *Memory) CreateInitialWaypoints(ctx context.Context, transactionID string) error {
	return m.mutate(ctx, transactionID, true, createInitialWaypoints)
}

func (m *Memory) UpdateWaypoints(ctx context.Context, transactionID string, waypoints domain.WaypointSet, optimistic bool) error {
	return m.mutate(ctx, transactionID, optimistic, updateWaypoints(waypoints))
}

func (m *Memory) RemoveWaypoint(ctx context.Context, tx *domain.Transaction, index int, optimistic bool) error {
	return m.mutate(ctx, tx.TransactionID, optimistic, removeWaypoint(tx.Waypoints(), index))
}

func (m *Memory) SetRouteLoading(ctx context.Context, transactionID string) error {
	return m.mutate(ctx, transactionID, true, setRouteLoading)
}

func (m *Memory) SetRoute(ctx context.Context, transactionID string, forWaypoints domain.WaypointSet, route domain.Route, price domain.Pricing) error {
	return m.mutate(ctx, transactionID, true, setRoute(forWaypoints, route, price))
}

func (m *Memory) SetRouteError(ctx context.Context, transactionID string, at time.Time, msg string) error {
	return m.mutate(ctx, transactionID, true, setRouteError(at, msg))
}

func (m *Memory) CreateBackup(ctx context.Context, tx *domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backups[tx.TransactionID] = tx.Clone()
	return nil
}

func (m *Memory) RestoreFromBackup(ctx context.Context, transactionID string) error {
	m.mu.Lock()
	backup, ok := m.backups[transactionID]
	delete(m.backups, transactionID)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("restore %q: %w", transactionID, domain.ErrBackupNotFound)
	}
	log.Debug().Str("transaction_id", transactionID).Msg("restoring transaction from backup")
	return m.store(ctx, backup, true)
}

func (m *Memory) DiscardBackup(ctx context.Context, transactionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.backups, transactionID)
	return nil
}

func (m *Memory) HasBackup(transactionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.backups[transactionID]
	return ok
}

func (m *Memory) GetWalletAdditionalDetails(ctx context.Context) (*domain.WalletAdditionalDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.wallet == nil {
		return &domain.WalletAdditionalDetails{}, nil
	}
	out := *m.wallet
	return &out, nil
}

func (m *Memory) SetWalletAdditionalDetails(ctx context.Context, details *domain.WalletAdditionalDetails) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := *details
	m.wallet = &out
	return nil
}

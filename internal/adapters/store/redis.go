package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"distance-request-service/internal/domain"
	"distance-request-service/internal/platform/obs"
	"distance-request-service/internal/ports"

	"github.com/rs/zerolog/log"
	backend "github.com/redis/go-redis/v9"
)

const maxWatchRetries = 8

// Redis implements the reactive transaction store on Redis.
// Records live under TransactionPrefix+id; every write is published on the
// record's change channel so subscribers receive the new snapshot.
type Redis struct {
	client    *backend.Client
	persister ports.TransactionPersister
	backupTTL time.Duration
}

type Option func(*Redis)

// WithPersister writes non optimistic commands through to durable storage and
// loads records missing from Redis.
func WithPersister(p ports.TransactionPersister) Option {
	return func(r *Redis) {
		r.persister = p
	}
}

// WithBackupTTL expires abandoned edit backups.
func WithBackupTTL(ttl time.Duration) Option {
	return func(r *Redis) {
		r.backupTTL = ttl
	}
}

func NewRedis(client *backend.Client, opts ...Option) *Redis {
	r := &Redis{client: client}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func txKey(id string) string     { return TransactionPrefix + id }
func backupKey(id string) string { return BackupPrefix + id }
func channel(key string) string  { return "changes:" + key }

func decode(b []byte) (*domain.Transaction, error) {
	var tx domain.Transaction
	if err := json.Unmarshal(b, &tx); err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	return &tx, nil
}

func (r *Redis) Get(ctx context.Context, transactionID string) (_ *domain.Transaction, err error) {
	defer obs.Time(ctx, "store.Get")(&err)

	b, err := r.client.Get(ctx, txKey(transactionID)).Bytes()
	if err == nil {
		return decode(b)
	}
	if !errors.Is(err, backend.Nil) {
		return nil, fmt.Errorf("redis get %q: %w", transactionID, err)
	}

	if r.persister == nil {
		return nil, fmt.Errorf("redis get %q: %w", transactionID, domain.ErrTransactionNotFound)
	}

	loaded, err := r.persister.LoadTransaction(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("redis get %q: %w", transactionID, err)
	}

	data, err := json.Marshal(loaded)
	if err != nil {
		return nil, fmt.Errorf("redis get %q: encode: %w", transactionID, err)
	}
	// Another writer may have cached a newer copy meanwhile; keep theirs.
	if err := r.client.SetNX(ctx, txKey(transactionID), data, 0).Err(); err != nil {
		return nil, fmt.Errorf("redis get %q: cache loaded record: %w", transactionID, err)
	}

	b, err = r.client.Get(ctx, txKey(transactionID)).Bytes()
	if err != nil {
		return nil, fmt.Errorf("redis get %q: %w", transactionID, err)
	}
	return decode(b)
}

func (r *Redis) Subscribe(ctx context.Context, transactionID string) (<-chan *domain.Transaction, error) {
	ps := r.client.Subscribe(ctx, channel(txKey(transactionID)))
	// Wait for the subscription to be confirmed so no later write is missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis subscribe %q: %w", transactionID, err)
	}

	msgs := ps.Channel()
	out := make(chan *domain.Transaction, 16)

	go func() {
		defer close(out)
		defer ps.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				tx, err := decode([]byte(msg.Payload))
				if err != nil {
					log.Warn().Err(err).Str("channel", msg.Channel).Msg("dropping malformed change notification")
					continue
				}
				select {
				case out <- tx:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func (r *Redis) persist(ctx context.Context, tx *domain.Transaction, optimistic bool) error {
	if optimistic || r.persister == nil {
		return nil
	}
	if err := r.persister.SaveTransaction(ctx, tx); err != nil {
		return fmt.Errorf("persist transaction %q: %w", tx.TransactionID, err)
	}
	return nil
}

// mutate applies fn to the stored record under optimistic locking (WATCH/MULTI),
// retrying when a concurrent writer got in first.
func (r *Redis) mutate(ctx context.Context, transactionID string, optimistic bool, fn mutation) (err error) {
	defer obs.Time(ctx, "store.mutate")(&err)

	if _, err := r.Get(ctx, transactionID); err != nil {
		return err
	}

	key := txKey(transactionID)
	var written *domain.Transaction

	txf := func(rtx *backend.Tx) error {
		written = nil

		b, err := rtx.Get(ctx, key).Bytes()
		if errors.Is(err, backend.Nil) {
			return fmt.Errorf("mutate %q: %w", transactionID, domain.ErrTransactionNotFound)
		}
		if err != nil {
			return fmt.Errorf("mutate %q: read: %w", transactionID, err)
		}

		tx, err := decode(b)
		if err != nil {
			return err
		}
		if !fn(tx) {
			return nil
		}

		data, err := json.Marshal(tx)
		if err != nil {
			return fmt.Errorf("mutate %q: encode: %w", transactionID, err)
		}

		_, err = rtx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.Publish(ctx, channel(key), data)
			return nil
		})
		if err != nil {
			return err
		}
		written = tx
		return nil
	}

	for attempt := 1; attempt <= maxWatchRetries; attempt++ {
		err = r.client.Watch(ctx, txf, key)
		if !errors.Is(err, backend.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("redis mutate %q: %w", transactionID, err)
	}

	if written == nil {
		return nil
	}
	return r.persist(ctx, written, optimistic)
}

func (r *Redis) write(ctx context.Context, tx *domain.Transaction) error {
	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("encode transaction %q: %w", tx.TransactionID, err)
	}

	key := txKey(tx.TransactionID)
	_, err = r.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.Set(ctx, key, data, 0)
		pipe.Publish(ctx, channel(key), data)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis write %q: %w", tx.TransactionID, err)
	}
	return nil
}

func (r *Redis) Put(ctx context.Context, tx *domain.Transaction, optimistic bool) error {
	if tx == nil || tx.TransactionID == "" {
		return errors.New("redis put: transaction id is required")
	}
	if err := r.write(ctx, tx); err != nil {
		return err
	}
	return r.persist(ctx, tx, optimistic)
}

func (r *Redis) CreateInitialWaypoints(ctx context.Context, transactionID string) error {
	return r.mutate(ctx, transactionID, true, createInitialWaypoints)
}

func (r *Redis) UpdateWaypoints(ctx context.Context, transactionID string, waypoints domain.WaypointSet, optimistic bool) error {
	return r.mutate(ctx, transactionID, optimistic, updateWaypoints(waypoints))
}

func (r *Redis) RemoveWaypoint(ctx context.Context, tx *domain.Transaction, index int, optimistic bool) error {
	return r.mutate(ctx, tx.TransactionID, optimistic, removeWaypoint(tx.Waypoints(), index))
}

func (r *Redis) SetRouteLoading(ctx context.Context, transactionID string) error {
	return r.mutate(ctx, transactionID, true, setRouteLoading)
}

func (r *Redis) SetRoute(ctx context.Context, transactionID string, forWaypoints domain.WaypointSet, route domain.Route, price domain.Pricing) error {
	return r.mutate(ctx, transactionID, true, setRoute(forWaypoints, route, price))
}

func (r *Redis) SetRouteError(ctx context.Context, transactionID string, at time.Time, msg string) error {
	return r.mutate(ctx, transactionID, true, setRouteError(at, msg))
}

func (r *Redis) CreateBackup(ctx context.Context, tx *domain.Transaction) error {
	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("create backup %q: encode: %w", tx.TransactionID, err)
	}
	if err := r.client.Set(ctx, backupKey(tx.TransactionID), data, r.backupTTL).Err(); err != nil {
		return fmt.Errorf("create backup %q: %w", tx.TransactionID, err)
	}
	return nil
}

func (r *Redis) RestoreFromBackup(ctx context.Context, transactionID string) error {
	bkey, key := backupKey(transactionID), txKey(transactionID)

	txf := func(rtx *backend.Tx) error {
		data, err := rtx.Get(ctx, bkey).Bytes()
		if errors.Is(err, backend.Nil) {
			return domain.ErrBackupNotFound
		}
		if err != nil {
			return err
		}

		_, err = rtx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.Del(ctx, bkey)
			pipe.Publish(ctx, channel(key), data)
			return nil
		})
		return err
	}

	var err error
	for attempt := 1; attempt <= maxWatchRetries; attempt++ {
		err = r.client.Watch(ctx, txf, bkey)
		if !errors.Is(err, backend.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("restore %q: %w", transactionID, err)
	}
	return nil
}

func (r *Redis) DiscardBackup(ctx context.Context, transactionID string) error {
	if err := r.client.Del(ctx, backupKey(transactionID)).Err(); err != nil {
		return fmt.Errorf("discard backup %q: %w", transactionID, err)
	}
	return nil
}

func (r *Redis) GetWalletAdditionalDetails(ctx context.Context) (*domain.WalletAdditionalDetails, error) {
	b, err := r.client.Get(ctx, WalletDetailsKey).Bytes()
	if errors.Is(err, backend.Nil) {
		return &domain.WalletAdditionalDetails{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get wallet details: %w", err)
	}

	var out domain.WalletAdditionalDetails
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("get wallet details: decode: %w", err)
	}
	return &out, nil
}

func (r *Redis) SetWalletAdditionalDetails(ctx context.Context, details *domain.WalletAdditionalDetails) error {
	data, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("set wallet details: encode: %w", err)
	}
	if err := r.client.Set(ctx, WalletDetailsKey, data, 0).Err(); err != nil {
		return fmt.Errorf("set wallet details: %w", err)
	}
	return nil
}

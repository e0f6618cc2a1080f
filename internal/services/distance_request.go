package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"distance-request-service/internal/domain"
	"distance-request-service/internal/i18n"
	"distance-request-service/internal/platform/obs"
	"distance-request-service/internal/ports"
	"distance-request-service/internal/routes"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

// SubmitFunc receives the confirmed (never optimistic) waypoints of an accepted submit.
type SubmitFunc func(ctx context.Context, tx *domain.Transaction, waypoints domain.WaypointSet) error

type DistanceRequestConfig struct {
	TransactionID string
	ReportID      string
	IOUType       string
	Mode          Mode
	BackTo        string
	Offline       bool

	Store      ports.TransactionStore
	Backups    ports.BackupStore
	Routes     ports.RouteService
	Token      ports.TokenLifecycle
	Navigator  ports.Navigator
	Translator ports.Translator
	OnSubmit   SubmitFunc
}

func (c DistanceRequestConfig) validate() error {
	switch {
	case c.TransactionID == "":
		return errors.New("transaction id is required")
	case c.Mode != ModeCreate && c.Mode != ModeEdit:
		return fmt.Errorf("unknown mode %q", c.Mode)
	case c.Store == nil || c.Routes == nil || c.Navigator == nil || c.Translator == nil || c.OnSubmit == nil:
		return errors.New("store, routes, navigator, translator and submit callback are required")
	case c.Mode == ModeEdit && c.Backups == nil:
		return errors.New("backup store is required in edit mode")
	}
	return nil
}

// DistanceRequest is an open distance expense form bound to one transaction.
//
// It mirrors the transaction through a store subscription, fetches routes when
// the waypoints call for it, applies drag reorders optimistically, and guards
// submission. Close ends the session; it must be called exactly like an unmount.
type DistanceRequest struct {
	cfg  DistanceRequestConfig
	base context.Context

	offline atomic.Bool

	mu            sync.Mutex
	tx            *domain.Transaction
	optimistic    domain.WaypointSet
	overlayGen    uint64
	lastWaypoints domain.WaypointSet
	hasError      bool
	trigger       RouteTrigger
	closed        bool

	edit *EditSession

	cancel    context.CancelFunc
	pending   sync.WaitGroup
	done      chan struct{}
	closeOnce sync.Once
}

// OpenDistanceRequest subscribes to the transaction, creates its initial waypoints
// when it has none, acquires the map token and, in edit mode, backs it up.
func OpenDistanceRequest(ctx context.Context, cfg DistanceRequestConfig) (*DistanceRequest, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("open distance request: %w", err)
	}

	base := context.WithoutCancel(ctx)
	subCtx, cancel := context.WithCancel(base)

	updates, err := cfg.Store.Subscribe(subCtx, cfg.TransactionID)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open distance request: subscribe: %w", err)
	}

	tx, err := cfg.Store.Get(ctx, cfg.TransactionID)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open distance request: %w", err)
	}

	if len(tx.Waypoints()) == 0 {
		if err := cfg.Store.CreateInitialWaypoints(ctx, cfg.TransactionID); err != nil {
			cancel()
			return nil, fmt.Errorf("open distance request: create initial waypoints: %w", err)
		}
		if tx, err = cfg.Store.Get(ctx, cfg.TransactionID); err != nil {
			cancel()
			return nil, fmt.Errorf("open distance request: %w", err)
		}
	}

	d := &DistanceRequest{
		cfg:    cfg,
		base:   base,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	d.offline.Store(cfg.Offline)

	if cfg.Mode == ModeEdit {
		d.edit = NewEditSession(cfg.Backups, cfg.TransactionID)
		if err := d.edit.Begin(ctx, tx); err != nil {
			cancel()
			return nil, fmt.Errorf("open distance request: %w", err)
		}
	}

	if cfg.Token != nil {
		if err := cfg.Token.Init(ctx); err != nil {
			log.Warn().Err(err).Str("transaction_id", cfg.TransactionID).Msg("map token init failed")
		}
	}

	d.mu.Lock()
	d.tx = tx
	d.lastWaypoints = d.waypointsLocked().Clone()
	d.refreshLocked()
	d.mu.Unlock()

	go d.listen(updates)

	obs.OpenSessions.Inc()
	return d, nil
}

func (d *DistanceRequest) listen(updates <-chan *domain.Transaction) {
	defer close(d.done)

	for tx := range updates {
		d.mu.Lock()
		if !d.closed {
			d.tx = tx
			d.refreshLocked()
		}
		d.mu.Unlock()
	}
}

// waypointsLocked returns the effective waypoints: the optimistic overlay when set.
func (d *DistanceRequest) waypointsLocked() domain.WaypointSet {
	if d.optimistic != nil {
		return d.optimistic
	}
	if w := d.tx.Waypoints(); len(w) > 0 {
		return w
	}
	return domain.WaypointSet{{}, {}}
}

// refreshLocked re-derives state after any change of the transaction or overlay.
func (d *DistanceRequest) refreshLocked() {
	waypoints := d.waypointsLocked()
	if !waypoints.Equal(d.lastWaypoints) {
		d.hasError = false
		d.lastWaypoints = waypoints.Clone()
	}

	valid, fire := d.trigger.Evaluate(d.tx, waypoints, d.offline.Load())
	if !fire {
		return
	}

	id := d.cfg.TransactionID
	d.pending.Add(1)
	go func() {
		defer d.pending.Done()
		if err := d.cfg.Routes.GetRoute(d.base, id, valid); err != nil {
			log.Warn().Err(err).Str("transaction_id", id).Msg("route fetch failed")
		}
	}()
}

// SetOffline updates connectivity; coming back online may trigger a route fetch.
func (d *DistanceRequest) SetOffline(offline bool) {
	if d.offline.Swap(offline) == offline {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		d.refreshLocked()
	}
}

// Reorder applies a drag result: order lists the previous slot keys in their new order.
//
// The new order is shown immediately through the optimistic overlay. The removal of
// an emptied slot and the full waypoint update are then issued concurrently, and the
// overlay is dropped once both have settled. Command failures are only logged; the
// view falls back to whatever the store holds.
func (d *DistanceRequest) Reorder(order []string) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return domain.ErrSessionClosed
	}

	res, err := ReorderWaypoints(d.waypointsLocked(), order)
	if err != nil || !res.Changed {
		d.mu.Unlock()
		return err
	}

	d.overlayGen++
	gen := d.overlayGen
	d.optimistic = res.Waypoints
	snapshot := d.tx.Clone()
	d.refreshLocked()
	d.mu.Unlock()

	id := d.cfg.TransactionID
	d.pending.Add(1)
	go func() {
		defer d.pending.Done()

		var g errgroup.Group
		g.Go(func() error {
			if res.EmptiedIndex < 0 {
				return nil
			}
			return d.cfg.Store.RemoveWaypoint(d.base, snapshot, res.EmptiedIndex, true)
		})
		g.Go(func() error {
			return d.cfg.Store.UpdateWaypoints(d.base, id, res.Waypoints, true)
		})
		if err := g.Wait(); err != nil {
			log.Warn().Err(err).Str("transaction_id", id).Msg("reorder waypoints failed")
		}

		d.mu.Lock()
		defer d.mu.Unlock()
		if d.closed || d.overlayGen != gen {
			return
		}
		d.optimistic = nil
		d.refreshLocked()
	}()

	return nil
}

// SetWaypoint stores w at index; index == len(waypoints) appends a stop.
func (d *DistanceRequest) SetWaypoint(ctx context.Context, index int, w domain.Waypoint) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return domain.ErrSessionClosed
	}
	current := d.tx.Waypoints()
	if len(current) == 0 {
		current = d.waypointsLocked()
	}
	if index < len(current) && w.KeyForList == "" {
		w.KeyForList = current[index].KeyForList
	}
	next, err := current.With(index, w)
	d.mu.Unlock()
	if err != nil {
		return fmt.Errorf("set waypoint: %w", err)
	}

	return d.cfg.Store.UpdateWaypoints(ctx, d.cfg.TransactionID, next, true)
}

func (d *DistanceRequest) RemoveWaypoint(ctx context.Context, index int) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return domain.ErrSessionClosed
	}
	snapshot := d.tx.Clone()
	d.mu.Unlock()

	if index < 0 || index >= len(snapshot.Waypoints()) {
		return fmt.Errorf("remove waypoint: %w", domain.ErrWaypointIndex)
	}
	return d.cfg.Store.RemoveWaypoint(ctx, snapshot, index, true)
}

// Submit validates the waypoints and hands them to the submit callback.
//
// Submission is blocked while fewer than two valid waypoints exist, after a failed
// route computation, or while a route or the transaction is still loading online.
// A blocked submit raises the error flag until the waypoints change.
func (d *DistanceRequest) Submit(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return domain.ErrSessionClosed
	}

	valid := d.waypointsLocked().Valid()
	offline := d.offline.Load()
	if len(valid) < 2 || d.tx.HasRouteError() || d.tx.IsLoadingRoute() || (d.tx.IsLoading && !offline) {
		d.hasError = true
		d.mu.Unlock()
		obs.Submissions.WithLabelValues("blocked").Inc()
		return domain.ErrSubmitBlocked
	}

	if d.edit != nil {
		d.edit.MarkSaved()
	}
	tx := d.tx.Clone()
	d.mu.Unlock()

	if err := d.cfg.OnSubmit(ctx, tx, tx.Waypoints()); err != nil {
		obs.Submissions.WithLabelValues("error").Inc()
		return fmt.Errorf("submit distance request %q: %w", d.cfg.TransactionID, err)
	}
	obs.Submissions.WithLabelValues("ok").Inc()

	if d.cfg.Mode == ModeEdit {
		d.cfg.Navigator.GoBack(d.backRoute())
		return nil
	}
	d.cfg.Navigator.Navigate(routes.Confirmation(d.cfg.IOUType, d.cfg.TransactionID, d.cfg.ReportID))
	return nil
}

// Errors projects the message to show under the waypoint list, or nil.
func (d *DistanceRequest) Errors() map[int64]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.errorsLocked()
}

func (d *DistanceRequest) errorsLocked() map[int64]string {
	if d.tx.HasRouteError() {
		return d.tx.ErrorFields.Latest(domain.ErrorFieldRoute)
	}
	if len(d.waypointsLocked().Valid()) < 2 {
		return map[int64]string{0: d.cfg.Translator.Translate(i18n.KeyAtLeastTwoDifferentWaypoints)}
	}
	return nil
}

func (d *DistanceRequest) HasError() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hasError
}

// EditWaypoint opens the edit page of the waypoint at index.
func (d *DistanceRequest) EditWaypoint(index int) error {
	d.mu.Lock()
	n := len(d.waypointsLocked())
	d.mu.Unlock()

	if index < 0 || index >= n {
		return fmt.Errorf("edit waypoint: %w", domain.ErrWaypointIndex)
	}
	d.cfg.Navigator.Navigate(routes.Waypoint(d.cfg.IOUType, d.cfg.TransactionID, d.cfg.ReportID, index))
	return nil
}

// AddStop opens the edit page of a new waypoint appended after the last one.
func (d *DistanceRequest) AddStop() error {
	d.mu.Lock()
	n := len(d.tx.Waypoints())
	d.mu.Unlock()

	if n >= domain.MaxWaypoints {
		return domain.ErrTooManyWaypoints
	}
	d.cfg.Navigator.Navigate(routes.Waypoint(d.cfg.IOUType, d.cfg.TransactionID, d.cfg.ReportID, n))
	return nil
}

func (d *DistanceRequest) Back() {
	d.cfg.Navigator.GoBack(d.backRoute())
}

func (d *DistanceRequest) backRoute() string {
	if d.cfg.BackTo != "" {
		return d.cfg.BackTo
	}
	return routes.Home
}

// View is a consistent snapshot of what the form shows.
type View struct {
	TransactionID     string
	Mode              Mode
	Waypoints         domain.WaypointSet
	ValidCount        int
	Route             *domain.Route
	Amount            string
	Merchant          string
	Errors            map[int64]string
	HasError          bool
	IsLoadingRoute    bool
	IsLoading         bool
	ShouldShowLoading bool
	Optimistic        bool
	Offline           bool
	CanAddStop        bool
	EditState         string
}

func (d *DistanceRequest) View() View {
	d.mu.Lock()
	defer d.mu.Unlock()

	waypoints := d.waypointsLocked().Clone()
	offline := d.offline.Load()
	v := View{
		TransactionID:     d.cfg.TransactionID,
		Mode:              d.cfg.Mode,
		Waypoints:         waypoints,
		ValidCount:        len(waypoints.Valid()),
		Amount:            d.tx.Amount.StringFixed(2),
		Merchant:          d.tx.Merchant,
		Errors:            d.errorsLocked(),
		HasError:          d.hasError,
		IsLoadingRoute:    d.tx.IsLoadingRoute(),
		IsLoading:         d.tx.IsLoading,
		ShouldShowLoading: d.tx.IsLoadingRoute() && !offline,
		Optimistic:        d.optimistic != nil,
		Offline:           offline,
		CanAddStop:        len(d.tx.Waypoints()) < domain.MaxWaypoints,
	}
	if d.tx.Route != nil {
		r := *d.tx.Route
		v.Route = &r
	}
	if d.edit != nil {
		v.EditState = d.edit.State().String()
	}
	return v
}

// Close ends the session: it stops the subscription, settles the edit backup and
// releases the map token. Commands already in flight are not cancelled.
func (d *DistanceRequest) Close(ctx context.Context) error {
	var err error
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()

		d.cancel()
		<-d.done

		if d.edit != nil {
			state, eerr := d.edit.End(ctx)
			err = eerr
			log.Debug().Str("transaction_id", d.cfg.TransactionID).Stringer("edit", state).Msg("edit settled")
		}
		if d.cfg.Token != nil {
			d.cfg.Token.Stop()
		}
		obs.OpenSessions.Dec()
	})
	return err
}

// Wait blocks until every command started by the session has settled.
func (d *DistanceRequest) Wait() { d.pending.Wait() }

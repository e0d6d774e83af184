package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/beacon-outage-service/internal/changefeed"
	"github.com/couchcryptid/beacon-outage-service/internal/domain"
	"github.com/couchcryptid/beacon-outage-service/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// ErrUnknownView is returned for a view name the pipeline does not keep.
var ErrUnknownView = errors.New("unknown view")

// RecordFetcher reads the announcements matching a view's criteria.
type RecordFetcher interface {
	FetchRecords(ctx context.Context, c domain.Criteria) ([]domain.OutageRecord, error)
}

// Transformer post-processes freshly fetched records of a view.
type Transformer interface {
	Transform(ctx context.Context, view domain.ViewKind, records []domain.OutageRecord) []domain.OutageRecord
}

// ChangeFeed opens realtime subscriptions to backend table changes.
type ChangeFeed interface {
	Subscribe(ctx context.Context, name string, tables []string) (changefeed.Subscription, error)
}

// LoadState is the terminal state of a view load.
type LoadState string

const (
	StateIdle    LoadState = "idle"
	StateLoaded  LoadState = "loaded"
	StateErrored LoadState = "errored"
)

// Snapshot is an immutable fetch result for one view. Consumers derive from
// Records and must not modify them.
type Snapshot struct {
	View       domain.ViewKind
	Generation uint64
	State      LoadState
	Records    []domain.OutageRecord
	Err        error
	LoadedAt   time.Time
}

// viewState is the per-view state owned by a Pipeline.
type viewState struct {
	criteria domain.Criteria
	// kick holds at most one pending reload.
	kick chan struct{}

	mu       sync.Mutex
	issued   uint64
	current  Snapshot
	watchers map[uint64]chan Snapshot
}

// Pipeline keeps a snapshot of every view and reloads it whenever the change
// feed reports a relevant table change.
type Pipeline struct {
	fetcher     RecordFetcher
	transformer Transformer
	subs        *Subscriptions
	views       map[domain.ViewKind]*viewState
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	watchSeq    atomic.Uint64
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithCriteria overrides the fetch criteria of a view.
func WithCriteria(view domain.ViewKind, c domain.Criteria) Option {
	return func(p *Pipeline) {
		if vs, ok := p.views[view]; ok {
			vs.criteria = c
		}
	}
}

// New creates a Pipeline. A nil transformer keeps records as fetched; a nil
// feed disables realtime reloads.
func New(fetcher RecordFetcher, transformer Transformer, feed ChangeFeed, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		fetcher:     fetcher,
		transformer: transformer,
		views:       make(map[domain.ViewKind]*viewState),
		logger:      logger,
		metrics:     metrics,
	}
	if feed != nil {
		p.subs = NewSubscriptions(feed, metrics, logger)
	}
	for _, v := range domain.ViewKinds() {
		p.views[v] = &viewState{
			criteria: domain.DefaultCriteria(v),
			kick:     make(chan struct{}, 1),
			current:  Snapshot{View: v, State: StateIdle},
			watchers: make(map[uint64]chan Snapshot),
		}
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CheckReadiness returns nil once any view has loaded successfully.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no view has loaded yet")
	}
	return nil
}

// Subscriptions exposes the realtime subscriptions, or nil without a feed.
func (p *Pipeline) Subscriptions() *Subscriptions {
	return p.subs
}

// Load fetches a view and applies the result. It always leaves the view
// loaded or errored and returns the view's current snapshot, which is newer
// than this load's result when a later load finished first.
func (p *Pipeline) Load(ctx context.Context, view domain.ViewKind) Snapshot {
	vs, ok := p.views[view]
	if !ok {
		return Snapshot{View: view, State: StateErrored, Err: ErrUnknownView}
	}

	vs.mu.Lock()
	vs.issued++
	gen := vs.issued
	criteria := vs.criteria
	vs.mu.Unlock()

	start := time.Now()
	records, err := p.fetcher.FetchRecords(ctx, criteria)
	if err != nil && ctx.Err() != nil {
		// Cancelled, not failed: keep whatever is there.
		return p.Current(view)
	}

	snap := Snapshot{View: view, Generation: gen, LoadedAt: domain.Now()}
	if err != nil {
		snap.State = StateErrored
		snap.Err = fmt.Errorf("load %s: %w", view, err)
		p.logger.Error("view load failed", "view", view, "generation", gen, "error", err)
	} else {
		if p.transformer != nil {
			records = p.transformer.Transform(ctx, view, records)
		}
		if records == nil {
			records = []domain.OutageRecord{}
		}
		snap.State = StateLoaded
		snap.Records = records
	}
	p.metrics.ViewLoadDuration.WithLabelValues(string(view)).Observe(time.Since(start).Seconds())

	current, applied := p.apply(vs, snap)
	switch {
	case !applied:
		p.metrics.ViewLoads.WithLabelValues(string(view), "stale").Inc()
		p.logger.Debug("stale view load discarded", "view", view, "generation", gen, "current", current.Generation)
	case snap.State == StateLoaded:
		p.metrics.ViewLoads.WithLabelValues(string(view), string(StateLoaded)).Inc()
		p.metrics.SnapshotRecords.WithLabelValues(string(view)).Set(float64(len(snap.Records)))
		p.ready.Store(true)
		p.logger.Debug("view loaded", "view", view, "generation", gen, "records", len(snap.Records))
	default:
		p.metrics.ViewLoads.WithLabelValues(string(view), string(StateErrored)).Inc()
	}
	return current
}

// apply installs snap unless a newer generation is already current, then
// hands it to every watcher.
func (p *Pipeline) apply(vs *viewState, snap Snapshot) (Snapshot, bool) {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	if snap.Generation <= vs.current.Generation {
		return vs.current, false
	}
	vs.current = snap
	for _, ch := range vs.watchers {
		offer(ch, snap)
	}
	return snap, true
}

// offer replaces any undelivered snapshot in ch with snap.
func offer(ch chan Snapshot, snap Snapshot) {
	select {
	case <-ch:
	default:
	}
	ch <- snap
}

// Current returns the latest applied snapshot of a view without loading.
func (p *Pipeline) Current(view domain.ViewKind) Snapshot {
	vs, ok := p.views[view]
	if !ok {
		return Snapshot{View: view, State: StateErrored, Err: ErrUnknownView}
	}
	vs.mu.Lock()
	defer vs.mu.Unlock()
	return vs.current
}

// Snapshot returns the current snapshot of a view, loading it first when it
// has never loaded or the last load failed.
func (p *Pipeline) Snapshot(ctx context.Context, view domain.ViewKind) Snapshot {
	snap := p.Current(view)
	if errors.Is(snap.Err, ErrUnknownView) || snap.State == StateLoaded {
		return snap
	}
	return p.Load(ctx, view)
}

// Trigger queues a reload of a view. Triggers arriving while a reload is
// already pending collapse into it.
func (p *Pipeline) Trigger(view domain.ViewKind) {
	vs, ok := p.views[view]
	if !ok {
		return
	}
	select {
	case vs.kick <- struct{}{}:
	default:
	}
}

// Watch streams every snapshot applied to a view, starting with the current
// one if the view has loaded. Delivery is latest-wins and never blocks the
// loader. The channel is not closed; call cancel when done.
func (p *Pipeline) Watch(view domain.ViewKind) (<-chan Snapshot, func(), error) {
	vs, ok := p.views[view]
	if !ok {
		return nil, nil, ErrUnknownView
	}
	id := p.watchSeq.Add(1)
	ch := make(chan Snapshot, 1)

	vs.mu.Lock()
	vs.watchers[id] = ch
	if vs.current.State != StateIdle {
		ch <- vs.current
	}
	vs.mu.Unlock()
	p.metrics.StreamClients.Inc()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			vs.mu.Lock()
			delete(vs.watchers, id)
			vs.mu.Unlock()
			p.metrics.StreamClients.Dec()
		})
	}
	return ch, cancel, nil
}

// Run loads every view and keeps it fresh until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "views", len(p.views), "realtime", p.subs != nil)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	var wg sync.WaitGroup
	for _, v := range domain.ViewKinds() {
		p.Trigger(v)
		wg.Add(2)
		go func() {
			defer wg.Done()
			p.reloadLoop(ctx, v)
		}()
		go func() {
			defer wg.Done()
			p.followChanges(ctx, v)
		}()
	}
	wg.Wait()

	if p.subs != nil {
		p.subs.ReleaseAll()
	}
	p.logger.Info("pipeline stopping", "reason", ctx.Err())
	return nil
}

func (p *Pipeline) reloadLoop(ctx context.Context, view domain.ViewKind) {
	vs := p.views[view]
	for {
		select {
		case <-ctx.Done():
			return
		case <-vs.kick:
			p.Load(ctx, view)
		}
	}
}

// followChanges keeps one subscription open for a view, resubscribing with
// exponential backoff after failures.
func (p *Pipeline) followChanges(ctx context.Context, view domain.ViewKind) {
	if p.subs == nil {
		return
	}
	backoff := initialBackoff
	resubscribe := false

	for ctx.Err() == nil {
		sub, err := p.subs.Subscribe(ctx, view)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Error("subscribe failed", "view", view, "error", err, "retry_in", backoff)
			p.metrics.SubscriptionFailures.WithLabelValues(string(view)).Inc()
			if !backoffOrStop(ctx, &backoff) {
				return
			}
			continue
		}
		if resubscribe {
			// Changes may have been missed while unsubscribed.
			p.Trigger(view)
		}

		delivered, err := p.consume(ctx, view, sub)
		if err == nil {
			// Cancelled or released.
			return
		}
		p.logger.Error("subscription failed", "view", view, "error", err, "retry_in", backoff)
		p.metrics.SubscriptionFailures.WithLabelValues(string(view)).Inc()
		p.subs.clearFailed(view, sub)
		resubscribe = true

		if delivered {
			backoff = initialBackoff
		}
		if !backoffOrStop(ctx, &backoff) {
			return
		}
	}
}

// consume turns change events into reload triggers until the subscription
// ends. It returns the subscription's error, nil when it was released or ctx
// ended, and whether any change was delivered.
func (p *Pipeline) consume(ctx context.Context, view domain.ViewKind, sub changefeed.Subscription) (bool, error) {
	delivered := false
	for {
		select {
		case <-ctx.Done():
			return delivered, nil
		case <-sub.Done():
			return delivered, sub.Err()
		case ev := <-sub.Changes():
			delivered = true
			p.metrics.ChangeEvents.WithLabelValues(string(view)).Inc()
			p.logger.Debug("change received", "view", view, "table", ev.Table, "type", ev.Op, "id", ev.RecordID)
			p.Trigger(view)
		}
	}
}

// backoffOrStop sleeps for the current backoff and advances it. Returns false
// if the context ended first.
func backoffOrStop(ctx context.Context, backoff *time.Duration) bool {
	if !retry.SleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = retry.NextBackoff(*backoff, maxBackoff)
	return true
}

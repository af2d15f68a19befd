package coordinator

import (
	"context"
	"maps"
	"sync"
	"time"

	"go.uber.org/zap"

	"composer/internal/domain"
	"composer/internal/infra/telemetry"
)

// FetchFunc fetches the payload behind one locator.
type FetchFunc[P any] func(ctx context.Context, locator string) (P, error)

// State is a consistent copy of the coordinator maps taken after a pass.
type State[P any] struct {
	Kind     domain.SourceKind
	Revision uint64
	Statuses map[string]domain.FetchStatus
	Errors   map[string]error
	Values   map[string]P
}

// Pending returns the number of ids whose fetch has not settled.
func (s State[P]) Pending() int {
	count := 0
	for _, status := range s.Statuses {
		if !status.Terminal() {
			count++
		}
	}
	return count
}

// Coordinator keeps at most one fetch per source id and the last settled
// outcome for every id in the current source set.
type Coordinator[P any] struct {
	kind    domain.SourceKind
	fetch   FetchFunc[P]
	logger  *zap.Logger
	metrics domain.Metrics
	baseCtx context.Context

	mu       sync.Mutex
	locators map[string]string
	futures  map[string]*future[P]
	// stale holds ids invalidated while their fetch was in flight.
	stale    map[string]struct{}
	statuses map[string]domain.FetchStatus
	errors   map[string]error
	values   map[string]P
	revision uint64

	subsMu sync.Mutex
	subs   map[chan State[P]]struct{}
}

// Option configures a coordinator.
type Option[P any] func(*Coordinator[P])

// WithLogger sets the coordinator logger.
func WithLogger[P any](logger *zap.Logger) Option[P] {
	return func(c *Coordinator[P]) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics[P any](metrics domain.Metrics) Option[P] {
	return func(c *Coordinator[P]) {
		if metrics != nil {
			c.metrics = metrics
		}
	}
}

// New creates a coordinator. Fetches run under ctx; cancelling it aborts
// every fetch still in flight.
func New[P any](ctx context.Context, kind domain.SourceKind, fetch FetchFunc[P], opts ...Option[P]) *Coordinator[P] {
	if ctx == nil {
		ctx = context.Background()
	}
	c := &Coordinator[P]{
		kind:     kind,
		fetch:    fetch,
		logger:   zap.NewNop(),
		metrics:  domain.NoopMetrics{},
		baseCtx:  ctx,
		locators: make(map[string]string),
		futures:  make(map[string]*future[P]),
		stale:    make(map[string]struct{}),
		statuses: make(map[string]domain.FetchStatus),
		errors:   make(map[string]error),
		values:   make(map[string]P),
		subs:     make(map[chan State[P]]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("coordinator").With(telemetry.SourceKindField(kind))
	return c
}

// Kind returns the source kind this coordinator serves.
func (c *Coordinator[P]) Kind() domain.SourceKind {
	return c.kind
}

// Reconcile brings the coordinator in line with the current source set.
// Entries for ids missing from locators are purged from every map. Ids
// without a cached fetch get one started; cached fetches are inspected
// without blocking and never restarted.
func (c *Coordinator[P]) Reconcile(locators map[string]string) {
	c.mu.Lock()
	c.locators = maps.Clone(locators)
	if c.locators == nil {
		c.locators = make(map[string]string)
	}
	for id := range c.futures {
		if _, ok := c.locators[id]; !ok {
			delete(c.futures, id)
			delete(c.stale, id)
		}
	}
	for id, locator := range c.locators {
		if _, ok := c.futures[id]; !ok {
			c.futures[id] = c.startLocked(id, locator)
		}
	}
	c.publish(c.passLocked())
	c.mu.Unlock()
}

// Invalidate drops the cached fetch for id so the next Reconcile issues a
// fresh one. The last settled value stays visible until then. A fetch still
// in flight is not duplicated: it is marked stale and fetched again as soon
// as it settles.
func (c *Coordinator[P]) Invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.futures[id]
	if !ok {
		return
	}
	if f.settled() {
		delete(c.futures, id)
		return
	}
	c.stale[id] = struct{}{}
}

// Locators returns a copy of the current source set.
func (c *Coordinator[P]) Locators() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.locators)
}

// Snapshot returns a copy of the coordinator maps.
func (c *Coordinator[P]) Snapshot() State[P] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// Watch subscribes to the state published after every pass. Slow
// subscribers only see the latest state. The subscription ends when ctx or
// the coordinator context is done; a nil ctx follows the coordinator alone.
func (c *Coordinator[P]) Watch(ctx context.Context) <-chan State[P] {
	if ctx == nil {
		ctx = c.baseCtx
	}
	ch := make(chan State[P], 1)
	c.subsMu.Lock()
	c.subs[ch] = struct{}{}
	c.subsMu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-c.baseCtx.Done():
		}
		c.subsMu.Lock()
		delete(c.subs, ch)
		c.subsMu.Unlock()
	}()
	return ch
}

func (c *Coordinator[P]) startLocked(id, locator string) *future[P] {
	f := newFuture[P]()
	c.statuses[id] = domain.FetchStatusPending
	c.logger.Debug("source fetch started", telemetry.SourceIDField(id), telemetry.LocatorField(locator))

	go func() {
		started := time.Now()
		value, err := c.fetch(c.baseCtx, locator)
		f.settle(value, err)
		c.onSettled(id, f, time.Since(started))
	}()
	return f
}

func (c *Coordinator[P]) onSettled(id string, f *future[P], duration time.Duration) {
	c.mu.Lock()
	if c.futures[id] != f {
		c.mu.Unlock()
		c.metrics.ObserveSourceFetch(c.kind, domain.FetchResultDiscarded, duration)
		c.logger.Debug("discarding completion for removed source", telemetry.SourceIDField(id))
		return
	}
	if _, ok := c.stale[id]; ok {
		delete(c.stale, id)
		c.futures[id] = c.startLocked(id, c.locators[id])
		c.publish(c.passLocked())
		c.mu.Unlock()
		c.metrics.ObserveSourceFetch(c.kind, domain.FetchResultDiscarded, duration)
		c.logger.Debug("refetching source invalidated in flight", telemetry.SourceIDField(id))
		return
	}
	c.publish(c.passLocked())
	c.mu.Unlock()

	_, err := f.peek()
	if err != nil {
		c.metrics.ObserveSourceFetch(c.kind, domain.FetchResultError, duration)
		c.logger.Warn("source fetch failed",
			telemetry.SourceIDField(id),
			telemetry.DurationField(duration),
			zap.Error(err),
		)
	} else {
		c.metrics.ObserveSourceFetch(c.kind, domain.FetchResultSuccess, duration)
		c.logger.Debug("source fetch settled", telemetry.SourceIDField(id), telemetry.DurationField(duration))
	}
}

// passLocked copies settled outcomes into the status, error and value maps
// and purges ids outside the current source set. A rejected refetch keeps the
// last fulfilled value.
func (c *Coordinator[P]) passLocked() State[P] {
	purge(c.statuses, c.locators)
	purge(c.errors, c.locators)
	purge(c.values, c.locators)

	for id := range c.locators {
		f, ok := c.futures[id]
		if !ok {
			continue
		}
		if !f.settled() {
			c.statuses[id] = domain.FetchStatusPending
			continue
		}
		value, err := f.peek()
		if err != nil {
			c.statuses[id] = domain.FetchStatusRejected
			c.errors[id] = err
			continue
		}
		c.statuses[id] = domain.FetchStatusFulfilled
		c.values[id] = value
		delete(c.errors, id)
	}

	c.revision++
	state := c.stateLocked()
	c.metrics.SetPendingSources(c.kind, state.Pending())
	return state
}

func (c *Coordinator[P]) stateLocked() State[P] {
	return State[P]{
		Kind:     c.kind,
		Revision: c.revision,
		Statuses: maps.Clone(c.statuses),
		Errors:   maps.Clone(c.errors),
		Values:   maps.Clone(c.values),
	}
}

func purge[V any](m map[string]V, keep map[string]string) {
	for id := range m {
		if _, ok := keep[id]; !ok {
			delete(m, id)
		}
	}
}

// publish must be called with c.mu held so subscribers see states in order.
func (c *Coordinator[P]) publish(state State[P]) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	for ch := range c.subs {
		select {
		case ch <- state:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- state:
			default:
			}
		}
	}
}

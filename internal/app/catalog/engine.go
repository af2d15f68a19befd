package catalog

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"composer/internal/domain"
	"composer/internal/infra/coordinator"
	"composer/internal/infra/telemetry"
)

// Options configures an Engine.
type Options struct {
	Lister  domain.SourceLister
	Fetcher domain.SourceFetcher
	Logger  *zap.Logger
	Metrics domain.Metrics
}

// Engine resolves the catalog from the registry and manifest source lists.
// Every coordinator pass and list load triggers a recompute; recomputes run
// on a single goroutine and publish immutable snapshots.
type Engine struct {
	ctx     context.Context
	logger  *zap.Logger
	metrics domain.Metrics
	lister  domain.SourceLister

	registries *coordinator.Coordinator[domain.RegistryPayload]
	manifests  *coordinator.Coordinator[domain.ContentEntry]

	listMu sync.Mutex
	lists  map[domain.SourceKind]domain.SourceList
	gens   map[domain.SourceKind]uint64

	state    atomic.Value
	revision atomic.Uint64
	kick     chan struct{}

	subsMu  sync.Mutex
	subs    map[chan Snapshot]struct{}
	changed chan struct{}
}

// NewEngine starts loading both source lists. The engine stops when ctx is
// done.
func NewEngine(ctx context.Context, opts Options) *Engine {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = domain.NoopMetrics{}
	}

	e := &Engine{
		ctx:     ctx,
		logger:  logger.Named("catalog_engine"),
		metrics: metrics,
		lister:  opts.Lister,
		lists: map[domain.SourceKind]domain.SourceList{
			domain.SourceKindRegistry: domain.LoadingSourceList(),
			domain.SourceKindManifest: domain.LoadingSourceList(),
		},
		gens:    make(map[domain.SourceKind]uint64),
		kick:    make(chan struct{}, 1),
		subs:    make(map[chan Snapshot]struct{}),
		changed: make(chan struct{}),
	}
	e.registries = coordinator.New(ctx, domain.SourceKindRegistry, opts.Fetcher.FetchRegistry,
		coordinator.WithLogger[domain.RegistryPayload](logger),
		coordinator.WithMetrics[domain.RegistryPayload](metrics),
	)
	e.manifests = coordinator.New(ctx, domain.SourceKindManifest, opts.Fetcher.FetchManifest,
		coordinator.WithLogger[domain.ContentEntry](logger),
		coordinator.WithMetrics[domain.ContentEntry](metrics),
	)
	e.state.Store(Snapshot{
		Catalog:    domain.NewResolvedCatalog(nil),
		Registries: domain.LoadingSourceList(),
		Manifests:  domain.LoadingSourceList(),
	})

	registryUpdates := e.registries.Watch(ctx)
	manifestUpdates := e.manifests.Watch(ctx)
	go e.run(registryUpdates, manifestUpdates)

	e.Refresh()
	return e
}

// Snapshot returns the latest published snapshot.
func (e *Engine) Snapshot() Snapshot {
	return e.state.Load().(Snapshot)
}

// IsReady reports whether the latest snapshot is fully settled.
func (e *Engine) IsReady() bool {
	return e.Snapshot().Ready
}

// WhichSource traces a content id in the latest snapshot back to its source.
func (e *Engine) WhichSource(contentID string) (domain.SourceRef, bool) {
	return e.Snapshot().WhichSource(contentID)
}

// Watch subscribes to published snapshots. Slow subscribers only see the
// latest one. The subscription ends with ctx or with the engine.
func (e *Engine) Watch(ctx context.Context) <-chan Snapshot {
	if ctx == nil {
		ctx = e.ctx
	}
	ch := make(chan Snapshot, 1)
	e.subsMu.Lock()
	e.subs[ch] = struct{}{}
	e.subsMu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-e.ctx.Done():
		}
		e.subsMu.Lock()
		delete(e.subs, ch)
		e.subsMu.Unlock()
	}()
	return ch
}

// WaitReady blocks until a ready snapshot is published or ctx is done.
func (e *Engine) WaitReady(ctx context.Context) (Snapshot, error) {
	for {
		changed := e.changedChan()
		snapshot := e.Snapshot()
		if snapshot.Ready {
			return snapshot, nil
		}
		select {
		case <-ctx.Done():
			return snapshot, ctx.Err()
		case <-e.ctx.Done():
			return snapshot, domain.E(domain.CodeCanceled, "wait ready", "engine stopped", e.ctx.Err())
		case <-changed:
		}
	}
}

// Refresh reloads both source lists. Cached per-source fetches are kept; a
// source fetched again only when its id is new or was invalidated.
func (e *Engine) Refresh() {
	e.loadList(domain.SourceKindRegistry)
	e.loadList(domain.SourceKindManifest)
}

// Invalidate drops the cached fetch for one source and fetches it again.
func (e *Engine) Invalidate(kind domain.SourceKind, id string) {
	switch kind {
	case domain.SourceKindRegistry:
		e.registries.Invalidate(id)
		e.registries.Reconcile(e.registries.Locators())
	case domain.SourceKindManifest, domain.SourceKindLocal:
		e.manifests.Invalidate(id)
		e.manifests.Reconcile(e.manifests.Locators())
	}
}

// InvalidateLocator invalidates every source of kind whose locator matches
// and returns how many were invalidated.
func (e *Engine) InvalidateLocator(kind domain.SourceKind, locator string) int {
	var locators map[string]string
	switch kind {
	case domain.SourceKindRegistry:
		locators = e.registries.Locators()
	case domain.SourceKindManifest, domain.SourceKindLocal:
		locators = e.manifests.Locators()
	default:
		return 0
	}
	count := 0
	for _, id := range slices.Sorted(maps.Keys(locators)) {
		if locators[id] == locator {
			e.Invalidate(kind, id)
			count++
		}
	}
	return count
}

func (e *Engine) loadList(kind domain.SourceKind) {
	e.listMu.Lock()
	e.gens[kind]++
	gen := e.gens[kind]
	list := e.lists[kind]
	list.State = domain.LoadStateLoading
	list.Err = nil
	e.lists[kind] = list
	e.listMu.Unlock()
	e.requestRecompute()

	go func() {
		started := time.Now()
		locators, err := e.list(kind)

		e.listMu.Lock()
		defer e.listMu.Unlock()
		if e.gens[kind] != gen {
			return
		}
		if err != nil {
			wrapped := fmt.Errorf("%w: %w", domain.ErrSourceListFetchFailed, err)
			e.lists[kind] = domain.SourceList{State: domain.LoadStateError, Err: wrapped}
			e.logger.Warn("source list load failed",
				telemetry.EventField(telemetry.EventSourceListFailed),
				telemetry.SourceKindField(kind),
				zap.Error(err),
			)
		} else {
			e.lists[kind] = domain.SourceList{State: domain.LoadStateSuccess, Locators: maps.Clone(locators)}
			e.logger.Debug("source list loaded",
				telemetry.EventField(telemetry.EventSourceListLoaded),
				telemetry.SourceKindField(kind),
				zap.Int("sources", len(locators)),
				telemetry.DurationField(time.Since(started)),
			)
		}
		e.reconcileLocked(kind)
		e.requestRecompute()
	}()
}

func (e *Engine) list(kind domain.SourceKind) (map[string]string, error) {
	if e.lister == nil {
		return map[string]string{}, nil
	}
	switch kind {
	case domain.SourceKindRegistry:
		return e.lister.ListRegistries(e.ctx)
	default:
		return e.lister.ListManifests(e.ctx)
	}
}

// reconcileLocked hands the settled list to its coordinator. A failed list
// reconciles against the empty set.
func (e *Engine) reconcileLocked(kind domain.SourceKind) {
	locators := e.lists[kind].CurrentLocators()
	switch kind {
	case domain.SourceKindRegistry:
		e.registries.Reconcile(locators)
	default:
		e.manifests.Reconcile(locators)
	}
}

func (e *Engine) requestRecompute() {
	select {
	case e.kick <- struct{}{}:
	default:
	}
}

func (e *Engine) run(registryUpdates <-chan coordinator.State[domain.RegistryPayload], manifestUpdates <-chan coordinator.State[domain.ContentEntry]) {
	for {
		select {
		case <-e.ctx.Done():
			return
		case <-registryUpdates:
		case <-manifestUpdates:
		case <-e.kick:
		}
		e.recompute()
	}
}

func (e *Engine) recompute() {
	e.listMu.Lock()
	registryList := e.lists[domain.SourceKindRegistry]
	manifestList := e.lists[domain.SourceKindManifest]
	e.listMu.Unlock()

	registryState := e.registries.Snapshot()
	manifestState := e.manifests.Snapshot()

	result := domain.MergeCatalog(manifestState.Values, registryState.Values)
	ready := domain.IsReady(
		[]domain.SourceList{registryList, manifestList},
		registryState.Statuses,
		manifestState.Statuses,
	)

	prev := e.Snapshot()
	next := Snapshot{
		Revision:         e.revision.Add(1),
		Catalog:          result.Catalog,
		Ready:            ready,
		Errors:           collectErrors(registryList, manifestList, registryState.Errors, manifestState.Errors),
		Invalid:          result.Invalid,
		Diff:             domain.DiffCatalogs(prev.Catalog, result.Catalog),
		Registries:       registryList,
		Manifests:        manifestList,
		RegistryStatuses: registryState.Statuses,
		ManifestStatuses: manifestState.Statuses,
		registryValues:   registryState.Values,
		manifestValues:   manifestState.Values,
	}

	e.metrics.SetCatalogEntries(next.Catalog.Len())
	e.metrics.SetCatalogReady(next.Ready)
	e.observeInvalid(prev.Invalid, next.Invalid)
	e.logTransition(prev, next)

	e.state.Store(next)
	e.broadcast(next)
}

func (e *Engine) observeInvalid(prev, next []domain.InvalidEntry) {
	seen := make(map[string]struct{}, len(prev))
	for _, entry := range prev {
		seen[invalidKey(entry)] = struct{}{}
	}
	fresh := 0
	for _, entry := range next {
		if _, ok := seen[invalidKey(entry)]; ok {
			continue
		}
		fresh++
		e.logger.Warn("entry skipped for invalid version",
			telemetry.EventField(telemetry.EventInvalidVersion),
			telemetry.SourceKindField(entry.Source.Kind),
			telemetry.SourceIDField(entry.Source.ID),
			telemetry.ContentIDField(entry.ContentID),
			zap.String("version", entry.Version),
		)
	}
	e.metrics.ObserveInvalidEntries(fresh)
}

func (e *Engine) logTransition(prev, next Snapshot) {
	if !next.Diff.IsEmpty() {
		e.logger.Debug("catalog resolved",
			telemetry.EventField(telemetry.EventCatalogResolved),
			telemetry.RevisionField(next.Revision),
			zap.Int("entries", next.Catalog.Len()),
			zap.Strings("added", next.Diff.Added),
			zap.Strings("removed", next.Diff.Removed),
			zap.Strings("updated", next.Diff.Updated),
		)
	}
	if next.Ready && !prev.Ready {
		e.logger.Info("catalog ready",
			telemetry.EventField(telemetry.EventCatalogReady),
			telemetry.RevisionField(next.Revision),
			zap.Int("entries", next.Catalog.Len()),
			zap.Int("errors", len(next.Errors)),
		)
	}
}

func (e *Engine) broadcast(snapshot Snapshot) {
	e.subsMu.Lock()
	for ch := range e.subs {
		select {
		case ch <- snapshot:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}
	close(e.changed)
	e.changed = make(chan struct{})
	e.subsMu.Unlock()
}

func (e *Engine) changedChan() <-chan struct{} {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	return e.changed
}

func collectErrors(registryList, manifestList domain.SourceList, registryErrs, manifestErrs map[string]error) []domain.SourceError {
	var out []domain.SourceError
	if registryList.State == domain.LoadStateError {
		out = append(out, domain.SourceError{Kind: domain.SourceKindRegistry, Err: registryList.Err})
	}
	if manifestList.State == domain.LoadStateError {
		out = append(out, domain.SourceError{Kind: domain.SourceKindManifest, Err: manifestList.Err})
	}
	for _, id := range slices.Sorted(maps.Keys(registryErrs)) {
		out = append(out, domain.SourceError{Kind: domain.SourceKindRegistry, ID: id, Err: registryErrs[id]})
	}
	for _, id := range slices.Sorted(maps.Keys(manifestErrs)) {
		out = append(out, domain.SourceError{Kind: domain.SourceKindManifest, ID: id, Err: manifestErrs[id]})
	}
	return out
}

func invalidKey(entry domain.InvalidEntry) string {
	return entry.Source.String() + "|" + entry.ContentID + "|" + entry.Version
}

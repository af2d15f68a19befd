package catalog

import (
	"context"
	"errors"
	"maps"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"composer/internal/domain"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type fakeLister struct {
	mu         sync.Mutex
	registries map[string]string
	manifests  map[string]string
	listErr    error
}

func (l *fakeLister) ListRegistries(context.Context) (map[string]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.listErr != nil {
		return nil, l.listErr
	}
	return maps.Clone(l.registries), nil
}

func (l *fakeLister) ListManifests(context.Context) (map[string]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return maps.Clone(l.manifests), nil
}

func (l *fakeLister) set(fn func(l *fakeLister)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l)
}

type fakeFetcher struct {
	mu         sync.Mutex
	registries map[string]domain.RegistryPayload
	manifests  map[string]domain.ContentEntry
	gates      map[string]chan struct{}
	calls      atomic.Int32
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		registries: make(map[string]domain.RegistryPayload),
		manifests:  make(map[string]domain.ContentEntry),
		gates:      make(map[string]chan struct{}),
	}
}

func (f *fakeFetcher) hold(locator string) {
	f.mu.Lock()
	f.gates[locator] = make(chan struct{})
	f.mu.Unlock()
}

func (f *fakeFetcher) release(locator string) {
	f.mu.Lock()
	close(f.gates[locator])
	f.mu.Unlock()
}

func (f *fakeFetcher) wait(ctx context.Context, locator string) error {
	f.calls.Add(1)
	f.mu.Lock()
	gate := f.gates[locator]
	f.mu.Unlock()
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeFetcher) FetchRegistry(ctx context.Context, locator string) (domain.RegistryPayload, error) {
	if err := f.wait(ctx, locator); err != nil {
		return domain.RegistryPayload{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	payload, ok := f.registries[locator]
	if !ok {
		return domain.RegistryPayload{}, domain.ErrSourceFetchFailed
	}
	return payload, nil
}

func (f *fakeFetcher) FetchManifest(ctx context.Context, locator string) (domain.ContentEntry, error) {
	if err := f.wait(ctx, locator); err != nil {
		return domain.ContentEntry{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.manifests[locator]
	if !ok {
		return domain.ContentEntry{}, domain.ErrNotFound
	}
	return entry, nil
}

func entry(id, version string) domain.ContentEntry {
	return domain.ContentEntry{ID: id, Version: version}
}

func newTestEngine(t *testing.T, lister domain.SourceLister, fetcher domain.SourceFetcher) *Engine {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewEngine(ctx, Options{Lister: lister, Fetcher: fetcher, Logger: zap.NewNop()})
}

func waitReady(t *testing.T, engine *Engine) Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	snapshot, err := engine.WaitReady(ctx)
	require.NoError(t, err)
	return snapshot
}

func TestEngine_ResolvesCatalog(t *testing.T) {
	lister := &fakeLister{
		registries: map[string]string{"r1": "https://one", "r2": "https://two"},
		manifests:  map[string]string{"m1": "local:///manifests/foo"},
	}
	fetcher := newFakeFetcher()
	fetcher.registries["https://one"] = domain.RegistryPayload{Contents: []domain.ContentEntry{entry("foo", "1.0.0"), entry("bar", "0.1")}}
	fetcher.registries["https://two"] = domain.RegistryPayload{Contents: []domain.ContentEntry{entry("bar", "0.2"), entry("baz", "nightly")}}
	fetcher.manifests["local:///manifests/foo"] = entry("foo", "1.0.0")

	engine := newTestEngine(t, lister, fetcher)
	snapshot := waitReady(t, engine)

	assert.Equal(t, []string{"bar", "foo"}, snapshot.Catalog.ContentIDs())
	assert.Empty(t, snapshot.Errors)
	require.Len(t, snapshot.Invalid, 1)
	assert.Equal(t, "baz", snapshot.Invalid[0].ContentID)

	ref, ok := engine.WhichSource("foo")
	require.True(t, ok)
	assert.Equal(t, domain.SourceRef{Kind: domain.SourceKindLocal, ID: "m1"}, ref)

	ref, ok = engine.WhichSource("bar")
	require.True(t, ok)
	assert.Equal(t, domain.SourceRef{Kind: domain.SourceKindRegistry, ID: "r2"}, ref)

	_, ok = engine.WhichSource("baz")
	assert.False(t, ok)
	assert.True(t, engine.IsReady())
}

func TestEngine_PendingFetchBlocksReadiness(t *testing.T) {
	lister := &fakeLister{registries: map[string]string{"r1": "https://slow"}}
	fetcher := newFakeFetcher()
	fetcher.registries["https://slow"] = domain.RegistryPayload{Contents: []domain.ContentEntry{entry("foo", "1.0")}}
	fetcher.hold("https://slow")

	engine := newTestEngine(t, lister, fetcher)
	require.Eventually(t, func() bool {
		return engine.Snapshot().RegistryStatuses["r1"] == domain.FetchStatusPending
	}, waitFor, tick)

	time.Sleep(20 * time.Millisecond)
	snapshot := engine.Snapshot()
	assert.False(t, snapshot.Ready)
	assert.Equal(t, 1, snapshot.PendingSources())
	assert.Equal(t, 0, snapshot.Catalog.Len())

	fetcher.release("https://slow")
	snapshot = waitReady(t, engine)
	assert.Equal(t, []string{"foo"}, snapshot.Catalog.ContentIDs())
}

func TestEngine_FetchFailureIsSettled(t *testing.T) {
	lister := &fakeLister{
		registries: map[string]string{"r1": "https://ok", "r2": "https://broken"},
	}
	fetcher := newFakeFetcher()
	fetcher.registries["https://ok"] = domain.RegistryPayload{Contents: []domain.ContentEntry{entry("foo", "1.0")}}

	engine := newTestEngine(t, lister, fetcher)
	snapshot := waitReady(t, engine)

	assert.Equal(t, []string{"foo"}, snapshot.Catalog.ContentIDs())
	require.Len(t, snapshot.Errors, 1)
	assert.Equal(t, "r2", snapshot.Errors[0].ID)
	assert.ErrorIs(t, snapshot.Errors[0], domain.ErrSourceFetchFailed)
	assert.Equal(t, domain.FetchStatusRejected, snapshot.RegistryStatuses["r2"])
}

func TestEngine_ListFailureIsNotReady(t *testing.T) {
	lister := &fakeLister{listErr: errors.New("index unavailable")}
	engine := newTestEngine(t, lister, newFakeFetcher())

	require.Eventually(t, func() bool {
		return engine.Snapshot().Registries.State == domain.LoadStateError
	}, waitFor, tick)

	snapshot := engine.Snapshot()
	assert.False(t, snapshot.Ready)
	require.NotEmpty(t, snapshot.Errors)
	assert.Equal(t, domain.SourceKindRegistry, snapshot.Errors[0].Kind)
	assert.Empty(t, snapshot.Errors[0].ID)
	assert.ErrorIs(t, snapshot.Errors[0], domain.ErrSourceListFetchFailed)

	lister.set(func(l *fakeLister) { l.listErr = nil })
	engine.Refresh()
	snapshot = waitReady(t, engine)
	assert.Empty(t, snapshot.Errors)
}

func TestEngine_RefreshPurgesRemovedSource(t *testing.T) {
	lister := &fakeLister{
		registries: map[string]string{"r1": "https://one", "r2": "https://two"},
	}
	fetcher := newFakeFetcher()
	fetcher.registries["https://one"] = domain.RegistryPayload{Contents: []domain.ContentEntry{entry("foo", "1.0")}}
	fetcher.registries["https://two"] = domain.RegistryPayload{Contents: []domain.ContentEntry{entry("bar", "1.0")}}

	engine := newTestEngine(t, lister, fetcher)
	waitReady(t, engine)
	require.Equal(t, int32(2), fetcher.calls.Load())

	lister.set(func(l *fakeLister) { delete(l.registries, "r2") })
	engine.Refresh()

	require.Eventually(t, func() bool {
		s := engine.Snapshot()
		return s.Ready && s.Catalog.Len() == 1
	}, waitFor, tick)

	snapshot := engine.Snapshot()
	assert.Equal(t, []string{"foo"}, snapshot.Catalog.ContentIDs())
	assert.NotContains(t, snapshot.RegistryStatuses, "r2")
	assert.Equal(t, int32(2), fetcher.calls.Load())
}

func TestEngine_InvalidateLocatorRefetches(t *testing.T) {
	lister := &fakeLister{manifests: map[string]string{"m1": "local:///manifests/foo"}}
	fetcher := newFakeFetcher()
	fetcher.manifests["local:///manifests/foo"] = entry("foo", "1.0.0")

	engine := newTestEngine(t, lister, fetcher)
	waitReady(t, engine)

	fetcher.mu.Lock()
	fetcher.manifests["local:///manifests/foo"] = entry("foo", "1.1.0")
	fetcher.mu.Unlock()

	assert.Equal(t, 1, engine.InvalidateLocator(domain.SourceKindManifest, "local:///manifests/foo"))
	assert.Equal(t, 0, engine.InvalidateLocator(domain.SourceKindManifest, "local:///manifests/other"))

	require.Eventually(t, func() bool {
		got, ok := engine.Snapshot().Catalog.Get("foo")
		return ok && got.Entry.Version == "1.1.0"
	}, waitFor, tick)
}

func TestEngine_WatchPublishesSnapshots(t *testing.T) {
	lister := &fakeLister{registries: map[string]string{"r1": "https://one"}}
	fetcher := newFakeFetcher()
	fetcher.registries["https://one"] = domain.RegistryPayload{Contents: []domain.ContentEntry{entry("foo", "1.0")}}
	fetcher.hold("https://one")

	engine := newTestEngine(t, lister, fetcher)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates := engine.Watch(ctx)

	fetcher.release("https://one")
	deadline := time.After(waitFor)
	for {
		select {
		case snapshot := <-updates:
			if snapshot.Ready && snapshot.Catalog.Len() == 1 {
				assert.Greater(t, snapshot.Revision, uint64(0))
				return
			}
		case <-deadline:
			t.Fatal("no ready snapshot published")
		}
	}
}

func TestEngine_WaitReadyHonorsContext(t *testing.T) {
	lister := &fakeLister{registries: map[string]string{"r1": "https://never"}}
	fetcher := newFakeFetcher()
	fetcher.hold("https://never")

	engine := newTestEngine(t, lister, fetcher)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	snapshot, err := engine.WaitReady(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, snapshot.Ready)
}

func TestEngine_WatchEndsWithEngine(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	engine := NewEngine(ctx, Options{Lister: &fakeLister{}, Fetcher: newFakeFetcher(), Logger: zap.NewNop()})

	subscribers := func() int {
		engine.subsMu.Lock()
		defer engine.subsMu.Unlock()
		return len(engine.subs)
	}
	//nolint:staticcheck // a nil ctx follows the engine lifetime
	engine.Watch(nil)
	engine.Watch(context.Background())
	assert.Equal(t, 2, subscribers())

	cancel()
	require.Eventually(t, func() bool { return subscribers() == 0 }, waitFor, tick)
}

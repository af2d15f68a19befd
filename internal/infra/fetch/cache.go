package fetch

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"composer/internal/domain"
	"composer/internal/infra/telemetry"
)

type cacheEntry struct {
	value   any
	expires time.Time
}

// CachedFetcher memoizes successful remote fetches for a fixed TTL and
// collapses concurrent fetches of one locator into a single request. Local
// manifests are always read through.
type CachedFetcher struct {
	next   domain.SourceFetcher
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
	group  singleflight.Group

	mu      sync.Mutex
	entries map[string]cacheEntry
}

// CacheOption configures a CachedFetcher.
type CacheOption func(*CachedFetcher)

// WithClock replaces the time source.
func WithClock(now func() time.Time) CacheOption {
	return func(c *CachedFetcher) {
		if now != nil {
			c.now = now
		}
	}
}

// WithCacheLogger sets the cache logger.
func WithCacheLogger(logger *zap.Logger) CacheOption {
	return func(c *CachedFetcher) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewCachedFetcher(next domain.SourceFetcher, ttl time.Duration, opts ...CacheOption) *CachedFetcher {
	if ttl <= 0 {
		ttl = domain.DefaultFetchCacheTTLSeconds * time.Second
	}
	c := &CachedFetcher{
		next:    next,
		ttl:     ttl,
		now:     time.Now,
		logger:  zap.NewNop(),
		entries: make(map[string]cacheEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("fetch_cache")
	return c
}

func (c *CachedFetcher) FetchRegistry(ctx context.Context, locator string) (domain.RegistryPayload, error) {
	if !cacheable(locator) {
		return c.next.FetchRegistry(ctx, locator)
	}
	return cachedCall(ctx, c, cacheKey(domain.SourceKindRegistry, locator), func(ctx context.Context) (domain.RegistryPayload, error) {
		return c.next.FetchRegistry(ctx, locator)
	})
}

func (c *CachedFetcher) FetchManifest(ctx context.Context, locator string) (domain.ContentEntry, error) {
	if !cacheable(locator) {
		return c.next.FetchManifest(ctx, locator)
	}
	return cachedCall(ctx, c, cacheKey(domain.SourceKindManifest, locator), func(ctx context.Context) (domain.ContentEntry, error) {
		return c.next.FetchManifest(ctx, locator)
	})
}

// Forget drops cached results for locator.
func (c *CachedFetcher) Forget(locator string) {
	c.mu.Lock()
	delete(c.entries, cacheKey(domain.SourceKindRegistry, locator))
	delete(c.entries, cacheKey(domain.SourceKindManifest, locator))
	c.mu.Unlock()
	c.group.Forget(cacheKey(domain.SourceKindRegistry, locator))
	c.group.Forget(cacheKey(domain.SourceKindManifest, locator))
}

// Purge drops every cached result.
func (c *CachedFetcher) Purge() {
	c.mu.Lock()
	clear(c.entries)
	c.mu.Unlock()
}

func cachedCall[P any](ctx context.Context, c *CachedFetcher, key string, fetch func(context.Context) (P, error)) (P, error) {
	if value, ok := c.lookup(key); ok {
		if typed, ok := value.(P); ok {
			return typed, nil
		}
	}

	// The shared call outlives any single caller's cancellation.
	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		value, err := fetch(flightCtx)
		if err != nil {
			return nil, err
		}
		c.store(key, value)
		return value, nil
	})

	var zero P
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		if res.Shared {
			c.logger.Debug("shared in-flight fetch", zap.String("key", key))
		}
		return res.Val.(P), nil
	}
}

func (c *CachedFetcher) lookup(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(entry.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.value, true
}

func (c *CachedFetcher) store(key string, value any) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{value: value, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
	c.logger.Debug("cached fetch result", zap.String("key", key), telemetry.DurationField(c.ttl))
}

func cacheable(locator string) bool {
	return strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://")
}

func cacheKey(kind domain.SourceKind, locator string) string {
	return string(kind) + "|" + locator
}

var _ domain.SourceFetcher = (*CachedFetcher)(nil)

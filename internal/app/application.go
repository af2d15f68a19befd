package app

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"composer/internal/app/catalog"
	"composer/internal/domain"
	"composer/internal/infra/config"
	"composer/internal/infra/fetch"
	"composer/internal/infra/installer"
	"composer/internal/infra/store"
)

// Application wires the index store, transport, catalog engine and planner.
type Application struct {
	ctx      context.Context
	config   config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  domain.Metrics
	store    *store.Store
	fetcher  *fetch.CachedFetcher
	planner  *installer.Planner

	newEngine EngineFactory
	engineMu  sync.Mutex
	engine    *catalog.Engine
}

// ApplicationOptions captures dependencies and settings for Application.
type ApplicationOptions struct {
	Context  context.Context
	Config   config.Config
	Logger   *zap.Logger
	Registry *prometheus.Registry
	Metrics  domain.Metrics
	Store    *store.Store
	Fetcher  *fetch.CachedFetcher
	Planner  *installer.Planner
	Engine   EngineFactory
}

// NewApplication constructs the application.
func NewApplication(opts ApplicationOptions) *Application {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Application{
		ctx:       ctx,
		config:    opts.Config,
		logger:    logger,
		registry:  opts.Registry,
		metrics:   opts.Metrics,
		store:     opts.Store,
		fetcher:   opts.Fetcher,
		planner:   opts.Planner,
		newEngine: opts.Engine,
	}
}

// Config returns the loaded configuration.
func (a *Application) Config() config.Config {
	return a.config
}

// Engine returns the catalog engine, starting it on first use.
func (a *Application) Engine() *catalog.Engine {
	a.engineMu.Lock()
	defer a.engineMu.Unlock()
	if a.engine == nil {
		a.engine = a.newEngine()
	}
	return a.engine
}

// Resolve waits until the catalog is ready or ctx is done and returns the
// latest snapshot either way.
func (a *Application) Resolve(ctx context.Context) (catalog.Snapshot, error) {
	return a.Engine().WaitReady(ctx)
}

// refresh reloads the engine's source lists when it is running.
func (a *Application) refresh() {
	if engine := a.startedEngine(); engine != nil {
		engine.Refresh()
	}
}

func (a *Application) startedEngine() *catalog.Engine {
	a.engineMu.Lock()
	defer a.engineMu.Unlock()
	return a.engine
}

package app

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"composer/internal/app/catalog"
	"composer/internal/domain"
	"composer/internal/infra/config"
	"composer/internal/infra/fetch"
	"composer/internal/infra/installer"
	"composer/internal/infra/store"
	"composer/internal/infra/telemetry"
)

func NewMetricsRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	registry.MustRegister(collectors.NewGoCollector())
	return registry
}

func NewMetrics(registry *prometheus.Registry) domain.Metrics {
	return telemetry.NewPrometheusMetrics(registry)
}

// NewStore opens the index store. The cleanup closes it.
func NewStore(cfg config.Config, logger *zap.Logger) (*store.Store, func(), error) {
	st, err := store.OpenStore(cfg.IndexPath)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := st.Close(); err != nil {
			logger.Warn("close index store failed", zap.Error(err))
		}
	}
	return st, cleanup, nil
}

func NewFetchClient(cfg config.Config, logger *zap.Logger) *fetch.Client {
	return fetch.NewClient(fetch.Options{
		Timeout:      cfg.Fetch.Timeout,
		RetryMax:     cfg.Fetch.RetryMax,
		UserAgent:    cfg.Fetch.UserAgent,
		MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
		ManifestsDir: cfg.ManifestsDir,
		Logger:       logger,
	})
}

func NewCachedFetcher(cfg config.Config, client *fetch.Client, logger *zap.Logger) *fetch.CachedFetcher {
	return fetch.NewCachedFetcher(client, cfg.Fetch.CacheTTL, fetch.WithCacheLogger(logger))
}

func NewPlanner(st installer.InstalledStore, logger *zap.Logger) *installer.Planner {
	return installer.NewPlanner(st, logger)
}

// NewEngineFactory defers starting the engine until a command needs the
// resolved catalog, so source list edits do not trigger fetches.
func NewEngineFactory(
	ctx context.Context,
	lister domain.SourceLister,
	fetcher domain.SourceFetcher,
	metrics domain.Metrics,
	logger *zap.Logger,
) EngineFactory {
	return func() *catalog.Engine {
		return catalog.NewEngine(ctx, catalog.Options{
			Lister:  lister,
			Fetcher: fetcher,
			Logger:  logger,
			Metrics: metrics,
		})
	}
}

// EngineFactory starts a catalog engine.
type EngineFactory func() *catalog.Engine

//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"

	"composer/internal/domain"
	"composer/internal/infra/fetch"
	"composer/internal/infra/installer"
	"composer/internal/infra/store"
)

var CoreInfraSet = wire.NewSet(
	NewLogging,
	NewLogger,
	NewMetricsRegistry,
	NewMetrics,
)

var StoreSet = wire.NewSet(
	NewStore,
	wire.Bind(new(domain.SourceLister), new(*store.Store)),
	wire.Bind(new(installer.InstalledStore), new(*store.Store)),
)

var FetchSet = wire.NewSet(
	NewFetchClient,
	NewCachedFetcher,
	wire.Bind(new(domain.SourceFetcher), new(*fetch.CachedFetcher)),
)

var CatalogSet = wire.NewSet(
	NewPlanner,
	NewEngineFactory,
)

var AppSet = wire.NewSet(
	CoreInfraSet,
	StoreSet,
	FetchSet,
	CatalogSet,
	wire.Struct(new(ApplicationOptions), "*"),
	NewApplication,
)

package app

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"composer/internal/app/catalog"
	"composer/internal/infra/telemetry"
)

// Serve keeps the catalog resolved until ctx is done: it runs the engine,
// the local manifest watcher and the observability server.
func (a *Application) Serve(ctx context.Context) error {
	engine := a.Engine()
	a.logger.Info("serving catalog",
		zap.String("index", a.config.IndexPath),
		zap.String("manifests", a.config.ManifestsDir),
		zap.Bool("watch_manifests", a.config.WatchManifests),
	)

	group, ctx := errgroup.WithContext(ctx)
	if a.config.WatchManifests {
		watcher := catalog.NewManifestWatcher(a.config.ManifestsDir, engine, a.logger)
		group.Go(func() error {
			return watcher.Run(ctx)
		})
	}
	group.Go(func() error {
		return telemetry.StartHTTPServer(ctx, telemetry.HTTPServerOptions{
			Addr:          a.config.Observability.ListenAddress,
			EnableMetrics: a.config.Observability.EnableMetrics,
			EnableHealthz: true,
			Health: func() telemetry.HealthReport {
				return healthReport(engine.Snapshot())
			},
			Catalog: func() any {
				return engine.Snapshot()
			},
			Registry: a.registry,
		}, a.logger)
	})
	group.Go(func() error {
		updates := engine.Watch(ctx)
		for {
			select {
			case <-ctx.Done():
				return nil
			case snapshot := <-updates:
				if snapshot.Diff.IsEmpty() {
					continue
				}
				a.logger.Info("catalog changed",
					telemetry.RevisionField(snapshot.Revision),
					zap.Bool("ready", snapshot.Ready),
					zap.Int("entries", snapshot.Catalog.Len()),
					zap.Int("added", len(snapshot.Diff.Added)),
					zap.Int("removed", len(snapshot.Diff.Removed)),
					zap.Int("updated", len(snapshot.Diff.Updated)),
				)
			}
		}
	})
	return group.Wait()
}

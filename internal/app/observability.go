package app

import (
	"composer/internal/app/catalog"
	"composer/internal/infra/telemetry"
)

// healthReport summarizes a snapshot for /healthz.
func healthReport(snapshot catalog.Snapshot) telemetry.HealthReport {
	status := "loading"
	if snapshot.Ready {
		status = "ok"
		if len(snapshot.Errors) > 0 {
			status = "degraded"
		}
	}
	return telemetry.HealthReport{
		Status:         status,
		Ready:          snapshot.Ready,
		Revision:       snapshot.Revision,
		CatalogEntries: snapshot.Catalog.Len(),
		PendingSources: snapshot.PendingSources(),
		SourceErrors:   len(snapshot.Errors),
	}
}

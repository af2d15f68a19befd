package telemetry

import (
	"time"

	"go.uber.org/zap"

	"composer/internal/domain"
)

const (
	FieldEvent      = "event"
	FieldSourceKind = "source_kind"
	FieldSourceID   = "source_id"
	FieldLocator    = "locator"
	FieldContentID  = "content_id"
	FieldRevision   = "revision"
	FieldDurationMs = "duration_ms"
)

const (
	EventSourceListLoaded    = "source_list_loaded"
	EventSourceListFailed    = "source_list_failed"
	EventCatalogResolved     = "catalog_resolved"
	EventCatalogReady        = "catalog_ready"
	EventManifestChanged     = "manifest_changed"
	EventInvalidVersion      = "invalid_version"
	EventSourceAdded         = "source_added"
	EventSourceRemoved       = "source_removed"
	EventInstallationPlanned = "installation_planned"
)

func EventField(event string) zap.Field {
	return zap.String(FieldEvent, event)
}

func SourceKindField(kind domain.SourceKind) zap.Field {
	return zap.String(FieldSourceKind, string(kind))
}

func SourceIDField(id string) zap.Field {
	return zap.String(FieldSourceID, id)
}

func LocatorField(locator string) zap.Field {
	return zap.String(FieldLocator, locator)
}

func ContentIDField(id string) zap.Field {
	return zap.String(FieldContentID, id)
}

func RevisionField(revision uint64) zap.Field {
	return zap.Uint64(FieldRevision, revision)
}

func DurationField(duration time.Duration) zap.Field {
	return zap.Int64(FieldDurationMs, duration.Milliseconds())
}

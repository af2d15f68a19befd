package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"composer/internal/domain"
)

func TestLogFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)

	logger.Info("fetched",
		EventField(EventCatalogResolved),
		SourceKindField(domain.SourceKindManifest),
		SourceIDField("m1"),
		LocatorField("local:///manifests/foo"),
		ContentIDField("foo"),
		RevisionField(9),
		DurationField(1500*time.Millisecond),
	)

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, EventCatalogResolved, fields[FieldEvent])
		assert.Equal(t, "manifest", fields[FieldSourceKind])
		assert.Equal(t, "m1", fields[FieldSourceID])
		assert.Equal(t, "local:///manifests/foo", fields[FieldLocator])
		assert.Equal(t, "foo", fields[FieldContentID])
		assert.Equal(t, uint64(9), fields[FieldRevision])
		assert.Equal(t, int64(1500), fields[FieldDurationMs])
	}
}

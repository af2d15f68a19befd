package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func content(id, version string) ContentEntry {
	return ContentEntry{ID: id, Version: version}
}

func TestMergeCatalog_ManifestWinsTie(t *testing.T) {
	manifests := map[string]ContentEntry{
		"m1": content("foo", "1.0.0").WithManifestURL("local:///manifests/foo"),
	}
	registries := map[string]RegistryPayload{
		"r1": {Contents: []ContentEntry{content("foo", "1.0.0")}},
	}

	result := MergeCatalog(manifests, registries)
	require.Empty(t, result.Invalid)

	got, ok := result.Catalog.Get("foo")
	require.True(t, ok)
	assert.Equal(t, SourceRef{Kind: SourceKindManifest, ID: "m1"}, got.Via)
	assert.Equal(t, "local:///manifests/foo", got.Entry.ManifestURL())

	ref, ok := WhichSource(result.Catalog, manifests, registries, "foo")
	require.True(t, ok)
	assert.Equal(t, SourceKindLocal, ref.Kind)
}

func TestMergeCatalog_GreaterRegistryEntryWins(t *testing.T) {
	manifests := map[string]ContentEntry{
		"m1": content("foo", "1.0.0"),
	}
	registries := map[string]RegistryPayload{
		"r1": {Contents: []ContentEntry{content("foo", "1.0.0")}},
		"r2": {Contents: []ContentEntry{content("foo", "2.0.0")}},
	}

	result := MergeCatalog(manifests, registries)
	got, ok := result.Catalog.Get("foo")
	require.True(t, ok)
	assert.Equal(t, "2.0.0", got.Entry.Version)
	assert.Equal(t, SourceRef{Kind: SourceKindRegistry, ID: "r2"}, got.Via)

	ref, ok := WhichSource(result.Catalog, manifests, registries, "foo")
	require.True(t, ok)
	assert.Equal(t, SourceRef{Kind: SourceKindRegistry, ID: "r2"}, ref)
}

func TestMergeCatalog_RegistryTieKeepsLowestID(t *testing.T) {
	registries := map[string]RegistryPayload{
		"b": {Contents: []ContentEntry{content("foo", "1.0.0")}},
		"a": {Contents: []ContentEntry{content("foo", "1.0")}},
	}

	for range 20 {
		result := MergeCatalog(nil, registries)
		got, ok := result.Catalog.Get("foo")
		require.True(t, ok)
		assert.Equal(t, "a", got.Via.ID)
		assert.Equal(t, "1.0", got.Entry.Version)
	}
}

func TestMergeCatalog_SortedByContentID(t *testing.T) {
	registries := map[string]RegistryPayload{
		"r1": {Contents: []ContentEntry{
			content("zeta", "1.0.0"),
			content("alpha", "1.0.0"),
			content("mid", "0.1"),
			content("alpha", "1.1.0"),
		}},
	}

	result := MergeCatalog(nil, registries)
	if diff := cmp.Diff([]string{"alpha", "mid", "zeta"}, result.Catalog.ContentIDs()); diff != "" {
		t.Fatalf("content ids mismatch (-want +got):\n%s", diff)
	}
	alpha, _ := result.Catalog.Get("alpha")
	assert.Equal(t, "1.1.0", alpha.Entry.Version)
}

func TestMergeCatalog_InvalidVersionExcluded(t *testing.T) {
	manifests := map[string]ContentEntry{
		"m1": content("foo", "latest"),
	}
	registries := map[string]RegistryPayload{
		"r1": {Contents: []ContentEntry{
			content("foo", "0.1.0"),
			content("bar", "nightly"),
			{ID: "baz", Version: "whatever", VersionNumber: VersionNumberOf(3)},
		}},
	}

	result := MergeCatalog(manifests, registries)

	foo, ok := result.Catalog.Get("foo")
	require.True(t, ok)
	assert.Equal(t, "0.1.0", foo.Entry.Version)

	_, ok = result.Catalog.Get("bar")
	assert.False(t, ok)

	baz, ok := result.Catalog.Get("baz")
	require.True(t, ok)
	assert.Equal(t, uint64(3), *baz.Entry.VersionNumber)

	require.Len(t, result.Invalid, 2)
	assert.Equal(t, SourceRef{Kind: SourceKindManifest, ID: "m1"}, result.Invalid[0].Source)
	assert.ErrorIs(t, result.Invalid[0].Err, ErrInvalidVersionFormat)
	assert.Equal(t, "bar", result.Invalid[1].ContentID)
}

func TestWhichSource_ExactMatchOnly(t *testing.T) {
	registries := map[string]RegistryPayload{
		"r1": {Contents: []ContentEntry{content("foo", "1.0.0")}},
	}
	result := MergeCatalog(nil, registries)

	// A comparator-equal but textually different entry is not an exact match.
	moved := map[string]RegistryPayload{
		"r2": {Contents: []ContentEntry{content("foo", "1.0")}},
	}
	_, ok := WhichSource(result.Catalog, nil, moved, "foo")
	assert.False(t, ok)

	_, ok = WhichSource(result.Catalog, nil, registries, "missing")
	assert.False(t, ok)

	numberedOnly := map[string]RegistryPayload{
		"r3": {Contents: []ContentEntry{{ID: "foo", Version: "1.0.0", VersionNumber: VersionNumberOf(1)}}},
	}
	_, ok = WhichSource(result.Catalog, nil, numberedOnly, "foo")
	assert.False(t, ok)
}

func TestMergeCatalog_Empty(t *testing.T) {
	result := MergeCatalog(nil, nil)
	assert.Equal(t, 0, result.Catalog.Len())
	assert.Empty(t, result.Invalid)
}

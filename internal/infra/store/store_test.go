package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"composer/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "nested", "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	return store
}

func TestStoreRegistries(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first, err := store.AddRegistry(ctx, "https://example.com/a.json")
	require.NoError(t, err)
	second, err := store.AddRegistry(ctx, "https://example.com/b.json")
	require.NoError(t, err)
	assert.Less(t, first, second)

	_, err = store.AddRegistry(ctx, "https://example.com/a.json")
	require.ErrorIs(t, err, domain.ErrAlreadyAdded)
	code, ok := domain.CodeFrom(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeAlreadyExists, code)

	registries, err := store.ListRegistries(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		first:  "https://example.com/a.json",
		second: "https://example.com/b.json",
	}, registries)
	assert.Equal(t, []string{first, second}, SortedIDs(registries))

	require.NoError(t, store.RemoveRegistry(ctx, first))
	assert.ErrorIs(t, store.RemoveRegistry(ctx, first), domain.ErrNotFound)

	registries, err = store.ListRegistries(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{second: "https://example.com/b.json"}, registries)
}

func TestStoreManifestsAreSeparate(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.AddRegistry(ctx, "https://example.com/x")
	require.NoError(t, err)
	id, err := store.AddManifest(ctx, "https://example.com/x")
	require.NoError(t, err)

	manifests, err := store.ListManifests(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{id: "https://example.com/x"}, manifests)

	_, err = store.AddManifest(ctx, "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidLocator)

	require.NoError(t, store.RemoveManifest(ctx, id))
	manifests, err = store.ListManifests(ctx)
	require.NoError(t, err)
	assert.Empty(t, manifests)
}

func TestStoreProfilesAndInstalled(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	dir := t.TempDir()

	profile, err := store.AddProfile(ctx, "", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(dir), profile.Name)

	_, err = store.AddProfile(ctx, "again", dir)
	assert.ErrorIs(t, err, domain.ErrAlreadyAdded)

	installed, err := store.InstalledContents(ctx, profile.ID)
	require.NoError(t, err)
	assert.Empty(t, installed)

	entries := []domain.ContentEntry{
		{ID: "foo", Version: "1.0.0"},
		{ID: "bar", Version: "0.1", VersionNumber: domain.VersionNumberOf(2), Metadata: map[string]any{"name": "Bar"}},
	}
	require.NoError(t, store.RecordInstalled(ctx, profile.ID, entries))
	require.NoError(t, store.RecordInstalled(ctx, profile.ID, []domain.ContentEntry{{ID: "foo", Version: "1.1.0"}}))

	installed, err = store.InstalledContents(ctx, profile.ID)
	require.NoError(t, err)
	require.Len(t, installed, 2)
	assert.Equal(t, "1.1.0", installed["foo"].Version)
	assert.Equal(t, uint64(2), *installed["bar"].VersionNumber)
	assert.Equal(t, "Bar", installed["bar"].Metadata["name"])

	profiles, err := store.ListProfiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Profile{profile}, profiles)

	got, err := store.GetProfile(ctx, profile.ID)
	require.NoError(t, err)
	assert.Equal(t, profile, got)

	require.NoError(t, store.RemoveProfile(ctx, profile.ID))
	_, err = store.InstalledContents(ctx, profile.ID)
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
	assert.ErrorIs(t, store.RecordInstalled(ctx, profile.ID, entries), domain.ErrProfileNotFound)
}

func TestStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	store, err := OpenStore(path)
	require.NoError(t, err)
	id, err := store.AddRegistry(context.Background(), "https://example.com/r")
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	_, err = store.ListRegistries(context.Background())
	assert.ErrorIs(t, err, ErrStoreClosed)

	reopened, err := OpenStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	registries, err := reopened.ListRegistries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{id: "https://example.com/r"}, registries)
}

func TestStoreCanceledContext(t *testing.T) {
	store := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.ListRegistries(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

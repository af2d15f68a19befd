package catalog

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"composer/internal/domain"
)

type recordingInvalidator struct {
	mu       sync.Mutex
	locators []string
}

func (r *recordingInvalidator) InvalidateLocator(kind domain.SourceKind, locator string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if kind == domain.SourceKindManifest {
		r.locators = append(r.locators, locator)
	}
	return 1
}

func (r *recordingInvalidator) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.locators...)
}

func TestManifestWatcher_InvalidatesChangedManifest(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "manifests")
	target := &recordingInvalidator{}
	watcher := NewManifestWatcher(dir, target, nil)
	watcher.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- watcher.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, err := os.Stat(dir)
		return err == nil
	}, waitFor, tick)
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "foo.yml"), []byte("id: foo\nversion: 1.0.0\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600))

	require.Eventually(t, func() bool {
		return len(target.seen()) > 0
	}, waitFor, tick)
	for _, locator := range target.seen() {
		assert.Equal(t, "local:///manifests/foo", locator)
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("watcher did not stop")
	}
}

func TestManifestIDForPath(t *testing.T) {
	id, ok := manifestIDForPath("/data/manifests/my.plugin.yaml")
	require.True(t, ok)
	assert.Equal(t, "my.plugin", id)

	_, ok = manifestIDForPath("/data/manifests/.hidden.yml")
	assert.False(t, ok)
	_, ok = manifestIDForPath("/data/manifests/readme.md")
	assert.False(t, ok)
}

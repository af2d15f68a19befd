package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"composer/internal/domain"
	"composer/internal/infra/fetch"
	"composer/internal/infra/telemetry"
)

const defaultManifestDebounce = 200 * time.Millisecond

// LocatorInvalidator refetches sources whose locator matches.
type LocatorInvalidator interface {
	InvalidateLocator(kind domain.SourceKind, locator string) int
}

// ManifestWatcher refetches local manifests when their files change.
type ManifestWatcher struct {
	dir      string
	target   LocatorInvalidator
	logger   *zap.Logger
	debounce time.Duration
}

func NewManifestWatcher(dir string, target LocatorInvalidator, logger *zap.Logger) *ManifestWatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ManifestWatcher{
		dir:      dir,
		target:   target,
		logger:   logger.Named("manifest_watcher"),
		debounce: defaultManifestDebounce,
	}
}

// Run watches the manifests directory until ctx is done.
func (w *ManifestWatcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("ensure manifests dir: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("manifest watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.logger.Debug("watching manifests", zap.String("dir", w.dir))

	changed := make(map[string]struct{})
	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("manifest watcher error", zap.Error(err))
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			id, relevant := manifestIDForPath(event.Name)
			if !relevant || event.Op == fsnotify.Chmod {
				continue
			}
			changed[id] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				continue
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.debounce)
		case <-timerChan(timer):
			timer = nil
			w.flush(changed)
			clear(changed)
		}
	}
}

func (w *ManifestWatcher) flush(changed map[string]struct{}) {
	ids := make([]string, 0, len(changed))
	for id := range changed {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		locator := fetch.LocalManifestLocator(id)
		count := w.target.InvalidateLocator(domain.SourceKindManifest, locator)
		w.logger.Debug("local manifest changed",
			telemetry.EventField(telemetry.EventManifestChanged),
			telemetry.ContentIDField(id),
			telemetry.LocatorField(locator),
			zap.Int("sources", count),
		)
	}
}

func manifestIDForPath(path string) (string, bool) {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	if _, ok := fetch.FormatFromExt(ext); !ok {
		return "", false
	}
	id := strings.TrimSuffix(base, ext)
	if !fetch.ValidLocalID(id) {
		return "", false
	}
	return id, true
}

func timerChan(timer *time.Timer) <-chan time.Time {
	if timer == nil {
		return nil
	}
	return timer.C
}

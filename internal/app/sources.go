package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"composer/internal/domain"
	"composer/internal/infra/fetch"
	"composer/internal/infra/store"
	"composer/internal/infra/telemetry"
)

// Source is one registered registry or manifest.
type Source struct {
	ID      string `json:"id"`
	Locator string `json:"locator"`
}

// ListRegistries returns the registered registries ordered by id.
func (a *Application) ListRegistries(ctx context.Context) ([]Source, error) {
	locators, err := a.store.ListRegistries(ctx)
	if err != nil {
		return nil, err
	}
	return sourcesOf(locators), nil
}

// ListManifests returns the registered manifests ordered by id.
func (a *Application) ListManifests(ctx context.Context) ([]Source, error) {
	locators, err := a.store.ListManifests(ctx)
	if err != nil {
		return nil, err
	}
	return sourcesOf(locators), nil
}

// AddRegistry fetches url once to validate it, then registers it.
func (a *Application) AddRegistry(ctx context.Context, url string) (Source, domain.RegistryPayload, error) {
	payload, err := a.fetcher.FetchRegistry(ctx, url)
	if err != nil {
		return Source{}, domain.RegistryPayload{}, domain.Wrap(domain.CodeUnavailable, "add registry", err)
	}
	id, err := a.store.AddRegistry(ctx, url)
	if err != nil {
		return Source{}, domain.RegistryPayload{}, err
	}
	a.logAdded(domain.SourceKindRegistry, id, url)
	a.refresh()
	return Source{ID: id, Locator: url}, payload, nil
}

func (a *Application) RemoveRegistry(ctx context.Context, id string) error {
	if err := a.store.RemoveRegistry(ctx, id); err != nil {
		return err
	}
	a.logRemoved(domain.SourceKindRegistry, id)
	a.refresh()
	return nil
}

// AddManifestURL fetches a remote manifest once to validate it, then
// registers it.
func (a *Application) AddManifestURL(ctx context.Context, url string) (Source, domain.ContentEntry, error) {
	if fetch.IsLocalLocator(url) {
		return Source{}, domain.ContentEntry{}, domain.E(domain.CodeInvalidArgument, "add manifest", "local manifests are added from a file", domain.ErrInvalidLocator)
	}
	entry, err := a.fetcher.FetchManifest(ctx, url)
	if err != nil {
		return Source{}, domain.ContentEntry{}, domain.Wrap(domain.CodeUnavailable, "add manifest", err)
	}
	id, err := a.store.AddManifest(ctx, url)
	if err != nil {
		return Source{}, domain.ContentEntry{}, err
	}
	a.logAdded(domain.SourceKindManifest, id, url)
	a.refresh()
	return Source{ID: id, Locator: url}, entry, nil
}

// AddManifestLocal stores a manifest document in the manifests directory
// under its content id and registers its local locator. Adding a manifest
// for an already registered content id replaces the file and refetches it.
func (a *Application) AddManifestLocal(ctx context.Context, body []byte, format fetch.Format) (Source, domain.ContentEntry, error) {
	entry, err := fetch.ParseManifest(format, body)
	if err != nil {
		return Source{}, domain.ContentEntry{}, domain.Wrap(domain.CodeInvalidArgument, "add local manifest", err)
	}
	if !fetch.ValidLocalID(entry.ID) {
		return Source{}, domain.ContentEntry{}, domain.E(domain.CodeInvalidArgument, "add local manifest",
			fmt.Sprintf("content id %q cannot name a local manifest", entry.ID), domain.ErrInvalidPayload)
	}
	if err := writeLocalManifest(a.config.ManifestsDir, entry); err != nil {
		return Source{}, domain.ContentEntry{}, domain.E(domain.CodeInternal, "add local manifest", "", err)
	}

	locator := fetch.LocalManifestLocator(entry.ID)
	id, err := a.store.AddManifest(ctx, locator)
	if errors.Is(err, domain.ErrAlreadyAdded) {
		existing, lookupErr := a.manifestIDFor(ctx, locator)
		if lookupErr != nil {
			return Source{}, domain.ContentEntry{}, lookupErr
		}
		if engine := a.startedEngine(); engine != nil {
			engine.InvalidateLocator(domain.SourceKindManifest, locator)
		}
		return Source{ID: existing, Locator: locator}, entry, nil
	}
	if err != nil {
		return Source{}, domain.ContentEntry{}, err
	}
	a.logAdded(domain.SourceKindManifest, id, locator)
	a.refresh()
	return Source{ID: id, Locator: locator}, entry, nil
}

// RemoveManifest unregisters a manifest. A local manifest's file is deleted
// too.
func (a *Application) RemoveManifest(ctx context.Context, id string) error {
	locators, err := a.store.ListManifests(ctx)
	if err != nil {
		return err
	}
	if err := a.store.RemoveManifest(ctx, id); err != nil {
		return err
	}
	if contentID, err := fetch.LocalManifestID(locators[id]); err == nil {
		for _, path := range fetch.LocalManifestPaths(a.config.ManifestsDir, contentID) {
			if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
				a.logger.Warn("remove local manifest file failed", zap.String("path", path), zap.Error(err))
			}
		}
	}
	a.logRemoved(domain.SourceKindManifest, id)
	a.refresh()
	return nil
}

func (a *Application) manifestIDFor(ctx context.Context, locator string) (string, error) {
	locators, err := a.store.ListManifests(ctx)
	if err != nil {
		return "", err
	}
	for _, id := range store.SortedIDs(locators) {
		if locators[id] == locator {
			return id, nil
		}
	}
	return "", domain.E(domain.CodeNotFound, "find manifest", locator, domain.ErrNotFound)
}

func (a *Application) logAdded(kind domain.SourceKind, id, locator string) {
	a.logger.Info("source added",
		telemetry.EventField(telemetry.EventSourceAdded),
		telemetry.SourceKindField(kind),
		telemetry.SourceIDField(id),
		telemetry.LocatorField(locator),
	)
}

func (a *Application) logRemoved(kind domain.SourceKind, id string) {
	a.logger.Info("source removed",
		telemetry.EventField(telemetry.EventSourceRemoved),
		telemetry.SourceKindField(kind),
		telemetry.SourceIDField(id),
	)
}

func sourcesOf(locators map[string]string) []Source {
	out := make([]Source, 0, len(locators))
	for _, id := range store.SortedIDs(locators) {
		out = append(out, Source{ID: id, Locator: locators[id]})
	}
	return out
}

// writeLocalManifest stores entry as YAML, replacing any previous file
// atomically.
func writeLocalManifest(dir string, entry domain.ContentEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".manifest-*.tmp")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Clean(fetch.LocalManifestPath(dir, entry.ID)))
}

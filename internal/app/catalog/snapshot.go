package catalog

import (
	"encoding/json"

	"composer/internal/domain"
)

// Snapshot is an immutable view of the engine after one recompute.
type Snapshot struct {
	Revision uint64
	Catalog  domain.ResolvedCatalog
	Ready    bool
	// Errors lists list-level failures first, then per-source failures,
	// registries before manifests, each in ascending source id order.
	Errors  []domain.SourceError
	Invalid []domain.InvalidEntry
	// Diff is relative to the previous snapshot.
	Diff domain.CatalogDiff

	Registries       domain.SourceList
	Manifests        domain.SourceList
	RegistryStatuses map[string]domain.FetchStatus
	ManifestStatuses map[string]domain.FetchStatus

	registryValues map[string]domain.RegistryPayload
	manifestValues map[string]domain.ContentEntry
}

// WhichSource traces a resolved content id back to its source. Local
// manifests report SourceKindLocal.
func (s Snapshot) WhichSource(contentID string) (domain.SourceRef, bool) {
	return domain.WhichSource(s.Catalog, s.manifestValues, s.registryValues, contentID)
}

// PendingSources counts fetches that have not settled.
func (s Snapshot) PendingSources() int {
	count := 0
	for _, statuses := range []map[string]domain.FetchStatus{s.RegistryStatuses, s.ManifestStatuses} {
		for _, status := range statuses {
			if !status.Terminal() {
				count++
			}
		}
	}
	return count
}

type snapshotJSON struct {
	Revision   uint64                 `json:"revision"`
	Ready      bool                   `json:"ready"`
	Catalog    domain.ResolvedCatalog `json:"catalog"`
	Errors     []domain.SourceError   `json:"errors"`
	Invalid    []invalidJSON          `json:"invalid,omitempty"`
	Registries listJSON               `json:"registries"`
	Manifests  listJSON               `json:"manifests"`
}

type listJSON struct {
	State    domain.LoadState              `json:"state"`
	Statuses map[string]domain.FetchStatus `json:"statuses"`
}

type invalidJSON struct {
	domain.InvalidEntry
	Error string `json:"error"`
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	out := snapshotJSON{
		Revision:   s.Revision,
		Ready:      s.Ready,
		Catalog:    s.Catalog,
		Errors:     s.Errors,
		Registries: listJSON{State: s.Registries.State, Statuses: s.RegistryStatuses},
		Manifests:  listJSON{State: s.Manifests.State, Statuses: s.ManifestStatuses},
	}
	if out.Errors == nil {
		out.Errors = []domain.SourceError{}
	}
	for _, entry := range s.Invalid {
		msg := ""
		if entry.Err != nil {
			msg = entry.Err.Error()
		}
		out.Invalid = append(out.Invalid, invalidJSON{InvalidEntry: entry, Error: msg})
	}
	return json.Marshal(out)
}

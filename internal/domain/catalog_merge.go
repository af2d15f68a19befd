package domain

import (
	"maps"
	"slices"
)

// InvalidEntry records a content entry excluded from winning because its
// version cannot be ordered.
type InvalidEntry struct {
	Source    SourceRef `json:"source"`
	ContentID string    `json:"contentId"`
	Version   string    `json:"version"`
	Err       error     `json:"-"`
}

// MergeResult is the output of one merge pass.
type MergeResult struct {
	Catalog ResolvedCatalog
	Invalid []InvalidEntry
}

// MergeCatalog folds manifest payloads and then registry payloads into one
// entry per content id. An entry replaces the current holder only when it is
// strictly greater, so on ties the first one seen stays. Sources of each kind
// are visited in ascending id order.
func MergeCatalog(manifests map[string]ContentEntry, registries map[string]RegistryPayload) MergeResult {
	winners := make(map[string]CatalogEntry)
	var invalid []InvalidEntry

	offer := func(entry ContentEntry, via SourceRef) {
		if err := Orderable(entry); err != nil {
			invalid = append(invalid, InvalidEntry{
				Source:    via,
				ContentID: entry.ID,
				Version:   entry.Version,
				Err:       err,
			})
			return
		}
		current, ok := winners[entry.ID]
		if !ok {
			winners[entry.ID] = CatalogEntry{ContentID: entry.ID, Entry: entry, Via: via}
			return
		}
		order, err := CompareVersions(current.Entry, entry)
		if err != nil || order >= 0 {
			return
		}
		winners[entry.ID] = CatalogEntry{ContentID: entry.ID, Entry: entry, Via: via}
	}

	for _, id := range slices.Sorted(maps.Keys(manifests)) {
		offer(manifests[id], SourceRef{Kind: SourceKindManifest, ID: id})
	}
	for _, id := range slices.Sorted(maps.Keys(registries)) {
		for _, entry := range registries[id].Contents {
			offer(entry, SourceRef{Kind: SourceKindRegistry, ID: id})
		}
	}

	entries := make([]CatalogEntry, 0, len(winners))
	for _, entry := range winners {
		entries = append(entries, entry)
	}
	return MergeResult{
		Catalog: NewResolvedCatalog(entries),
		Invalid: invalid,
	}
}

// WhichSource traces a resolved content id back to the source holding an
// entry with the exact same (version, version_number) pair. Local manifests
// are searched before registries. It returns false when the id is not in the
// catalog or no source matches exactly.
func WhichSource(
	catalog ResolvedCatalog,
	manifests map[string]ContentEntry,
	registries map[string]RegistryPayload,
	contentID string,
) (SourceRef, bool) {
	winner, ok := catalog.Get(contentID)
	if !ok {
		return SourceRef{}, false
	}
	for _, id := range slices.Sorted(maps.Keys(manifests)) {
		entry := manifests[id]
		if entry.ID == contentID && entry.SameVersion(winner.Entry) {
			return SourceRef{Kind: SourceKindLocal, ID: id}, true
		}
	}
	for _, id := range slices.Sorted(maps.Keys(registries)) {
		for _, entry := range registries[id].Contents {
			if entry.ID == contentID && entry.SameVersion(winner.Entry) {
				return SourceRef{Kind: SourceKindRegistry, ID: id}, true
			}
		}
	}
	return SourceRef{}, false
}

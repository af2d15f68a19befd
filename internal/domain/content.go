package domain

import (
	"encoding/json"
	"fmt"
	"sort"
)

// ContentEntry is one version record for one content id. Fields other than
// id, version and version_number are carried through untouched in Metadata.
type ContentEntry struct {
	ID            string
	Version       string
	VersionNumber *uint64
	Metadata      map[string]any
}

// RegistryPayload is the decoded document of one registry source.
type RegistryPayload struct {
	Contents []ContentEntry `json:"contents"`
}

const (
	fieldID            = "id"
	fieldVersion       = "version"
	fieldVersionNumber = "version_number"
	fieldManifestURL   = "manifest_url"
)

// VersionNumberOf returns a pointer suitable for ContentEntry.VersionNumber.
func VersionNumberOf(n uint64) *uint64 {
	return &n
}

// SameVersion reports whether two entries carry the exact same
// (version, version_number) pair. It does not consult the comparator.
func (e ContentEntry) SameVersion(other ContentEntry) bool {
	if e.Version != other.Version {
		return false
	}
	switch {
	case e.VersionNumber == nil && other.VersionNumber == nil:
		return true
	case e.VersionNumber == nil || other.VersionNumber == nil:
		return false
	default:
		return *e.VersionNumber == *other.VersionNumber
	}
}

// ManifestURL returns the manifest_url metadata field when present.
func (e ContentEntry) ManifestURL() string {
	value, _ := e.Metadata[fieldManifestURL].(string)
	return value
}

// WithManifestURL returns a copy of the entry with manifest_url set.
func (e ContentEntry) WithManifestURL(url string) ContentEntry {
	meta := make(map[string]any, len(e.Metadata)+1)
	for k, v := range e.Metadata {
		meta[k] = v
	}
	meta[fieldManifestURL] = url
	e.Metadata = meta
	return e
}

// MarshalJSON flattens metadata next to the well known fields.
func (e ContentEntry) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Metadata)+3)
	for k, v := range e.Metadata {
		out[k] = v
	}
	out[fieldID] = e.ID
	out[fieldVersion] = e.Version
	if e.VersionNumber != nil {
		out[fieldVersionNumber] = *e.VersionNumber
	} else {
		out[fieldVersionNumber] = nil
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the well known fields and keeps the rest as metadata.
func (e *ContentEntry) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var entry ContentEntry
	if v, ok := raw[fieldID]; ok {
		if err := json.Unmarshal(v, &entry.ID); err != nil {
			return fmt.Errorf("decode %s: %w", fieldID, err)
		}
	}
	if v, ok := raw[fieldVersion]; ok {
		if err := json.Unmarshal(v, &entry.Version); err != nil {
			return fmt.Errorf("decode %s: %w", fieldVersion, err)
		}
	}
	if v, ok := raw[fieldVersionNumber]; ok {
		var n *uint64
		if err := json.Unmarshal(v, &n); err != nil {
			return fmt.Errorf("decode %s: %w", fieldVersionNumber, err)
		}
		entry.VersionNumber = n
	}
	for k, v := range raw {
		if k == fieldID || k == fieldVersion || k == fieldVersionNumber {
			continue
		}
		var value any
		if err := json.Unmarshal(v, &value); err != nil {
			return fmt.Errorf("decode %s: %w", k, err)
		}
		if entry.Metadata == nil {
			entry.Metadata = make(map[string]any)
		}
		entry.Metadata[k] = value
	}
	*e = entry
	return nil
}

// SourceKind tags which namespace a source identifier belongs to.
type SourceKind string

const (
	SourceKindRegistry SourceKind = "registry"
	SourceKindManifest SourceKind = "manifest"
	// SourceKindLocal marks a catalog entry contributed by a local manifest.
	SourceKindLocal SourceKind = "local"
)

// SourceRef names the source that contributed a catalog entry.
type SourceRef struct {
	Kind SourceKind `json:"kind"`
	ID   string     `json:"id"`
}

func (r SourceRef) String() string {
	if r.ID == "" {
		return string(r.Kind)
	}
	return string(r.Kind) + ":" + r.ID
}

// CatalogEntry is the resolved winner for one content id.
type CatalogEntry struct {
	ContentID string       `json:"contentId"`
	Entry     ContentEntry `json:"entry"`
	Via       SourceRef    `json:"via"`
}

// ResolvedCatalog holds catalog entries ordered by content id.
type ResolvedCatalog struct {
	entries []CatalogEntry
	index   map[string]int
}

// NewResolvedCatalog sorts the entries by content id and indexes them.
func NewResolvedCatalog(entries []CatalogEntry) ResolvedCatalog {
	sorted := make([]CatalogEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ContentID < sorted[j].ContentID
	})
	index := make(map[string]int, len(sorted))
	for i, entry := range sorted {
		index[entry.ContentID] = i
	}
	return ResolvedCatalog{entries: sorted, index: index}
}

// Len returns the number of content ids.
func (c ResolvedCatalog) Len() int {
	return len(c.entries)
}

// Get returns the catalog entry for a content id.
func (c ResolvedCatalog) Get(contentID string) (CatalogEntry, bool) {
	i, ok := c.index[contentID]
	if !ok {
		return CatalogEntry{}, false
	}
	return c.entries[i], true
}

// Entries returns a copy of the entries in content id order.
func (c ResolvedCatalog) Entries() []CatalogEntry {
	out := make([]CatalogEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// ContentIDs returns the content ids in ascending order.
func (c ResolvedCatalog) ContentIDs() []string {
	out := make([]string, len(c.entries))
	for i, entry := range c.entries {
		out[i] = entry.ContentID
	}
	return out
}

// Winners returns the winning content entries in content id order.
func (c ResolvedCatalog) Winners() []ContentEntry {
	out := make([]ContentEntry, len(c.entries))
	for i, entry := range c.entries {
		out[i] = entry.Entry
	}
	return out
}

// MarshalJSON encodes the catalog as an ordered array.
func (c ResolvedCatalog) MarshalJSON() ([]byte, error) {
	if c.entries == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c.entries)
}

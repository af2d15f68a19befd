package domain

import "sort"

// CatalogDiff summarizes changes between two resolved catalogs.
type CatalogDiff struct {
	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`
	// Updated lists content ids whose winning version changed.
	Updated []string `json:"updated,omitempty"`
	// Moved lists content ids whose version stayed but whose winning source changed.
	Moved []string `json:"moved,omitempty"`
}

// IsEmpty reports whether the diff contains any changes.
func (d CatalogDiff) IsEmpty() bool {
	return len(d.Added) == 0 &&
		len(d.Removed) == 0 &&
		len(d.Updated) == 0 &&
		len(d.Moved) == 0
}

// DiffCatalogs computes a diff between two resolved catalogs.
func DiffCatalogs(prev ResolvedCatalog, next ResolvedCatalog) CatalogDiff {
	diff := CatalogDiff{}

	for _, prevEntry := range prev.entries {
		nextEntry, ok := next.Get(prevEntry.ContentID)
		if !ok {
			diff.Removed = append(diff.Removed, prevEntry.ContentID)
			continue
		}
		switch {
		case !prevEntry.Entry.SameVersion(nextEntry.Entry):
			diff.Updated = append(diff.Updated, prevEntry.ContentID)
		case prevEntry.Via != nextEntry.Via:
			diff.Moved = append(diff.Moved, prevEntry.ContentID)
		}
	}
	for _, nextEntry := range next.entries {
		if _, ok := prev.Get(nextEntry.ContentID); !ok {
			diff.Added = append(diff.Added, nextEntry.ContentID)
		}
	}

	sort.Strings(diff.Added)
	sort.Strings(diff.Removed)
	return diff
}

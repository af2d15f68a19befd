package domain

import "context"

// SourceLister returns the current source id to locator mappings.
type SourceLister interface {
	ListRegistries(ctx context.Context) (map[string]string, error)
	ListManifests(ctx context.Context) (map[string]string, error)
}

// SourceFetcher fetches the payload behind one locator.
type SourceFetcher interface {
	FetchRegistry(ctx context.Context, locator string) (RegistryPayload, error)
	FetchManifest(ctx context.Context, locator string) (ContentEntry, error)
}

// Profile is a target directory content gets installed into.
type Profile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
}

package app

import (
	"context"
	"fmt"

	"composer/internal/app/catalog"
	"composer/internal/domain"
)

func (a *Application) AddProfile(ctx context.Context, name, path string) (domain.Profile, error) {
	return a.store.AddProfile(ctx, name, path)
}

func (a *Application) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	return a.store.ListProfiles(ctx)
}

func (a *Application) RemoveProfile(ctx context.Context, id string) error {
	return a.store.RemoveProfile(ctx, id)
}

// PlanInstallation plans installing contentIDs from snapshot's catalog into
// the profile. No ids means the whole catalog.
func (a *Application) PlanInstallation(ctx context.Context, profileID string, snapshot catalog.Snapshot, contentIDs []string) (domain.InstallPlan, error) {
	desired, err := DesiredEntries(snapshot.Catalog, contentIDs)
	if err != nil {
		return domain.InstallPlan{}, err
	}
	return a.planner.PlanInstallation(ctx, profileID, desired)
}

// RecordInstalled marks the plan's new entries as installed in the profile.
func (a *Application) RecordInstalled(ctx context.Context, profileID string, plan domain.InstallPlan) error {
	return a.planner.Apply(ctx, profileID, plan)
}

// DesiredEntries picks the winning entries for contentIDs.
func DesiredEntries(resolved domain.ResolvedCatalog, contentIDs []string) ([]domain.ContentEntry, error) {
	if len(contentIDs) == 0 {
		return resolved.Winners(), nil
	}
	desired := make([]domain.ContentEntry, 0, len(contentIDs))
	seen := make(map[string]struct{}, len(contentIDs))
	for _, id := range contentIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		winner, ok := resolved.Get(id)
		if !ok {
			return nil, domain.E(domain.CodeNotFound, "plan installation",
				fmt.Sprintf("content %q is not in the catalog", id), domain.ErrNotFound)
		}
		desired = append(desired, winner.Entry)
	}
	return desired, nil
}

package domain

import (
	"context"
	"sort"
)

// ContentUpdate pairs the installed entry with the one replacing it.
type ContentUpdate struct {
	Old ContentEntry `json:"old"`
	New ContentEntry `json:"new"`
}

// InstallPlan is what installing a desired set of entries into a profile
// would keep, update and newly install.
type InstallPlan struct {
	ToKeep    []ContentEntry  `json:"to_keep"`
	ToUpdate  []ContentUpdate `json:"to_update"`
	ToInstall []ContentEntry  `json:"to_install"`
}

// IsNoop reports whether applying the plan changes nothing.
func (p InstallPlan) IsNoop() bool {
	return len(p.ToUpdate) == 0 && len(p.ToInstall) == 0
}

// InstallPlanner computes an install plan for a profile.
type InstallPlanner interface {
	PlanInstallation(ctx context.Context, profileID string, desired []ContentEntry) (InstallPlan, error)
}

// DiffInstallation plans desired against installed. Installed entries that
// are not desired, or desired with the exact same version, are kept. Every
// list is ordered by content id. A content id desired twice is rejected.
func DiffInstallation(installed map[string]ContentEntry, desired []ContentEntry) (InstallPlan, error) {
	plan := InstallPlan{
		ToKeep:    []ContentEntry{},
		ToUpdate:  []ContentUpdate{},
		ToInstall: []ContentEntry{},
	}
	wanted := make(map[string]ContentEntry, len(desired))
	for _, entry := range desired {
		if entry.ID == "" {
			return InstallPlan{}, E(CodeInvalidArgument, "plan installation", "content id is required", ErrInvalidPayload)
		}
		if _, dup := wanted[entry.ID]; dup {
			return InstallPlan{}, E(CodeInvalidArgument, "plan installation", "content "+entry.ID+" desired twice", ErrInvalidPayload)
		}
		wanted[entry.ID] = entry
	}

	for id, want := range wanted {
		have, ok := installed[id]
		switch {
		case !ok:
			plan.ToInstall = append(plan.ToInstall, want)
		case have.SameVersion(want):
			plan.ToKeep = append(plan.ToKeep, have)
		default:
			plan.ToUpdate = append(plan.ToUpdate, ContentUpdate{Old: have, New: want})
		}
	}
	for id, have := range installed {
		if _, ok := wanted[id]; !ok {
			plan.ToKeep = append(plan.ToKeep, have)
		}
	}

	sort.Slice(plan.ToKeep, func(i, j int) bool { return plan.ToKeep[i].ID < plan.ToKeep[j].ID })
	sort.Slice(plan.ToUpdate, func(i, j int) bool { return plan.ToUpdate[i].New.ID < plan.ToUpdate[j].New.ID })
	sort.Slice(plan.ToInstall, func(i, j int) bool { return plan.ToInstall[i].ID < plan.ToInstall[j].ID })
	return plan, nil
}

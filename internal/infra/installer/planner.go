package installer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"composer/internal/domain"
	"composer/internal/infra/telemetry"
)

// InstalledStore reads and records the contents installed in a profile.
type InstalledStore interface {
	InstalledContents(ctx context.Context, profileID string) (map[string]domain.ContentEntry, error)
	RecordInstalled(ctx context.Context, profileID string, entries []domain.ContentEntry) error
}

// Planner diffs desired entries against what a profile has installed.
type Planner struct {
	store  InstalledStore
	logger *zap.Logger
}

func NewPlanner(store InstalledStore, logger *zap.Logger) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{store: store, logger: logger.Named("installer")}
}

func (p *Planner) PlanInstallation(ctx context.Context, profileID string, desired []domain.ContentEntry) (domain.InstallPlan, error) {
	started := time.Now()
	installed, err := p.store.InstalledContents(ctx, profileID)
	if err != nil {
		return domain.InstallPlan{}, domain.Wrap(domain.CodeInternal, "plan installation", err)
	}
	plan, err := domain.DiffInstallation(installed, desired)
	if err != nil {
		return domain.InstallPlan{}, err
	}
	p.logger.Info("installation planned",
		telemetry.EventField(telemetry.EventInstallationPlanned),
		zap.String("profile", profileID),
		zap.Int("keep", len(plan.ToKeep)),
		zap.Int("update", len(plan.ToUpdate)),
		zap.Int("install", len(plan.ToInstall)),
		telemetry.DurationField(time.Since(started)),
	)
	return plan, nil
}

// Apply records the plan's updated and installed entries as installed.
// Moving files into the profile is done by the caller.
func (p *Planner) Apply(ctx context.Context, profileID string, plan domain.InstallPlan) error {
	entries := make([]domain.ContentEntry, 0, len(plan.ToUpdate)+len(plan.ToInstall))
	for _, update := range plan.ToUpdate {
		entries = append(entries, update.New)
	}
	entries = append(entries, plan.ToInstall...)
	if len(entries) == 0 {
		return nil
	}
	return p.store.RecordInstalled(ctx, profileID, entries)
}

var _ domain.InstallPlanner = (*Planner)(nil)

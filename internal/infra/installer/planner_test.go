package installer

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"composer/internal/domain"
	"composer/internal/infra/store"
)

func TestPlanner_PlanAndApply(t *testing.T) {
	st, err := store.OpenStore(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	profile, err := st.AddProfile(ctx, "main", t.TempDir())
	require.NoError(t, err)
	require.NoError(t, st.RecordInstalled(ctx, profile.ID, []domain.ContentEntry{{ID: "foo", Version: "1.0.0"}}))

	planner := NewPlanner(st, nil)
	desired := []domain.ContentEntry{{ID: "foo", Version: "1.1.0"}, {ID: "bar", Version: "0.1"}}

	plan, err := planner.PlanInstallation(ctx, profile.ID, desired)
	require.NoError(t, err)
	require.Len(t, plan.ToUpdate, 1)
	assert.Equal(t, "1.0.0", plan.ToUpdate[0].Old.Version)
	require.Len(t, plan.ToInstall, 1)
	assert.Equal(t, "bar", plan.ToInstall[0].ID)
	assert.Empty(t, plan.ToKeep)

	require.NoError(t, planner.Apply(ctx, profile.ID, plan))

	plan, err = planner.PlanInstallation(ctx, profile.ID, desired)
	require.NoError(t, err)
	assert.True(t, plan.IsNoop())
	assert.Len(t, plan.ToKeep, 2)
}

func TestPlanner_UnknownProfile(t *testing.T) {
	st, err := store.OpenStore(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	defer st.Close()

	_, err = NewPlanner(st, nil).PlanInstallation(context.Background(), "missing", nil)
	require.ErrorIs(t, err, domain.ErrProfileNotFound)
	code, ok := domain.CodeFrom(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeNotFound, code)
}

package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffInstallation(t *testing.T) {
	installed := map[string]ContentEntry{
		"kept":    content("kept", "1.0.0"),
		"same":    content("same", "2.0.0"),
		"old":     content("old", "1.0.0"),
		"renumbd": {ID: "renumbd", Version: "1.0.0", VersionNumber: VersionNumberOf(1)},
	}
	desired := []ContentEntry{
		content("same", "2.0.0"),
		content("old", "1.1.0"),
		{ID: "renumbd", Version: "1.0.0", VersionNumber: VersionNumberOf(2)},
		content("fresh", "0.1"),
	}

	plan, err := DiffInstallation(installed, desired)
	require.NoError(t, err)

	want := InstallPlan{
		ToKeep: []ContentEntry{content("kept", "1.0.0"), content("same", "2.0.0")},
		ToUpdate: []ContentUpdate{
			{Old: content("old", "1.0.0"), New: content("old", "1.1.0")},
			{
				Old: ContentEntry{ID: "renumbd", Version: "1.0.0", VersionNumber: VersionNumberOf(1)},
				New: ContentEntry{ID: "renumbd", Version: "1.0.0", VersionNumber: VersionNumberOf(2)},
			},
		},
		ToInstall: []ContentEntry{content("fresh", "0.1")},
	}
	if diff := cmp.Diff(want, plan); diff != "" {
		t.Fatalf("plan mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, plan.IsNoop())
}

func TestDiffInstallation_Edges(t *testing.T) {
	plan, err := DiffInstallation(nil, nil)
	require.NoError(t, err)
	assert.True(t, plan.IsNoop())
	assert.NotNil(t, plan.ToKeep)

	_, err = DiffInstallation(nil, []ContentEntry{content("a", "1.0"), content("a", "2.0")})
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, err = DiffInstallation(nil, []ContentEntry{{Version: "1.0"}})
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

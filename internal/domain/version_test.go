package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(version string) ContentEntry {
	return ContentEntry{ID: "foo", Version: version}
}

func numbered(version string, n uint64) ContentEntry {
	return ContentEntry{ID: "foo", Version: version, VersionNumber: VersionNumberOf(n)}
}

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		name string
		a    ContentEntry
		b    ContentEntry
		want int
	}{
		{name: "equal release", a: entry("1.0.0"), b: entry("1.0.0"), want: 0},
		{name: "patch defaults to zero", a: entry("1.0"), b: entry("1.0.0"), want: 0},
		{name: "major decides", a: entry("2.0.0"), b: entry("1.9.9"), want: 1},
		{name: "minor compared numerically", a: entry("1.2.0"), b: entry("1.10.0"), want: -1},
		{name: "patch decides", a: entry("1.0.1"), b: entry("1.0.2"), want: -1},
		{name: "release beats prerelease", a: entry("2.0.0"), b: entry("2.0.0-beta"), want: 1},
		{name: "prerelease loses to release", a: entry("2.0.0-rc.1"), b: entry("2.0.0"), want: -1},
		{name: "prerelease lexicographic", a: entry("1.0.0-alpha"), b: entry("1.0.0-beta"), want: -1},
		{name: "prerelease plain string order", a: entry("1.0.0-rc.10"), b: entry("1.0.0-rc.9"), want: -1},
		{name: "identical prerelease", a: entry("1.0.0-beta"), b: entry("1.0-beta"), want: 0},
		{name: "numeric override beats string", a: entry("1.0.0"), b: numbered("0.1", 1), want: -1},
		{name: "numeric override ignores magnitude", a: numbered("0.0.1", 0), b: entry("99.0.0"), want: 1},
		{name: "both numeric", a: numbered("9.0.0", 3), b: numbered("1.0.0", 7), want: -1},
		{name: "both numeric equal", a: numbered("2.0.0", 7), b: numbered("1.0.0", 7), want: 0},
		{name: "numeric override skips parsing", a: numbered("not-a-version", 1), b: entry("also bad"), want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CompareVersions(tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			reverse, err := CompareVersions(tt.b, tt.a)
			require.NoError(t, err)
			assert.Equal(t, -tt.want, reverse)
		})
	}
}

func TestCompareVersions_InvalidFormat(t *testing.T) {
	tests := []string{"", "1", "v1.0.0", "1.0.0.0", "1.0.0-", "1.0.0+build", "a.b.c", "1.0.0-be ta"}

	for _, raw := range tests {
		t.Run(raw, func(t *testing.T) {
			_, err := CompareVersions(entry(raw), entry("1.0.0"))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidVersionFormat))

			_, err = CompareVersions(entry("1.0.0"), entry(raw))
			require.Error(t, err)

			code, ok := CodeFrom(err)
			require.True(t, ok)
			assert.Equal(t, CodeInvalidArgument, code)
		})
	}
}

func TestCompareVersions_TotalOrder(t *testing.T) {
	entries := []ContentEntry{
		entry("0.1"),
		entry("0.1.1"),
		entry("1.0.0-alpha"),
		entry("1.0.0-alpha.1"),
		entry("1.0.0-beta"),
		entry("1.0.0"),
		entry("1.2.0"),
		entry("1.10.0"),
		entry("2.0.0-rc"),
		entry("2.0.0"),
		numbered("0.0.1", 1),
		numbered("0.0.1", 5),
	}

	cmp := func(a, b ContentEntry) int {
		got, err := CompareVersions(a, b)
		require.NoError(t, err)
		return got
	}

	// The slice is listed in ascending order.
	for i := range entries {
		for j := range entries {
			want := 0
			switch {
			case i < j:
				want = -1
			case i > j:
				want = 1
			}
			assert.Equal(t, want, cmp(entries[i], entries[j]), "%s vs %s", entries[i].Version, entries[j].Version)
		}
	}

	for _, a := range entries {
		for _, b := range entries {
			for _, c := range entries {
				if cmp(a, b) <= 0 && cmp(b, c) <= 0 {
					assert.LessOrEqual(t, cmp(a, c), 0)
				}
			}
		}
	}
}

func TestParseVersion(t *testing.T) {
	v, err := ParseVersion("3.4-beta.2")
	require.NoError(t, err)
	assert.Equal(t, Version{Major: 3, Minor: 4, Patch: 0, Prerelease: "beta.2"}, v)
	assert.Equal(t, "3.4.0-beta.2", v.String())

	_, err = ParseVersion("99999999999999999999.0")
	require.ErrorIs(t, err, ErrInvalidVersionFormat)
}

package domain

import (
	"cmp"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var versionPattern = regexp.MustCompile(`^(?P<major>[0-9]+)\.(?P<minor>[0-9]+)(?:\.(?P<patch>[0-9]+))?(?:-(?P<prerelease>[0-9A-Za-z.-]+))?$`)

// Version is a parsed major.minor[.patch][-prerelease] string.
type Version struct {
	Major      uint64
	Minor      uint64
	Patch      uint64
	Prerelease string
}

// ParseVersion parses a version string. Patch defaults to 0 when absent.
func ParseVersion(raw string) (Version, error) {
	m := versionPattern.FindStringSubmatch(raw)
	if m == nil {
		return Version{}, E(CodeInvalidArgument, "parse version", fmt.Sprintf("%q", raw), ErrInvalidVersionFormat)
	}
	var v Version
	var err error
	if v.Major, err = strconv.ParseUint(m[1], 10, 64); err != nil {
		return Version{}, E(CodeInvalidArgument, "parse version", fmt.Sprintf("%q: major", raw), ErrInvalidVersionFormat)
	}
	if v.Minor, err = strconv.ParseUint(m[2], 10, 64); err != nil {
		return Version{}, E(CodeInvalidArgument, "parse version", fmt.Sprintf("%q: minor", raw), ErrInvalidVersionFormat)
	}
	if m[3] != "" {
		if v.Patch, err = strconv.ParseUint(m[3], 10, 64); err != nil {
			return Version{}, E(CodeInvalidArgument, "parse version", fmt.Sprintf("%q: patch", raw), ErrInvalidVersionFormat)
		}
	}
	v.Prerelease = m[4]
	return v, nil
}

func (v Version) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Prerelease != "" {
		b.WriteString("-")
		b.WriteString(v.Prerelease)
	}
	return b.String()
}

// Compare orders two parsed versions. A release is greater than any
// prerelease of the same major.minor.patch; prerelease tags compare as
// plain strings.
func (v Version) Compare(other Version) int {
	if c := cmp.Compare(v.Major, other.Major); c != 0 {
		return c
	}
	if c := cmp.Compare(v.Minor, other.Minor); c != 0 {
		return c
	}
	if c := cmp.Compare(v.Patch, other.Patch); c != 0 {
		return c
	}
	switch {
	case v.Prerelease == "" && other.Prerelease == "":
		return 0
	case v.Prerelease == "":
		return 1
	case other.Prerelease == "":
		return -1
	default:
		return strings.Compare(v.Prerelease, other.Prerelease)
	}
}

// CompareVersions returns -1, 0 or 1 as a is less than, equal to or greater
// than b. A non-nil version_number always outranks its absence; the version
// strings are only parsed when neither side carries one.
func CompareVersions(a, b ContentEntry) (int, error) {
	switch {
	case a.VersionNumber != nil && b.VersionNumber != nil:
		return cmp.Compare(*a.VersionNumber, *b.VersionNumber), nil
	case a.VersionNumber != nil:
		return 1, nil
	case b.VersionNumber != nil:
		return -1, nil
	}
	va, err := ParseVersion(a.Version)
	if err != nil {
		return 0, err
	}
	vb, err := ParseVersion(b.Version)
	if err != nil {
		return 0, err
	}
	return va.Compare(vb), nil
}

// Orderable reports whether the entry can take part in comparisons with any
// other entry.
func Orderable(e ContentEntry) error {
	if e.VersionNumber != nil {
		return nil
	}
	_, err := ParseVersion(e.Version)
	return err
}

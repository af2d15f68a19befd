package fetch

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"composer/internal/domain"
)

const localManifestsPrefix = "/manifests/"

var localIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// localManifestExts lists candidate file extensions in lookup order.
var localManifestExts = []string{".yml", ".yaml", ".json", ".toml"}

// LocalManifestLocator returns the locator of a manifest stored on disk.
func LocalManifestLocator(contentID string) string {
	return domain.LocalManifestScheme + "://" + localManifestsPrefix + contentID
}

// LocalManifestID extracts the content id from a local manifest locator.
func LocalManifestID(locator string) (string, error) {
	u, err := url.Parse(locator)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidLocator, err)
	}
	return localManifestID(u)
}

// ValidLocalID reports whether id can name a manifest file.
func ValidLocalID(id string) bool {
	return localIDPattern.MatchString(id) && id != "." && id != ".."
}

// IsLocalLocator reports whether locator points into the manifests directory.
func IsLocalLocator(locator string) bool {
	return strings.HasPrefix(locator, domain.LocalManifestScheme+":")
}

// LocalManifestPath is where AddManifestLocal stores a manifest.
func LocalManifestPath(dir, contentID string) string {
	return filepath.Join(dir, contentID+localManifestExts[0])
}

// LocalManifestPaths lists every file a local manifest may be read from.
func LocalManifestPaths(dir, contentID string) []string {
	paths := make([]string, 0, len(localManifestExts))
	for _, ext := range localManifestExts {
		paths = append(paths, filepath.Join(dir, contentID+ext))
	}
	return paths
}

func localManifestID(u *url.URL) (string, error) {
	if u.Scheme != domain.LocalManifestScheme || u.Host != "" {
		return "", fmt.Errorf("%w: %s", domain.ErrInvalidLocator, u.String())
	}
	id, ok := strings.CutPrefix(u.Path, localManifestsPrefix)
	if !ok || !ValidLocalID(id) {
		return "", fmt.Errorf("%w: %s", domain.ErrInvalidLocator, u.String())
	}
	return id, nil
}

func readLocalManifest(dir string, u *url.URL) (domain.ContentEntry, error) {
	id, err := localManifestID(u)
	if err != nil {
		return domain.ContentEntry{}, err
	}
	if dir == "" {
		return domain.ContentEntry{}, domain.E(domain.CodeFailedPrecond, "read local manifest", "manifests directory is not configured", nil)
	}
	for _, ext := range localManifestExts {
		path := filepath.Join(dir, id+ext)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return domain.ContentEntry{}, fmt.Errorf("read %s: %w", path, err)
		}
		format, _ := FormatFromExt(ext)
		entry, err := ParseManifest(format, data)
		if err != nil {
			return domain.ContentEntry{}, fmt.Errorf("%s: %w", path, err)
		}
		return entry, nil
	}
	return domain.ContentEntry{}, fmt.Errorf("%w: local manifest %q", domain.ErrNotFound, id)
}

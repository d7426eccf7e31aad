package resolver

import (
	"errors"
	"fmt"

	"github.com/tositrino/arch-bootstrap/internal/archive"
	"github.com/tositrino/arch-bootstrap/internal/repoindex"
)

// ErrNotFound reports a package name with no matching catalog entry. A
// missing package is not installable; callers abort the run.
var ErrNotFound = errors.New("no matching package in catalog")

// Resolve selects the single archive for pkgName: the first catalog entry
// spelled exactly "<pkgName>-<digit>..." with a recognized archive suffix.
// The catalog is sorted descending, so the first match is the highest
// version; ties keep original listing order. The version boundary is
// strict (the character right after "<pkgName>-" must be a digit), so a
// package name that merely prefixes another name ("lib" vs "libssh2")
// can never match the longer package's archives.
func Resolve(catalog repoindex.Catalog, pkgName string) (string, error) {
	if pkgName == "" {
		return "", fmt.Errorf("resolving empty package name: %w", ErrNotFound)
	}

	prefix := pkgName + "-"
	for _, entry := range catalog {
		if len(entry) <= len(prefix) {
			continue
		}
		if entry[:len(prefix)] != prefix {
			continue
		}
		if c := entry[len(prefix)]; c < '0' || c > '9' {
			continue
		}
		if !archive.IsRecognized(entry) {
			continue
		}
		return entry, nil
	}
	return "", fmt.Errorf("resolving %q: %w", pkgName, ErrNotFound)
}

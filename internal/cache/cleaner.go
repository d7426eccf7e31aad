// Package cache removes artifacts a bootstrap run leaves in the cache
// directory: downloaded package archives and mirror directory listings.
package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tositrino/arch-bootstrap/internal/config"
	fileutil "github.com/tositrino/arch-bootstrap/internal/utils/file"
)

// CleanOptions defines what cache artifacts should be removed.
type CleanOptions struct {
	CleanPackages bool   // remove downloaded archives under cache_dir/packages
	CleanListings bool   // remove cached mirror listings (index.* files)
	Repo          string // optional repository filter for listings (e.g. core)
	DryRun        bool   // report actions without deleting anything
}

// CleanResult contains the outcome of a cache cleanup run.
type CleanResult struct {
	RemovedPaths []string
	SkippedPaths []string
}

// Clean removes cached artifacts according to the provided options.
func Clean(opts CleanOptions) (*CleanResult, error) {
	if !opts.CleanPackages && !opts.CleanListings {
		return nil, fmt.Errorf("at least one scope must be specified")
	}

	targets, err := gatherTargets(opts)
	if err != nil {
		return nil, err
	}

	removed := make([]string, 0, len(targets))
	skipped := []string{}

	for _, target := range targets {
		exists, err := pathExists(target)
		if err != nil {
			return nil, fmt.Errorf("checking %s: %w", target, err)
		}
		if !exists {
			skipped = append(skipped, target)
			continue
		}

		if opts.DryRun {
			removed = append(removed, target)
			continue
		}

		if err := os.RemoveAll(target); err != nil {
			return nil, fmt.Errorf("removing %s: %w", target, err)
		}
		removed = append(removed, target)
	}

	sort.Strings(removed)
	sort.Strings(skipped)

	return &CleanResult{
		RemovedPaths: removed,
		SkippedPaths: skipped,
	}, nil
}

func gatherTargets(opts CleanOptions) ([]string, error) {
	cacheDir, err := config.CacheDir()
	if err != nil {
		return nil, fmt.Errorf("resolving cache directory: %w", err)
	}

	set := make(map[string]struct{})

	if opts.CleanPackages {
		pkgRoot := filepath.Join(cacheDir, "packages")
		if err := ensureSubPath(cacheDir, pkgRoot); err != nil {
			return nil, err
		}
		set[pkgRoot] = struct{}{}
	}

	if opts.CleanListings {
		listings, err := listingTargets(cacheDir, opts.Repo)
		if err != nil {
			return nil, err
		}
		for _, path := range listings {
			set[path] = struct{}{}
		}
	}

	targets := make([]string, 0, len(set))
	for path := range set {
		targets = append(targets, path)
	}
	sort.Strings(targets)
	return targets, nil
}

func listingTargets(cacheDir, repo string) ([]string, error) {
	entries, err := os.ReadDir(cacheDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing cache directory: %w", err)
	}

	prefix := "index."
	if repo != "" {
		prefix = "index." + repo + "_"
	}

	targets := []string{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		target := filepath.Join(cacheDir, entry.Name())
		if err := ensureSubPath(cacheDir, target); err != nil {
			return nil, err
		}
		targets = append(targets, target)
	}
	return targets, nil
}

func ensureSubPath(base, target string) error {
	ok, err := fileutil.IsSubPath(base, target)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("refusing to operate on %s because it is outside %s", target, base)
	}
	return nil
}

func pathExists(path string) (bool, error) {
	if path == "" {
		return false, fmt.Errorf("path must not be empty")
	}
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

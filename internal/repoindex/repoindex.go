package repoindex

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tositrino/arch-bootstrap/internal/utils/file"
	"github.com/tositrino/arch-bootstrap/internal/utils/logger"
	"github.com/tositrino/arch-bootstrap/internal/utils/network"
	"golang.org/x/net/html"
)

// ErrEmptyListing reports a repository listing that produced no entries.
// An empty repository almost always means a malformed fetch, so this is
// fatal rather than an empty catalog.
var ErrEmptyListing = errors.New("repository listing yielded no entries")

// Repository identifies one remote package repository for one architecture.
// Immutable for a run.
type Repository struct {
	BaseURL string // mirror base, e.g. https://mirrors.kernel.org/archlinux
	Name    string // repository name, e.g. "core" or "extra"
	Arch    string // architecture tag, e.g. "x86_64"
}

func (r Repository) repoPath() string {
	return r.Name + "/os/" + r.Arch
}

// ListingURL returns the directory listing URL, trailing slash enforced.
func (r Repository) ListingURL() string {
	return strings.TrimRight(r.BaseURL, "/") + "/" + r.repoPath() + "/"
}

// FileURL returns the download URL for one archive in this repository.
func (r Repository) FileURL(filename string) string {
	return r.ListingURL() + filename
}

// CacheFileName derives the per-repository listing cache filename. Path
// separators in the repository identifier are flattened so distinct repo
// paths cannot collide in one cache directory.
func (r Repository) CacheFileName() string {
	return "index." + strings.ReplaceAll(r.repoPath(), "/", "_")
}

// Catalog is the parsed listing: archive filenames in descending order, so
// the highest version of any package sorts first. Entries are opaque
// strings; no structured version parsing happens anywhere.
type Catalog []string

// Fetch returns the catalog for repo, caching the raw listing at cachePath.
// A non-empty cache file is reused as-is with no staleness check; cache
// validity across runs is intentional (re-invocation after failure).
func Fetch(repo Repository, cachePath string) (Catalog, error) {
	log := logger.Logger()

	var raw []byte
	if file.IsNonEmpty(cachePath) {
		log.Debugf("using cached listing %s for %s", cachePath, repo.ListingURL())
		data, err := os.ReadFile(cachePath)
		if err != nil {
			return nil, fmt.Errorf("reading cached listing %s: %w", cachePath, err)
		}
		raw = data
	} else {
		data, err := download(repo)
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(cachePath), 0755); err != nil {
			return nil, fmt.Errorf("creating listing cache directory: %w", err)
		}
		if err := os.WriteFile(cachePath, data, 0644); err != nil {
			return nil, fmt.Errorf("writing listing cache %s: %w", cachePath, err)
		}
		raw = data
	}

	catalog := Parse(raw)
	if len(catalog) == 0 {
		return nil, fmt.Errorf("parsing listing for %s: %w", repo.ListingURL(), ErrEmptyListing)
	}
	log.Infof("repository %s/%s: %d entries", repo.Name, repo.Arch, len(catalog))
	return catalog, nil
}

func download(repo Repository) ([]byte, error) {
	log := logger.Logger()
	listingURL := repo.ListingURL()
	log.Infof("fetching repository listing %s", listingURL)

	if strings.HasPrefix(strings.ToLower(listingURL), "ftp://") {
		names, err := network.NameList(listingURL)
		if err != nil {
			return nil, fmt.Errorf("fetching listing %s: %w", listingURL, err)
		}
		data := []byte(strings.Join(names, "\n"))
		if len(data) == 0 {
			return nil, fmt.Errorf("fetching listing %s: empty response", listingURL)
		}
		return data, nil
	}

	body, err := network.Get(listingURL)
	if err != nil {
		return nil, fmt.Errorf("fetching listing %s: %w", listingURL, err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("reading listing %s: %w", listingURL, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("fetching listing %s: empty response", listingURL)
	}
	return data, nil
}

// Parse turns a raw listing into a descending-sorted catalog. HTML index
// pages contribute every hyperlink target's final path segment; listings
// with no markup (FTP NLST output) are read as one name per line. The
// parsing strategy is deliberately contained here so it can be swapped
// without touching the resolver or the installer.
func Parse(raw []byte) Catalog {
	var entries []string
	if bytes.ContainsRune(raw, '<') {
		entries = parseAnchors(raw)
	} else {
		entries = parseLines(raw)
	}

	sort.Sort(sort.Reverse(sort.StringSlice(entries)))
	return entries
}

func parseAnchors(raw []byte) []string {
	var entries []string
	seen := make(map[string]struct{})

	tok := html.NewTokenizer(bytes.NewReader(raw))
	for {
		tt := tok.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		name, hasAttr := tok.TagName()
		if string(name) != "a" || !hasAttr {
			continue
		}
		for {
			key, val, more := tok.TagAttr()
			if string(key) == "href" {
				if entry, ok := normalizeHref(string(val)); ok {
					if _, dup := seen[entry]; !dup {
						seen[entry] = struct{}{}
						entries = append(entries, entry)
					}
				}
			}
			if !more {
				break
			}
		}
	}
	return entries
}

func normalizeHref(href string) (string, bool) {
	u, err := url.Parse(href)
	if err != nil || u.Path == "" {
		return "", false
	}
	seg := path.Base(u.Path)
	if seg == "." || seg == ".." || seg == "/" || seg == "" {
		return "", false
	}
	if unescaped, err := url.PathUnescape(seg); err == nil {
		seg = unescaped
	}
	return seg, true
}

func parseLines(raw []byte) []string {
	var entries []string
	for _, line := range strings.Split(string(raw), "\n") {
		name := path.Base(strings.TrimSpace(line))
		if name == "" || name == "." || name == ".." || name == "/" {
			continue
		}
		entries = append(entries, name)
	}
	return entries
}

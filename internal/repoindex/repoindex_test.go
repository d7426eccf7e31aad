package repoindex_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/tositrino/arch-bootstrap/internal/repoindex"
)

const listingHTML = `<html><head><title>Index of /core/os/x86_64</title></head>
<body><h1>Index of /core/os/x86_64</h1>
<a href="../">../</a>
<a href="acl-2.3.2-1-x86_64.pkg.tar.zst">acl-2.3.2-1-x86_64.pkg.tar.zst</a>
<a href="bash-5.2.026-2-x86_64.pkg.tar.zst">bash-5.2.026-2-x86_64.pkg.tar.zst</a>
<a href="bash-5.1.016-1-x86_64.pkg.tar.xz">bash-5.1.016-1-x86_64.pkg.tar.xz</a>
<a href="core.db">core.db</a>
<a href="?C=M;O=A">sort</a>
</body></html>`

func TestListingURLTrailingSlash(t *testing.T) {
	repo := repoindex.Repository{BaseURL: "https://mirror.example.org/archlinux/", Name: "core", Arch: "x86_64"}
	want := "https://mirror.example.org/archlinux/core/os/x86_64/"
	if got := repo.ListingURL(); got != want {
		t.Errorf("ListingURL() = %q, want %q", got, want)
	}
}

func TestFileURL(t *testing.T) {
	repo := repoindex.Repository{BaseURL: "https://mirror.example.org/archlinux", Name: "extra", Arch: "x86_64"}
	want := "https://mirror.example.org/archlinux/extra/os/x86_64/pkg-1.0-1-x86_64.pkg.tar.zst"
	if got := repo.FileURL("pkg-1.0-1-x86_64.pkg.tar.zst"); got != want {
		t.Errorf("FileURL() = %q, want %q", got, want)
	}
}

func TestCacheFileNameFlattensSeparators(t *testing.T) {
	repo := repoindex.Repository{BaseURL: "https://mirror.example.org", Name: "core", Arch: "x86_64"}
	want := "index.core_os_x86_64"
	if got := repo.CacheFileName(); got != want {
		t.Errorf("CacheFileName() = %q, want %q", got, want)
	}
}

func TestParseSortsDescending(t *testing.T) {
	catalog := repoindex.Parse([]byte(listingHTML))

	// parent links and query-string anchors must not contribute entries
	for _, entry := range catalog {
		if entry == ".." || entry == "../" {
			t.Errorf("parent link leaked into catalog: %q", entry)
		}
	}

	// descending order: bash-5.2 before bash-5.1
	i52, i51 := -1, -1
	for i, entry := range catalog {
		switch entry {
		case "bash-5.2.026-2-x86_64.pkg.tar.zst":
			i52 = i
		case "bash-5.1.016-1-x86_64.pkg.tar.xz":
			i51 = i
		}
	}
	if i52 == -1 || i51 == -1 {
		t.Fatalf("expected both bash entries in catalog, got %v", catalog)
	}
	if i52 > i51 {
		t.Errorf("catalog not in descending order: bash-5.2 at %d, bash-5.1 at %d", i52, i51)
	}
}

func TestParsePlainLines(t *testing.T) {
	raw := []byte("acl-2.3.2-1-x86_64.pkg.tar.zst\nbash-5.2.026-2-x86_64.pkg.tar.zst\n")
	catalog := repoindex.Parse(raw)
	if len(catalog) != 2 {
		t.Fatalf("expected 2 entries, got %d: %v", len(catalog), catalog)
	}
}

func TestFetchCachesListing(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if r.URL.Path != "/core/os/x86_64/" {
			t.Errorf("unexpected request path %q", r.URL.Path)
		}
		w.Write([]byte(listingHTML))
	}))
	defer server.Close()

	repo := repoindex.Repository{BaseURL: server.URL, Name: "core", Arch: "x86_64"}
	cachePath := filepath.Join(t.TempDir(), repo.CacheFileName())

	catalog, err := repoindex.Fetch(repo, cachePath)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(catalog) == 0 {
		t.Fatal("empty catalog from valid listing")
	}
	if hits != 1 {
		t.Fatalf("expected 1 fetch, got %d", hits)
	}

	// second fetch must hit the cache file, not the server
	catalog2, err := repoindex.Fetch(repo, cachePath)
	if err != nil {
		t.Fatalf("cached Fetch failed: %v", err)
	}
	if hits != 1 {
		t.Errorf("cache not used: server hit %d times", hits)
	}
	if len(catalog2) != len(catalog) {
		t.Errorf("cached catalog differs: %d vs %d entries", len(catalog2), len(catalog))
	}
}

func TestFetchUsesExistingCacheWithoutNetwork(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer server.Close()

	repo := repoindex.Repository{BaseURL: server.URL, Name: "core", Arch: "x86_64"}
	cachePath := filepath.Join(t.TempDir(), repo.CacheFileName())
	if err := os.WriteFile(cachePath, []byte(listingHTML), 0644); err != nil {
		t.Fatal(err)
	}

	catalog, err := repoindex.Fetch(repo, cachePath)
	if err != nil {
		t.Fatalf("Fetch with warm cache failed: %v", err)
	}
	if len(catalog) == 0 {
		t.Error("empty catalog from warm cache")
	}
}

func TestFetchHTTPErrorIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	repo := repoindex.Repository{BaseURL: server.URL, Name: "core", Arch: "x86_64"}
	cachePath := filepath.Join(t.TempDir(), repo.CacheFileName())

	if _, err := repoindex.Fetch(repo, cachePath); err == nil {
		t.Fatal("expected error for non-2xx listing response")
	}
	if _, err := os.Stat(cachePath); !os.IsNotExist(err) {
		t.Error("failed fetch must not leave a cache file behind")
	}
}

func TestFetchEmptyListingIsParseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><h1>Index of /core</h1></body></html>"))
	}))
	defer server.Close()

	repo := repoindex.Repository{BaseURL: server.URL, Name: "core", Arch: "x86_64"}
	cachePath := filepath.Join(t.TempDir(), repo.CacheFileName())

	_, err := repoindex.Fetch(repo, cachePath)
	if !errors.Is(err, repoindex.ErrEmptyListing) {
		t.Fatalf("expected ErrEmptyListing, got %v", err)
	}
}

package installer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/tositrino/arch-bootstrap/internal/archive"
	"github.com/tositrino/arch-bootstrap/internal/repoindex"
	"github.com/tositrino/arch-bootstrap/internal/resolver"
	"github.com/tositrino/arch-bootstrap/internal/utils/file"
	"github.com/tositrino/arch-bootstrap/internal/utils/logger"
	"github.com/tositrino/arch-bootstrap/internal/utils/network"
)

// Engine installs batches of packages from one repository into a
// destination root. Downloads go through a local archive cache that
// survives re-invocations; cache validity is decided by integrity test,
// never by run identity.
type Engine struct {
	CacheDir string
}

func New(cacheDir string) *Engine {
	return &Engine{CacheDir: cacheDir}
}

func (e *Engine) packageDir() string {
	return filepath.Join(e.CacheDir, "packages")
}

// Install processes names strictly in the order given: resolve against the
// repository catalog, reuse or download the archive, verify it, extract it
// into destRoot. The first failure aborts the remaining batch; packages
// already extracted stay on disk (partial roots are discarded by the
// operator, not repaired).
func (e *Engine) Install(repo repoindex.Repository, names []string, destRoot string) error {
	log := logger.Logger()

	if len(names) == 0 {
		return nil
	}

	cachePath := filepath.Join(e.CacheDir, repo.CacheFileName())
	catalog, err := repoindex.Fetch(repo, cachePath)
	if err != nil {
		return fmt.Errorf("indexing repository %s: %w", repo.ListingURL(), err)
	}

	if err := os.MkdirAll(e.packageDir(), 0755); err != nil {
		return fmt.Errorf("creating package cache directory: %w", err)
	}

	bar := progressbar.NewOptions(len(names),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowDescriptionAtLineEnd(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(200*time.Millisecond),
		progressbar.OptionSpinnerType(10),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)

	for _, name := range names {
		bar.Describe(name)

		if err := e.installOne(repo, catalog, name, destRoot); err != nil {
			return fmt.Errorf("installing %s from %s: %w", name, repo.Name, err)
		}
		if err := bar.Add(1); err != nil {
			log.Errorf("failed to add to progress bar: %v", err)
		}
	}

	if err := bar.Finish(); err != nil {
		log.Errorf("failed to finish progress bar: %v", err)
	}
	log.Infof("installed %d packages from %s into %s", len(names), repo.Name, destRoot)
	return nil
}

func (e *Engine) installOne(repo repoindex.Repository, catalog repoindex.Catalog, name, destRoot string) error {
	log := logger.Logger()

	filename, err := resolver.Resolve(catalog, name)
	if err != nil {
		return err
	}

	archivePath := filepath.Join(e.packageDir(), filename)
	if err := e.ensureArchive(repo, filename, archivePath); err != nil {
		return err
	}

	if err := archive.Extract(archivePath, destRoot); err != nil {
		return err
	}
	log.Debugf("extracted %s into %s", filename, destRoot)
	return nil
}

// ensureArchive leaves a verified copy of filename at archivePath. A cached
// copy is reused only when it passes integrity verification; anything
// invalid or missing is (re-)downloaded and verified again. An archive that
// cannot be brought to a verified state fails the run; corrupt downloads
// are never extracted.
func (e *Engine) ensureArchive(repo repoindex.Repository, filename, archivePath string) error {
	log := logger.Logger()

	if file.IsNonEmpty(archivePath) {
		if err := archive.Verify(archivePath); err == nil {
			log.Debugf("using cached archive %s", filename)
			return nil
		}
		log.Warnf("cached archive %s failed verification, re-downloading", filename)
	}

	fileURL := repo.FileURL(filename)
	if err := download(fileURL, archivePath); err != nil {
		return fmt.Errorf("downloading %s: %w", fileURL, err)
	}
	if err := archive.Verify(archivePath); err != nil {
		return fmt.Errorf("downloaded archive %s failed verification: %w", filename, err)
	}
	return nil
}

func download(fileURL, destPath string) error {
	body, err := network.Get(fileURL)
	if err != nil {
		return err
	}
	defer body.Close()

	out, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, body); err != nil {
		return err
	}
	return nil
}

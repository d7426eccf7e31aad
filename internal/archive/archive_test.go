package archive_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/tositrino/arch-bootstrap/internal/archive"
	"github.com/tositrino/arch-bootstrap/internal/utils/shell"
	"github.com/ulikunitz/xz"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		filename string
		want     archive.Format
	}{
		{"bash-5.2.026-2-x86_64.pkg.tar.gz", archive.FormatTarGz},
		{"bash-5.2.026-2-x86_64.pkg.tar.xz", archive.FormatTarXz},
		{"bash-5.2.026-2-x86_64.pkg.tar.zst", archive.FormatTarZst},
		{"rootfs.tar.gz", archive.FormatTarGz},
		{"bash-5.2.026-2-x86_64.pkg.tar.bz2", archive.FormatUnknown},
		{"bash-5.2.026-2-x86_64.rpm", archive.FormatUnknown},
		{"index.html", archive.FormatUnknown},
		{"", archive.FormatUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := archive.Classify(tt.filename); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.filename, got, tt.want)
			}
		})
	}
}

func writeGz(t *testing.T, path string, payload []byte) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	w := gzip.NewWriter(f)
	if _, err := w.Write(payload); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}

func writeXz(t *testing.T, path string, payload []byte) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	w, err := xz.NewWriter(f)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(payload); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}

func writeZst(t *testing.T, path string, payload []byte) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	w, err := zstd.NewWriter(f)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(payload); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestVerifyValidArchives(t *testing.T) {
	dir := t.TempDir()
	payload := []byte(strings.Repeat("payload-data ", 512))

	gzPath := filepath.Join(dir, "pkg-1.0-1-x86_64.pkg.tar.gz")
	xzPath := filepath.Join(dir, "pkg-1.0-1-x86_64.pkg.tar.xz")
	zstPath := filepath.Join(dir, "pkg-1.0-1-x86_64.pkg.tar.zst")
	writeGz(t, gzPath, payload)
	writeXz(t, xzPath, payload)
	writeZst(t, zstPath, payload)

	for _, path := range []string{gzPath, xzPath, zstPath} {
		if err := archive.Verify(path); err != nil {
			t.Errorf("Verify(%s) failed: %v", filepath.Base(path), err)
		}
	}
}

func TestVerifyCorruptArchive(t *testing.T) {
	dir := t.TempDir()

	gzPath := filepath.Join(dir, "pkg-1.0-1-x86_64.pkg.tar.gz")
	writeGz(t, gzPath, []byte(strings.Repeat("payload-data ", 512)))

	data, err := os.ReadFile(gzPath)
	if err != nil {
		t.Fatal(err)
	}
	// flip bytes in the middle of the stream
	for i := len(data) / 2; i < len(data)/2+8 && i < len(data); i++ {
		data[i] ^= 0xff
	}
	if err := os.WriteFile(gzPath, data, 0644); err != nil {
		t.Fatal(err)
	}

	if err := archive.Verify(gzPath); err == nil {
		t.Error("Verify accepted a corrupt gzip stream")
	}
}

func TestVerifyTruncatedArchive(t *testing.T) {
	dir := t.TempDir()

	xzPath := filepath.Join(dir, "pkg-1.0-1-x86_64.pkg.tar.xz")
	writeXz(t, xzPath, []byte(strings.Repeat("payload-data ", 512)))

	data, err := os.ReadFile(xzPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(xzPath, data[:len(data)/2], 0644); err != nil {
		t.Fatal(err)
	}

	if err := archive.Verify(xzPath); err == nil {
		t.Error("Verify accepted a truncated xz stream")
	}
}

func TestVerifyUnknownFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pkg-1.0-1.pkg.tar.bz2")
	if err := os.WriteFile(path, []byte("whatever"), 0644); err != nil {
		t.Fatal(err)
	}
	err := archive.Verify(path)
	if !errors.Is(err, archive.ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestExtractCommandComposition(t *testing.T) {
	originalExecutor := shell.Default
	defer func() { shell.Default = originalExecutor }()
	mock := shell.NewMockExecutor(nil)
	shell.Default = mock

	tests := []struct {
		filename string
		wantFlag string
	}{
		{"pkg-1.0-1-x86_64.pkg.tar.gz", "-xzf"},
		{"pkg-1.0-1-x86_64.pkg.tar.xz", "-xJf"},
		{"pkg-1.0-1-x86_64.pkg.tar.zst", "--zstd -xf"},
	}
	for _, tt := range tests {
		if err := archive.Extract("/cache/"+tt.filename, "/dest"); err != nil {
			t.Fatalf("Extract(%s) failed: %v", tt.filename, err)
		}
		if !mock.CalledWith(tt.wantFlag) {
			t.Errorf("Extract(%s): expected tar invocation with %q", tt.filename, tt.wantFlag)
		}
	}
	if !mock.CalledWith("sudo") {
		t.Error("extraction must run under sudo to preserve ownership")
	}
}

func TestExtractUnknownFormat(t *testing.T) {
	err := archive.Extract("/cache/pkg-1.0-1.deb", "/dest")
	if !errors.Is(err, archive.ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

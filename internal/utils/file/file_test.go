package file_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tositrino/arch-bootstrap/internal/utils/file"
)

func TestIsSubPath(t *testing.T) {
	tests := []struct {
		name   string
		base   string
		target string
		want   bool
	}{
		{"direct child", "/a/b", "/a/b/c", true},
		{"same dir", "/a/b", "/a/b", true},
		{"sibling", "/a/b", "/a/c", false},
		{"parent", "/a/b", "/a", false},
		{"dot-dot escape", "/a/b", "/a/b/../c", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := file.IsSubPath(tt.base, tt.target)
			if err != nil {
				t.Fatalf("IsSubPath(%q, %q) error: %v", tt.base, tt.target, err)
			}
			if got != tt.want {
				t.Errorf("IsSubPath(%q, %q) = %v, want %v", tt.base, tt.target, got, tt.want)
			}
		})
	}
}

func TestIsNonEmpty(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty")
	if err := os.WriteFile(empty, nil, 0644); err != nil {
		t.Fatal(err)
	}
	full := filepath.Join(dir, "full")
	if err := os.WriteFile(full, []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}

	if file.IsNonEmpty(empty) {
		t.Error("empty file reported non-empty")
	}
	if !file.IsNonEmpty(full) {
		t.Error("non-empty file reported empty")
	}
	if file.IsNonEmpty(filepath.Join(dir, "missing")) {
		t.Error("missing file reported non-empty")
	}
	if file.IsNonEmpty(dir) {
		t.Error("directory reported as non-empty file")
	}
}

func TestAppend(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out.txt")
	if err := file.Append("one\n", dst); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := file.Append("two\n", dst); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "one\ntwo\n" {
		t.Errorf("unexpected file content: %q", string(data))
	}
}

package security_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tositrino/arch-bootstrap/internal/utils/security"
)

func TestValidateString(t *testing.T) {
	lim := security.DefaultLimits()

	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"empty", "", false},
		{"plain", "core-pkgs", false},
		{"url", "https://mirror.example.org/archlinux", false},
		{"nul byte", "a\x00b", true},
		{"control rune", "a\x07b", true},
		{"too long", strings.Repeat("x", 5000), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := security.ValidateString("field", tt.value, lim)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateString(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
		})
	}
}

func TestSafeReadFileRejectsSymlink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "real.txt")
	if err := os.WriteFile(target, []byte("real"), 0644); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(dir, "link.txt")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	if _, err := security.SafeReadFile(link, security.RejectSymlinks); err == nil {
		t.Error("expected error reading through symlink")
	}
	data, err := security.SafeReadFile(target, security.RejectSymlinks)
	if err != nil {
		t.Fatalf("reading regular file failed: %v", err)
	}
	if string(data) != "real" {
		t.Errorf("unexpected content %q", string(data))
	}
}

func TestSafeWriteFileRejectsSymlink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "real.txt")
	if err := os.WriteFile(target, []byte("real"), 0644); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(dir, "link.txt")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	if err := security.SafeWriteFile(link, []byte("x"), 0644, security.RejectSymlinks); err == nil {
		t.Error("expected error writing through symlink")
	}
	if err := security.SafeWriteFile(filepath.Join(dir, "new.txt"), []byte("x"), 0644, security.RejectSymlinks); err != nil {
		t.Errorf("writing new file failed: %v", err)
	}
}

package security

import (
	"fmt"
	"os"
	"path/filepath"
)

// SymlinkPolicy controls how file helpers treat symbolic links.
type SymlinkPolicy int

const (
	// RejectSymlinks refuses to read or write through a symlink.
	RejectSymlinks SymlinkPolicy = iota
	// FollowSymlinks permits them.
	FollowSymlinks
)

func checkSymlink(path string, policy SymlinkPolicy) error {
	if policy != RejectSymlinks {
		return nil
	}
	fi, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if fi.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("refusing to use symlink %s", path)
	}
	return nil
}

// SafeReadFile reads a file after applying the symlink policy.
func SafeReadFile(path string, policy SymlinkPolicy) ([]byte, error) {
	cleaned := filepath.Clean(path)
	if err := checkSymlink(cleaned, policy); err != nil {
		return nil, err
	}
	return os.ReadFile(cleaned)
}

// SafeWriteFile writes a file after applying the symlink policy.
func SafeWriteFile(path string, data []byte, perm os.FileMode, policy SymlinkPolicy) error {
	cleaned := filepath.Clean(path)
	if err := checkSymlink(cleaned, policy); err != nil {
		return err
	}
	return os.WriteFile(cleaned, data, perm)
}

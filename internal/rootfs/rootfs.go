// Package rootfs prepares the minimal filesystem skeleton a destination
// root needs before pacman can run inside it: base directories, device
// nodes, and the handful of /etc files pacman and gpg expect to exist.
package rootfs

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tositrino/arch-bootstrap/internal/utils/logger"
	"github.com/tositrino/arch-bootstrap/internal/utils/shell"
)

// baseDirs are created up front. Package extraction fills in the rest.
var baseDirs = []string{
	"proc",
	"sys",
	"dev",
	"dev/pts",
	"run",
	"tmp",
	"etc",
	"etc/pacman.d",
	"var/lib/pacman",
	"var/log",
	"root",
}

type deviceNode struct {
	path  string
	mode  string
	major int
	minor int
}

var deviceNodes = []deviceNode{
	{"dev/null", "0666", 1, 3},
	{"dev/zero", "0666", 1, 5},
	{"dev/random", "0666", 1, 8},
	{"dev/urandom", "0666", 1, 9},
	{"dev/console", "0600", 5, 1},
	{"dev/tty", "0666", 5, 0},
}

// Builder writes the skeleton into a destination root.
type Builder struct {
	Root string
}

func New(root string) *Builder {
	return &Builder{Root: root}
}

// Build creates the directory layout, device nodes and /etc seed files.
// serverURL becomes the single mirrorlist entry pacman resolves against.
func (b *Builder) Build(serverURL string) error {
	log := logger.Logger()
	log.Infof("preparing root skeleton in %s", b.Root)

	if err := b.createBaseDirs(); err != nil {
		return fmt.Errorf("creating base directories: %w", err)
	}
	if err := b.createDeviceNodes(); err != nil {
		return fmt.Errorf("creating device nodes: %w", err)
	}
	if err := b.seedEtc(serverURL); err != nil {
		return fmt.Errorf("seeding /etc: %w", err)
	}
	return nil
}

func (b *Builder) createBaseDirs() error {
	dirs := ""
	for _, d := range baseDirs {
		dirs += " " + filepath.Join(b.Root, d)
	}
	if _, err := shell.ExecCmd("mkdir -p"+dirs, true, shell.HostPath, nil); err != nil {
		return err
	}
	if _, err := shell.ExecCmd("chmod 1777 "+filepath.Join(b.Root, "tmp"), true, shell.HostPath, nil); err != nil {
		return err
	}
	return nil
}

func (b *Builder) createDeviceNodes() error {
	for _, node := range deviceNodes {
		hostPath := filepath.Join(b.Root, node.path)
		if _, err := os.Stat(hostPath); err == nil {
			continue
		}
		cmd := fmt.Sprintf("mknod -m %s %s c %d %d", node.mode, hostPath, node.major, node.minor)
		if _, err := shell.ExecCmd(cmd, true, shell.HostPath, nil); err != nil {
			return fmt.Errorf("creating %s: %w", node.path, err)
		}
	}
	return nil
}

func (b *Builder) seedEtc(serverURL string) error {
	files := []struct {
		path    string
		content string
		mode    string
	}{
		{"etc/passwd", passwd(), "0644"},
		{"etc/shadow", shadow(), "0600"},
		{"etc/group", group(), "0644"},
		{"etc/hostname", hostname(), "0644"},
		{"etc/pacman.d/mirrorlist", mirrorlist(serverURL), "0644"},
	}
	for _, f := range files {
		if err := b.writeFile(f.path, f.content, f.mode); err != nil {
			return fmt.Errorf("writing %s: %w", f.path, err)
		}
	}

	// the chroot resolves names through the host's resolver config
	resolvDest := filepath.Join(b.Root, "etc/resolv.conf")
	if _, err := shell.ExecCmd("cp /etc/resolv.conf "+resolvDest, true, shell.HostPath, nil); err != nil {
		return fmt.Errorf("copying resolv.conf: %w", err)
	}
	return nil
}

// writeFile stages content in a host temp file and installs it into the
// root under sudo, since the root is owned by root once extraction ran.
func (b *Builder) writeFile(relPath, content, mode string) error {
	staging, err := os.CreateTemp("", "rootfs-*")
	if err != nil {
		return fmt.Errorf("staging file: %w", err)
	}
	stagingPath := staging.Name()
	defer os.Remove(stagingPath)

	if _, err := staging.WriteString(content); err != nil {
		staging.Close()
		return fmt.Errorf("writing staging file: %w", err)
	}
	if err := staging.Close(); err != nil {
		return fmt.Errorf("writing staging file: %w", err)
	}

	dest := filepath.Join(b.Root, relPath)
	cmd := fmt.Sprintf("cp %s %s && chmod %s %s", stagingPath, dest, mode, dest)
	if _, err := shell.ExecCmd(cmd, true, shell.HostPath, nil); err != nil {
		return err
	}
	return nil
}

func passwd() string {
	return "root:x:0:0:root:/root:/bin/bash\n"
}

func shadow() string {
	return "root::14871::::::\n"
}

func group() string {
	return "root:x:0:root\n"
}

func hostname() string {
	return "archlinux\n"
}

func mirrorlist(serverURL string) string {
	return "Server = " + serverURL + "\n"
}

package shell_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/tositrino/arch-bootstrap/internal/utils/shell"
)

func TestGetFullCmdStr(t *testing.T) {
	cmd, err := shell.GetFullCmdStr("cat /etc/hostname", false, shell.HostPath, nil)
	if err != nil {
		t.Fatalf("GetFullCmdStr failed: %v", err)
	}
	if !strings.Contains(cmd, "/usr/bin/cat /etc/hostname") {
		t.Errorf("expected full path for cat, got: %s", cmd)
	}
}

func TestGetFullCmdStrSudo(t *testing.T) {
	cmd, err := shell.GetFullCmdStr("mkdir -p /x", true, shell.HostPath, nil)
	if err != nil {
		t.Fatalf("GetFullCmdStr failed: %v", err)
	}
	if !strings.HasPrefix(cmd, "sudo ") {
		t.Errorf("expected sudo prefix, got: %s", cmd)
	}
}

func TestGetFullCmdStrChroot(t *testing.T) {
	root := t.TempDir()
	cmd, err := shell.GetFullCmdStr("pacman-key --init", false, root, []string{"LC_ALL=C"})
	if err != nil {
		t.Fatalf("GetFullCmdStr failed: %v", err)
	}
	want := "sudo LC_ALL=C chroot " + root + " /usr/bin/pacman-key --init"
	if cmd != want {
		t.Errorf("chroot composition mismatch:\n got: %s\nwant: %s", cmd, want)
	}
}

func TestGetFullCmdStrChrootMissingPath(t *testing.T) {
	if _, err := shell.GetFullCmdStr("ls", false, "/no/such/root/anywhere", nil); err == nil {
		t.Fatal("expected error for missing chroot path")
	}
}

func TestGetFullCmdStrUnknownCommand(t *testing.T) {
	if _, err := shell.GetFullCmdStr("frobnicate --all", false, shell.HostPath, nil); err == nil {
		t.Fatal("expected error for command outside commandMap")
	}
}

func TestGetFullCmdStrCompound(t *testing.T) {
	cmd, err := shell.GetFullCmdStr("mkdir -p /a && rm -rf /b", true, shell.HostPath, nil)
	if err != nil {
		t.Fatalf("GetFullCmdStr failed: %v", err)
	}
	if !strings.Contains(cmd, "/usr/bin/mkdir -p /a && /usr/bin/rm -rf /b") {
		t.Errorf("compound command not fully resolved: %s", cmd)
	}
}

func TestExecCmdWithMockExecutor(t *testing.T) {
	originalExecutor := shell.Default
	defer func() { shell.Default = originalExecutor }()

	mock := shell.NewMockExecutor([]shell.MockCommand{
		{Pattern: "tar", Output: "extracted\n", Error: nil},
		{Pattern: "mknod", Output: "", Error: fmt.Errorf("mknod failed")},
	})
	shell.Default = mock

	out, err := shell.ExecCmd("tar -xzf pkg.tar.gz", true, shell.HostPath, nil)
	if err != nil {
		t.Fatalf("ExecCmd failed: %v", err)
	}
	if !strings.Contains(out, "extracted") {
		t.Errorf("expected mock output, got: %s", out)
	}

	if _, err := shell.ExecCmd("mknod dev/null c 1 3", true, shell.HostPath, nil); err == nil {
		t.Fatal("expected mknod error from mock")
	}

	if !mock.CalledWith("/usr/bin/tar") {
		t.Error("mock did not record the tar invocation")
	}
}

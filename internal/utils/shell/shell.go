package shell

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tositrino/arch-bootstrap/internal/utils/logger"
)

// HostPath is the chrootPath value that means "run on the host".
var HostPath string = ""

// commandMap pins every command we issue to an absolute path. Commands run
// inside the destination root resolve against the Arch filesystem layout,
// where /bin and /sbin are symlinks into /usr/bin.
var commandMap = map[string]string{
	"bash":       "/usr/bin/bash",
	"cat":        "/usr/bin/cat",
	"chmod":      "/usr/bin/chmod",
	"chroot":     "/usr/sbin/chroot",
	"cp":         "/usr/bin/cp",
	"gpg":        "/usr/bin/gpg",
	"gzip":       "/usr/bin/gzip",
	"haveged":    "/usr/bin/haveged",
	"gpgconf":    "/usr/bin/gpgconf",
	"kill":       "/usr/bin/kill",
	"ln":         "/usr/bin/ln",
	"ls":         "/usr/bin/ls",
	"mkdir":      "/usr/bin/mkdir",
	"mknod":      "/usr/bin/mknod",
	"mv":         "/usr/bin/mv",
	"pacman":     "/usr/bin/pacman",
	"pacman-key": "/usr/bin/pacman-key",
	"rm":         "/usr/bin/rm",
	"sh":         "/bin/sh",
	"sleep":      "/usr/bin/sleep",
	"sudo":       "/usr/bin/sudo",
	"tar":        "/usr/bin/tar",
	"tee":        "/usr/bin/tee",
	"touch":      "/usr/bin/touch",
	"xz":         "/usr/bin/xz",
	"zstd":       "/usr/bin/zstd",
}

// Executor runs a fully composed command line. The package-level Default can
// be swapped for a mock in tests.
type Executor interface {
	Run(fullCmdStr string) (string, error)
	RunStream(fullCmdStr string) (string, error)
}

// Default is the executor used by ExecCmd and ExecCmdWithStream.
var Default Executor = bashExecutor{}

type bashExecutor struct{}

func (bashExecutor) Run(fullCmdStr string) (string, error) {
	cmd := exec.Command("bash", "-c", fullCmdStr)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

func (bashExecutor) RunStream(fullCmdStr string) (string, error) {
	log := logger.Logger()

	cmd := exec.Command("bash", "-c", fullCmdStr)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("failed to get stdout pipe for command %s: %w", fullCmdStr, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", fmt.Errorf("failed to get stderr pipe for command %s: %w", fullCmdStr, err)
	}
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("failed to start command %s: %w", fullCmdStr, err)
	}

	var outputStr string
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			if str := scanner.Text(); str != "" {
				outputStr += str
				log.Infof(str)
			}
		}
	}()
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			if str := scanner.Text(); str != "" {
				log.Infof(str)
			}
		}
	}()
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		return outputStr, fmt.Errorf("failed to wait for command %s: %w", fullCmdStr, err)
	}
	return outputStr, nil
}

// MockCommand pairs a substring pattern with the canned result the mock
// executor returns for command lines containing it.
type MockCommand struct {
	Pattern string
	Output  string
	Error   error
}

// MockExecutor records every command line it receives. First matching
// pattern wins; unmatched commands succeed with empty output.
type MockExecutor struct {
	Commands []MockCommand
	Calls    []string
}

func NewMockExecutor(cmds []MockCommand) *MockExecutor {
	return &MockExecutor{Commands: cmds}
}

func (m *MockExecutor) Run(fullCmdStr string) (string, error) {
	m.Calls = append(m.Calls, fullCmdStr)
	for _, mc := range m.Commands {
		if strings.Contains(fullCmdStr, mc.Pattern) {
			return mc.Output, mc.Error
		}
	}
	return "", nil
}

func (m *MockExecutor) RunStream(fullCmdStr string) (string, error) {
	return m.Run(fullCmdStr)
}

// CalledWith reports whether any recorded command line contains pattern.
func (m *MockExecutor) CalledWith(pattern string) bool {
	for _, call := range m.Calls {
		if strings.Contains(call, pattern) {
			return true
		}
	}
	return false
}

func verifyCmdWithFullPath(cmd string) (string, error) {
	separators := []string{"&&", "||", ";"}

	sepIdx := -1
	sep := ""
	for _, s := range separators {
		if idx := strings.Index(cmd, s); idx != -1 && (sepIdx == -1 || idx < sepIdx) {
			sepIdx = idx
			sep = s
		}
	}
	if sepIdx != -1 {
		left, err := verifyCmdWithFullPath(strings.TrimSpace(cmd[:sepIdx]))
		if err != nil {
			return "", fmt.Errorf("failed to verify command: %w", err)
		}
		right, err := verifyCmdWithFullPath(strings.TrimSpace(cmd[sepIdx+len(sep):]))
		if err != nil {
			return "", fmt.Errorf("failed to verify command: %w", err)
		}
		return left + " " + sep + " " + right, nil
	}

	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return cmd, nil
	}
	bin := fields[0]
	fullPath, ok := commandMap[bin]
	if !ok {
		return "", fmt.Errorf("command %s not found in commandMap", bin)
	}
	fields[0] = fullPath
	return strings.Join(fields, " "), nil
}

// GetFullCmdStr composes the final command line: absolute command paths,
// optional sudo, optional chroot into chrootPath, and env assignments that
// apply to the chrooted process.
func GetFullCmdStr(cmdStr string, sudo bool, chrootPath string, envVal []string) (string, error) {
	log := logger.Logger()

	envValStr := ""
	for _, env := range envVal {
		envValStr += env + " "
	}

	fullPathCmdStr, err := verifyCmdWithFullPath(cmdStr)
	if err != nil {
		return "", fmt.Errorf("failed to verify command with full path: %w", err)
	}

	var fullCmdStr string
	if chrootPath != HostPath {
		if _, err := os.Stat(chrootPath); os.IsNotExist(err) {
			return "", fmt.Errorf("chroot path %s does not exist", chrootPath)
		}
		fullCmdStr = "sudo " + envValStr + "chroot " + chrootPath + " " + fullPathCmdStr
		log.Debugf("Chroot %s Exec: [%s]", filepath.Base(chrootPath), fullPathCmdStr)
	} else if sudo {
		fullCmdStr = "sudo " + envValStr + fullPathCmdStr
		log.Debugf("Exec: [sudo %s]", fullPathCmdStr)
	} else {
		fullCmdStr = envValStr + fullPathCmdStr
		log.Debugf("Exec: [%s]", fullPathCmdStr)
	}

	return fullCmdStr, nil
}

// ExecCmd executes a command and returns its combined output.
func ExecCmd(cmdStr string, sudo bool, chrootPath string, envVal []string) (string, error) {
	log := logger.Logger()

	fullCmdStr, err := GetFullCmdStr(cmdStr, sudo, chrootPath, envVal)
	if err != nil {
		return "", fmt.Errorf("failed to get full command string: %w", err)
	}

	outputStr, err := Default.Run(fullCmdStr)
	if err != nil {
		if outputStr != "" {
			log.Infof(outputStr)
		}
		return outputStr, fmt.Errorf("failed to exec %s: %w", fullCmdStr, err)
	}
	if outputStr != "" {
		log.Debugf(outputStr)
	}
	return outputStr, nil
}

// ExecCmdWithStream executes a command and streams its output line by line
// through the logger while the command runs.
func ExecCmdWithStream(cmdStr string, sudo bool, chrootPath string, envVal []string) (string, error) {
	fullCmdStr, err := GetFullCmdStr(cmdStr, sudo, chrootPath, envVal)
	if err != nil {
		return "", fmt.Errorf("failed to get full command string: %w", err)
	}
	return Default.RunStream(fullCmdStr)
}

// IsCommandExist checks if a command exists on the host or inside a chroot.
func IsCommandExist(cmd string, chrootPath string) bool {
	var cmdStr string
	if chrootPath != HostPath {
		cmdStr = "sudo chroot " + chrootPath + " command -v " + cmd
	} else {
		cmdStr = "command -v " + cmd
	}

	output, _ := exec.Command("bash", "-c", cmdStr).Output()
	return len(bytes.TrimSpace(output)) > 0
}

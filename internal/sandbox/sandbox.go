package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/tositrino/arch-bootstrap/internal/utils/logger"
	"github.com/tositrino/arch-bootstrap/internal/utils/shell"
)

const (
	havegedPidFile = "run/haveged.pid"
	keyringsDir    = "usr/share/pacman/keyrings"
	trustSet       = "archlinux"

	// search path seen by pacman-key while the shim is live; the shim
	// directory is prepended so its gpg wins over /usr/bin/gpg
	sandboxPath = "/usr/local/sbin:/usr/local/bin:/usr/bin:/usr/sbin"
)

// gpg forwards to the real binary with every interactive escape hatch
// closed. pacman-key invokes gpg by bare name and offers no way to pass
// these flags through, so the shim intercepts it via PATH precedence.
const shimScript = `#!/bin/sh
exec /usr/bin/gpg --batch --yes --no-tty "$@"
`

// Session is the run-scoped trust bootstrap over a populated destination
// root. Every resource it acquires (the entropy service process and the
// shim directory) is released before Bootstrap returns, on success and on
// failure alike.
type Session struct {
	Root string

	shimDir        string // absolute path inside the root, "" until injected
	entropyStarted bool
}

func NewSession(root string) *Session {
	return &Session{Root: root}
}

// chrootEnv is the environment forced onto every sandboxed command: a
// neutral locale so command output stays parseable.
func chrootEnv(extra ...string) []string {
	return append([]string{"LC_ALL=C"}, extra...)
}

// Bootstrap initializes and populates pacman's keyring inside the root
// without any operator interaction.
func (s *Session) Bootstrap() (err error) {
	log := logger.Logger()
	log.Infof("bootstrapping pacman keyring in %s", s.Root)

	if err := s.ensureRuntimeDir(); err != nil {
		return fmt.Errorf("preparing runtime directory: %w", err)
	}

	defer func() {
		if teardownErr := s.teardown(); teardownErr != nil {
			if err == nil {
				err = teardownErr
			} else {
				log.Errorf("teardown after failed bootstrap: %v", teardownErr)
			}
		}
	}()

	if err := s.startEntropyService(); err != nil {
		return fmt.Errorf("starting entropy service: %w", err)
	}

	if _, err := shell.ExecCmd("pacman-key --init", false, s.Root, chrootEnv()); err != nil {
		return fmt.Errorf("initializing keyring: %w", err)
	}

	if err := s.preflightTrustSet(); err != nil {
		return fmt.Errorf("checking keyring trust set: %w", err)
	}

	if err := s.injectBatchShim(); err != nil {
		return fmt.Errorf("injecting gpg batch shim: %w", err)
	}

	populateCmd := "pacman-key --populate " + trustSet
	pathEnv := "PATH=" + s.shimDir + ":" + sandboxPath
	if _, err := shell.ExecCmd(populateCmd, false, s.Root, chrootEnv(pathEnv)); err != nil {
		return fmt.Errorf("populating keyring: %w", err)
	}

	log.Infof("pacman keyring populated with %s trust set", trustSet)
	return nil
}

// Reinstall runs the final pass: re-install the package set through the
// now-trusted package manager so every file is registered in pacman's
// database with verified signatures.
func (s *Session) Reinstall(arch string, packages []string) error {
	if len(packages) == 0 {
		return nil
	}
	log := logger.Logger()
	log.Infof("re-installing %d packages through pacman", len(packages))

	cmd := fmt.Sprintf("pacman --noconfirm --arch %s -Sy --overwrite '*' %s",
		arch, strings.Join(packages, " "))
	if _, err := shell.ExecCmdWithStream(cmd, false, s.Root, chrootEnv()); err != nil {
		return fmt.Errorf("pacman re-install pass: %w", err)
	}
	return nil
}

func (s *Session) ensureRuntimeDir() error {
	runDir := filepath.Join(s.Root, "run")
	if _, err := shell.ExecCmd("mkdir -p "+runDir, true, shell.HostPath, nil); err != nil {
		return err
	}
	return nil
}

// startEntropyService launches haveged inside the sandbox. Keyring
// initialization blocks on kernel entropy, so this must be running before
// any key material is generated. The pid lands in a well-known file for
// teardown.
func (s *Session) startEntropyService() error {
	cmd := "haveged -w 1024 -v 1 --pidfile /" + havegedPidFile
	if _, err := shell.ExecCmd(cmd, false, s.Root, chrootEnv()); err != nil {
		return err
	}
	s.entropyStarted = true
	return nil
}

// injectBatchShim creates a uniquely named directory in the sandbox's tmp
// area holding the non-interactive gpg wrapper.
func (s *Session) injectBatchShim() error {
	shimDir := "/tmp/gpgshim-" + uuid.New().String()[:8]
	shimHostDir := filepath.Join(s.Root, shimDir)

	staging, err := os.CreateTemp("", "gpgshim-*")
	if err != nil {
		return fmt.Errorf("staging shim script: %w", err)
	}
	stagingPath := staging.Name()
	defer os.Remove(stagingPath)

	if _, err := staging.WriteString(shimScript); err != nil {
		staging.Close()
		return fmt.Errorf("writing shim script: %w", err)
	}
	if err := staging.Close(); err != nil {
		return fmt.Errorf("writing shim script: %w", err)
	}

	installCmd := fmt.Sprintf("mkdir -p %s && cp %s %s && chmod 755 %s",
		shimHostDir, stagingPath, filepath.Join(shimHostDir, "gpg"),
		filepath.Join(shimHostDir, "gpg"))
	if _, err := shell.ExecCmd(installCmd, true, shell.HostPath, nil); err != nil {
		return fmt.Errorf("installing shim into %s: %w", shimHostDir, err)
	}

	s.shimDir = shimDir
	return nil
}

// teardown releases everything the session acquired: shim directory,
// entropy service, lingering gpg agents, runtime directory. Each step is
// attempted regardless of earlier teardown failures; the first error is
// reported.
func (s *Session) teardown() error {
	log := logger.Logger()
	var firstErr error

	if s.shimDir != "" {
		shimHostDir := filepath.Join(s.Root, s.shimDir)
		if _, err := shell.ExecCmd("rm -rf "+shimHostDir, true, shell.HostPath, nil); err != nil {
			log.Errorf("removing shim directory %s: %v", shimHostDir, err)
			firstErr = fmt.Errorf("removing shim directory: %w", err)
		} else {
			s.shimDir = ""
		}
	}

	if s.entropyStarted {
		if err := s.stopEntropyService(); err != nil {
			log.Errorf("stopping entropy service: %v", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("stopping entropy service: %w", err)
			}
		} else {
			s.entropyStarted = false
		}
	}

	s.stopGPGAgents()

	runDir := filepath.Join(s.Root, "run")
	if _, err := shell.ExecCmd("rm -rf "+runDir, true, shell.HostPath, nil); err != nil {
		log.Errorf("removing runtime directory %s: %v", runDir, err)
		if firstErr == nil {
			firstErr = fmt.Errorf("removing runtime directory: %w", err)
		}
	}

	return firstErr
}

// stopEntropyService terminates haveged using the pid it recorded. The
// chroot shares the host pid namespace, so the recorded pid is killable
// from the host.
func (s *Session) stopEntropyService() error {
	log := logger.Logger()

	pidPath := filepath.Join(s.Root, havegedPidFile)
	data, err := os.ReadFile(pidPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debugf("no haveged pid file at %s, nothing to stop", pidPath)
			return nil
		}
		return fmt.Errorf("reading pid file %s: %w", pidPath, err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return fmt.Errorf("parsing pid file %s: %w", pidPath, err)
	}

	if _, err := shell.ExecCmd(fmt.Sprintf("kill %d", pid), true, shell.HostPath, nil); err != nil {
		return fmt.Errorf("killing haveged pid %d: %w", pid, err)
	}
	if _, err := shell.ExecCmd("rm -f "+pidPath, true, shell.HostPath, nil); err != nil {
		return fmt.Errorf("removing pid file %s: %w", pidPath, err)
	}
	return nil
}

// stopGPGAgents kills agent processes gpg leaves behind in the chroot.
// Best effort: a root without gpgconf simply skips this.
func (s *Session) stopGPGAgents() {
	log := logger.Logger()

	output, err := shell.ExecCmd("gpgconf --list-components", false, s.Root, chrootEnv())
	if err != nil {
		log.Debugf("gpgconf unavailable in %s, skipping agent shutdown", s.Root)
		return
	}
	for _, line := range strings.Split(output, "\n") {
		component := strings.TrimSpace(strings.Split(line, ":")[0])
		if component == "gpg-agent" || component == "keyboxd" {
			if _, err := shell.ExecCmd("gpgconf --kill "+component, false, s.Root, chrootEnv()); err != nil {
				log.Debugf("stopping gpg component %s: %v", component, err)
			}
		}
	}
}

package sandbox

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/tositrino/arch-bootstrap/internal/utils/logger"
)

// preflightTrustSet parses the trust set shipped with the pacman-keyring
// package before populate runs. A missing or mangled keyring file would
// otherwise surface as an opaque gpg failure inside the chroot.
func (s *Session) preflightTrustSet() error {
	log := logger.Logger()

	keyringPath := filepath.Join(s.Root, keyringsDir, trustSet+".gpg")
	f, err := os.Open(keyringPath)
	if err != nil {
		return fmt.Errorf("opening trust set %s: %w", keyringPath, err)
	}
	defer f.Close()

	entities, err := readKeyRing(f)
	if err != nil {
		return fmt.Errorf("parsing trust set %s: %w", keyringPath, err)
	}
	if len(entities) == 0 {
		return fmt.Errorf("trust set %s contains no keys", keyringPath)
	}

	log.Debugf("trust set %s: %d keys", trustSet, len(entities))
	return nil
}

// readKeyRing accepts the keyring in either armored or binary form;
// distributions have shipped both over time.
func readKeyRing(f io.ReadSeeker) (openpgp.EntityList, error) {
	entities, armoredErr := openpgp.ReadArmoredKeyRing(f)
	if armoredErr == nil {
		return entities, nil
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	entities, binaryErr := openpgp.ReadKeyRing(f)
	if binaryErr == nil {
		return entities, nil
	}
	return nil, fmt.Errorf("neither armored (%v) nor binary (%v) keyring", armoredErr, binaryErr)
}

package archive

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/tositrino/arch-bootstrap/internal/utils/logger"
	"github.com/tositrino/arch-bootstrap/internal/utils/shell"
	"github.com/ulikunitz/xz"
)

// Format identifies the compression family of a package archive.
type Format int

const (
	FormatUnknown Format = iota
	FormatTarGz
	FormatTarXz
	FormatTarZst
)

// ErrUnknownFormat reports a filename whose suffix matches no supported
// archive family. Callers treat this as fatal; the engine never guesses.
var ErrUnknownFormat = errors.New("unknown archive format")

func (f Format) String() string {
	switch f {
	case FormatTarGz:
		return "tar.gz"
	case FormatTarXz:
		return "tar.xz"
	case FormatTarZst:
		return "tar.zst"
	default:
		return "unknown"
	}
}

// Classify maps a filename to its archive format by suffix.
func Classify(filename string) Format {
	switch {
	case strings.HasSuffix(filename, ".tar.gz"):
		return FormatTarGz
	case strings.HasSuffix(filename, ".tar.xz"):
		return FormatTarXz
	case strings.HasSuffix(filename, ".tar.zst"):
		return FormatTarZst
	default:
		return FormatUnknown
	}
}

// IsRecognized reports whether filename carries a supported archive suffix.
func IsRecognized(filename string) bool {
	return Classify(filename) != FormatUnknown
}

// Verify runs a full streaming decode of the archive's compression layer.
// A cached download is only trusted after it passes this test.
func Verify(path string) error {
	format := Classify(path)
	if format == FormatUnknown {
		return fmt.Errorf("verifying %s: %w", path, ErrUnknownFormat)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	switch format {
	case FormatTarGz:
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("verifying %s: %w", path, err)
		}
		defer gz.Close()
		if _, err := io.Copy(io.Discard, gz); err != nil {
			return fmt.Errorf("verifying %s: %w", path, err)
		}
	case FormatTarXz:
		xzr, err := xz.NewReader(f)
		if err != nil {
			return fmt.Errorf("verifying %s: %w", path, err)
		}
		if _, err := io.Copy(io.Discard, xzr); err != nil {
			return fmt.Errorf("verifying %s: %w", path, err)
		}
	case FormatTarZst:
		zr, err := zstd.NewReader(f)
		if err != nil {
			return fmt.Errorf("verifying %s: %w", path, err)
		}
		defer zr.Close()
		if _, err := io.Copy(io.Discard, zr); err != nil {
			return fmt.Errorf("verifying %s: %w", path, err)
		}
	}
	return nil
}

// Extract unpacks the archive into destRoot, overwriting prior content.
// tar runs under sudo so modes and ownership stored in the archive are
// preserved in the destination root.
func Extract(path, destRoot string) error {
	log := logger.Logger()

	format := Classify(path)
	if format == FormatUnknown {
		return fmt.Errorf("extracting %s: %w", path, ErrUnknownFormat)
	}

	var cmdStr string
	switch format {
	case FormatTarGz:
		cmdStr = fmt.Sprintf("tar -xzf %s -C %s", path, destRoot)
	case FormatTarXz:
		cmdStr = fmt.Sprintf("tar -xJf %s -C %s", path, destRoot)
	case FormatTarZst:
		cmdStr = fmt.Sprintf("tar --zstd -xf %s -C %s", path, destRoot)
	}

	log.Debugf("extracting %s into %s", path, destRoot)
	if _, err := shell.ExecCmd(cmdStr, true, shell.HostPath, nil); err != nil {
		return fmt.Errorf("extracting %s into %s: %w", path, destRoot, err)
	}
	return nil
}

package scanner

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ralt/bulk/internal/models"
)

// Magic bytes for package detection
var (
	// Debian packages start with "!<arch>\ndebian"
	debMagic = []byte("!<arch>\ndebian")

	// RPM lead
	rpmMagic = []byte{0xED, 0xAB, 0xEE, 0xDB}

	gzipMagic = []byte{0x1F, 0x8B}
	zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}
	xzMagic   = []byte{0xFD, 0x37, 0x7A, 0x58, 0x5A, 0x00}
)

// pacmanSuffixes maps a pacman file suffix to the magic its content must
// carry; nil means no check (plain tar).
var pacmanSuffixes = []struct {
	suffix string
	magic  []byte
}{
	{".pkg.tar.zst", zstdMagic},
	{".pkg.tar.xz", xzMagic},
	{".pkg.tar.gz", gzipMagic},
	{".pkg.tar", nil},
}

// DetectPackageType determines the package type based on magic bytes and file extension
func DetectPackageType(path string) (models.PackageType, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.TypeUnknown, err
	}
	defer f.Close()

	header := make([]byte, 512)
	n, err := io.ReadFull(f, header)
	if n == 0 && err != nil {
		return models.TypeUnknown, err
	}
	return detect(filepath.Base(path), header[:n]), nil
}

func detect(basename string, header []byte) models.PackageType {
	ext := filepath.Ext(basename)

	switch {
	case bytes.HasPrefix(header, debMagic) || ext == ".deb":
		return models.TypeDeb
	case bytes.HasPrefix(header, rpmMagic) || ext == ".rpm":
		return models.TypeRpm
	case bytes.HasPrefix(header, gzipMagic) && ext == ".apk":
		return models.TypeApk
	}

	for _, p := range pacmanSuffixes {
		if !strings.HasSuffix(basename, p.suffix) {
			continue
		}
		if p.magic == nil || bytes.HasPrefix(header, p.magic) {
			return models.TypePacman
		}
	}
	return models.TypeUnknown
}

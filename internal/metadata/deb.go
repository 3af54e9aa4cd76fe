package metadata

import (
	"archive/tar"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/blakesmith/ar"
	"github.com/ralt/bulk/internal/control"
	"github.com/ralt/bulk/internal/models"
	"github.com/ralt/bulk/internal/utils"
)

// parseDeb reads the control file out of a .deb's control.tar member
func parseDeb(path string) (*models.Package, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := ar.NewReader(f)
	for {
		hdr, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil, errors.New("control.tar not found in package")
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read ar member: %w", err)
		}

		name := strings.TrimSuffix(strings.TrimSpace(hdr.Name), "/")
		if !strings.HasPrefix(name, "control.tar") {
			continue
		}

		data, err := controlFromTar(name, r)
		if err != nil {
			return nil, err
		}
		p, err := control.ParseOne(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to parse control: %w", err)
		}
		return p.Package(), nil
	}
}

// controlFromTar extracts the control file from a control.tar* stream
func controlFromTar(name string, r io.Reader) ([]byte, error) {
	dec, err := utils.Decompressor(name, r)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress %s: %w", name, err)
	}
	defer dec.Close()

	tr := tar.NewReader(dec)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil, errors.New("control file not found in control.tar")
		}
		if err != nil {
			return nil, err
		}
		if hdr.Name == "./control" || hdr.Name == "control" {
			return io.ReadAll(tr)
		}
	}
}

package metadata

import (
	"archive/tar"
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ralt/bulk/internal/models"
	"github.com/ralt/bulk/internal/utils"
)

// parsePkgInfo reads the .PKGINFO file that both Alpine and Arch packages
// carry at the start of their tar stream
func parsePkgInfo(path string, pkgType models.PackageType) (*models.Package, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	name := filepath.Base(path)
	if pkgType == models.TypeApk {
		// apk files are concatenated gzip streams
		name += ".gz"
	}
	dec, err := utils.Decompressor(name, f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	tr := tar.NewReader(dec)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil, errors.New(".PKGINFO not found in package")
		}
		if err != nil {
			return nil, err
		}
		if hdr.Name != ".PKGINFO" {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, err
		}
		return parsePkgInfoData(data)
	}
}

// parsePkgInfoData parses "key = value" lines
func parsePkgInfoData(data []byte) (*models.Package, error) {
	pkg := &models.Package{
		Fields: make(map[string]string),
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "pkgname":
			pkg.Name = value
		case "pkgver":
			pkg.Version = value
		case "arch":
			pkg.Architecture = value
		case "pkgdesc":
			pkg.Description = value
		case "url":
			pkg.Homepage = value
		case "packager", "maintainer":
			pkg.Maintainer = value
		case "depend":
			pkg.Dependencies = append(pkg.Dependencies, value)
		default:
			if prev, ok := pkg.Fields[key]; ok {
				value = prev + ", " + value
			}
			pkg.Fields[key] = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse .PKGINFO: %w", err)
	}
	return pkg, nil
}

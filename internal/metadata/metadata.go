// Package metadata extracts package metadata from package files.
package metadata

import (
	"errors"
	"fmt"

	"github.com/ralt/bulk/internal/models"
	"github.com/ralt/bulk/internal/scanner"
	"github.com/ralt/bulk/internal/utils"
)

// ErrUnknownType is returned for files that are not a supported package
var ErrUnknownType = errors.New("unknown package type")

// Gather reads the metadata of the package file at path. The returned
// package's Filename is path.
func Gather(path string) (*models.Package, error) {
	pkgType, err := scanner.DetectPackageType(path)
	if err != nil {
		return nil, err
	}

	var pkg *models.Package
	switch pkgType {
	case models.TypeDeb:
		pkg, err = parseDeb(path)
	case models.TypeRpm:
		pkg, err = parseRpm(path)
	case models.TypeApk, models.TypePacman:
		pkg, err = parsePkgInfo(path, pkgType)
	default:
		return nil, ErrUnknownType
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s package: %w", pkgType, err)
	}
	pkg.Type = pkgType

	if err := validate(pkg); err != nil {
		return nil, err
	}

	checksums, err := utils.CalculateChecksums(path)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate checksums: %w", err)
	}
	pkg.Filename = path
	pkg.Size = checksums.Size
	pkg.MD5Sum = checksums.MD5
	pkg.SHA1Sum = checksums.SHA1
	pkg.SHA256Sum = checksums.SHA256
	pkg.SHA512Sum = checksums.SHA512

	return pkg, nil
}

func validate(pkg *models.Package) error {
	switch {
	case pkg.Name == "":
		return errors.New("package has no name")
	case pkg.Version == "":
		return fmt.Errorf("package %s has no version", pkg.Name)
	case pkg.Architecture == "":
		return fmt.Errorf("package %s has no architecture", pkg.Name)
	}
	return nil
}

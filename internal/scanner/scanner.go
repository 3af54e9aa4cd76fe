package scanner

import (
	"context"

	"github.com/ralt/bulk/internal/models"
)

// ScannedPackage represents a package file found during scanning
type ScannedPackage struct {
	Path string
	Type models.PackageType
	Size int64
}

// Scanner interface for detecting and scanning packages
type Scanner interface {
	// Scan recursively scans a directory for packages
	Scan(ctx context.Context, dir string) ([]ScannedPackage, error)

	// DetectType determines the package type of a file
	DetectType(path string) (models.PackageType, error)
}

package debian

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ralt/bulk/internal/utils"
)

// Release describes the Release file of one suite
type Release struct {
	Origin        string
	Label         string
	Suite         string
	Codename      string
	Architectures []string
	Components    []string
	// Date defaults to the current time
	Date  time.Time
	Files []ReleaseFileInfo
}

// ReleaseFileInfo contains information about a file in the release
type ReleaseFileInfo struct {
	Path     string
	Checksum *utils.Checksum
}

// GenerateReleaseFile renders a Debian Release file
func GenerateReleaseFile(r *Release) []byte {
	var buf bytes.Buffer

	date := r.Date
	if date.IsZero() {
		date = time.Now()
	}

	if r.Origin != "" {
		fmt.Fprintf(&buf, "Origin: %s\n", r.Origin)
	}
	if r.Label != "" {
		fmt.Fprintf(&buf, "Label: %s\n", r.Label)
	}
	fmt.Fprintf(&buf, "Suite: %s\n", r.Suite)
	fmt.Fprintf(&buf, "Codename: %s\n", r.Codename)
	fmt.Fprintf(&buf, "Architectures: %s\n", strings.Join(r.Architectures, " "))
	fmt.Fprintf(&buf, "Components: %s\n", strings.Join(r.Components, " "))
	fmt.Fprintf(&buf, "Date: %s\n", date.UTC().Format(time.RFC1123Z))

	sections := []struct {
		name string
		sum  func(*utils.Checksum) string
	}{
		{"MD5Sum", func(c *utils.Checksum) string { return c.MD5 }},
		{"SHA1", func(c *utils.Checksum) string { return c.SHA1 }},
		{"SHA256", func(c *utils.Checksum) string { return c.SHA256 }},
		{"SHA512", func(c *utils.Checksum) string { return c.SHA512 }},
	}
	for _, section := range sections {
		fmt.Fprintf(&buf, "%s:\n", section.name)
		for _, file := range r.Files {
			fmt.Fprintf(&buf, " %s %d %s\n", section.sum(file.Checksum), file.Checksum.Size, file.Path)
		}
	}

	return buf.Bytes()
}

// CalculateReleaseFileInfos calculates checksums for all metadata files
func CalculateReleaseFileInfos(basePath string, files []string) ([]ReleaseFileInfo, error) {
	var infos []ReleaseFileInfo

	for _, file := range files {
		fullPath := filepath.Join(basePath, filepath.FromSlash(file))
		checksum, err := utils.CalculateChecksums(fullPath)
		if err != nil {
			return nil, fmt.Errorf("failed to calculate checksum for %s: %w", file, err)
		}

		infos = append(infos, ReleaseFileInfo{
			Path:     file,
			Checksum: checksum,
		})
	}

	return infos, nil
}

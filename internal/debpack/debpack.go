// Package debpack builds reproducible .deb files from a directory tree.
package debpack

import (
	"bytes"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/blakesmith/ar"
	"github.com/ralt/bulk/internal/archive"
	"github.com/ralt/bulk/internal/config"
	"github.com/ralt/bulk/internal/control"
	"github.com/ralt/bulk/internal/models"
	"github.com/ralt/bulk/internal/utils"
	"github.com/sirupsen/logrus"
)

// DefaultArchitecture is used when the metadata names none
const DefaultArchitecture = "amd64"

// Options describes one package build
type Options struct {
	Metadata  *config.Metadata
	Version   string
	SourceDir string
	DestDir   string
	// Mtime is written into every archive header
	Mtime int64
}

// Build packs SourceDir into DestDir/<name>_<version>_<arch>.deb and
// returns the path of the new file. Building the same tree with the same
// options twice gives byte-identical packages.
func Build(opts Options) (string, error) {
	meta := opts.Metadata
	if meta == nil || meta.Name == "" {
		return "", models.NewError(models.ErrMissingField, "metadata", fmt.Errorf("package name is required"))
	}
	if opts.Version == "" {
		return "", models.NewError(models.ErrMissingField, meta.Name, fmt.Errorf("package version is required"))
	}
	arch := meta.Architecture
	if arch == "" {
		arch = DefaultArchitecture
	}

	data, err := buildData(opts.SourceDir, opts.Mtime)
	if err != nil {
		return "", models.NewError(models.ErrIO, opts.SourceDir, err)
	}

	ctrl := controlParagraph(meta, opts.Version, arch, data.installedSize)
	controlTar, err := buildControl(ctrl, data.md5sums, opts.Mtime)
	if err != nil {
		return "", models.NewError(models.ErrIO, meta.Name, err)
	}

	var deb bytes.Buffer
	w := ar.NewWriter(&deb)
	if err := w.WriteGlobalHeader(); err != nil {
		return "", models.NewError(models.ErrIO, meta.Name, err)
	}
	members := []struct {
		name string
		body []byte
	}{
		{"debian-binary", []byte("2.0\n")},
		{"control.tar.gz", controlTar},
		{"data.tar.xz", data.archive},
	}
	for _, m := range members {
		hdr := &ar.Header{
			Name:    m.name,
			ModTime: time.Unix(opts.Mtime, 0),
			Mode:    0644,
			Size:    int64(len(m.body)),
		}
		if err := w.WriteHeader(hdr); err != nil {
			return "", models.NewError(models.ErrIO, m.name, err)
		}
		// a single Write per member keeps the writer's odd-size padding right
		if _, err := w.Write(m.body); err != nil {
			return "", models.NewError(models.ErrIO, m.name, err)
		}
	}

	out := filepath.Join(opts.DestDir, fmt.Sprintf("%s_%s_%s.deb", meta.Name, opts.Version, arch))
	if err := utils.WriteFile(out, deb.Bytes(), 0644); err != nil {
		return "", models.NewError(models.ErrIO, out, err)
	}

	logrus.Infof("Built %s (%d bytes)", out, deb.Len())
	return out, nil
}

type dataArchive struct {
	archive       []byte
	md5sums       []byte
	installedSize int64
}

// buildData writes every object under dir, in lexical order, into an xz
// compressed tar
func buildData(dir string, mtime int64) (*dataArchive, error) {
	var (
		tarBuf  bytes.Buffer
		md5sums bytes.Buffer
		size    int64
	)
	tw := archive.NewWriter(&tarBuf)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		name := "./"
		if rel != "." {
			name = "./" + filepath.ToSlash(rel)
		}
		if err := archive.AppendFileAt(tw, dir, name, mtime); err != nil {
			return fmt.Errorf("failed to add %s: %w", name, err)
		}

		if d.Type().IsRegular() {
			sum, err := utils.CalculateChecksums(path)
			if err != nil {
				return err
			}
			size += sum.Size
			fmt.Fprintf(&md5sums, "%s  %s\n", sum.MD5, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}

	compressed, err := utils.XzCompress(tarBuf.Bytes())
	if err != nil {
		return nil, err
	}
	return &dataArchive{
		archive:       compressed,
		md5sums:       md5sums.Bytes(),
		installedSize: (size + 1023) / 1024,
	}, nil
}

func buildControl(ctrl control.Paragraph, md5sums []byte, mtime int64) ([]byte, error) {
	var buf bytes.Buffer
	tw := archive.NewWriter(&buf)
	if err := archive.AppendBlob(tw, "./control", mtime, []byte(ctrl.String())); err != nil {
		return nil, err
	}
	if err := archive.AppendBlob(tw, "./md5sums", mtime, md5sums); err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	return utils.GzipCompress(buf.Bytes())
}

func controlParagraph(meta *config.Metadata, version, arch string, installedSize int64) control.Paragraph {
	p := control.Paragraph{
		{Name: "Package", Value: meta.Name},
		{Name: "Version", Value: version},
		{Name: "Architecture", Value: arch},
	}
	if meta.Maintainer != "" {
		p.Set("Maintainer", meta.Maintainer)
	}
	p.Set("Installed-Size", strconv.FormatInt(installedSize, 10))
	if len(meta.Depends) > 0 {
		p.Set("Depends", strings.Join(meta.Depends, ", "))
	}
	if meta.Section != "" {
		p.Set("Section", meta.Section)
	}
	if meta.Priority != "" {
		p.Set("Priority", meta.Priority)
	}
	if meta.Homepage != "" {
		p.Set("Homepage", meta.Homepage)
	}
	p.Set("Description", description(meta))
	return p
}

// description folds the long description into continuation lines
func description(meta *config.Metadata) string {
	short := meta.ShortDescription
	if short == "" {
		short = meta.Name
	}
	long := strings.TrimSpace(meta.LongDescription)
	if long == "" {
		return short
	}

	var b strings.Builder
	b.WriteString(short)
	for _, line := range strings.Split(long, "\n") {
		if strings.TrimSpace(line) == "" {
			line = "."
		}
		b.WriteString("\n ")
		b.WriteString(line)
	}
	return b.String()
}

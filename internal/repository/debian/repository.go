// Package debian implements the apt repository backend: a pool of .deb
// files plus dists/<suite>/<component>/binary-<arch>/Packages indexes and
// a Release file per suite.
package debian

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/ralt/bulk/internal/control"
	"github.com/ralt/bulk/internal/models"
	"github.com/ralt/bulk/internal/signer"
	"github.com/ralt/bulk/internal/utils"
	"github.com/sirupsen/logrus"
)

// Options configures Release generation
type Options struct {
	Origin string
	Label  string
	// Signer signs Release files; nil leaves the repository unsigned
	Signer signer.Signer
}

type indexKey struct {
	suite, component, arch string
}

// Repository is every Debian index under one base directory that was
// opened during a run
type Repository struct {
	dir     string
	opts    Options
	indexes map[indexKey]*Index
	order   []indexKey
	claims  map[string]string
}

// NewRepository creates an empty repository rooted at dir. Nothing is
// read or written until Open and Write.
func NewRepository(dir string, opts Options) *Repository {
	return &Repository{
		dir:     dir,
		opts:    opts,
		indexes: make(map[indexKey]*Index),
		claims:  make(map[string]string),
	}
}

// Open returns the index for suite/component/arch, loading the existing
// Packages file on first use
func (r *Repository) Open(suite, component, arch string) (*Index, error) {
	key := indexKey{suite: suite, component: component, arch: arch}
	if idx, ok := r.indexes[key]; ok {
		return idx, nil
	}

	idx := &Index{
		repoDir:   r.dir,
		suite:     suite,
		component: component,
		arch:      arch,
		pending:   make(map[string]string),
		claims:    r.claims,
	}
	if err := idx.load(); err != nil {
		return nil, err
	}

	logrus.Debugf("Opened debian index %s/%s/%s (%d existing packages)", suite, component, arch, idx.Len())
	r.indexes[key] = idx
	r.order = append(r.order, key)
	return idx, nil
}

// Write copies new packages into the pool, then writes every opened
// index and the Release file of every suite they belong to
func (r *Repository) Write() error {
	var suites []string
	seen := make(map[string]bool)

	for _, key := range r.order {
		idx := r.indexes[key]
		if err := idx.write(); err != nil {
			return err
		}
		if !seen[key.suite] {
			seen[key.suite] = true
			suites = append(suites, key.suite)
		}
	}

	for _, suite := range suites {
		if err := r.writeRelease(suite); err != nil {
			return err
		}
	}
	return nil
}

// writeRelease regenerates dists/<suite>/Release from the indexes on disk,
// including ones not touched in this run
func (r *Repository) writeRelease(suite string) error {
	distsDir := filepath.Join(r.dir, "dists", suite)

	files, archs, comps, err := findIndexFiles(distsDir)
	if err != nil {
		return models.NewError(models.ErrIO, distsDir, err)
	}

	infos, err := CalculateReleaseFileInfos(distsDir, files)
	if err != nil {
		return models.NewError(models.ErrIO, distsDir, err)
	}

	release := &Release{
		Origin:        r.opts.Origin,
		Label:         r.opts.Label,
		Suite:         suite,
		Codename:      suite,
		Architectures: archs,
		Components:    comps,
		Files:         infos,
	}
	releaseData := GenerateReleaseFile(release)

	releasePath := filepath.Join(distsDir, "Release")
	if err := utils.WriteFile(releasePath, releaseData, 0644); err != nil {
		return models.NewError(models.ErrIO, releasePath, err)
	}

	if r.opts.Signer == nil {
		// modern apt wants InRelease even for [trusted=yes] sources
		if err := utils.WriteFile(filepath.Join(distsDir, "InRelease"), releaseData, 0644); err != nil {
			return models.NewError(models.ErrIO, distsDir, err)
		}
		logrus.Warnf("No signer configured, suite %s is unsigned", suite)
		return nil
	}

	inRelease, err := r.opts.Signer.SignCleartext(releaseData)
	if err != nil {
		return models.NewError(models.ErrSigning, releasePath, err)
	}
	if err := utils.WriteFile(filepath.Join(distsDir, "InRelease"), inRelease, 0644); err != nil {
		return models.NewError(models.ErrIO, distsDir, err)
	}

	detached, err := r.opts.Signer.SignDetached(releaseData)
	if err != nil {
		return models.NewError(models.ErrSigning, releasePath, err)
	}
	if err := utils.WriteFile(filepath.Join(distsDir, "Release.gpg"), detached, 0644); err != nil {
		return models.NewError(models.ErrIO, distsDir, err)
	}

	logrus.Infof("Signed Release for suite %s", suite)
	return nil
}

// findIndexFiles lists the Packages files of a suite relative to distsDir,
// along with the architectures and components they cover
func findIndexFiles(distsDir string) (files, archs, comps []string, err error) {
	archSet := make(map[string]bool)
	compSet := make(map[string]bool)

	err = filepath.WalkDir(distsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !indexFileNames[d.Name()] {
			return nil
		}
		rel, err := filepath.Rel(distsDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		comp, arch, ok := splitIndexPath(rel)
		if !ok {
			return nil
		}
		compSet[comp] = true
		archSet[arch] = true
		files = append(files, rel)
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, nil, nil
	}
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to list indexes: %w", err)
	}

	return files, sortedKeys(archSet), sortedKeys(compSet), nil
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// loadPackagesFile reads the first existing variant of a Packages index
func loadPackagesFile(binDir string) ([]control.Paragraph, error) {
	for _, name := range []string{"Packages", "Packages.gz", "Packages.xz"} {
		path := filepath.Join(binDir, name)
		f, err := os.Open(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		defer f.Close()

		r, err := utils.Decompressor(name, f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		defer r.Close()

		paragraphs, err := control.Parse(r)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return paragraphs, nil
	}
	return nil, nil
}

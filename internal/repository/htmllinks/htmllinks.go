// Package htmllinks implements a repository that is a plain XHTML page of
// links to package files. Each link carries the package identity in data-*
// attributes so later runs can merge into the page.
package htmllinks

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/beevik/etree"
	"github.com/ralt/bulk/internal/models"
	"github.com/ralt/bulk/internal/repository"
	"github.com/ralt/bulk/internal/utils"
	"github.com/sirupsen/logrus"
)

// DefaultIndexName is used when a repository entry has no index path
const DefaultIndexName = "index.html"

const xhtmlNamespace = "http://www.w3.org/1999/xhtml"

type indexKey struct {
	index, files string
}

// Repository holds every links page opened under one base directory
type Repository struct {
	dir     string
	indexes map[indexKey]*Index
	order   []indexKey
	// files directory -> file name -> owner, shared by pages that link
	// into the same directory
	claims map[string]map[string]claim
}

// claim records which package a file in a files directory belongs to
type claim struct {
	identity string
	sha256   string
}

// NewRepository creates an empty collection rooted at dir
func NewRepository(dir string) *Repository {
	return &Repository{
		dir:     dir,
		indexes: make(map[indexKey]*Index),
		claims:  make(map[string]map[string]claim),
	}
}

// Open returns the page at index linking into the files directory, both
// relative to the base directory. An existing page is parsed and merged.
func (r *Repository) Open(index, files string) (*Index, error) {
	if index == "" {
		index = DefaultIndexName
	}
	key := indexKey{index: index, files: files}
	if idx, ok := r.indexes[key]; ok {
		return idx, nil
	}

	indexPath := filepath.Join(r.dir, index)
	filesDir := filepath.Join(r.dir, files)
	rel, err := filepath.Rel(filepath.Dir(indexPath), filesDir)
	if err != nil {
		return nil, models.NewError(models.ErrIO, indexPath, err)
	}

	claims, ok := r.claims[filesDir]
	if !ok {
		claims = make(map[string]claim)
		r.claims[filesDir] = claims
	}

	idx := &Index{
		path:     indexPath,
		filesDir: filesDir,
		linkBase: filepath.ToSlash(rel),
		pending:  make(map[string]string),
		claims:   claims,
	}
	if err := idx.load(); err != nil {
		return nil, err
	}

	logrus.Debugf("Opened links page %s (%d existing packages)", index, idx.Len())
	r.indexes[key] = idx
	r.order = append(r.order, key)
	return idx, nil
}

// Write copies new package files and rewrites every opened page
func (r *Repository) Write() error {
	for _, key := range r.order {
		if err := r.indexes[key].write(); err != nil {
			return err
		}
	}
	return nil
}

// Index is a single links page
type Index struct {
	repository.Entries

	path     string
	filesDir string
	// files directory as seen from the page's directory
	linkBase string

	// file name in filesDir -> source file
	pending map[string]string
	claims  map[string]claim
}

var _ repository.Index = (*Index)(nil)

// AddPackage records pkg on the page. Any package type is accepted; the
// file is stored under FileName(pkg).
func (idx *Index) AddPackage(pkg *models.Package, policy models.ConflictResolution) error {
	id := pkg.Identity()
	name := FileName(pkg)

	stored := *pkg
	stored.Filename = path.Join(idx.linkBase, name)

	sha256, err := packageSHA256(pkg)
	if err != nil {
		return models.NewError(models.ErrIO, pkg.Filename, err)
	}

	owner, claimed := idx.claims[name]
	if claimed && owner.identity != id {
		return models.NewError(models.ErrConflict, id,
			fmt.Errorf("file %s already belongs to %s", name, owner.identity))
	}

	if _, exists := idx.Get(id); !exists {
		clash, err := idx.fileClash(name, owner, claimed, sha256)
		if err != nil {
			return err
		}
		if clash {
			switch policy {
			case models.ConflictKeep:
				logrus.Warnf("Skipping %s: %s holds a different build", id, name)
				return nil
			case models.ConflictReplace:
				logrus.Warnf("Overwriting %s with a different build", name)
			default:
				return models.NewError(models.ErrConflict, id,
					fmt.Errorf("file %s already holds a different build", name))
			}
		}
	}

	added, err := idx.Insert(&stored, policy)
	if err != nil {
		return err
	}
	if added {
		idx.pending[name] = pkg.Filename
		idx.claims[name] = claim{identity: id, sha256: sha256}
		logrus.Debugf("Added %s to %s", id, idx.path)
	}
	return nil
}

// fileClash reports whether name in the files directory holds, or will
// hold after this run, different content than sha256
func (idx *Index) fileClash(name string, owner claim, claimed bool, sha256 string) (bool, error) {
	if claimed && owner.sha256 != "" {
		return owner.sha256 != sha256, nil
	}

	dst := filepath.Join(idx.filesDir, name)
	existing, err := utils.CalculateChecksums(dst)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, models.NewError(models.ErrIO, dst, err)
	}
	return existing.SHA256 != sha256, nil
}

// FileName is the name a package file is stored under:
// <name>_<version>_<arch><ext>, without the version epoch
func FileName(pkg *models.Package) string {
	version := pkg.Version
	if _, after, ok := strings.Cut(version, ":"); ok {
		version = after
	}
	return fmt.Sprintf("%s_%s_%s%s", pkg.Name, version, pkg.Architecture, fileExt(pkg))
}

var pacmanExts = []string{".pkg.tar.zst", ".pkg.tar.xz", ".pkg.tar.gz", ".pkg.tar"}

func fileExt(pkg *models.Package) string {
	switch pkg.Type {
	case models.TypeDeb, models.TypeRpm, models.TypeApk:
		return "." + pkg.Type.String()
	case models.TypePacman:
		for _, ext := range pacmanExts {
			if strings.HasSuffix(pkg.Filename, ext) {
				return ext
			}
		}
		return pacmanExts[0]
	}
	return filepath.Ext(pkg.Filename)
}

func packageSHA256(pkg *models.Package) (string, error) {
	if pkg.SHA256Sum != "" {
		return pkg.SHA256Sum, nil
	}
	sum, err := utils.CalculateChecksums(pkg.Filename)
	if err != nil {
		return "", err
	}
	return sum.SHA256, nil
}

func (idx *Index) load() error {
	doc := etree.NewDocument()
	err := doc.ReadFromFile(idx.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return models.NewError(models.ErrIO, idx.path, fmt.Errorf("failed to parse links page: %w", err))
	}

	for _, a := range doc.FindElements("//a[@data-name]") {
		pkg := &models.Package{
			Name:         a.SelectAttrValue("data-name", ""),
			Version:      a.SelectAttrValue("data-version", ""),
			Architecture: a.SelectAttrValue("data-arch", ""),
			SHA256Sum:    a.SelectAttrValue("data-sha256", ""),
			Filename:     a.SelectAttrValue("href", ""),
		}
		if _, err := idx.Insert(pkg, models.ConflictReplace); err != nil {
			return err
		}
		name := path.Base(pkg.Filename)
		if _, ok := idx.claims[name]; !ok {
			idx.claims[name] = claim{identity: pkg.Identity(), sha256: pkg.SHA256Sum}
		}
	}
	return nil
}

func (idx *Index) write() error {
	names := make([]string, 0, len(idx.pending))
	for name := range idx.pending {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		dst := filepath.Join(idx.filesDir, name)
		if err := utils.CopyFile(idx.pending[name], dst); err != nil {
			return models.NewError(models.ErrIO, idx.pending[name], fmt.Errorf("failed to copy package: %w", err))
		}
	}

	data, err := Render(idx.Packages())
	if err != nil {
		return models.NewError(models.ErrIO, idx.path, err)
	}
	if err := utils.WriteFile(idx.path, data, 0644); err != nil {
		return models.NewError(models.ErrIO, idx.path, err)
	}

	logrus.Infof("Wrote %s (%d packages)", idx.path, idx.Len())
	return nil
}

// Render produces the XHTML page for packages, whose Filename is the link
// target. Links are sorted by name, version and architecture.
func Render(packages []*models.Package) ([]byte, error) {
	sorted := make([]*models.Package, len(packages))
	copy(sorted, packages)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if a.Version != b.Version {
			return a.Version < b.Version
		}
		return a.Architecture < b.Architecture
	})

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	html := doc.CreateElement("html")
	html.CreateAttr("xmlns", xhtmlNamespace)
	head := html.CreateElement("head")
	head.CreateElement("title").SetText("Packages")

	ul := html.CreateElement("body").CreateElement("ul")
	for _, pkg := range sorted {
		a := ul.CreateElement("li").CreateElement("a")
		a.CreateAttr("href", pkg.Filename)
		a.CreateAttr("data-name", pkg.Name)
		a.CreateAttr("data-version", pkg.Version)
		a.CreateAttr("data-arch", pkg.Architecture)
		if pkg.SHA256Sum != "" {
			a.CreateAttr("data-sha256", pkg.SHA256Sum)
		}
		a.SetText(path.Base(pkg.Filename))
	}

	doc.Indent(2)
	return doc.WriteToBytes()
}

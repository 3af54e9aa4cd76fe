package debian

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ralt/bulk/internal/control"
	"github.com/ralt/bulk/internal/models"
	"github.com/ralt/bulk/internal/repository"
	"github.com/ralt/bulk/internal/utils"
	"github.com/sirupsen/logrus"
)

// indexFileNames are the variants of an index written for each arch
var indexFileNames = map[string]bool{
	"Packages":    true,
	"Packages.gz": true,
	"Packages.xz": true,
}

// Index is the Packages index of one suite/component/architecture
type Index struct {
	repository.Entries

	repoDir   string
	suite     string
	component string
	arch      string

	// pool path -> source file, copied during write
	pending map[string]string
	// pool path -> sha256 claimed during this run, shared by every index
	// of the repository
	claims map[string]string
}

var _ repository.Index = (*Index)(nil)

// AddPackage records pkg for this index. The package file itself is only
// copied into the pool by Repository.Write.
func (idx *Index) AddPackage(pkg *models.Package, policy models.ConflictResolution) error {
	if pkg.Type != models.TypeDeb {
		return models.NewError(models.ErrInvalidPackage, pkg.Filename,
			fmt.Errorf("%s package cannot be added to a debian repository", pkg.Type))
	}
	if pkg.Architecture != idx.arch {
		return models.NewError(models.ErrInvalidPackage, pkg.Filename,
			fmt.Errorf("architecture %s does not match index %s", pkg.Architecture, idx.arch))
	}

	stored := *pkg
	stored.Filename = PoolPath(idx.component, pkg)

	sha256, err := packageSHA256(pkg)
	if err != nil {
		return models.NewError(models.ErrIO, pkg.Filename, err)
	}

	// the pool is shared by every suite: a different build already stored
	// there is still listed by the suites that published it
	if _, exists := idx.Get(pkg.Identity()); !exists {
		clash, err := idx.poolClash(stored.Filename, sha256)
		if err != nil {
			return err
		}
		if clash {
			switch policy {
			case models.ConflictKeep:
				logrus.Warnf("Skipping %s: %s holds a different build", pkg.Identity(), stored.Filename)
				return nil
			case models.ConflictReplace:
				logrus.Warnf("Overwriting %s with a different build, other suites listing it must be re-published", stored.Filename)
			default:
				return models.NewError(models.ErrConflict, pkg.Identity(),
					fmt.Errorf("pool file %s already holds a different build", stored.Filename))
			}
		}
	}

	added, err := idx.Insert(&stored, policy)
	if err != nil {
		return err
	}
	if !added {
		logrus.Debugf("Keeping existing %s in %s/%s", pkg.Identity(), idx.suite, idx.component)
		return nil
	}

	idx.pending[stored.Filename] = pkg.Filename
	idx.claims[stored.Filename] = sha256
	logrus.Debugf("Added %s to %s/%s/%s", pkg.Identity(), idx.suite, idx.component, idx.arch)
	return nil
}

// poolClash reports whether pool already holds, or will hold after this
// run, a file whose sha256 differs from sha256
func (idx *Index) poolClash(pool, sha256 string) (bool, error) {
	if claimed, ok := idx.claims[pool]; ok {
		return claimed != sha256, nil
	}

	path := filepath.Join(idx.repoDir, filepath.FromSlash(pool))
	existing, err := utils.CalculateChecksums(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, models.NewError(models.ErrIO, path, err)
	}
	return existing.SHA256 != sha256, nil
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

func (idx *Index) binaryDir() string {
	return filepath.Join(idx.repoDir, "dists", idx.suite, idx.component, "binary-"+idx.arch)
}

func (idx *Index) load() error {
	paragraphs, err := loadPackagesFile(idx.binaryDir())
	if err != nil {
		return models.NewError(models.ErrIO, idx.binaryDir(), err)
	}
	for _, p := range paragraphs {
		pkg := p.Package()
		// duplicates already on disk are not this run's conflict
		if _, err := idx.Insert(pkg, models.ConflictReplace); err != nil {
			return err
		}
	}
	return nil
}

func (idx *Index) write() error {
	pools := make([]string, 0, len(idx.pending))
	for pool := range idx.pending {
		pools = append(pools, pool)
	}
	sort.Strings(pools)
	for _, pool := range pools {
		dst := filepath.Join(idx.repoDir, filepath.FromSlash(pool))
		if err := utils.CopyFile(idx.pending[pool], dst); err != nil {
			return models.NewError(models.ErrIO, idx.pending[pool], fmt.Errorf("failed to copy to pool: %w", err))
		}
	}

	packagesData := GeneratePackagesFile(idx.Packages())
	gz, err := utils.GzipCompress(packagesData)
	if err != nil {
		return models.NewError(models.ErrIO, idx.binaryDir(), err)
	}
	xzData, err := utils.XzCompress(packagesData)
	if err != nil {
		return models.NewError(models.ErrIO, idx.binaryDir(), err)
	}

	for name, data := range map[string][]byte{
		"Packages":    packagesData,
		"Packages.gz": gz,
		"Packages.xz": xzData,
	} {
		path := filepath.Join(idx.binaryDir(), name)
		if err := utils.WriteFile(path, data, 0644); err != nil {
			return models.NewError(models.ErrIO, path, err)
		}
	}

	logrus.Infof("Wrote %s/%s/binary-%s (%d packages)", idx.suite, idx.component, idx.arch, idx.Len())
	return nil
}

// GeneratePackagesFile renders packages sorted by name, then version
func GeneratePackagesFile(packages []*models.Package) []byte {
	sorted := make([]*models.Package, len(packages))
	copy(sorted, packages)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Name != sorted[j].Name {
			return sorted[i].Name < sorted[j].Name
		}
		return sorted[i].Version < sorted[j].Version
	})

	var buf bytes.Buffer
	for i, pkg := range sorted {
		if i > 0 {
			buf.WriteString("\n")
		}
		control.FromPackage(pkg).WriteTo(&buf)
	}
	return buf.Bytes()
}

// PoolPath is the location of a package file relative to the repository
// root: pool/<component>/<prefix>/<name>/<name>_<version>_<arch>.deb
func PoolPath(component string, pkg *models.Package) string {
	version := pkg.Version
	if _, after, ok := strings.Cut(version, ":"); ok {
		version = after
	}
	file := fmt.Sprintf("%s_%s_%s.deb", pkg.Name, version, pkg.Architecture)
	return strings.Join([]string{"pool", component, poolPrefix(pkg.Name), pkg.Name, file}, "/")
}

func poolPrefix(name string) string {
	if strings.HasPrefix(name, "lib") && len(name) > 3 {
		return name[:4]
	}
	if name != "" && name[0] >= 'a' && name[0] <= 'z' {
		return name[:1]
	}
	return "0"
}

// splitIndexPath extracts the component and architecture from a path like
// main/binary-amd64/Packages.gz
func splitIndexPath(rel string) (comp, arch string, ok bool) {
	parts := strings.Split(rel, "/")
	if len(parts) != 3 || !strings.HasPrefix(parts[1], "binary-") {
		return "", "", false
	}
	return parts[0], strings.TrimPrefix(parts[1], "binary-"), true
}

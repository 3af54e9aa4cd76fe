package htmllinks

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/ralt/bulk/internal/models"
	"github.com/ralt/bulk/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakePackage(t *testing.T, name, version, arch string, typ models.PackageType) *models.Package {
	t.Helper()

	file := filepath.Join(t.TempDir(), name+"-"+version+"."+typ.String())
	require.NoError(t, os.WriteFile(file, []byte(name+version), 0644))
	return &models.Package{
		Name:         name,
		Version:      version,
		Architecture: arch,
		Type:         typ,
		Filename:     file,
		SHA256Sum:    strings.Repeat("a", 64),
	}
}

func TestRepositoryWrite(t *testing.T) {
	dir := t.TempDir()
	repo := NewRepository(dir)

	idx, err := repo.Open("pages/index.html", "files")
	require.NoError(t, err)

	require.NoError(t, idx.AddPackage(fakePackage(t, "hello", "1.0", "x86_64", models.TypeRpm), models.ConflictError))
	require.NoError(t, idx.AddPackage(fakePackage(t, "abc", "2.0", "amd64", models.TypeDeb), models.ConflictError))

	_, err = os.Stat(filepath.Join(dir, "pages"))
	assert.True(t, os.IsNotExist(err), "Open and AddPackage must not write")

	require.NoError(t, repo.Write())

	data, err := os.ReadFile(filepath.Join(dir, "files", "hello_1.0_x86_64.rpm"))
	require.NoError(t, err)
	assert.Equal(t, "hello1.0", string(data))

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromFile(filepath.Join(dir, "pages", "index.html")))
	links := doc.FindElements("//a")
	require.Len(t, links, 2)

	assert.Equal(t, "abc", links[0].SelectAttrValue("data-name", ""))
	assert.Equal(t, "../files/abc_2.0_amd64.deb", links[0].SelectAttrValue("href", ""))
	assert.Equal(t, "abc_2.0_amd64.deb", links[0].Text())
	assert.Equal(t, "hello", links[1].SelectAttrValue("data-name", ""))
	assert.Equal(t, "1.0", links[1].SelectAttrValue("data-version", ""))
	assert.Equal(t, "x86_64", links[1].SelectAttrValue("data-arch", ""))
	assert.Equal(t, strings.Repeat("a", 64), links[1].SelectAttrValue("data-sha256", ""))
}

func TestRepositoryMerge(t *testing.T) {
	dir := t.TempDir()

	first := NewRepository(dir)
	idx, err := first.Open("", "")
	require.NoError(t, err)
	require.NoError(t, idx.AddPackage(fakePackage(t, "hello", "1.0", "amd64", models.TypeDeb), models.ConflictError))
	require.NoError(t, first.Write())

	_, err = os.Stat(filepath.Join(dir, DefaultIndexName))
	require.NoError(t, err)

	second := NewRepository(dir)
	idx, err = second.Open("", "")
	require.NoError(t, err)
	require.Equal(t, 1, idx.Len())

	err = idx.AddPackage(fakePackage(t, "hello", "1.0", "amd64", models.TypeDeb), models.ConflictError)
	assert.True(t, models.IsType(err, models.ErrConflict))

	require.NoError(t, idx.AddPackage(fakePackage(t, "hello", "1.0", "amd64", models.TypeDeb), models.ConflictKeep))
	require.NoError(t, idx.AddPackage(fakePackage(t, "hello", "1.1", "amd64", models.TypeDeb), models.ConflictError))
	require.NoError(t, second.Write())

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromFile(filepath.Join(dir, DefaultIndexName)))
	links := doc.FindElements("//a[@data-name]")
	require.Len(t, links, 2)
	assert.Equal(t, "hello_1.0_amd64.deb", links[0].SelectAttrValue("href", ""))
	assert.Equal(t, "hello_1.1_amd64.deb", links[1].SelectAttrValue("href", ""))
}

func TestRepositoryReplace(t *testing.T) {
	dir := t.TempDir()

	repo := NewRepository(dir)
	idx, err := repo.Open("index.html", "files")
	require.NoError(t, err)
	old := fakePackage(t, "hello", "1.0", "amd64", models.TypeDeb)
	require.NoError(t, idx.AddPackage(old, models.ConflictError))

	replacement := fakePackage(t, "hello", "1.0", "amd64", models.TypeDeb)
	require.NoError(t, os.WriteFile(replacement.Filename, []byte("new content"), 0644))
	replacement.SHA256Sum = strings.Repeat("b", 64)
	require.NoError(t, idx.AddPackage(replacement, models.ConflictReplace))
	require.NoError(t, repo.Write())

	data, err := os.ReadFile(filepath.Join(dir, "files", "hello_1.0_amd64.deb"))
	require.NoError(t, err)
	assert.Equal(t, "new content", string(data))

	page, err := os.ReadFile(filepath.Join(dir, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page), strings.Repeat("b", 64))
	assert.NotContains(t, string(page), strings.Repeat("a", 64))
}

func TestRepositoryOpenInvalidPage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html><body><a"), 0644))

	_, err := NewRepository(dir).Open("index.html", "")
	require.Error(t, err)
	assert.True(t, models.IsType(err, models.ErrIO))
}

func TestRenderOrder(t *testing.T) {
	out, err := Render([]*models.Package{
		{Name: "b", Version: "1", Architecture: "amd64", Filename: "b1.deb"},
		{Name: "a", Version: "2", Architecture: "arm64", Filename: "a2-arm.deb"},
		{Name: "a", Version: "2", Architecture: "amd64", Filename: "a2.deb"},
		{Name: "a", Version: "1", Architecture: "amd64", Filename: "a1.deb"},
	})
	require.NoError(t, err)

	page := string(out)
	order := []string{`href="a1.deb"`, `href="a2.deb"`, `href="a2-arm.deb"`, `href="b1.deb"`}
	last := -1
	for _, href := range order {
		pos := strings.Index(page, href)
		require.Greater(t, pos, last, href)
		last = pos
	}
	assert.True(t, strings.HasPrefix(page, `<?xml version="1.0" encoding="UTF-8"?>`))
}

// buildFile writes content to dir/file and describes it as a package
func buildFile(t *testing.T, dir, file, name, version, content string) *models.Package {
	t.Helper()

	require.NoError(t, os.MkdirAll(dir, 0755))
	path := filepath.Join(dir, file)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return &models.Package{
		Name:         name,
		Version:      version,
		Architecture: "amd64",
		Type:         models.TypeDeb,
		Filename:     path,
		SHA256Sum:    utils.ChecksumBytes([]byte(content)).SHA256,
	}
}

func TestSameSourceNameDifferentPackages(t *testing.T) {
	dir := t.TempDir()
	builds := t.TempDir()

	repo := NewRepository(dir)
	idx, err := repo.Open("index.html", "files")
	require.NoError(t, err)
	require.NoError(t, idx.AddPackage(buildFile(t, filepath.Join(builds, "a"), "pkg.deb", "alpha", "1.0", "AAAA"), models.ConflictError))
	require.NoError(t, idx.AddPackage(buildFile(t, filepath.Join(builds, "b"), "pkg.deb", "beta", "1.0", "BBBB"), models.ConflictError))
	require.NoError(t, repo.Write())

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromFile(filepath.Join(dir, "index.html")))
	links := doc.FindElements("//a[@data-name]")
	require.Len(t, links, 2)

	for _, a := range links {
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(a.SelectAttrValue("href", ""))))
		require.NoError(t, err)
		switch a.SelectAttrValue("data-name", "") {
		case "alpha":
			assert.Equal(t, "AAAA", string(data))
		case "beta":
			assert.Equal(t, "BBBB", string(data))
		default:
			t.Fatalf("unexpected link %s", a.SelectAttrValue("data-name", ""))
		}
	}
}

func TestFileNameClaimedByOtherPackage(t *testing.T) {
	dir := t.TempDir()
	builds := t.TempDir()

	repo := NewRepository(dir)
	idx, err := repo.Open("index.html", "files")
	require.NoError(t, err)
	require.NoError(t, idx.AddPackage(buildFile(t, builds, "one.deb", "tool", "1:2.0", "epoch one"), models.ConflictError))
	require.NoError(t, repo.Write())

	// 2:2.0 and 1:2.0 share a file name but not an identity
	for _, policy := range []models.ConflictResolution{models.ConflictError, models.ConflictKeep, models.ConflictReplace} {
		repo := NewRepository(dir)
		idx, err := repo.Open("index.html", "files")
		require.NoError(t, err)
		err = idx.AddPackage(buildFile(t, builds, "two.deb", "tool", "2:2.0", "epoch two"), policy)
		require.Error(t, err, policy.String())
		assert.True(t, models.IsType(err, models.ErrConflict))
	}

	data, err := os.ReadFile(filepath.Join(dir, "files", "tool_2.0_amd64.deb"))
	require.NoError(t, err)
	assert.Equal(t, "epoch one", string(data))
}

func TestSharedFilesDirDifferentBuild(t *testing.T) {
	dir := t.TempDir()
	builds := t.TempDir()

	repo := NewRepository(dir)
	idx, err := repo.Open("stable.html", "files")
	require.NoError(t, err)
	first := buildFile(t, builds, "first.deb", "hello", "1.0", "first build")
	require.NoError(t, idx.AddPackage(first, models.ConflictError))
	require.NoError(t, repo.Write())

	second := buildFile(t, builds, "second.deb", "hello", "1.0", "second build")

	repo = NewRepository(dir)
	idx, err = repo.Open("testing.html", "files")
	require.NoError(t, err)
	err = idx.AddPackage(second, models.ConflictError)
	require.Error(t, err)
	assert.True(t, models.IsType(err, models.ErrConflict))

	require.NoError(t, idx.AddPackage(second, models.ConflictKeep))
	assert.Equal(t, 0, idx.Len())
	require.NoError(t, repo.Write())

	data, err := os.ReadFile(filepath.Join(dir, "files", "hello_1.0_amd64.deb"))
	require.NoError(t, err)
	assert.Equal(t, "first build", string(data))

	same := buildFile(t, builds, "same.deb", "hello", "1.0", "first build")
	repo = NewRepository(dir)
	idx, err = repo.Open("testing.html", "files")
	require.NoError(t, err)
	require.NoError(t, idx.AddPackage(same, models.ConflictError))
	require.NoError(t, repo.Write())
	assert.Contains(t, readPage(t, dir, "testing.html"), first.SHA256Sum)
}

func readPage(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return string(data)
}

func TestFileName(t *testing.T) {
	tests := []struct {
		pkg      models.Package
		expected string
	}{
		{models.Package{Name: "hello", Version: "1:1.0", Architecture: "amd64", Type: models.TypeDeb, Filename: "x.deb"}, "hello_1.0_amd64.deb"},
		{models.Package{Name: "hello", Version: "1.0-1", Architecture: "x86_64", Type: models.TypeRpm, Filename: "x"}, "hello_1.0-1_x86_64.rpm"},
		{models.Package{Name: "hello", Version: "1.0-r0", Architecture: "x86_64", Type: models.TypeApk, Filename: "x.apk"}, "hello_1.0-r0_x86_64.apk"},
		{models.Package{Name: "hello", Version: "1.0-1", Architecture: "x86_64", Type: models.TypePacman, Filename: "h.pkg.tar.xz"}, "hello_1.0-1_x86_64.pkg.tar.xz"},
		{models.Package{Name: "hello", Version: "1.0", Architecture: "any", Filename: "hello.tar.gz"}, "hello_1.0_any.gz"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, FileName(&tt.pkg))
		})
	}
}

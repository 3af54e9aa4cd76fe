package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ralt/bulk/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name   string
		file   string
		header []byte
		want   models.PackageType
	}{
		{"deb by magic", "pkg", []byte("!<arch>\ndebian-binary   "), models.TypeDeb},
		{"deb by extension", "hello_1.0_amd64.deb", nil, models.TypeDeb},
		{"rpm by magic", "pkg", []byte{0xED, 0xAB, 0xEE, 0xDB, 3, 0}, models.TypeRpm},
		{"apk", "hello-1.0-r0.apk", []byte{0x1F, 0x8B, 8}, models.TypeApk},
		{"apk without gzip", "hello-1.0-r0.apk", []byte("text"), models.TypeUnknown},
		{"pacman zst", "hello-1.0-1-x86_64.pkg.tar.zst", []byte{0x28, 0xB5, 0x2F, 0xFD}, models.TypePacman},
		{"pacman xz", "hello-1.0-1-x86_64.pkg.tar.xz", []byte{0xFD, 0x37, 0x7A, 0x58, 0x5A, 0x00}, models.TypePacman},
		{"pacman plain tar", "hello-1.0-1-any.pkg.tar", []byte("hello"), models.TypePacman},
		{"pacman wrong magic", "hello-1.0-1-x86_64.pkg.tar.zst", []byte("nope"), models.TypeUnknown},
		{"unknown", "README.md", []byte("# readme"), models.TypeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detect(tt.file, tt.header))
		})
	}
}

func TestScanOrderAndFilter(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"b/zz_1.0_amd64.deb": "!<arch>\ndebian",
		"a/aa_1.0_amd64.deb": "!<arch>\ndebian",
		"notes.txt":          "hello",
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	pkgs, err := NewFileSystemScanner().Scan(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, pkgs, 2)
	assert.Equal(t, filepath.Join(dir, "a/aa_1.0_amd64.deb"), pkgs[0].Path)
	assert.Equal(t, filepath.Join(dir, "b/zz_1.0_amd64.deb"), pkgs[1].Path)
	assert.Equal(t, models.TypeDeb, pkgs[0].Type)
	assert.Equal(t, int64(len("!<arch>\ndebian")), pkgs[0].Size)
}

func TestScanCancelled(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.deb"), []byte("x"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFileSystemScanner().Scan(ctx, dir)
	assert.ErrorIs(t, err, context.Canceled)
}

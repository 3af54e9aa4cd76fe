package utils

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dists", "stable", "Release")

	require.NoError(t, WriteFile(path, []byte("old"), 0644))
	require.NoError(t, WriteFile(path, []byte("new"), 0640))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0640), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.deb")
	dst := filepath.Join(dir, "pool", "main", "h", "hello", "src.deb")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0600))

	require.NoError(t, CopyFile(src, dst))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	assert.Error(t, CopyFile(filepath.Join(dir, "missing"), dst))
}

func TestChecksums(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0644))

	c, err := CalculateChecksums(path)
	require.NoError(t, err)
	assert.Equal(t, int64(3), c.Size)
	assert.Equal(t, "900150983cd24fb0d6963f7d28e17f72", c.MD5)
	assert.Equal(t, "a9993e364706816aba3e25717850c26c9cd0d89d", c.SHA1)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", c.SHA256)
	assert.Equal(t, c, ChecksumBytes([]byte("abc")))
}

func TestCompressionRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("Package: hello\n"), 50)

	gz, err := GzipCompress(data)
	require.NoError(t, err)
	again, err := GzipCompress(data)
	require.NoError(t, err)
	assert.Equal(t, gz, again)

	xzData, err := XzCompress(data)
	require.NoError(t, err)

	for name, compressed := range map[string][]byte{
		"Packages.gz": gz,
		"Packages.xz": xzData,
		"Packages":    data,
	} {
		r, err := Decompressor(name, bytes.NewReader(compressed))
		require.NoError(t, err, name)
		out, err := io.ReadAll(r)
		require.NoError(t, err, name)
		require.NoError(t, r.Close())
		assert.Equal(t, data, out, name)
	}
}

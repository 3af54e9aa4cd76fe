//go:build unix

package archive

import (
	"bytes"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendFileAtSkipsFifo(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, syscall.Mkfifo(filepath.Join(dir, "pipe"), 0o644))

	var buf bytes.Buffer
	err := AppendFileAt(NewWriter(&buf), dir, "pipe", testMtime)
	assert.NoError(t, err)
	assert.Zero(t, buf.Len())
}

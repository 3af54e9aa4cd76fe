package control

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const packagesText = `Package: hello
Version: 1.0
Architecture: amd64
Description: says hello
 A longer description
 .
 with a blank line.

# comment
Package: world
Version: 2.0
`

func TestParse(t *testing.T) {
	paragraphs, err := Parse(strings.NewReader(packagesText))
	require.NoError(t, err)
	require.Len(t, paragraphs, 2)

	hello := paragraphs[0]
	assert.Equal(t, "hello", hello.Get("Package"))
	assert.Equal(t, "amd64", hello.Get("architecture"))
	assert.Equal(t, "says hello\n A longer description\n .\n with a blank line.", hello.Get("Description"))
	assert.Equal(t, "2.0", paragraphs[1].Get("Version"))
	assert.Equal(t, "", paragraphs[1].Get("Architecture"))
}

func TestRoundTrip(t *testing.T) {
	paragraphs, err := Parse(strings.NewReader(packagesText))
	require.NoError(t, err)
	assert.Equal(t, strings.SplitN(packagesText, "\n\n", 2)[0]+"\n", paragraphs[0].String())
}

func TestSet(t *testing.T) {
	var p Paragraph
	p.Set("Package", "hello")
	p.Set("Version", "1.0")
	p.Set("package", "bye")
	assert.Equal(t, "Package: bye\nVersion: 1.0\n", p.String())
}

func TestParseErrors(t *testing.T) {
	_, err := Parse(strings.NewReader(" leading continuation\n"))
	assert.Error(t, err)

	_, err = Parse(strings.NewReader("no colon here\n"))
	assert.Error(t, err)

	_, err = ParseOne(strings.NewReader("A: 1\n\nB: 2\n"))
	assert.Error(t, err)
}

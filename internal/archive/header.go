package archive

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

// BlockSize is the size of a header block and the unit payloads are padded to
const BlockSize = 512

// NameSize is the longest name that fits in a header
const NameSize = 100

// EntryType is the typeflag byte of a header
type EntryType byte

const (
	TypeRegular     EntryType = '0'
	TypeSymlink     EntryType = '2'
	TypeDirectory   EntryType = '5'
	TypeGNULongName EntryType = 'L'
	TypeGNULongLink EntryType = 'K'
)

// longLinkName is the conventional name of GNU long name entries
const longLinkName = "././@LongLink"

// Header is a single GNU tar header. Owner, group and device fields are
// always written as zero so the output does not depend on the build host.
type Header struct {
	Name    string
	Type    EntryType
	Size    int64
	Mode    int64
	ModTime int64
}

// field offsets within a GNU header block
const (
	offName     = 0
	offMode     = 100
	offUID      = 108
	offGID      = 116
	offSize     = 124
	offMtime    = 136
	offChksum   = 148
	offType     = 156
	offLinkname = 157
	offMagic    = 257
	offDevMajor = 329
	offDevMinor = 337
)

var errFieldOverflow = errors.New("value does not fit in header field")

// Marshal encodes the header into a single block with its checksum set.
// Names longer than NameSize are truncated; Writer emits a long name
// entry before such headers.
func (h *Header) Marshal() ([]byte, error) {
	if h.Size < 0 {
		return nil, fmt.Errorf("negative size %d for %s", h.Size, h.Name)
	}

	block := make([]byte, BlockSize)
	name := h.Name
	if len(name) > NameSize {
		name = name[:NameSize]
	}
	copy(block[offName:offName+NameSize], name)

	if err := putOctal(block[offMode:offMode+8], h.Mode); err != nil {
		return nil, fmt.Errorf("mode of %s: %w", h.Name, err)
	}
	putOctal(block[offUID:offUID+8], 0)
	putOctal(block[offGID:offGID+8], 0)
	putNumeric(block[offSize:offSize+12], h.Size)
	putNumeric(block[offMtime:offMtime+12], h.ModTime)
	block[offType] = byte(h.Type)
	copy(block[offMagic:], "ustar  \x00")
	putOctal(block[offDevMajor:offDevMajor+8], 0)
	putOctal(block[offDevMinor:offDevMinor+8], 0)

	copy(block[offChksum:offChksum+8], "        ")
	var sum int64
	for _, b := range block {
		sum += int64(b)
	}
	copy(block[offChksum:offChksum+8], fmt.Sprintf("%06o\x00 ", sum))

	return block, nil
}

// putOctal writes v as zero-padded octal digits followed by a NUL
func putOctal(field []byte, v int64) error {
	s := strconv.FormatInt(v, 8)
	width := len(field) - 1
	if v < 0 || len(s) > width {
		return errFieldOverflow
	}
	copy(field, bytes.Repeat([]byte{'0'}, width-len(s)))
	copy(field[width-len(s):], s)
	field[width] = 0
	return nil
}

// putNumeric writes v in octal, falling back to the GNU base-256 encoding
// for values too large (or negative) for the octal field.
func putNumeric(field []byte, v int64) {
	if putOctal(field, v) == nil {
		return
	}
	u := uint64(v)
	for i := len(field) - 1; i >= 0; i-- {
		field[i] = byte(u)
		u >>= 8
	}
	if v < 0 {
		field[0] |= 0x80
		return
	}
	field[0] = 0x80
}

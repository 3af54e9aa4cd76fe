package archive

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// Appender appends one entry, header followed by its payload, to an archive.
// data must yield exactly hdr.Size bytes.
type Appender interface {
	Append(hdr *Header, data io.Reader) error
}

// ErrShortPayload is returned when a payload ends before hdr.Size bytes
var ErrShortPayload = errors.New("payload shorter than header size")

var errClosed = errors.New("archive: writer closed")

// Writer writes GNU tar entries to an underlying writer
type Writer struct {
	w   io.Writer
	err error
}

// NewWriter creates a Writer appending to w
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Append writes hdr and copies hdr.Size bytes of data, padded to a full
// block. Names longer than NameSize are carried by a preceding long name
// entry. After a failed Append the archive is unusable.
func (tw *Writer) Append(hdr *Header, data io.Reader) error {
	if tw.err != nil {
		return tw.err
	}
	if len(hdr.Name) > NameSize && hdr.Type != TypeGNULongName && hdr.Type != TypeGNULongLink {
		long := &Header{
			Name:    longLinkName,
			Type:    TypeGNULongName,
			Size:    int64(len(hdr.Name) + 1),
			ModTime: hdr.ModTime,
		}
		if err := tw.Append(long, strings.NewReader(hdr.Name+"\x00")); err != nil {
			return err
		}
	}
	tw.err = tw.append(hdr, data)
	return tw.err
}

func (tw *Writer) append(hdr *Header, data io.Reader) error {
	block, err := hdr.Marshal()
	if err != nil {
		return err
	}
	if _, err := tw.w.Write(block); err != nil {
		return fmt.Errorf("write header of %s: %w", hdr.Name, err)
	}
	if hdr.Size == 0 {
		return nil
	}
	n, err := io.CopyN(tw.w, data, hdr.Size)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%s: %w (%d of %d bytes)", hdr.Name, ErrShortPayload, n, hdr.Size)
		}
		return fmt.Errorf("write payload of %s: %w", hdr.Name, err)
	}
	if rem := hdr.Size % BlockSize; rem != 0 {
		if _, err := tw.w.Write(make([]byte, BlockSize-rem)); err != nil {
			return fmt.Errorf("write padding of %s: %w", hdr.Name, err)
		}
	}
	return nil
}

// Close writes the two zero blocks that end an archive. It does not close
// the underlying writer.
func (tw *Writer) Close() error {
	if tw.err != nil {
		return tw.err
	}
	if _, err := tw.w.Write(make([]byte, 2*BlockSize)); err != nil {
		tw.err = fmt.Errorf("write trailer: %w", err)
		return tw.err
	}
	tw.err = errClosed
	return nil
}

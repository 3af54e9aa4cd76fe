package archive

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// AppendBlob appends an in-memory regular file. The mode is always 0644;
// this is meant for generated content, not copies of files on disk.
func AppendBlob(a Appender, name string, mtime int64, data []byte) error {
	hdr := &Header{
		Name:    name,
		Type:    TypeRegular,
		Size:    int64(len(data)),
		Mode:    0o644,
		ModTime: mtime,
	}
	return a.Append(hdr, bytes.NewReader(data))
}

// AppendFileAt appends the filesystem object at dir/path under the name
// path. Unlike a plain copy it records neither the file's own mtime nor
// its owner: every header gets mtime and uid/gid 0, which keeps archives
// built on different machines byte-identical.
//
// Symlinks are always preceded by a GNU long link entry carrying the
// target, whatever its length. Objects that are not regular files,
// symlinks or directories are silently skipped.
func AppendFileAt(a Appender, dir, path string, mtime int64) error {
	fullpath := filepath.Join(dir, path)
	info, err := os.Lstat(fullpath)
	if err != nil {
		return err
	}

	hdr := &Header{
		Name:    path,
		Mode:    permBits(info.Mode()),
		ModTime: mtime,
	}

	switch {
	case info.Mode().IsRegular():
		f, err := os.Open(fullpath)
		if err != nil {
			return err
		}
		defer f.Close()
		hdr.Type = TypeRegular
		hdr.Size = info.Size()
		return a.Append(hdr, f)

	case info.Mode()&os.ModeSymlink != 0:
		target, err := os.Readlink(fullpath)
		if err != nil {
			return err
		}
		longlink := &Header{
			Name:    path,
			Type:    TypeGNULongLink,
			Size:    int64(len(target)),
			ModTime: mtime,
		}
		if err := a.Append(longlink, strings.NewReader(target)); err != nil {
			return fmt.Errorf("long link of %s: %w", path, err)
		}
		hdr.Type = TypeSymlink
		return a.Append(hdr, bytes.NewReader(nil))

	case info.IsDir():
		hdr.Type = TypeDirectory
		return a.Append(hdr, bytes.NewReader(nil))

	default:
		// devices, sockets and fifos have no place in a package
		return nil
	}
}

// permBits converts a FileMode to the POSIX permission bits of a header
func permBits(m os.FileMode) int64 {
	bits := int64(m.Perm())
	if m&os.ModeSetuid != 0 {
		bits |= 0o4000
	}
	if m&os.ModeSetgid != 0 {
		bits |= 0o2000
	}
	if m&os.ModeSticky != 0 {
		bits |= 0o1000
	}
	return bits
}

package utils

import (
	"bytes"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"io"
	"os"
)

// Checksum contains various checksums for a file
type Checksum struct {
	MD5    string
	SHA1   string
	SHA256 string
	SHA512 string
	Size   int64
}

// CalculateChecksums calculates all checksums for a file in a single pass
func CalculateChecksums(path string) (*Checksum, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ChecksumReader(f)
}

// ChecksumBytes calculates all checksums of in-memory data
func ChecksumBytes(data []byte) *Checksum {
	c, _ := ChecksumReader(bytes.NewReader(data))
	return c
}

// ChecksumReader streams r through every hash at once
func ChecksumReader(r io.Reader) (*Checksum, error) {
	md5Hash := md5.New()
	sha1Hash := sha1.New()
	sha256Hash := sha256.New()
	sha512Hash := sha512.New()

	n, err := io.Copy(io.MultiWriter(md5Hash, sha1Hash, sha256Hash, sha512Hash), r)
	if err != nil {
		return nil, err
	}

	return &Checksum{
		MD5:    hex.EncodeToString(md5Hash.Sum(nil)),
		SHA1:   hex.EncodeToString(sha1Hash.Sum(nil)),
		SHA256: hex.EncodeToString(sha256Hash.Sum(nil)),
		SHA512: hex.EncodeToString(sha512Hash.Sum(nil)),
		Size:   n,
	}, nil
}

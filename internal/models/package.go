package models

import "fmt"

// PackageType identifies the container format of a package file
type PackageType int

const (
	TypeUnknown PackageType = iota
	TypeDeb
	TypeRpm
	TypeApk
	TypePacman
)

// String returns the string representation of PackageType
func (pt PackageType) String() string {
	switch pt {
	case TypeDeb:
		return "deb"
	case TypeRpm:
		return "rpm"
	case TypeApk:
		return "apk"
	case TypePacman:
		return "pacman"
	default:
		return "unknown"
	}
}

// Package represents a software package with its metadata.
// It is produced once per input file and treated as read-only afterwards.
type Package struct {
	// Core metadata
	Name         string
	Version      string
	Architecture string
	Type         PackageType
	Description  string
	Maintainer   string
	Homepage     string
	Dependencies []string

	// File information
	Filename  string
	Size      int64
	MD5Sum    string
	SHA1Sum   string
	SHA256Sum string
	SHA512Sum string

	// Remaining control fields, keyed by their original field name
	Fields map[string]string
}

// Identity returns the key under which a package occupies a slot in an index
func (p *Package) Identity() string {
	return fmt.Sprintf("%s:%s:%s", p.Name, p.Version, p.Architecture)
}

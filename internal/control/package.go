package control

import (
	"sort"
	"strconv"
	"strings"

	"github.com/ralt/bulk/internal/models"
)

// fields mapped onto models.Package members rather than Package.Fields
var knownFields = map[string]bool{
	"package": true, "version": true, "architecture": true,
	"description": true, "maintainer": true, "homepage": true,
	"depends": true, "filename": true, "size": true,
	"md5sum": true, "sha1": true, "sha256": true, "sha512": true,
}

// Package converts a control or Packages paragraph into a package
func (p Paragraph) Package() *models.Package {
	pkg := &models.Package{
		Type:   models.TypeDeb,
		Fields: make(map[string]string),
	}
	for _, f := range p {
		switch strings.ToLower(f.Name) {
		case "package":
			pkg.Name = f.Value
		case "version":
			pkg.Version = f.Value
		case "architecture":
			pkg.Architecture = f.Value
		case "description":
			pkg.Description = f.Value
		case "maintainer":
			pkg.Maintainer = f.Value
		case "homepage":
			pkg.Homepage = f.Value
		case "depends":
			for _, dep := range strings.Split(f.Value, ",") {
				if dep = strings.TrimSpace(dep); dep != "" {
					pkg.Dependencies = append(pkg.Dependencies, dep)
				}
			}
		case "filename":
			pkg.Filename = f.Value
		case "size":
			pkg.Size, _ = strconv.ParseInt(f.Value, 10, 64)
		case "md5sum":
			pkg.MD5Sum = f.Value
		case "sha1":
			pkg.SHA1Sum = f.Value
		case "sha256":
			pkg.SHA256Sum = f.Value
		case "sha512":
			pkg.SHA512Sum = f.Value
		default:
			pkg.Fields[f.Name] = f.Value
		}
	}
	return pkg
}

// FromPackage renders a package as a Packages index stanza. Extra fields
// are written in sorted order so the output does not depend on map order.
func FromPackage(pkg *models.Package) Paragraph {
	p := Paragraph{
		{Name: "Package", Value: pkg.Name},
		{Name: "Version", Value: pkg.Version},
		{Name: "Architecture", Value: pkg.Architecture},
	}
	if pkg.Maintainer != "" {
		p = append(p, Field{Name: "Maintainer", Value: pkg.Maintainer})
	}

	names := make([]string, 0, len(pkg.Fields))
	for name := range pkg.Fields {
		if !knownFields[strings.ToLower(name)] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		p = append(p, Field{Name: name, Value: pkg.Fields[name]})
	}

	if len(pkg.Dependencies) > 0 {
		p = append(p, Field{Name: "Depends", Value: strings.Join(pkg.Dependencies, ", ")})
	}
	if pkg.Homepage != "" {
		p = append(p, Field{Name: "Homepage", Value: pkg.Homepage})
	}

	p = append(p,
		Field{Name: "Filename", Value: pkg.Filename},
		Field{Name: "Size", Value: strconv.FormatInt(pkg.Size, 10)},
		Field{Name: "MD5sum", Value: pkg.MD5Sum},
		Field{Name: "SHA1", Value: pkg.SHA1Sum},
		Field{Name: "SHA256", Value: pkg.SHA256Sum},
	)
	if pkg.SHA512Sum != "" {
		p = append(p, Field{Name: "SHA512", Value: pkg.SHA512Sum})
	}
	if pkg.Description != "" {
		p = append(p, Field{Name: "Description", Value: pkg.Description})
	}
	return p
}

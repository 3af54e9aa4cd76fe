package metadata

import (
	"fmt"
	"os"
	"strings"

	"github.com/ralt/bulk/internal/models"
	"github.com/sassoftware/go-rpmutils"
)

func parseRpm(path string) (*models.Package, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rpm, err := rpmutils.ReadRpm(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read RPM: %w", err)
	}

	pkg := &models.Package{
		Name:         stringTag(rpm, rpmutils.NAME),
		Version:      stringTag(rpm, rpmutils.VERSION),
		Architecture: stringTag(rpm, rpmutils.ARCH),
		Description:  stringTag(rpm, rpmutils.SUMMARY),
		Maintainer:   stringTag(rpm, rpmutils.PACKAGER),
		Homepage:     stringTag(rpm, rpmutils.URL),
		Dependencies: stringSliceTag(rpm, rpmutils.REQUIRENAME),
		Fields:       make(map[string]string),
	}
	for name, tag := range map[string]int{
		"Release": rpmutils.RELEASE,
		"License": rpmutils.LICENSE,
		"Group":   rpmutils.GROUP,
	} {
		if v := stringTag(rpm, tag); v != "" {
			pkg.Fields[name] = v
		}
	}
	return pkg, nil
}

func stringTag(rpm *rpmutils.Rpm, tag int) string {
	val, err := rpm.Header.Get(tag)
	if err != nil {
		return ""
	}

	switch v := val.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case []string:
		if len(v) > 0 {
			return v[0]
		}
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

func stringSliceTag(rpm *rpmutils.Rpm, tag int) []string {
	val, err := rpm.Header.Get(tag)
	if err != nil {
		return nil
	}
	slice, ok := val.([]string)
	if !ok {
		return nil
	}

	var result []string
	for _, s := range slice {
		if s = strings.TrimSpace(s); s != "" {
			result = append(result, s)
		}
	}
	return result
}

package hdf5

import (
	"fmt"
	"strings"
)

// Attribute paths name an object and one of its attributes, split at the
// last '@': "/@title" is on the root group, "/run/x@units" on /run/x.
const attrSep = "@"

// ParseAttrPath splits an attribute path. The object part is cleaned.
func ParseAttrPath(p string) (objectPath, attrName string, err error) {
	i := strings.LastIndex(p, attrSep)
	switch {
	case p == "":
		return "", "", fmt.Errorf("%w: empty attribute path", ErrInvalidPath)
	case i < 0:
		return "", "", fmt.Errorf("%w: no %q in %s", ErrInvalidPath, attrSep, p)
	case i == len(p)-1:
		return "", "", fmt.Errorf("%w: no attribute name in %s", ErrInvalidPath, p)
	}
	return CleanPath(p[:i]), p[i+1:], nil
}

// JoinAttrPath is the inverse of ParseAttrPath.
func JoinAttrPath(objectPath, attrName string) string {
	if objectPath == "/" {
		return "/" + attrSep + attrName
	}
	return objectPath + attrSep + attrName
}

// SplitPath returns the non-empty components of p.
func SplitPath(p string) []string {
	return strings.FieldsFunc(p, func(r rune) bool { return r == '/' })
}

// CleanPath returns p absolute, without empty components or a trailing
// slash.
func CleanPath(p string) string {
	return "/" + strings.Join(SplitPath(p), "/")
}

func childPath(parent, name string) string {
	return strings.TrimSuffix(parent, "/") + "/" + name
}

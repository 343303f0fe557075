// # internal/engine/resolver/dotted.go
package resolver

import "strings"

// SplitDotted splits a dotted name at its last separator. A name with no
// separator has an empty prefix.
func SplitDotted(name string) (prefix, leaf string) {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 {
		return "", name
	}
	return name[:idx], name[idx+1:]
}

// JoinDotted builds the name `from prefix import leaf` refers to. A prefix
// made only of dots is joined without an extra separator.
func JoinDotted(prefix, leaf string) string {
	switch {
	case prefix == "":
		return leaf
	case leaf == "":
		return prefix
	case strings.Trim(prefix, ".") == "":
		return prefix + leaf
	}
	return prefix + "." + leaf
}

// RelativeLevel counts the leading dots of name.
func RelativeLevel(name string) int {
	return len(name) - len(strings.TrimLeft(name, "."))
}

func IsRelative(name string) bool {
	return strings.HasPrefix(name, ".")
}

// Segments returns the non-empty components of name with leading dots removed.
func Segments(name string) []string {
	var out []string
	for _, part := range strings.Split(strings.TrimLeft(name, "."), ".") {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// PathShape maps a dotted name onto a slash separated relative path.
func PathShape(name string) string {
	return strings.Join(Segments(name), "/")
}

// # internal/engine/resolver/stdlib.go
package resolver

import (
	"context"
	_ "embed"
	"strings"

	"pycleaner/internal/core/ports"
)

//go:embed stdlib/python.txt
var pythonStdlibData string

var pythonStdlib = map[string]bool{}

func init() {
	for _, line := range strings.Split(pythonStdlibData, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			pythonStdlib[line] = true
		}
	}
}

// IsStdlib reports whether the top-level package of dotted belongs to the
// standard library.
func IsStdlib(dotted string) bool {
	segments := Segments(dotted)
	if len(segments) == 0 || IsRelative(dotted) {
		return false
	}
	return pythonStdlib[segments[0]]
}

// StdlibFinder recognizes standard library modules from an embedded list.
// It never reports an origin, so every hit is external.
type StdlibFinder struct{}

func (StdlibFinder) FindModule(_ context.Context, dotted string) (ports.ModuleSpec, bool, error) {
	if !IsStdlib(dotted) {
		return ports.ModuleSpec{}, false, nil
	}
	return ports.ModuleSpec{Name: dotted}, true, nil
}

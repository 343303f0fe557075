package app

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"pycleaner/internal/engine/parser"

	"github.com/gobwas/glob"
)

// ScanProject lists every Python source under root, skipping directories
// whose base name matches excludeDirs and files whose base name matches
// excludeFiles. The root itself is never excluded. Paths are absolute and
// sorted.
func ScanProject(root string, excludeDirs, excludeFiles []string) ([]string, error) {
	dirGlobs, err := compileGlobs(excludeDirs, "exclude dir")
	if err != nil {
		return nil, err
	}
	fileGlobs, err := compileGlobs(excludeFiles, "exclude file")
	if err != nil {
		return nil, err
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var files []string
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		base := filepath.Base(path)
		if d.IsDir() {
			if path != absRoot && matchesAny(dirGlobs, base) {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() || !parser.IsPythonSource(path) {
			return nil
		}
		if matchesAny(fileGlobs, base) {
			return nil
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

func compileGlobs(patterns []string, label string) ([]glob.Glob, error) {
	compiled := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s pattern %q: %w", label, p, err)
		}
		compiled = append(compiled, g)
	}
	return compiled, nil
}

func matchesAny(globs []glob.Glob, name string) bool {
	for _, g := range globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

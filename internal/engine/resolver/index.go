// # internal/engine/resolver/index.go
package resolver

import (
	"path"
	"path/filepath"
	"sort"
	"strings"

	"pycleaner/internal/core/errors"

	"github.com/bmatcuk/doublestar/v4"
)

// FileIndex is an immutable view of the project's Python files used for
// pattern searches. Paths are stored relative to the root with forward
// slashes and bucketed by base name so literal patterns skip most entries.
type FileIndex struct {
	root   string
	files  []string
	byBase map[string][]string
	set    map[string]struct{}
}

// NewFileIndex indexes files, which must be absolute and live under root.
func NewFileIndex(root string, files []string) (*FileIndex, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeConfiguration, "resolve project root")
	}
	ix := &FileIndex{
		root:   absRoot,
		byBase: make(map[string][]string),
		set:    make(map[string]struct{}, len(files)),
	}
	for _, file := range files {
		rel, err := filepath.Rel(absRoot, file)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil, errors.AddContext(
				errors.New(errors.CodeConfiguration, "file is outside the project root"),
				errors.CtxPath, file)
		}
		rel = filepath.ToSlash(rel)
		if _, dup := ix.set[rel]; dup {
			continue
		}
		ix.set[rel] = struct{}{}
		ix.files = append(ix.files, rel)
		base := path.Base(rel)
		ix.byBase[base] = append(ix.byBase[base], rel)
	}
	sort.Strings(ix.files)
	return ix, nil
}

func (ix *FileIndex) Root() string { return ix.root }

func (ix *FileIndex) Len() int { return len(ix.files) }

// Has reports whether the absolute path abs is indexed.
func (ix *FileIndex) Has(abs string) bool {
	rel, ok := ix.rel(abs)
	if !ok {
		return false
	}
	_, found := ix.set[rel]
	return found
}

// Contains reports whether abs lies under the index root, indexed or not.
func (ix *FileIndex) Contains(abs string) bool {
	_, ok := ix.rel(abs)
	return ok
}

// Glob returns the absolute paths matching a root-relative doublestar
// pattern, sorted. Invalid patterns match nothing.
func (ix *FileIndex) Glob(pattern string) []string {
	candidates := ix.files
	if base := path.Base(pattern); !hasMeta(base) {
		candidates = ix.byBase[base]
	}

	var out []string
	for _, rel := range candidates {
		ok, err := doublestar.Match(pattern, rel)
		if err != nil {
			return nil
		}
		if ok {
			out = append(out, filepath.Join(ix.root, filepath.FromSlash(rel)))
		}
	}
	sort.Strings(out)
	return out
}

// Files returns the absolute paths of every indexed file, sorted.
func (ix *FileIndex) Files() []string {
	out := make([]string, 0, len(ix.files))
	for _, rel := range ix.files {
		out = append(out, filepath.Join(ix.root, filepath.FromSlash(rel)))
	}
	return out
}

func (ix *FileIndex) rel(abs string) (string, bool) {
	rel, err := filepath.Rel(ix.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func hasMeta(s string) bool {
	return strings.ContainsAny(s, `*?[{\`)
}

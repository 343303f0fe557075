// # internal/engine/graph/classify.go
package graph

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"pycleaner/internal/engine/resolver"
	"pycleaner/internal/shared/observability"
)

type Stats struct {
	FilesInspected int           `json:"files_inspected" yaml:"files_inspected"`
	ImportsSeen    int           `json:"imports_seen" yaml:"imports_seen"`
	Resolved       int           `json:"resolved" yaml:"resolved"`
	External       int           `json:"external" yaml:"external"`
	Misses         int           `json:"misses" yaml:"misses"`
	Ambiguous      int           `json:"ambiguous" yaml:"ambiguous"`
	Duration       time.Duration `json:"duration" yaml:"duration"`
}

// Classification partitions a project. Libraries, Scripts, Suppressed and
// Core are pairwise disjoint and together cover every project file.
type Classification struct {
	Root       string
	Core       []string
	Libraries  []string
	Scripts    []string
	Suppressed []string
	Unparsable []string
	NotFound   *NotFoundIndex
	MayFound   *MayFoundIndex
	Stats      Stats
}

type Classifier struct {
	builder *Builder
}

func NewClassifier(builder *Builder) *Classifier {
	return &Classifier{builder: builder}
}

// Classify walks the import graph from core and splits the remaining files
// of all into libraries and scripts. Unreached files that an unresolved
// import could plausibly name are held back from the scripts.
func (c *Classifier) Classify(ctx context.Context, root string, all, core []string) (*Classification, error) {
	start := time.Now()

	t, err := c.builder.Build(ctx, all, core)
	if err != nil {
		return nil, err
	}

	result := &Classification{
		Root:       filepath.Clean(root),
		Core:       sortedCopy(cleanAll(core)),
		Libraries:  sortedCopy(t.Libraries),
		Unparsable: sortedCopy(t.Unparsable),
		NotFound:   t.NotFound,
		MayFound:   t.MayFound,
		Stats:      t.Stats,
	}

	misses := make([][]string, 0, t.NotFound.Len())
	for _, name := range t.NotFound.Names() {
		if segments := resolver.Segments(name); len(segments) > 0 {
			misses = append(misses, segments)
		}
	}
	for file := range t.Remaining {
		if suppressedBy(result.Root, file, misses) {
			result.Suppressed = append(result.Suppressed, file)
			continue
		}
		result.Scripts = append(result.Scripts, file)
	}
	sort.Strings(result.Scripts)
	sort.Strings(result.Suppressed)

	result.Stats.Duration = time.Since(start)
	observability.LibraryFiles.Set(float64(len(result.Libraries)))
	observability.ScriptFiles.Set(float64(len(result.Scripts)))
	return result, nil
}

// Suppresses reports whether the unresolved dotted name miss could refer to
// file: the dot-separated parts of miss appear as a contiguous run in the
// root-relative path of file with its extension removed.
func Suppresses(root, file, miss string) bool {
	segments := resolver.Segments(miss)
	if len(segments) == 0 {
		return false
	}
	return suppressedBy(root, file, [][]string{segments})
}

func suppressedBy(root, file string, misses [][]string) bool {
	if len(misses) == 0 {
		return false
	}
	rel, err := filepath.Rel(root, file)
	if err != nil {
		rel = file
	}
	rel = strings.TrimSuffix(filepath.ToSlash(rel), filepath.Ext(rel))
	parts := strings.Split(rel, "/")
	for _, miss := range misses {
		if containsRun(parts, miss) {
			return true
		}
	}
	return false
}

func containsRun(big, small []string) bool {
	for start := 0; start+len(small) <= len(big); start++ {
		match := true
		for i, part := range small {
			if big[start+i] != part {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func cleanAll(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, filepath.Clean(p))
	}
	return out
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

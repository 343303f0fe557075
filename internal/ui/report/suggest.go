package report

import (
	"path"
	"strings"

	"pycleaner/internal/engine/resolver"
	"pycleaner/internal/shared/util"

	"github.com/hbollon/go-edlib"
)

// SuggestThreshold is the minimum Jaro-Winkler similarity for a hint.
const SuggestThreshold = 0.85

// ModuleNames derives the dotted module name of every project file:
// "pkg/sub/__init__.py" becomes "pkg.sub" and "pkg/mod.py" becomes "pkg.mod".
func ModuleNames(root string, files []string) []string {
	seen := make(map[string]struct{}, len(files))
	for _, file := range files {
		rel := strings.TrimSuffix(util.RelSlash(root, file), path.Ext(file))
		rel = strings.TrimSuffix(rel, "/__init__")
		if rel == "__init__" || rel == "" {
			continue
		}
		seen[strings.ReplaceAll(rel, "/", ".")] = struct{}{}
	}
	return util.SortedStringKeys(seen)
}

// Suggest maps each missing name to the most similar module, keeping only
// matches at or above SuggestThreshold. Relative names are compared without
// their leading dots; ties go to the alphabetically first module.
func Suggest(missing, modules []string) map[string]string {
	out := make(map[string]string)
	for _, name := range missing {
		needle := strings.Join(resolver.Segments(name), ".")
		if needle == "" {
			continue
		}
		best, bestScore := "", float32(0)
		for _, module := range modules {
			if module == needle {
				continue
			}
			score, err := edlib.StringsSimilarity(needle, module, edlib.JaroWinkler)
			if err != nil {
				continue
			}
			if score > bestScore {
				best, bestScore = module, score
			}
		}
		if best != "" && bestScore >= SuggestThreshold {
			out[name] = best
		}
	}
	return out
}

package app

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"pycleaner/internal/core/errors"
	"pycleaner/internal/shared/util"
)

// ValidateTargets rejects an empty target list and any pair of targets where
// one equals or contains the other. "." names the project root and overlaps
// every other target.
func ValidateTargets(targets []string) error {
	if len(targets) == 0 {
		return errors.New(errors.CodeConfiguration, "no core targets given")
	}
	norm := make([]string, len(targets))
	for i, target := range targets {
		if strings.TrimSpace(target) == "" {
			return errors.New(errors.CodeConfiguration, "empty core target")
		}
		norm[i] = util.NormalizePatternPath(target)
	}
	for i := range norm {
		for j := i + 1; j < len(norm); j++ {
			if overlaps(norm[i], norm[j]) {
				return errors.AddContext(
					errors.Newf(errors.CodeConfiguration, "targets %q and %q overlap", targets[i], targets[j]),
					errors.CtxTarget, targets[j])
			}
		}
	}
	return nil
}

func overlaps(a, b string) bool {
	if a == "" || b == "" {
		return true
	}
	return util.HasPathPrefix(a, b) || util.HasPathPrefix(b, a)
}

// ExpandTargets turns validated targets into core files. A file target is
// taken as is; a directory target contributes every file of listed that
// lives below it. Targets must exist under root.
func ExpandTargets(root string, targets, listed []string) ([]string, error) {
	seen := make(map[string]struct{})
	var core []string
	add := func(path string) {
		if _, dup := seen[path]; dup {
			return
		}
		seen[path] = struct{}{}
		core = append(core, path)
	}

	for _, target := range targets {
		rel := util.NormalizePatternPath(target)
		if rel == ".." || strings.HasPrefix(rel, "../") || filepath.IsAbs(target) {
			return nil, errors.AddContext(
				errors.Newf(errors.CodeConfiguration, "target %q is outside the project root", target),
				errors.CtxTarget, target)
		}
		abs := filepath.Join(root, filepath.FromSlash(rel))
		info, err := os.Stat(abs)
		if err != nil {
			return nil, errors.AddContext(
				errors.Wrap(err, errors.CodeConfiguration, "core target does not exist"),
				errors.CtxTarget, target)
		}
		if !info.IsDir() {
			add(abs)
			continue
		}
		for _, file := range listed {
			if util.HasPathPrefix(util.RelSlash(root, file), rel) || rel == "" {
				add(file)
			}
		}
	}

	sort.Strings(core)
	return core, nil
}

// mergeFiles returns the sorted union of listed and core.
func mergeFiles(listed, core []string) []string {
	set := make(map[string]struct{}, len(listed)+len(core))
	for _, file := range listed {
		set[file] = struct{}{}
	}
	for _, file := range core {
		set[file] = struct{}{}
	}
	return util.SortedStringKeys(set)
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ResolvedPaths holds the absolute locations derived from a Config.
type ResolvedPaths struct {
	ProjectRoot string
	SourceRoots []string
	HistoryPath string
	LibsLog     string
	ScriptsLog  string
	Zip         string
}

// ResolvePaths anchors project settings. The project root is relative to cwd;
// source roots and the history database are relative to the project root;
// log and zip outputs are relative to cwd.
func ResolvePaths(cfg *Config, cwd string) (ResolvedPaths, error) {
	if strings.TrimSpace(cwd) == "" {
		return ResolvedPaths{}, fmt.Errorf("cwd must not be empty")
	}

	root := ResolveRelative(cwd, cfg.Project.Root)
	info, err := os.Stat(root)
	if err != nil {
		return ResolvedPaths{}, fmt.Errorf("project root %q: %w", root, err)
	}
	if !info.IsDir() {
		return ResolvedPaths{}, fmt.Errorf("project root %q is not a directory", root)
	}

	resolved := ResolvedPaths{
		ProjectRoot: root,
		HistoryPath: ResolveRelative(root, cfg.History.Path),
		LibsLog:     ResolveRelative(cwd, cfg.Output.LibsLog),
		ScriptsLog:  ResolveRelative(cwd, cfg.Output.ScriptsLog),
	}
	if zip := strings.TrimSpace(cfg.Output.Zip); zip != "" {
		resolved.Zip = ResolveRelative(cwd, zip)
	}
	for _, sr := range cfg.Project.SourceRoots {
		resolved.SourceRoots = append(resolved.SourceRoots, ResolveRelative(root, sr))
	}
	return resolved, nil
}

// ResolveRelative joins p onto base unless p is already absolute.
func ResolveRelative(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Clean(filepath.Join(base, p))
}

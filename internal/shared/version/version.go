// Package version holds build identification for pycleaner.
package version

import "runtime/debug"

// Version is the current semantic version.
const Version = "0.3.0"

// GitCommit is set at build time with -ldflags "-X".
var GitCommit = "unknown"

// Info returns the version string shown by `pycleaner version`.
func Info() string {
	return "pycleaner " + Version + " (commit: " + commit() + ")"
}

func commit() string {
	if GitCommit != "unknown" {
		return GitCommit
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return GitCommit
	}
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" && setting.Value != "" {
			if len(setting.Value) > 12 {
				return setting.Value[:12]
			}
			return setting.Value
		}
	}
	return GitCommit
}

package history

import (
	"sort"
	"time"
)

const SchemaVersion = 2

// File roles stored per snapshot.
const (
	RoleCore       = "core"
	RoleLibrary    = "library"
	RoleScript     = "script"
	RoleSuppressed = "suppressed"
)

// Miss kinds stored per snapshot.
const (
	MissNotFound = "not_found"
	MissMayFound = "may_found"
)

// Miss is one unresolved import of a snapshot. Candidate is set only for
// may-found misses, one row per candidate file.
type Miss struct {
	Kind      string `json:"kind" yaml:"kind"`
	Name      string `json:"name" yaml:"name"`
	File      string `json:"file" yaml:"file"`
	Candidate string `json:"candidate,omitempty" yaml:"candidate,omitempty"`
}

// Snapshot is one recorded classification run. File lists are relative to
// the project root.
type Snapshot struct {
	SchemaVersion int       `json:"schema_version" yaml:"schema_version"`
	RunID         string    `json:"run_id" yaml:"run_id"`
	ProjectKey    string    `json:"project_key" yaml:"project_key"`
	Timestamp     time.Time `json:"timestamp" yaml:"timestamp"`
	Deep          bool      `json:"deep" yaml:"deep"`
	DurationMS    int64     `json:"duration_ms" yaml:"duration_ms"`
	NotFoundCount int       `json:"not_found_count" yaml:"not_found_count"`
	MayFoundCount int       `json:"may_found_count" yaml:"may_found_count"`
	Core          []string  `json:"core" yaml:"core"`
	Libraries     []string  `json:"libraries" yaml:"libraries"`
	Scripts       []string  `json:"scripts" yaml:"scripts"`
	Suppressed    []string  `json:"suppressed" yaml:"suppressed"`
	Misses        []Miss    `json:"misses,omitempty" yaml:"misses,omitempty"`
}

// MissesOf returns the snapshot's misses of the given kind.
func (s Snapshot) MissesOf(kind string) []Miss {
	var out []Miss
	for _, m := range s.Misses {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}

// Change lists files whose role differs between two snapshots.
type Change struct {
	NewScripts     []string `json:"new_scripts" yaml:"new_scripts"`
	NewLibraries   []string `json:"new_libraries" yaml:"new_libraries"`
	RemovedScripts []string `json:"removed_scripts" yaml:"removed_scripts"`
}

func (c Change) Empty() bool {
	return len(c.NewScripts) == 0 && len(c.NewLibraries) == 0 && len(c.RemovedScripts) == 0
}

// Compare reports how cur differs from prev.
func Compare(prev, cur Snapshot) Change {
	return Change{
		NewScripts:     difference(cur.Scripts, prev.Scripts),
		NewLibraries:   difference(cur.Libraries, prev.Libraries),
		RemovedScripts: difference(prev.Scripts, cur.Scripts),
	}
}

func difference(a, b []string) []string {
	drop := make(map[string]bool, len(b))
	for _, v := range b {
		drop[v] = true
	}
	var out []string
	for _, v := range a {
		if !drop[v] {
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

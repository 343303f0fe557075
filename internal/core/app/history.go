package app

import (
	"log/slog"
	"path/filepath"
	"time"

	"pycleaner/internal/core/errors"
	"pycleaner/internal/data/history"
	"pycleaner/internal/engine/graph"
	"pycleaner/internal/shared/util"
)

// projectKey names the project in the history store; it defaults to the
// base name of the project root.
func (a *App) projectKey() string {
	if key := a.cfg.History.ProjectKey; key != "" {
		return key
	}
	return filepath.Base(a.paths.ProjectRoot)
}

// recordHistory stores result and logs how the split moved since the
// previous recorded run.
func (a *App) recordHistory(result *graph.Classification) error {
	key := a.projectKey()
	snapshot := SnapshotOf(result, a.cfg.Project.Deep)

	prev, ok, err := a.history.Latest(key)
	if err != nil {
		return err
	}
	if ok {
		if change := history.Compare(prev, snapshot); !change.Empty() {
			slog.Info("classification changed since last run",
				"new_scripts", change.NewScripts,
				"new_libraries", change.NewLibraries,
				"removed_scripts", change.RemovedScripts)
		}
	}
	return a.history.SaveSnapshot(key, snapshot)
}

// SnapshotOf converts a classification into a history snapshot with
// root-relative paths.
func SnapshotOf(result *graph.Classification, deep bool) history.Snapshot {
	rel := func(paths []string) []string {
		out := make([]string, 0, len(paths))
		for _, p := range paths {
			out = append(out, util.RelSlash(result.Root, p))
		}
		return out
	}
	return history.Snapshot{
		SchemaVersion: history.SchemaVersion,
		Timestamp:     time.Now().UTC(),
		Deep:          deep,
		DurationMS:    result.Stats.Duration.Milliseconds(),
		NotFoundCount: result.NotFound.Len(),
		MayFoundCount: result.MayFound.Len(),
		Core:          rel(result.Core),
		Libraries:     rel(result.Libraries),
		Scripts:       rel(result.Scripts),
		Suppressed:    rel(result.Suppressed),
		Misses:        missesOf(result),
	}
}

// missesOf flattens the not-found and may-found indices into history rows.
func missesOf(result *graph.Classification) []history.Miss {
	var out []history.Miss
	for _, entry := range result.NotFound.Entries() {
		for _, file := range entry.Files {
			out = append(out, history.Miss{
				Kind: history.MissNotFound,
				Name: entry.Name,
				File: util.RelSlash(result.Root, file),
			})
		}
	}
	for _, entry := range result.MayFound.Entries() {
		for _, candidate := range entry.Candidates {
			out = append(out, history.Miss{
				Kind:      history.MissMayFound,
				Name:      entry.Name,
				File:      util.RelSlash(result.Root, entry.File),
				Candidate: util.RelSlash(result.Root, candidate),
			})
		}
	}
	return out
}

// History returns the recorded snapshots of this project taken at or after
// since, oldest first.
func (a *App) History(since time.Time) ([]history.Snapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.history == nil {
		return nil, errors.New(errors.CodeNotSupported, "history is disabled; set history.enabled = true")
	}
	return a.history.LoadSnapshots(a.projectKey(), since)
}

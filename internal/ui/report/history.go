package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"pycleaner/internal/core/errors"
	"pycleaner/internal/data/history"

	"gopkg.in/yaml.v3"
)

// HistoryEntry is a recorded run together with what changed since the run
// before it. The first entry carries no change.
type HistoryEntry struct {
	history.Snapshot `yaml:",inline"`
	Change           *history.Change `json:"change,omitempty" yaml:"change,omitempty"`
}

// HistoryEntries pairs each snapshot with its delta from the previous one.
func HistoryEntries(snapshots []history.Snapshot) []HistoryEntry {
	out := make([]HistoryEntry, 0, len(snapshots))
	for i, snap := range snapshots {
		entry := HistoryEntry{Snapshot: snap}
		if i > 0 {
			change := history.Compare(snapshots[i-1], snap)
			entry.Change = &change
		}
		out = append(out, entry)
	}
	return out
}

// WriteHistory renders recorded runs oldest first.
func WriteHistory(w io.Writer, snapshots []history.Snapshot, format string) error {
	entries := HistoryEntries(snapshots)
	switch format {
	case "", FormatText:
		return writeHistoryText(w, entries)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return err
		}
		return enc.Close()
	default:
		return errors.Newf(errors.CodeNotSupported, "unsupported history format %q", format)
	}
}

func writeHistoryText(w io.Writer, entries []HistoryEntry) error {
	var b strings.Builder
	if len(entries) == 0 {
		b.WriteString("no recorded runs\n")
	}
	for _, entry := range entries {
		mode := "shallow"
		if entry.Deep {
			mode = "deep"
		}
		fmt.Fprintf(&b, "%s  %s  libraries=%d scripts=%d suppressed=%d not_found=%d may_found=%d  %s %s\n",
			entry.Timestamp.UTC().Format(time.RFC3339),
			shortRunID(entry.RunID),
			len(entry.Libraries),
			len(entry.Scripts),
			len(entry.Suppressed),
			entry.NotFoundCount,
			entry.MayFoundCount,
			mode,
			(time.Duration(entry.DurationMS) * time.Millisecond).String(),
		)
		changeLine(&b, "? not found", missNames(entry.MissesOf(history.MissNotFound)))
		changeLine(&b, "? ambiguous", missNames(entry.MissesOf(history.MissMayFound)))
		if entry.Change == nil || entry.Change.Empty() {
			continue
		}
		changeLine(&b, "+ scripts", entry.Change.NewScripts)
		changeLine(&b, "- scripts", entry.Change.RemovedScripts)
		changeLine(&b, "+ libraries", entry.Change.NewLibraries)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func changeLine(b *strings.Builder, label string, files []string) {
	if len(files) == 0 {
		return
	}
	fmt.Fprintf(b, "    %s: %s\n", label, strings.Join(files, ", "))
}

// missNames returns the distinct names of misses in their stored order.
func missNames(misses []history.Miss) []string {
	var names []string
	seen := make(map[string]bool, len(misses))
	for _, m := range misses {
		if !seen[m.Name] {
			seen[m.Name] = true
			names = append(names, m.Name)
		}
	}
	return names
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// # internal/engine/graph/indices.go
package graph

import (
	"sort"

	"pycleaner/internal/shared/util"
)

// NotFoundEntry is one unresolved dotted name and the files referencing it.
type NotFoundEntry struct {
	Name  string   `json:"name" yaml:"name"`
	Files []string `json:"files" yaml:"files"`
}

// NotFoundIndex maps unresolved dotted names to referencing files. Entries
// are only ever added.
type NotFoundIndex struct {
	entries map[string]map[string]struct{}
}

func NewNotFoundIndex() *NotFoundIndex {
	return &NotFoundIndex{entries: make(map[string]map[string]struct{})}
}

func (ix *NotFoundIndex) Add(name, file string) {
	files, ok := ix.entries[name]
	if !ok {
		files = make(map[string]struct{})
		ix.entries[name] = files
	}
	files[file] = struct{}{}
}

func (ix *NotFoundIndex) Has(name string) bool {
	_, ok := ix.entries[name]
	return ok
}

// Len returns the number of distinct names.
func (ix *NotFoundIndex) Len() int { return len(ix.entries) }

func (ix *NotFoundIndex) Names() []string {
	return util.SortedStringKeys(ix.entries)
}

func (ix *NotFoundIndex) Files(name string) []string {
	return util.SortedStringKeys(ix.entries[name])
}

// Entries returns every name with its files, sorted by name.
func (ix *NotFoundIndex) Entries() []NotFoundEntry {
	out := make([]NotFoundEntry, 0, len(ix.entries))
	for _, name := range ix.Names() {
		out = append(out, NotFoundEntry{Name: name, Files: ix.Files(name)})
	}
	return out
}

// MayFoundKey identifies an ambiguous reference: the dotted name as written
// and the file it was written in.
type MayFoundKey struct {
	Name string
	File string
}

type MayFoundEntry struct {
	Name       string   `json:"name" yaml:"name"`
	File       string   `json:"file" yaml:"file"`
	Candidates []string `json:"candidates" yaml:"candidates"`
}

// MayFoundIndex records the candidate files of references that matched more
// than one file. Entries are only ever added.
type MayFoundIndex struct {
	entries map[MayFoundKey]map[string]struct{}
}

func NewMayFoundIndex() *MayFoundIndex {
	return &MayFoundIndex{entries: make(map[MayFoundKey]map[string]struct{})}
}

func (ix *MayFoundIndex) Add(key MayFoundKey, candidates ...string) {
	set, ok := ix.entries[key]
	if !ok {
		set = make(map[string]struct{}, len(candidates))
		ix.entries[key] = set
	}
	for _, c := range candidates {
		set[c] = struct{}{}
	}
}

func (ix *MayFoundIndex) Len() int { return len(ix.entries) }

// Keys returns every key ordered by name, then file.
func (ix *MayFoundIndex) Keys() []MayFoundKey {
	keys := make([]MayFoundKey, 0, len(ix.entries))
	for key := range ix.entries {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Name != keys[j].Name {
			return keys[i].Name < keys[j].Name
		}
		return keys[i].File < keys[j].File
	})
	return keys
}

func (ix *MayFoundIndex) Candidates(key MayFoundKey) []string {
	return util.SortedStringKeys(ix.entries[key])
}

func (ix *MayFoundIndex) Entries() []MayFoundEntry {
	out := make([]MayFoundEntry, 0, len(ix.entries))
	for _, key := range ix.Keys() {
		out = append(out, MayFoundEntry{Name: key.Name, File: key.File, Candidates: ix.Candidates(key)})
	}
	return out
}

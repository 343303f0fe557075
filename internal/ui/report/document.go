package report

import (
	"pycleaner/internal/engine/graph"
)

// Document is the machine-readable form of a classification.
type Document struct {
	Root        string                `json:"root" yaml:"root"`
	Core        []string              `json:"core" yaml:"core"`
	Libraries   []string              `json:"libraries" yaml:"libraries"`
	Scripts     []string              `json:"scripts" yaml:"scripts"`
	Suppressed  []string              `json:"suppressed,omitempty" yaml:"suppressed,omitempty"`
	Unparsable  []string              `json:"unparsable,omitempty" yaml:"unparsable,omitempty"`
	NotFound    []graph.NotFoundEntry `json:"not_found" yaml:"not_found"`
	MayFound    []graph.MayFoundEntry `json:"may_found" yaml:"may_found"`
	Suggestions map[string]string     `json:"suggestions,omitempty" yaml:"suggestions,omitempty"`
	Stats       graph.Stats           `json:"stats" yaml:"stats"`
	Summary     string                `json:"summary" yaml:"summary"`
}

// NewDocument copies c with paths shown as opts.AbsPaths asks. Empty lists
// are kept as empty arrays.
func NewDocument(c *graph.Classification, all []string, opts Options) Document {
	show := displayPaths(c.Root, opts.AbsPaths)
	one := displayPath(c.Root, opts.AbsPaths)

	doc := Document{
		Root:       c.Root,
		Core:       show(c.Core),
		Libraries:  show(c.Libraries),
		Scripts:    show(c.Scripts),
		Suppressed: show(c.Suppressed),
		Unparsable: show(c.Unparsable),
		NotFound:   []graph.NotFoundEntry{},
		MayFound:   []graph.MayFoundEntry{},
		Stats:      c.Stats,
		Summary:    Summary(c),
	}
	for _, entry := range c.NotFound.Entries() {
		doc.NotFound = append(doc.NotFound, graph.NotFoundEntry{Name: entry.Name, Files: show(entry.Files)})
	}
	for _, entry := range c.MayFound.Entries() {
		doc.MayFound = append(doc.MayFound, graph.MayFoundEntry{
			Name:       entry.Name,
			File:       one(entry.File),
			Candidates: show(entry.Candidates),
		})
	}
	if opts.Suggest {
		if hints := Suggest(c.NotFound.Names(), ModuleNames(c.Root, all)); len(hints) > 0 {
			doc.Suggestions = hints
		}
	}
	return doc
}

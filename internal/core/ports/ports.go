package ports

import (
	"context"
	"time"

	"pycleaner/internal/data/history"
	"pycleaner/internal/engine/parser"
)

// ImportExtractor turns file contents into raw import declarations. With deep
// unset only module-level statements are considered.
type ImportExtractor interface {
	ExtractImports(path string, source []byte, deep bool) ([]parser.ImportDecl, error)
}

// ModuleSpec is what an environment knows about an importable module.
// Origin is empty when the module has no locatable source (built-in,
// namespace package).
type ModuleSpec struct {
	Name      string
	Origin    string
	IsPackage bool
}

// ModuleFinder stands in for asking the runtime where a module lives.
// A miss is reported as ok=false with a nil error; errors are reserved for
// a broken finder.
type ModuleFinder interface {
	FindModule(ctx context.Context, dotted string) (spec ModuleSpec, ok bool, err error)
}

// SourceReader reads one project file.
type SourceReader func(path string) ([]byte, error)

// HistoryStore abstracts snapshot persistence for trend reporting.
type HistoryStore interface {
	SaveSnapshot(projectKey string, snapshot history.Snapshot) error
	LoadSnapshots(projectKey string, since time.Time) ([]history.Snapshot, error)
	Latest(projectKey string) (history.Snapshot, bool, error)
}

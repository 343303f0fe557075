package parser

import (
	"time"
)

type ImportKind int

const (
	// ImportSimple is `import a.b[ as c], d`.
	ImportSimple ImportKind = iota
	// ImportFrom is `from X import A[, B]`.
	ImportFrom
)

func (k ImportKind) String() string {
	switch k {
	case ImportSimple:
		return "import"
	case ImportFrom:
		return "from"
	default:
		return "unknown"
	}
}

// ImportDecl is one import statement as written in the source.
type ImportDecl struct {
	Kind     ImportKind
	Prefix   string   // Module after `from`, possibly relative ("." or "..pkg"). Empty for ImportSimple.
	Names    []string // Dotted names (ImportSimple) or members (ImportFrom), aliases stripped
	Wildcard bool     // `from X import *`
	Location Location
}

// IsRelative reports whether the declaration starts with relative-import dots.
func (d ImportDecl) IsRelative() bool {
	if d.Kind == ImportFrom {
		return len(d.Prefix) > 0 && d.Prefix[0] == '.'
	}
	return false
}

type File struct {
	Path     string
	Imports  []ImportDecl
	Deep     bool
	ParsedAt time.Time
}

type Location struct {
	File   string
	Line   int
	Column int
}

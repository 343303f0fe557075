// # internal/engine/resolver/resolver.go
package resolver

import (
	"context"
	"path"
	"path/filepath"
	"strings"

	"pycleaner/internal/core/ports"
)

type Outcome int

const (
	// OutcomeResolved means the name maps to exactly one project file.
	OutcomeResolved Outcome = iota
	// OutcomeExternal means the environment knows the module but it has no
	// source inside the project: stdlib, built-ins, installed packages.
	OutcomeExternal
	OutcomeMissing
	OutcomeAmbiguous
)

func (o Outcome) String() string {
	switch o {
	case OutcomeResolved:
		return "resolved"
	case OutcomeExternal:
		return "external"
	case OutcomeMissing:
		return "missing"
	case OutcomeAmbiguous:
		return "ambiguous"
	default:
		return "unknown"
	}
}

// Request is one name taken from an import statement. For the from-form
// Prefix holds the module part and Name one imported name; Name may be empty
// for a wildcard import.
type Request struct {
	Name   string
	Prefix string
	From   bool
	File   string
}

// Dotted returns the full dotted name the request refers to.
func (r Request) Dotted() string {
	if r.From {
		return JoinDotted(r.Prefix, r.Name)
	}
	return r.Name
}

// Resolution is the answer for one Request. Name is the dotted name used as
// the key for misses and ambiguities.
type Resolution struct {
	Name       string
	Outcome    Outcome
	Path       string
	Candidates []string
}

// Resolver maps imported names to project files. It holds no per-run state,
// so one instance may serve many classifications.
type Resolver struct {
	index  *FileIndex
	finder ports.ModuleFinder
}

func NewResolver(index *FileIndex, finder ports.ModuleFinder) *Resolver {
	return &Resolver{index: index, finder: finder}
}

// Resolve runs the lookup ladder for req: relative anchoring, environment
// lookup of the full name and then of its prefix, and finally a project-wide
// pattern search. Only finder failures and cancellation produce errors.
func (r *Resolver) Resolve(ctx context.Context, req Request) (Resolution, error) {
	dotted := req.Dotted()
	res := Resolution{Name: dotted}

	if IsRelative(dotted) {
		if found, ok := r.anchored(req.File, dotted); ok {
			res.Outcome = OutcomeResolved
			res.Path = found
			return res, nil
		}
		return r.search(dotted, res), nil
	}
	if dotted == "" {
		res.Outcome = OutcomeMissing
		return res, nil
	}

	if r.finder != nil {
		spec, ok, err := r.finder.FindModule(ctx, dotted)
		if err != nil {
			return res, err
		}
		if !ok {
			if prefix := lookupPrefix(req); prefix != "" {
				spec, ok, err = r.finder.FindModule(ctx, prefix)
				if err != nil {
					return res, err
				}
			}
		}
		if ok {
			return r.fromSpec(spec, res), nil
		}
	}
	return r.search(dotted, res), nil
}

// lookupPrefix is the fallback name asked for when the full name is unknown,
// which covers `from package import attribute`.
func lookupPrefix(req Request) string {
	if req.From {
		return req.Prefix
	}
	prefix, _ := SplitDotted(req.Name)
	return prefix
}

func (r *Resolver) fromSpec(spec ports.ModuleSpec, res Resolution) Resolution {
	origin := spec.Origin
	switch {
	case origin == "":
		res.Outcome = OutcomeExternal
		return res
	case strings.HasSuffix(origin, ".py"):
	case spec.IsPackage && isDir(origin):
		origin = filepath.Join(origin, "__init__.py")
	default:
		res.Outcome = OutcomeExternal
		return res
	}

	// Origins under the root that were never indexed, such as a virtualenv
	// inside the project, are not project files.
	abs, err := filepath.Abs(origin)
	if err != nil || !r.index.Has(abs) {
		res.Outcome = OutcomeExternal
		res.Path = origin
		return res
	}
	res.Outcome = OutcomeResolved
	res.Path = abs
	return res
}

// anchored resolves a relative name against the directory of the importing
// file. The anchor never climbs above the project root.
func (r *Resolver) anchored(file, dotted string) (string, bool) {
	if file == "" {
		return "", false
	}
	dir := filepath.Dir(file)
	if !r.index.Contains(dir) {
		return "", false
	}
	for i := 1; i < RelativeLevel(dotted); i++ {
		if dir == r.index.Root() {
			return "", false
		}
		dir = filepath.Dir(dir)
	}

	segments := Segments(dotted)
	for n := len(segments); n >= len(segments)-1 && n >= 0; n-- {
		base := filepath.Join(append([]string{dir}, segments[:n]...)...)
		if n > 0 && r.index.Has(base+".py") {
			return base + ".py", true
		}
		if init := filepath.Join(base, "__init__.py"); r.index.Has(init) {
			return init, true
		}
	}
	return "", false
}

// search looks for the name anywhere in the project: first as a module,
// then as a package, then with its last component dropped.
func (r *Resolver) search(dotted string, res Resolution) Resolution {
	shape := PathShape(dotted)
	if shape == "" {
		res.Outcome = OutcomeMissing
		return res
	}
	matches := r.searchShape(shape)
	if len(matches) == 0 && strings.Contains(shape, "/") {
		matches = r.searchShape(path.Dir(shape))
	}

	switch len(matches) {
	case 0:
		res.Outcome = OutcomeMissing
	case 1:
		res.Outcome = OutcomeResolved
		res.Path = matches[0]
	default:
		res.Outcome = OutcomeAmbiguous
		res.Candidates = matches
	}
	return res
}

func (r *Resolver) searchShape(shape string) []string {
	if matches := r.index.Glob("**/" + shape + ".py"); len(matches) > 0 {
		return matches
	}
	return r.index.Glob("**/" + shape + "/__init__.py")
}

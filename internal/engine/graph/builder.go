// # internal/engine/graph/builder.go
package graph

import (
	"context"
	"log/slog"
	"path/filepath"

	"pycleaner/internal/core/errors"
	"pycleaner/internal/core/ports"
	"pycleaner/internal/engine/parser"
	"pycleaner/internal/engine/resolver"
	"pycleaner/internal/shared/observability"

	"go.opentelemetry.io/otel/attribute"
)

// ImportResolver resolves one imported name on behalf of a referencing file.
type ImportResolver interface {
	Resolve(ctx context.Context, req resolver.Request) (resolver.Resolution, error)
}

type Options struct {
	// Deep extends extraction to imports nested in blocks.
	Deep bool
	// SkipUnparsable treats files with syntax errors as import-free instead
	// of failing the traversal.
	SkipUnparsable bool
}

// Builder walks the import graph from a set of core files.
type Builder struct {
	extractor ports.ImportExtractor
	resolver  ImportResolver
	read      ports.SourceReader
	opts      Options
}

func NewBuilder(extractor ports.ImportExtractor, res ImportResolver, read ports.SourceReader, opts Options) *Builder {
	return &Builder{extractor: extractor, resolver: res, read: read, opts: opts}
}

// Traversal is the raw outcome of one walk.
type Traversal struct {
	// Libraries in discovery order.
	Libraries []string
	// Remaining holds candidates never reached.
	Remaining  map[string]struct{}
	Unparsable []string
	NotFound   *NotFoundIndex
	MayFound   *MayFoundIndex
	Stats      Stats
}

// Build drains a LIFO queue seeded with core. Every file in all that is not
// a core file starts as a script candidate; reaching a candidate moves it to
// the libraries and queues it for inspection. Each Build call owns its own
// state. Cancellation is checked before each pop.
func (b *Builder) Build(ctx context.Context, all, core []string) (*Traversal, error) {
	t := &Traversal{
		Remaining: make(map[string]struct{}, len(all)),
		NotFound:  NewNotFoundIndex(),
		MayFound:  NewMayFoundIndex(),
	}

	queue := make([]string, 0, len(core))
	isCore := make(map[string]bool, len(core))
	for _, file := range core {
		file = filepath.Clean(file)
		isCore[file] = true
		queue = append(queue, file)
	}
	for _, file := range all {
		file = filepath.Clean(file)
		if !isCore[file] {
			t.Remaining[file] = struct{}{}
		}
	}

	seen := make(map[string]bool, len(all))
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		file := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		if seen[file] {
			continue
		}
		seen[file] = true

		found, err := b.inspect(ctx, t, file)
		if err != nil {
			return nil, err
		}
		for _, path := range found {
			if _, ok := t.Remaining[path]; !ok {
				continue
			}
			delete(t.Remaining, path)
			t.Libraries = append(t.Libraries, path)
			queue = append(queue, path)
		}
	}

	return t, nil
}

// inspect extracts and resolves the imports of one file, recording misses
// and ambiguities in t. It returns the project files the imports resolved to.
func (b *Builder) inspect(ctx context.Context, t *Traversal, file string) ([]string, error) {
	ctx, span := observability.Tracer().Start(ctx, "inspect")
	defer span.End()
	span.SetAttributes(attribute.String("file", file))

	source, err := b.read(file)
	if err != nil {
		return nil, errors.AddContext(
			errors.Wrap(err, errors.CodeNotFound, "read source"), errors.CtxPath, file)
	}

	decls, err := b.extractor.ExtractImports(file, source, b.opts.Deep)
	if err != nil {
		if b.opts.SkipUnparsable && errors.IsCode(err, errors.CodeParseFailure) {
			slog.Warn("skipping unparsable file", "path", file, "error", err)
			t.Unparsable = append(t.Unparsable, file)
			return nil, nil
		}
		span.RecordError(err)
		return nil, err
	}

	t.Stats.FilesInspected++
	observability.FilesInspectedTotal.Inc()

	var found []string
	for _, req := range requests(file, decls) {
		res, err := b.resolver.Resolve(ctx, req)
		if err != nil {
			span.RecordError(err)
			return nil, errors.AddContext(errors.AddContext(err, errors.CtxPath, file), errors.CtxModule, req.Dotted())
		}

		t.Stats.ImportsSeen++
		observability.ImportsResolvedTotal.WithLabelValues(res.Outcome.String()).Inc()

		switch res.Outcome {
		case resolver.OutcomeResolved:
			t.Stats.Resolved++
			found = append(found, res.Path)
		case resolver.OutcomeExternal:
			t.Stats.External++
		case resolver.OutcomeMissing:
			t.Stats.Misses++
			t.NotFound.Add(res.Name, file)
			slog.Debug("import not found", "name", res.Name, "file", file)
		case resolver.OutcomeAmbiguous:
			t.Stats.Ambiguous++
			t.MayFound.Add(MayFoundKey{Name: res.Name, File: file}, res.Candidates...)
			// An ambiguous name stays unresolved, so it is also a miss and
			// its candidates are held back from the scripts.
			t.NotFound.Add(res.Name, file)
			slog.Debug("import is ambiguous", "name", res.Name, "file", file, "candidates", len(res.Candidates))
		}
	}

	slog.Debug("inspected file", "path", file, "imports", len(decls), "resolved", len(found))
	return found, nil
}

// requests flattens declarations into one request per imported name.
func requests(file string, decls []parser.ImportDecl) []resolver.Request {
	var out []resolver.Request
	for _, decl := range decls {
		switch decl.Kind {
		case parser.ImportSimple:
			for _, name := range decl.Names {
				out = append(out, resolver.Request{Name: name, File: file})
			}
		case parser.ImportFrom:
			if decl.Wildcard || len(decl.Names) == 0 {
				out = append(out, resolver.Request{Prefix: decl.Prefix, From: true, File: file})
			}
			for _, name := range decl.Names {
				out = append(out, resolver.Request{Prefix: decl.Prefix, Name: name, From: true, File: file})
			}
		}
	}
	return out
}

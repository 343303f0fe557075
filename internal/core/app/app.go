// # internal/core/app/app.go
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"pycleaner/internal/core/config"
	"pycleaner/internal/core/errors"
	"pycleaner/internal/core/ports"
	"pycleaner/internal/data/history"
	"pycleaner/internal/engine/graph"
	"pycleaner/internal/engine/parser"
	"pycleaner/internal/engine/resolver"
	"pycleaner/internal/shared/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// App wires configuration, the import extractor, module lookup and the
// optional history store around the classification engine. Classify calls
// are serialized; each one runs a fresh engine.
type App struct {
	mu        sync.Mutex
	cfg       *config.Config
	workdir   string
	paths     config.ResolvedPaths
	extractor ports.ImportExtractor

	// environment answers lookups the project tree cannot; it survives
	// across runs because it never describes project files.
	environment ports.ModuleFinder
	closers     []io.Closer

	history ports.HistoryStore

	stateMu sync.RWMutex
	lastRun time.Time
	lastErr error
}

// Option adjusts an App during construction.
type Option func(*App)

// WithModuleFinder replaces the interpreter/stdlib lookup.
func WithModuleFinder(finder ports.ModuleFinder) Option {
	return func(a *App) { a.environment = finder }
}

// WithHistoryStore records snapshots in store instead of the configured
// sqlite database.
func WithHistoryStore(store ports.HistoryStore) Option {
	return func(a *App) { a.history = store }
}

// New validates cfg against the filesystem rooted at cwd and prepares the
// collaborators. Target problems surface from Classify.
func New(cfg *config.Config, cwd string, opts ...Option) (*App, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	paths, err := config.ResolvePaths(cfg, cwd)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeConfiguration, "resolve project paths")
	}

	extractor, err := parser.NewPythonExtractor(parser.NewGrammarLoader())
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "load python grammar")
	}

	a := &App{cfg: cfg, workdir: cwd, paths: paths, extractor: extractor}
	for _, opt := range opts {
		opt(a)
	}

	if a.environment == nil {
		finder, err := a.environmentFinder()
		if err != nil {
			a.Close()
			return nil, err
		}
		a.environment = finder
	}

	if a.history == nil && cfg.History.Enabled {
		store, err := history.Open(paths.HistoryPath)
		if err != nil {
			a.Close()
			msg := "open history store"
			if history.IsCorruptError(err) {
				msg = "history store is corrupt; remove it to start a new one"
			}
			return nil, errors.AddContext(
				errors.Wrap(err, errors.CodeInternal, msg), errors.CtxPath, paths.HistoryPath)
		}
		a.history = store
		a.closers = append(a.closers, store)
		slog.Debug("history store opened", "path", store.Path())
	}

	return a, nil
}

// environmentFinder builds the cached lookup for modules outside the
// project: a live interpreter when enabled and present, the embedded stdlib
// list otherwise or once the interpreter fails. Either may be disabled,
// leaving nil.
func (a *App) environmentFinder() (ports.ModuleFinder, error) {
	py := a.cfg.Python
	var stdlib, next ports.ModuleFinder
	if py.StdlibEnabled() {
		stdlib = resolver.StdlibFinder{}
	}

	if py.InterpreterEnabled() {
		if resolver.InterpreterAvailable(py.Interpreter) {
			hidden := append([]string{a.paths.ProjectRoot}, a.paths.SourceRoots...)
			interp := resolver.NewInterpreterFinder(py.Interpreter, hidden...)
			a.closers = append(a.closers, interp)
			next = resolver.NewFallbackFinder(interp, stdlib)
		} else {
			slog.Warn("python interpreter not found, falling back to the stdlib list", "interpreter", py.Interpreter)
		}
	}
	if next == nil {
		next = stdlib
	}
	if next == nil {
		return nil, nil
	}

	cached, err := resolver.NewCachedFinder(next, py.LookupCache)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeConfiguration, "create lookup cache")
	}
	return cached, nil
}

// Config returns the active configuration.
func (a *App) Config() *config.Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg
}

// Paths returns the resolved project locations.
func (a *App) Paths() config.ResolvedPaths {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.paths
}

// Reload swaps in a new configuration for the next run. The project root
// and module lookup settings keep their startup values.
func (a *App) Reload(cfg *config.Config) error {
	if err := config.Validate(cfg); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	paths, err := config.ResolvePaths(cfg, a.workdir)
	if err != nil {
		return errors.Wrap(err, errors.CodeConfiguration, "resolve project paths")
	}
	if paths.ProjectRoot != a.paths.ProjectRoot {
		slog.Warn("project root change ignored until restart", "current", a.paths.ProjectRoot, "requested", paths.ProjectRoot)
		paths.ProjectRoot = a.paths.ProjectRoot
	}
	a.cfg = cfg
	a.paths = paths
	return nil
}

// Classify lists the project, expands the core targets and runs one
// classification. Targets are validated before any file is inspected.
func (a *App) Classify(ctx context.Context) (*graph.Classification, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ctx, span := observability.Tracer().Start(ctx, "classify")
	defer span.End()

	start := time.Now()
	result, err := a.classify(ctx)
	observability.ClassifyDuration.Observe(time.Since(start).Seconds())
	a.recordRun(err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("pycleaner.libraries", len(result.Libraries)),
		attribute.Int("pycleaner.scripts", len(result.Scripts)),
		attribute.Int("pycleaner.not_found", result.NotFound.Len()),
		attribute.Int("pycleaner.may_found", result.MayFound.Len()),
	)
	slog.Debug("classification finished",
		"root", result.Root,
		"libraries", len(result.Libraries),
		"scripts", len(result.Scripts),
		"suppressed", len(result.Suppressed),
		"duration", result.Stats.Duration)

	if a.history != nil {
		if err := a.recordHistory(result); err != nil {
			slog.Warn("failed to record history snapshot", "error", err)
		}
	}
	return result, nil
}

func (a *App) classify(ctx context.Context) (*graph.Classification, error) {
	cfg := a.cfg
	root := a.paths.ProjectRoot

	if err := ValidateTargets(cfg.Project.Targets); err != nil {
		return nil, err
	}

	listed, err := ScanProject(root, cfg.Exclude.Dirs, cfg.Exclude.Files)
	if err != nil {
		return nil, errors.AddContext(
			errors.Wrap(err, errors.CodeInternal, "list project files"), errors.CtxPath, root)
	}
	core, err := ExpandTargets(root, cfg.Project.Targets, listed)
	if err != nil {
		return nil, err
	}
	if len(core) == 0 {
		return nil, errors.AddContext(
			errors.New(errors.CodeConfiguration, "core targets contain no python files"),
			errors.CtxTarget, fmt.Sprint(cfg.Project.Targets))
	}
	all := mergeFiles(listed, core)

	index, err := resolver.NewFileIndex(root, all)
	if err != nil {
		return nil, err
	}

	builder := graph.NewBuilder(a.extractor, resolver.NewResolver(index, a.finder()), os.ReadFile, graph.Options{
		Deep:           cfg.Project.Deep,
		SkipUnparsable: cfg.Scan.SkipUnparsable,
	})
	return graph.NewClassifier(builder).Classify(ctx, root, all, core)
}

// finder is the per-run lookup chain: source roots first, then the
// environment.
func (a *App) finder() ports.ModuleFinder {
	roots := append([]string{a.paths.ProjectRoot}, a.paths.SourceRoots...)
	return resolver.ChainFinder{resolver.NewSourceRootFinder(roots...), a.environment}
}

// Close releases the interpreter process and the history store.
func (a *App) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}

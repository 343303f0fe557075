// # internal/engine/resolver/finder.go
package resolver

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"pycleaner/internal/core/errors"
	"pycleaner/internal/core/ports"

	lru "github.com/hashicorp/golang-lru/v2"
)

// StaticFinder answers from a fixed table. Tests use it in place of a real
// interpreter.
type StaticFinder map[string]ports.ModuleSpec

func (f StaticFinder) FindModule(_ context.Context, dotted string) (ports.ModuleSpec, bool, error) {
	spec, ok := f[dotted]
	if ok && spec.Name == "" {
		spec.Name = dotted
	}
	return spec, ok, nil
}

// ChainFinder asks each finder in order and returns the first hit.
type ChainFinder []ports.ModuleFinder

func (c ChainFinder) FindModule(ctx context.Context, dotted string) (ports.ModuleSpec, bool, error) {
	for _, finder := range c {
		if finder == nil {
			continue
		}
		spec, ok, err := finder.FindModule(ctx, dotted)
		if err != nil {
			return ports.ModuleSpec{}, false, err
		}
		if ok {
			return spec, true, nil
		}
	}
	return ports.ModuleSpec{}, false, nil
}

// FallbackFinder asks Primary until it fails once, then answers every later
// lookup from Fallback. A nil Fallback reports every name as unknown.
// Cancellation is passed through and does not count as a failure.
type FallbackFinder struct {
	Primary  ports.ModuleFinder
	Fallback ports.ModuleFinder

	mu     sync.Mutex
	broken bool
}

func NewFallbackFinder(primary, fallback ports.ModuleFinder) *FallbackFinder {
	return &FallbackFinder{Primary: primary, Fallback: fallback}
}

func (f *FallbackFinder) FindModule(ctx context.Context, dotted string) (ports.ModuleSpec, bool, error) {
	if err := ctx.Err(); err != nil {
		return ports.ModuleSpec{}, false, err
	}
	if !f.Broken() {
		spec, ok, err := f.Primary.FindModule(ctx, dotted)
		if err == nil {
			return spec, ok, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ports.ModuleSpec{}, false, ctxErr
		}
		f.mu.Lock()
		if !f.broken {
			f.broken = true
			slog.Warn("module lookup failed, using fallback for the rest of the run",
				"module", dotted, "error", err)
		}
		f.mu.Unlock()
	}
	if f.Fallback == nil {
		return ports.ModuleSpec{}, false, nil
	}
	return f.Fallback.FindModule(ctx, dotted)
}

// Broken reports whether the primary finder has failed.
func (f *FallbackFinder) Broken() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.broken
}

type cachedAnswer struct {
	spec ports.ModuleSpec
	ok   bool
}

// CachedFinder memoizes another finder's answers. Errors are not cached.
type CachedFinder struct {
	next  ports.ModuleFinder
	cache *lru.Cache[string, cachedAnswer]
}

func NewCachedFinder(next ports.ModuleFinder, size int) (*CachedFinder, error) {
	if size <= 0 {
		size = 4096
	}
	cache, err := lru.New[string, cachedAnswer](size)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "create lookup cache")
	}
	return &CachedFinder{next: next, cache: cache}, nil
}

func (c *CachedFinder) FindModule(ctx context.Context, dotted string) (ports.ModuleSpec, bool, error) {
	if hit, ok := c.cache.Get(dotted); ok {
		return hit.spec, hit.ok, nil
	}
	spec, ok, err := c.next.FindModule(ctx, dotted)
	if err != nil {
		return ports.ModuleSpec{}, false, err
	}
	c.cache.Add(dotted, cachedAnswer{spec: spec, ok: ok})
	return spec, ok, nil
}

func (c *CachedFinder) Len() int { return c.cache.Len() }

// SourceRootFinder looks a module up in a list of source directories the
// way the import system's path finder does for plain files and regular
// packages. Namespace directories are left to later finders.
type SourceRootFinder struct {
	roots []string
}

func NewSourceRootFinder(roots ...string) *SourceRootFinder {
	clean := make([]string, 0, len(roots))
	seen := make(map[string]bool, len(roots))
	for _, root := range roots {
		if root == "" {
			continue
		}
		abs, err := filepath.Abs(root)
		if err != nil || seen[abs] {
			continue
		}
		seen[abs] = true
		clean = append(clean, abs)
	}
	return &SourceRootFinder{roots: clean}
}

func (f *SourceRootFinder) FindModule(_ context.Context, dotted string) (ports.ModuleSpec, bool, error) {
	if IsRelative(dotted) {
		return ports.ModuleSpec{}, false, nil
	}
	shape := PathShape(dotted)
	if shape == "" {
		return ports.ModuleSpec{}, false, nil
	}
	for _, root := range f.roots {
		base := filepath.Join(root, filepath.FromSlash(shape))
		if isFile(base + ".py") {
			return ports.ModuleSpec{Name: dotted, Origin: base + ".py"}, true, nil
		}
		if init := filepath.Join(base, "__init__.py"); isFile(init) {
			return ports.ModuleSpec{Name: dotted, Origin: init, IsPackage: true}, true, nil
		}
	}
	return ports.ModuleSpec{}, false, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

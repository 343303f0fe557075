package resolver

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"pycleaner/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTree creates files under a fresh root and returns the root and an
// index over every .py file written.
func writeTree(t *testing.T, files ...string) (string, *FileIndex) {
	t.Helper()
	root := t.TempDir()
	var abs []string
	for _, rel := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("# "+rel+"\n"), 0o644))
		if filepath.Ext(path) == ".py" {
			abs = append(abs, path)
		}
	}
	ix, err := NewFileIndex(root, abs)
	require.NoError(t, err)
	return ix.Root(), ix
}

func in(root, rel string) string {
	return filepath.Join(root, filepath.FromSlash(rel))
}

func TestDottedHelpers(t *testing.T) {
	tests := []struct {
		prefix, leaf, joined string
	}{
		{"", "os", "os"},
		{"pkg", "mod", "pkg.mod"},
		{".", "mod", ".mod"},
		{"..", "mod", "..mod"},
		{"..pkg", "mod", "..pkg.mod"},
		{"pkg", "", "pkg"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.joined, JoinDotted(tt.prefix, tt.leaf))
	}

	prefix, leaf := SplitDotted("a.b.c")
	assert.Equal(t, "a.b", prefix)
	assert.Equal(t, "c", leaf)

	prefix, leaf = SplitDotted("os")
	assert.Equal(t, "", prefix, "names without a separator have no prefix")
	assert.Equal(t, "os", leaf)

	assert.Equal(t, 2, RelativeLevel("..pkg.mod"))
	assert.Equal(t, 0, RelativeLevel("pkg"))
	assert.Equal(t, "pkg/mod", PathShape("..pkg.mod"))
	assert.Equal(t, []string{"a", "b"}, Segments(".a..b"))
}

func TestFileIndex_Glob(t *testing.T) {
	root, ix := writeTree(t, "a.py", "pkg/a.py", "xa.py", "pkg/sub/__init__.py", "notes.txt")

	assert.Equal(t, 4, ix.Len())
	assert.Equal(t, []string{in(root, "a.py"), in(root, "pkg/a.py")}, ix.Glob("**/a.py"))
	assert.Equal(t, []string{in(root, "pkg/sub/__init__.py")}, ix.Glob("**/sub/__init__.py"))
	assert.Len(t, ix.Glob("**/*.py"), 4)
	assert.Empty(t, ix.Glob("**/[.py"), "invalid patterns match nothing")

	assert.True(t, ix.Has(in(root, "xa.py")))
	assert.False(t, ix.Has(in(root, "notes.txt")))
	assert.True(t, ix.Contains(in(root, "notes.txt")))
	assert.False(t, ix.Contains(filepath.Dir(root)))
}

func TestFileIndex_RejectsOutsideFiles(t *testing.T) {
	root := t.TempDir()
	_, err := NewFileIndex(root, []string{filepath.Join(filepath.Dir(root), "elsewhere.py")})
	require.Error(t, err)
}

func TestResolver_FinderHits(t *testing.T) {
	root, ix := writeTree(t, "main.py", "pkg/__init__.py", "pkg/mod.py")
	finder := StaticFinder{
		"pkg.mod": {Origin: in(root, "pkg/mod.py")},
		"pkg":     {Origin: in(root, "pkg"), IsPackage: true},
		"json":    {Origin: "/usr/lib/python3/json/__init__.py", IsPackage: true},
		"sys":     {},
		"_speedy": {Origin: "/usr/lib/python3/_speedy.so"},
	}
	r := NewResolver(ix, finder)
	ctx := context.Background()
	main := in(root, "main.py")

	res, err := r.Resolve(ctx, Request{Name: "pkg.mod", File: main})
	require.NoError(t, err)
	assert.Equal(t, OutcomeResolved, res.Outcome)
	assert.Equal(t, in(root, "pkg/mod.py"), res.Path)

	res, err = r.Resolve(ctx, Request{Prefix: "pkg", Name: "helper", From: true, File: main})
	require.NoError(t, err)
	assert.Equal(t, OutcomeResolved, res.Outcome, "unknown attribute falls back to its package")
	assert.Equal(t, in(root, "pkg/__init__.py"), res.Path)

	for _, name := range []string{"json", "sys", "_speedy"} {
		res, err = r.Resolve(ctx, Request{Name: name, File: main})
		require.NoError(t, err)
		assert.Equal(t, OutcomeExternal, res.Outcome, name)
	}
}

func TestResolver_UnindexedOriginUnderRoot(t *testing.T) {
	root, ix := writeTree(t, "main.py")
	vendored := in(root, ".venv/lib/six.py")
	require.NoError(t, os.MkdirAll(filepath.Dir(vendored), 0o755))
	require.NoError(t, os.WriteFile(vendored, nil, 0o644))
	r := NewResolver(ix, StaticFinder{"six": {Origin: vendored}})

	res, err := r.Resolve(context.Background(), Request{Name: "six", File: in(root, "main.py")})
	require.NoError(t, err)
	assert.Equal(t, OutcomeExternal, res.Outcome)
	assert.Equal(t, vendored, res.Path)
}

func TestResolver_RelativeAnchoring(t *testing.T) {
	root, ix := writeTree(t, "pkg/main.py", "pkg/a.py", "other/a.py", "pkg/sub/b.py", "pkg/__init__.py")
	r := NewResolver(ix, StaticFinder{})
	ctx := context.Background()

	res, err := r.Resolve(ctx, Request{Prefix: ".", Name: "a", From: true, File: in(root, "pkg/main.py")})
	require.NoError(t, err)
	assert.Equal(t, OutcomeResolved, res.Outcome)
	assert.Equal(t, in(root, "pkg/a.py"), res.Path)

	res, err = r.Resolve(ctx, Request{Prefix: "..", Name: "a", From: true, File: in(root, "pkg/sub/b.py")})
	require.NoError(t, err)
	assert.Equal(t, in(root, "pkg/a.py"), res.Path)

	res, err = r.Resolve(ctx, Request{Prefix: ".a", Name: "func", From: true, File: in(root, "pkg/main.py")})
	require.NoError(t, err)
	assert.Equal(t, in(root, "pkg/a.py"), res.Path, "attribute of a sibling module")

	res, err = r.Resolve(ctx, Request{Prefix: ".", Name: "VERSION", From: true, File: in(root, "pkg/main.py")})
	require.NoError(t, err)
	assert.Equal(t, in(root, "pkg/__init__.py"), res.Path, "attribute of the enclosing package")
}

func TestResolver_AmbiguousSearch(t *testing.T) {
	root, ix := writeTree(t, "main.py", "pkg/a.py", "other/a.py")
	r := NewResolver(ix, StaticFinder{})

	res, err := r.Resolve(context.Background(), Request{Prefix: ".", Name: "a", From: true, File: in(root, "main.py")})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAmbiguous, res.Outcome)
	assert.Equal(t, ".a", res.Name)
	assert.Equal(t, []string{in(root, "other/a.py"), in(root, "pkg/a.py")}, res.Candidates)
}

func TestResolver_SearchStages(t *testing.T) {
	root, ix := writeTree(t, "main.py", "lib/tools/__init__.py", "lib/pkg/mod.py")
	r := NewResolver(ix, StaticFinder{})
	ctx := context.Background()
	main := in(root, "main.py")

	res, err := r.Resolve(ctx, Request{Name: "tools", File: main})
	require.NoError(t, err)
	assert.Equal(t, in(root, "lib/tools/__init__.py"), res.Path)

	res, err = r.Resolve(ctx, Request{Prefix: "pkg.mod", Name: "Thing", From: true, File: main})
	require.NoError(t, err)
	assert.Equal(t, OutcomeResolved, res.Outcome, "last component is dropped when nothing matches")
	assert.Equal(t, in(root, "lib/pkg/mod.py"), res.Path)

	res, err = r.Resolve(ctx, Request{Name: "ghost", File: main})
	require.NoError(t, err)
	assert.Equal(t, OutcomeMissing, res.Outcome)
	assert.Equal(t, "ghost", res.Name)
}

func TestResolver_RelativeMissKeepsDots(t *testing.T) {
	root, ix := writeTree(t, "pkg/main.py")
	r := NewResolver(ix, StaticFinder{})

	res, err := r.Resolve(context.Background(), Request{Prefix: "..", Name: "ghost", From: true, File: in(root, "pkg/main.py")})
	require.NoError(t, err)
	assert.Equal(t, OutcomeMissing, res.Outcome)
	assert.Equal(t, "..ghost", res.Name)
}

func TestResolver_AnchorStaysInsideRoot(t *testing.T) {
	root, ix := writeTree(t, "main.py", "deep/helpers.py")
	r := NewResolver(ix, StaticFinder{})

	res, err := r.Resolve(context.Background(), Request{Prefix: "...", Name: "helpers", From: true, File: in(root, "main.py")})
	require.NoError(t, err)
	assert.Equal(t, OutcomeResolved, res.Outcome, "falls back to the project search")
	assert.Equal(t, in(root, "deep/helpers.py"), res.Path)
}

func TestResolver_FinderOutsideProjectIsExternal(t *testing.T) {
	root, ix := writeTree(t, "main.py")
	elsewhere := t.TempDir()
	r := NewResolver(ix, StaticFinder{"vendored": {Origin: filepath.Join(elsewhere, "vendored.py")}})

	res, err := r.Resolve(context.Background(), Request{Name: "vendored", File: in(root, "main.py")})
	require.NoError(t, err)
	assert.Equal(t, OutcomeExternal, res.Outcome)
}

type countingFinder struct {
	calls int
	inner ports.ModuleFinder
}

func (c *countingFinder) FindModule(ctx context.Context, dotted string) (ports.ModuleSpec, bool, error) {
	c.calls++
	return c.inner.FindModule(ctx, dotted)
}

func TestCachedFinder(t *testing.T) {
	counter := &countingFinder{inner: StaticFinder{"os": {}}}
	cached, err := NewCachedFinder(counter, 8)
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, ok, err := cached.FindModule(ctx, "os")
		require.NoError(t, err)
		assert.True(t, ok)
		_, ok, err = cached.FindModule(ctx, "nope")
		require.NoError(t, err)
		assert.False(t, ok)
	}
	assert.Equal(t, 2, counter.calls, "hits and misses are both memoized")
	assert.Equal(t, 2, cached.Len())
}

func TestChainFinder_FirstHitWins(t *testing.T) {
	chain := ChainFinder{
		StaticFinder{"pkg": {Origin: "/first/pkg.py"}},
		nil,
		StaticFinder{"pkg": {Origin: "/second/pkg.py"}, "other": {Origin: "/second/other.py"}},
	}
	ctx := context.Background()

	spec, ok, err := chain.FindModule(ctx, "pkg")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "/first/pkg.py", spec.Origin)

	spec, ok, err = chain.FindModule(ctx, "other")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "other", spec.Name)

	_, ok, err = chain.FindModule(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSourceRootFinder(t *testing.T) {
	root, _ := writeTree(t, "src/app/__init__.py", "src/app/core.py", "scripts/run.py", "src/nsdir/mod.py")
	finder := NewSourceRootFinder(root, in(root, "src"), "")
	ctx := context.Background()

	spec, ok, err := finder.FindModule(ctx, "app.core")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, in(root, "src/app/core.py"), spec.Origin)

	spec, ok, err = finder.FindModule(ctx, "app")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, spec.IsPackage)
	assert.Equal(t, in(root, "src/app/__init__.py"), spec.Origin)

	spec, ok, err = finder.FindModule(ctx, "scripts.run")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, in(root, "scripts/run.py"), spec.Origin)

	_, ok, err = finder.FindModule(ctx, "nsdir")
	require.NoError(t, err)
	assert.False(t, ok, "namespace directories are not claimed")

	_, ok, err = finder.FindModule(ctx, ".app")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStdlibFinder(t *testing.T) {
	ctx := context.Background()
	for _, name := range []string{"os", "os.path", "json", "collections.abc", "__future__"} {
		_, ok, err := StdlibFinder{}.FindModule(ctx, name)
		require.NoError(t, err)
		assert.True(t, ok, name)
	}
	for _, name := range []string{"requests", ".os", "", "osx"} {
		_, ok, err := StdlibFinder{}.FindModule(ctx, name)
		require.NoError(t, err)
		assert.False(t, ok, name)
	}
}

func TestInterpreterFinder(t *testing.T) {
	if !InterpreterAvailable("python3") {
		t.Skip("python3 not available")
	}
	project := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(project, "shadow_only_here.py"), []byte("raise SystemExit(3)\n"), 0o644))

	finder := NewInterpreterFinder("python3", project)
	defer finder.Close()
	ctx := context.Background()

	spec, ok, err := finder.FindModule(ctx, "json")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, spec.IsPackage)
	assert.Equal(t, "__init__.py", filepath.Base(spec.Origin))

	spec, ok, err = finder.FindModule(ctx, "sys")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, spec.Origin, "built-in modules have no origin")

	_, ok, err = finder.FindModule(ctx, "shadow_only_here")
	require.NoError(t, err)
	assert.False(t, ok, "the project directory is hidden from the interpreter")

	_, ok, err = finder.FindModule(ctx, "definitely_not_a_module_4711")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 4, finder.Queries())

	require.NoError(t, finder.Close())
	_, _, err = finder.FindModule(ctx, "os")
	require.Error(t, err)
}

type failingFinder struct{ calls int }

func (f *failingFinder) FindModule(context.Context, string) (ports.ModuleSpec, bool, error) {
	f.calls++
	return ports.ModuleSpec{}, false, io.ErrUnexpectedEOF
}

func TestFallbackFinder(t *testing.T) {
	ctx := context.Background()

	t.Run("primary answers", func(t *testing.T) {
		finder := NewFallbackFinder(StaticFinder{"yaml": {}}, StdlibFinder{})
		_, ok, err := finder.FindModule(ctx, "yaml")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.False(t, finder.Broken())
	})

	t.Run("switches after a failure", func(t *testing.T) {
		primary := &failingFinder{}
		finder := NewFallbackFinder(primary, StdlibFinder{})

		_, ok, err := finder.FindModule(ctx, "json")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.True(t, finder.Broken())

		_, ok, err = finder.FindModule(ctx, "numpy")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, 1, primary.calls, "a failed primary is not asked again")
	})

	t.Run("no fallback reports unknown", func(t *testing.T) {
		finder := NewFallbackFinder(&failingFinder{}, nil)
		_, ok, err := finder.FindModule(ctx, "json")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("cancellation is passed through", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		primary := &failingFinder{}
		finder := NewFallbackFinder(primary, StdlibFinder{})
		_, _, err := finder.FindModule(cancelled, "json")
		require.ErrorIs(t, err, context.Canceled)
		assert.False(t, finder.Broken())
	})
}

func TestFallbackFinder_DyingInterpreter(t *testing.T) {
	if !InterpreterAvailable("false") {
		t.Skip("false not available")
	}
	interp := NewInterpreterFinder("false")
	defer interp.Close()

	_, _, err := interp.FindModule(context.Background(), "json")
	require.Error(t, err, "the helper exits before answering")

	dying := NewInterpreterFinder("false")
	defer dying.Close()
	finder := NewFallbackFinder(dying, StdlibFinder{})
	_, ok, err := finder.FindModule(context.Background(), "json")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, finder.Broken())
}

package graph

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"pycleaner/internal/core/errors"
	"pycleaner/internal/engine/parser"
	"pycleaner/internal/engine/resolver"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	root string
	all  []string
	ix   *resolver.FileIndex
}

func newFixture(t *testing.T, files map[string]string) *fixture {
	t.Helper()
	root := t.TempDir()
	var all []string
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		all = append(all, path)
	}
	sort.Strings(all)
	ix, err := resolver.NewFileIndex(root, all)
	require.NoError(t, err)
	return &fixture{root: ix.Root(), all: ix.Files(), ix: ix}
}

func (f *fixture) path(rel string) string {
	return filepath.Join(f.root, filepath.FromSlash(rel))
}

func (f *fixture) paths(rels ...string) []string {
	out := make([]string, 0, len(rels))
	for _, rel := range rels {
		out = append(out, f.path(rel))
	}
	sort.Strings(out)
	return out
}

func (f *fixture) classifier(t *testing.T, finder resolver.StaticFinder, opts Options) *Classifier {
	t.Helper()
	extractor, err := parser.NewPythonExtractor(parser.NewGrammarLoader())
	require.NoError(t, err)
	if finder == nil {
		finder = resolver.StaticFinder{}
	}
	res := resolver.NewResolver(f.ix, finder)
	return NewClassifier(NewBuilder(extractor, res, os.ReadFile, opts))
}

func (f *fixture) classify(t *testing.T, opts Options, core ...string) *Classification {
	t.Helper()
	result, err := f.classifier(t, nil, opts).Classify(context.Background(), f.root, f.all, f.paths(core...))
	require.NoError(t, err)
	assertPartition(t, f, result)
	return result
}

func assertPartition(t *testing.T, f *fixture, c *Classification) {
	t.Helper()
	seen := make(map[string]string)
	for name, group := range map[string][]string{
		"core": c.Core, "libraries": c.Libraries, "scripts": c.Scripts, "suppressed": c.Suppressed,
	} {
		for _, file := range group {
			if prev, dup := seen[file]; dup {
				t.Fatalf("%s is in both %s and %s", file, prev, name)
			}
			seen[file] = name
		}
	}
	assert.Len(t, seen, len(f.all), "every project file is classified exactly once")
}

func TestClassify_ScenarioA_DirectImport(t *testing.T) {
	f := newFixture(t, map[string]string{
		"main.py":      "import helpers\n",
		"helpers.py":   "",
		"extra.py":     "import os\n",
		"tools/run.py": "import helpers\n",
	})
	c := f.classify(t, Options{}, "main.py")

	assert.Equal(t, f.paths("helpers.py"), c.Libraries)
	assert.Equal(t, f.paths("extra.py", "tools/run.py"), c.Scripts)
	assert.Empty(t, c.Suppressed)
	assert.Equal(t, 2, c.Stats.FilesInspected)
}

func TestClassify_ScenarioB_NotFound(t *testing.T) {
	f := newFixture(t, map[string]string{
		"main.py":  "import nosuch\n",
		"other.py": "",
	})
	c := f.classify(t, Options{}, "main.py")

	assert.Empty(t, c.Libraries)
	require.Equal(t, 1, c.NotFound.Len())
	assert.Equal(t, []NotFoundEntry{{Name: "nosuch", Files: f.paths("main.py")}}, c.NotFound.Entries())
	assert.Equal(t, 1, c.Stats.Misses)
}

func TestClassify_ScenarioC_Ambiguous(t *testing.T) {
	f := newFixture(t, map[string]string{
		"main.py":    "from . import a\n",
		"pkg/a.py":   "",
		"other/a.py": "",
	})
	c := f.classify(t, Options{}, "main.py")

	assert.Empty(t, c.Libraries)
	require.Equal(t, 1, c.MayFound.Len())
	key := MayFoundKey{Name: ".a", File: f.path("main.py")}
	assert.Equal(t, f.paths("pkg/a.py", "other/a.py"), c.MayFound.Candidates(key))

	// The name stays unresolved, so both candidates are kept out of the
	// removable scripts.
	assert.Equal(t, []NotFoundEntry{{Name: ".a", Files: f.paths("main.py")}}, c.NotFound.Entries())
	assert.Empty(t, c.Scripts)
	assert.Equal(t, f.paths("other/a.py", "pkg/a.py"), c.Suppressed)
	assert.Equal(t, 1, c.Stats.Ambiguous)
}

func TestClassify_ScenarioD_DeepScan(t *testing.T) {
	f := newFixture(t, map[string]string{
		"main.py":   "import sys\nif sys.argv:\n    import hidden\n",
		"hidden.py": "",
	})

	shallow := f.classify(t, Options{}, "main.py")
	assert.Empty(t, shallow.Libraries)
	assert.Equal(t, f.paths("hidden.py"), shallow.Scripts)

	deep := f.classify(t, Options{Deep: true}, "main.py")
	assert.Equal(t, f.paths("hidden.py"), deep.Libraries)
	assert.Empty(t, deep.Scripts)
}

func TestClassify_TransitiveAndCycles(t *testing.T) {
	f := newFixture(t, map[string]string{
		"main.py":         "from pkg import a\n",
		"pkg/__init__.py": "",
		"pkg/a.py":        "from . import b\n",
		"pkg/b.py":        "from .a import thing\nimport pkg.c\n",
		"pkg/c.py":        "",
		"pkg/orphan.py":   "from . import a\n",
	})
	c := f.classify(t, Options{}, "main.py")

	assert.Equal(t, f.paths("pkg/a.py", "pkg/b.py", "pkg/c.py"), c.Libraries)
	assert.Equal(t, f.paths("pkg/__init__.py", "pkg/orphan.py"), c.Scripts)
	assert.Equal(t, 4, c.Stats.FilesInspected, "each file is inspected once despite the cycle")
}

func TestClassify_CoreFilesAreNeverLibraries(t *testing.T) {
	f := newFixture(t, map[string]string{
		"main.py": "import cli\n",
		"cli.py":  "import main\nimport util\n",
		"util.py": "",
	})
	c := f.classify(t, Options{}, "main.py", "cli.py")

	assert.Equal(t, f.paths("cli.py", "main.py"), c.Core)
	assert.Equal(t, f.paths("util.py"), c.Libraries)
	assert.Empty(t, c.Scripts)
}

func TestClassify_ExternalModules(t *testing.T) {
	f := newFixture(t, map[string]string{
		"main.py":         "import json\nimport requests\nfrom app import settings\n",
		"app/__init__.py": "",
		"app/settings.py": "",
	})
	finder := resolver.StaticFinder{
		"json":         {},
		"requests":     {Origin: "/site-packages/requests/__init__.py", IsPackage: true},
		"app.settings": {Origin: f.path("app/settings.py")},
	}
	c, err := f.classifier(t, finder, Options{}).Classify(context.Background(), f.root, f.all, f.paths("main.py"))
	require.NoError(t, err)

	assert.Equal(t, f.paths("app/settings.py"), c.Libraries)
	assert.Equal(t, 0, c.NotFound.Len())
	assert.Equal(t, 2, c.Stats.External)
	assert.Equal(t, 1, c.Stats.Resolved)
}

func TestClassify_Suppression(t *testing.T) {
	f := newFixture(t, map[string]string{
		"main.py":         "import a.b\n",
		"vendor/a/b/c.py": "",
		"unrelated.py":    "",
	})
	c := f.classify(t, Options{}, "main.py")

	assert.Equal(t, []string{"a.b"}, c.NotFound.Names())
	assert.Equal(t, f.paths("vendor/a/b/c.py"), c.Suppressed)
	assert.Equal(t, f.paths("unrelated.py"), c.Scripts)
}

func TestSuppresses(t *testing.T) {
	root := filepath.FromSlash("/project")
	file := filepath.FromSlash("/project/src/pkg/mod.py")

	tests := []struct {
		miss string
		want bool
	}{
		{"pkg.mod", true},
		{"mod", true},
		{"src.pkg", true},
		{"..pkg.mod", true},
		{"mod.py", false},
		{"pkg.other", false},
		{"project.src", false},
		{".", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Suppresses(root, file, tt.miss), tt.miss)
	}
}

func TestClassify_ParseFailure(t *testing.T) {
	files := map[string]string{
		"main.py":   "import broken\n",
		"broken.py": "def broken(:\n    pass\n",
		"fine.py":   "",
	}

	f := newFixture(t, files)
	_, err := f.classifier(t, nil, Options{}).Classify(context.Background(), f.root, f.all, f.paths("main.py"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeParseFailure))

	c := f.classify(t, Options{SkipUnparsable: true}, "main.py")
	assert.Equal(t, f.paths("broken.py"), c.Libraries)
	assert.Equal(t, f.paths("broken.py"), c.Unparsable)
	assert.Equal(t, f.paths("fine.py"), c.Scripts)
}

func TestClassify_Cancelled(t *testing.T) {
	f := newFixture(t, map[string]string{"main.py": "import helpers\n", "helpers.py": ""})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.classifier(t, nil, Options{}).Classify(ctx, f.root, f.all, f.paths("main.py"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestClassify_Idempotent(t *testing.T) {
	f := newFixture(t, map[string]string{
		"main.py":      "import a\nimport b\nimport missing\n",
		"a.py":         "import c\n",
		"b.py":         "from x import y\n",
		"c.py":         "",
		"x/y.py":       "",
		"z/y.py":       "",
		"scripts/s.py": "import a\n",
	})
	classifier := f.classifier(t, nil, Options{Deep: true})

	first, err := classifier.Classify(context.Background(), f.root, f.all, f.paths("main.py"))
	require.NoError(t, err)
	second, err := classifier.Classify(context.Background(), f.root, f.all, f.paths("main.py"))
	require.NoError(t, err)

	assert.Equal(t, first.Libraries, second.Libraries)
	assert.Equal(t, first.Scripts, second.Scripts)
	assert.Equal(t, first.NotFound.Entries(), second.NotFound.Entries())
	assert.Equal(t, first.MayFound.Entries(), second.MayFound.Entries())
}

func TestClassify_WildcardImportResolvesModule(t *testing.T) {
	f := newFixture(t, map[string]string{
		"main.py":            "from shapes.circle import *\nfrom . import *\n",
		"shapes/__init__.py": "",
		"shapes/circle.py":   "",
		"__init__.py":        "",
	})
	c := f.classify(t, Options{}, "main.py")

	assert.Equal(t, f.paths("__init__.py", "shapes/circle.py"), c.Libraries)
	assert.Equal(t, f.paths("shapes/__init__.py"), c.Scripts)
}

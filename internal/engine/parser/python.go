package parser

import (
	"fmt"
	"strings"
	"time"

	"pycleaner/internal/core/errors"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// PythonExtractor turns Python source into import declarations.
type PythonExtractor struct {
	pool *ParserPool
}

func NewPythonExtractor(loader *GrammarLoader) (*PythonExtractor, error) {
	lang, err := loader.Language(LanguagePython)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "python grammar unavailable")
	}
	return &PythonExtractor{pool: NewParserPool(lang)}, nil
}

// ExtractImports parses source and returns its import declarations in source
// order. With deep unset only module-level statements are inspected; imports
// nested in functions, classes, conditionals or try blocks are ignored.
func (e *PythonExtractor) ExtractImports(path string, source []byte, deep bool) ([]ImportDecl, error) {
	file, err := e.Extract(path, source, deep)
	if err != nil {
		return nil, err
	}
	return file.Imports, nil
}

func (e *PythonExtractor) Extract(path string, source []byte, deep bool) (*File, error) {
	sp := e.pool.Get()
	defer e.pool.Put(sp)

	tree := sp.Parse(source, nil)
	if tree == nil {
		return nil, errors.AddContext(errors.New(errors.CodeParseFailure, "parse failed"), errors.CtxPath, path)
	}
	defer tree.Close()

	root := tree.RootNode()
	if bad := firstErrorNode(root); bad != nil {
		msg := fmt.Sprintf("syntax error at line %d, column %d",
			int(bad.StartPosition().Row)+1, int(bad.StartPosition().Column)+1)
		return nil, errors.AddContext(errors.New(errors.CodeParseFailure, msg), errors.CtxPath, path)
	}

	file := &File{
		Path:     path,
		Deep:     deep,
		ParsedAt: time.Now(),
	}
	ctx := &ExtractionContext{Source: source, File: file}
	engine := NewExtractorEngine(map[string]NodeHandler{
		"import_statement":      e.extractImport,
		"import_from_statement": e.extractFromImport,
	}, deep)
	engine.Walk(ctx, root)

	return file, nil
}

func (e *PythonExtractor) extractImport(ctx *ExtractionContext, node *sitter.Node) bool {
	var names []string
	for i := uint(0); i < node.ChildCount(); i++ {
		if name := e.unalias(ctx, node.Child(i)); name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return true
	}

	ctx.File.Imports = append(ctx.File.Imports, ImportDecl{
		Kind:     ImportSimple,
		Names:    names,
		Location: ctx.Location(node),
	})
	return true
}

func (e *PythonExtractor) extractFromImport(ctx *ExtractionContext, node *sitter.Node) bool {
	decl := ImportDecl{
		Kind:     ImportFrom,
		Location: ctx.Location(node),
	}

	if module := node.ChildByFieldName("module_name"); module != nil {
		decl.Prefix = normalizeDotted(ctx.Text(module))
	}

	afterImport := false
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if !afterImport {
			afterImport = child.Kind() == "import"
			continue
		}
		if child.Kind() == "wildcard_import" {
			decl.Wildcard = true
			continue
		}
		if name := e.unalias(ctx, child); name != "" {
			decl.Names = append(decl.Names, name)
		}
	}

	if decl.Prefix == "" {
		return true
	}
	ctx.File.Imports = append(ctx.File.Imports, decl)
	return true
}

// unalias returns the original dotted name of a dotted_name or aliased_import
// node. Punctuation and other node kinds yield "".
func (e *PythonExtractor) unalias(ctx *ExtractionContext, node *sitter.Node) string {
	switch node.Kind() {
	case "dotted_name":
		return normalizeDotted(ctx.Text(node))
	case "aliased_import":
		if name := node.ChildByFieldName("name"); name != nil {
			return normalizeDotted(ctx.Text(name))
		}
		fields := strings.Fields(strings.Replace(ctx.Text(node), " as ", " ", 1))
		if len(fields) > 0 {
			return normalizeDotted(fields[0])
		}
	}
	return ""
}

// normalizeDotted drops whitespace, comments and line continuations that the
// grammar allows inside parenthesised or backslash-continued names.
func normalizeDotted(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		switch r {
		case ' ', '\t', '\n', '\r', '\\':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// IsPythonSource reports whether path names a Python source file.
func IsPythonSource(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".py")
}

// # internal/ui/report/report.go
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"pycleaner/internal/core/errors"
	"pycleaner/internal/engine/graph"
	"pycleaner/internal/shared/util"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

var headerStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#3B82F6")).
	Bold(true)

// Blocks selects the sections of a text report.
type Blocks struct {
	Libraries bool
	Scripts   bool
	MayFound  bool
	NotFound  bool
}

// normalize treats an empty selection as all blocks.
func (b Blocks) normalize() Blocks {
	if !b.Libraries && !b.Scripts && !b.MayFound && !b.NotFound {
		return Blocks{Libraries: true, Scripts: true, MayFound: true, NotFound: true}
	}
	return b
}

type Options struct {
	Format   string
	AbsPaths bool
	// Width is the line width for columns; zero means the terminal width.
	Width   int
	Blocks  Blocks
	Suggest bool
	// Styled renders headers with lipgloss.
	Styled bool
}

// Write renders c in opts.Format.
func Write(w io.Writer, c *graph.Classification, all []string, opts Options) error {
	switch opts.Format {
	case "", FormatText:
		return WriteText(w, c, all, opts)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(NewDocument(c, all, opts))
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(NewDocument(c, all, opts)); err != nil {
			return err
		}
		return enc.Close()
	default:
		return errors.Newf(errors.CodeNotSupported, "unsupported report format %q", opts.Format)
	}
}

// WriteText prints the selected blocks columnized, then the summary line.
// all lists the project files used for "did you mean" hints.
func WriteText(w io.Writer, c *graph.Classification, all []string, opts Options) error {
	width := opts.Width
	if width <= 0 {
		width = TerminalWidth()
	}
	blocks := opts.Blocks.normalize()
	show := displayPaths(c.Root, opts.AbsPaths)

	var b strings.Builder
	block := func(header string, items []string, selected bool) {
		if !selected {
			return
		}
		header = strings.ToUpper(header)
		if opts.Styled {
			header = headerStyle.Render(header)
		}
		b.WriteString(header)
		b.WriteByte('\n')
		b.WriteString(Columnize(items, width))
		b.WriteByte('\n')
	}

	block("libraries", show(c.Libraries), blocks.Libraries)
	block("scripts", show(c.Scripts), blocks.Scripts)
	block("might be found", MayFoundLines(c, opts.AbsPaths), blocks.MayFound)
	block("not found", NotFoundLines(c, opts.AbsPaths), blocks.NotFound)

	if blocks.NotFound && opts.Suggest {
		hints := Suggest(c.NotFound.Names(), ModuleNames(c.Root, all))
		for _, name := range util.SortedStringKeys(hints) {
			fmt.Fprintf(&b, "%s: did you mean %s?\n", name, hints[name])
		}
		if len(hints) > 0 {
			b.WriteByte('\n')
		}
	}

	b.WriteString(Summary(c))
	b.WriteByte('\n')

	_, err := io.WriteString(w, b.String())
	return err
}

// Summary is the closing line of a text report.
func Summary(c *graph.Classification) string {
	return fmt.Sprintf("There are %d files that can be considered as libraries, and %d ─ as scripts",
		len(c.Libraries), len(c.Scripts))
}

// NotFoundLines renders one "<name> FROM <file>" line per referencing file.
func NotFoundLines(c *graph.Classification, abs bool) []string {
	show := displayPath(c.Root, abs)
	var lines []string
	for _, entry := range c.NotFound.Entries() {
		for _, file := range entry.Files {
			lines = append(lines, fmt.Sprintf("%s FROM %s", entry.Name, show(file)))
		}
	}
	return lines
}

// MayFoundLines renders "<name> FROM <file> IS ONE OF <a>, <b>" per entry.
func MayFoundLines(c *graph.Classification, abs bool) []string {
	show := displayPath(c.Root, abs)
	var lines []string
	for _, entry := range c.MayFound.Entries() {
		candidates := make([]string, 0, len(entry.Candidates))
		for _, cand := range entry.Candidates {
			candidates = append(candidates, show(cand))
		}
		lines = append(lines, fmt.Sprintf("%s FROM %s IS ONE OF %s",
			entry.Name, show(entry.File), strings.Join(candidates, ", ")))
	}
	return lines
}

func displayPath(root string, abs bool) func(string) string {
	if abs {
		return filepath.Clean
	}
	return func(p string) string {
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return p
		}
		return rel
	}
}

func displayPaths(root string, abs bool) func([]string) []string {
	show := displayPath(root, abs)
	return func(paths []string) []string {
		out := make([]string, 0, len(paths))
		for _, p := range paths {
			out = append(out, show(p))
		}
		return out
	}
}

package report

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"
)

// DefaultWidth is used when the output is not a terminal.
const DefaultWidth = 120

// TerminalWidth returns the width of stdout, or DefaultWidth when stdout is
// redirected.
func TerminalWidth() int {
	fd := os.Stdout.Fd()
	if !term.IsTerminal(fd) {
		return DefaultWidth
	}
	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		return DefaultWidth
	}
	return width
}

// Columnize lays items out column-major in as few rows as fit within width,
// separating columns by two spaces. An empty list renders as "<empty>".
func Columnize(items []string, width int) string {
	var b strings.Builder
	switch len(items) {
	case 0:
		b.WriteString("<empty>\n")
		return b.String()
	case 1:
		b.WriteString(items[0])
		b.WriteByte('\n')
		return b.String()
	}

	size := len(items)
	nrows, colWidths := layout(items, width)
	ncols := len(colWidths)

	for row := 0; row < nrows; row++ {
		texts := make([]string, 0, ncols)
		for col := 0; col < ncols; col++ {
			i := row + nrows*col
			if i >= size {
				texts = append(texts, "")
				continue
			}
			texts = append(texts, items[i])
		}
		for len(texts) > 0 && texts[len(texts)-1] == "" {
			texts = texts[:len(texts)-1]
		}
		for col := range texts {
			if col < len(texts)-1 {
				texts[col] = pad(texts[col], colWidths[col])
			}
		}
		b.WriteString(strings.Join(texts, "  "))
		b.WriteByte('\n')
	}
	return b.String()
}

// layout finds the smallest row count whose columns fit in width. When no
// multi-column layout fits, every item gets its own row.
func layout(items []string, width int) (int, []int) {
	size := len(items)
	for nrows := 1; nrows < size; nrows++ {
		ncols := (size + nrows - 1) / nrows
		colWidths := make([]int, 0, ncols)
		total := -2
		for col := 0; col < ncols; col++ {
			colWidth := 0
			for row := 0; row < nrows; row++ {
				i := row + nrows*col
				if i >= size {
					break
				}
				colWidth = max(colWidth, lipgloss.Width(items[i]))
			}
			colWidths = append(colWidths, colWidth)
			total += colWidth + 2
			if total > width {
				break
			}
		}
		if total <= width {
			return nrows, colWidths
		}
	}
	return size, []int{0}
}

func pad(s string, width int) string {
	if gap := width - lipgloss.Width(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow, color.Bold)
	bold   = color.New(color.Bold)
)

// printer writes colored, human-readable output.
type printer struct {
	w io.Writer
}

func (p printer) header(text string) {
	line := strings.Repeat("=", 60)
	green.Fprintf(p.w, "%s\n%s\n%s\n", line, text, line)
}

func (p printer) success(format string, args ...any) {
	green.Fprintf(p.w, "  → "+format+"\n", args...)
}

func (p printer) info(format string, args ...any) {
	fmt.Fprintf(p.w, "  → "+format+"\n", args...)
}

func (p printer) warning(format string, args ...any) {
	yellow.Fprintf(p.w, "  ⚠ "+format+"\n", args...)
}

// table prints rows under bold column headings, padding each column to its
// widest cell.
func (p printer) table(headings []string, rows [][]string) {
	widths := make([]int, len(headings))
	for i, h := range headings {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	format := func(cells []string) string {
		parts := make([]string, len(cells))
		for i, c := range cells {
			parts[i] = fmt.Sprintf("%-*s", widths[i], c)
		}
		return strings.TrimRight(strings.Join(parts, "  "), " ")
	}

	bold.Fprintln(p.w, format(headings))
	for _, row := range rows {
		fmt.Fprintln(p.w, format(row))
	}
}

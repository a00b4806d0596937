// Package cliutil renders diagnostics for the terminal: plain text when
// stdout is a pipe, ANSI-colored when it is a real TTY.
package cliutil

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/specverify/verifier/internal/diagnostics"
)

const (
	ansiReset  = "\x1b[0m"
	ansiBold   = "\x1b[1m"
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
	ansiCyan   = "\x1b[36m"
	ansiDim    = "\x1b[2m"
)

// UseColor reports whether ANSI output is appropriate for f. It honors
// the NO_COLOR convention (https://no-color.org/), requires a real or
// Cygwin terminal, and treats TERM=dumb as colorless.
func UseColor(f *os.File) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
		return false
	}
	return os.Getenv("TERM") != "dumb"
}

// Renderer writes human-readable diagnostics.
type Renderer struct {
	Out   io.Writer
	Color bool
}

// NewRenderer returns a renderer targeting out, with color decided by
// the caller (typically UseColor(os.Stdout)).
func NewRenderer(out io.Writer, color bool) *Renderer {
	return &Renderer{Out: out, Color: color}
}

func (r *Renderer) paint(code, s string) string {
	if !r.Color {
		return s
	}
	return code + s + ansiReset
}

func (r *Renderer) severityLabel(s diagnostics.Severity) string {
	switch s {
	case diagnostics.SeverityError:
		return r.paint(ansiBold+ansiRed, "error")
	case diagnostics.SeverityWarning:
		return r.paint(ansiBold+ansiYellow, "warning")
	case diagnostics.SeverityInfo:
		return r.paint(ansiBold+ansiBlue, "info")
	default:
		return r.paint(ansiBold+ansiCyan, "hint")
	}
}

// Render writes every diagnostic grouped by file, in bus order within
// each file, followed by a one-line severity summary.
func (r *Renderer) Render(diags []*diagnostics.Diagnostic) {
	byFile := map[string][]*diagnostics.Diagnostic{}
	var files []string
	for _, d := range diags {
		f := d.Location.File
		if _, seen := byFile[f]; !seen {
			files = append(files, f)
		}
		byFile[f] = append(byFile[f], d)
	}
	sort.Strings(files)

	for _, f := range files {
		for _, d := range byFile[f] {
			r.renderOne(d)
		}
	}
	r.renderSummary(diags)
}

func (r *Renderer) renderOne(d *diagnostics.Diagnostic) {
	loc := d.Location
	pos := fmt.Sprintf("%s:%d:%d", loc.File, loc.Line, loc.Column)
	fmt.Fprintf(r.Out, "%s: %s[%s]: %s\n",
		r.paint(ansiBold, pos), r.severityLabel(d.Severity), d.Code, d.Message)
	for _, rel := range d.RelatedLocations {
		fmt.Fprintf(r.Out, "  %s %s:%d:%d: %s\n",
			r.paint(ansiDim, "-->"), rel.Location.File, rel.Location.Line, rel.Location.Column, rel.Message)
	}
	for _, note := range d.Notes {
		fmt.Fprintf(r.Out, "  %s %s\n", r.paint(ansiDim, "note:"), note)
	}
	for _, help := range d.Help {
		fmt.Fprintf(r.Out, "  %s %s\n", r.paint(ansiCyan, "help:"), help)
	}
	if d.Fix != nil {
		fmt.Fprintf(r.Out, "  %s %s\n", r.paint(ansiCyan, "fix:"), d.Fix.Title)
	}
}

func (r *Renderer) renderSummary(diags []*diagnostics.Diagnostic) {
	if len(diags) == 0 {
		fmt.Fprintln(r.Out, "no diagnostics")
		return
	}
	counts := map[diagnostics.Severity]int{}
	for _, d := range diags {
		counts[d.Severity]++
	}
	var parts []string
	for _, s := range []diagnostics.Severity{
		diagnostics.SeverityError, diagnostics.SeverityWarning,
		diagnostics.SeverityInfo, diagnostics.SeverityHint,
	} {
		if n := counts[s]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s(s)", n, s))
		}
	}
	fmt.Fprintln(r.Out, strings.Join(parts, ", "))
}

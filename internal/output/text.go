package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dshills/gradlerec/internal/diag"
	"github.com/dshills/gradlerec/internal/reconcile"
)

// TextWriter outputs a human-readable text report. With Color set, headings
// and severities are styled for the terminal w refers to.
type TextWriter struct {
	Color bool
}

type textStyles struct {
	header, errorS, warnS, okS, dim lipgloss.Style
}

func newTextStyles(w io.Writer, color bool) textStyles {
	if !color {
		plain := lipgloss.NewStyle()
		return textStyles{plain, plain, plain, plain, plain}
	}
	r := lipgloss.NewRenderer(w)
	return textStyles{
		header: r.NewStyle().Bold(true),
		errorS: r.NewStyle().Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#D00000", Dark: "#FF5555"}),
		warnS: r.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#B8860B", Dark: "#FFAA00"}),
		okS: r.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#008000", Dark: "#55FF55"}),
		dim: r.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#666666", Dark: "#888888"}),
	}
}

func (t *TextWriter) Write(w io.Writer, report *reconcile.Report) error {
	ew := &errWriter{w: w}
	st := newTextStyles(w, t.Color)
	s := report.Summary

	ew.println(st.header.Render(fmt.Sprintf("Build configuration reconciliation: %d fragments, %d paths, %d conflicts",
		s.Fragments, s.Paths, s.Conflicts)))
	ew.printf("Policy: %s\n", report.Policy)
	ew.println(strings.Repeat("─", 60))
	status := st.okS.Render("VALID")
	if s.Status == diag.StatusInvalid {
		status = st.errorS.Render("INVALID")
	}
	ew.printf("Status: %s (%d errors, %d warnings)\n", status, s.Counts.Errors, s.Counts.Warnings)
	ew.println(strings.Repeat("─", 60))

	if len(report.Inputs) > 0 {
		ew.println("\n" + st.header.Render("Inputs"))
		width := 0
		for _, in := range report.Inputs {
			width = max(width, len(in.Label))
		}
		for _, in := range report.Inputs {
			if in.Error != "" {
				ew.printf("  %-*s  %s\n", width, in.Label, st.errorS.Render("FAILED: "+in.Error))
				continue
			}
			ew.printf("  %-*s  %d paths\n", width, in.Label, in.Paths)
		}
	}

	if len(report.Conflicts) > 0 {
		ew.println("\n" + st.header.Render("Conflicts"))
		resolved := resolvedByPath(report)
		for _, c := range report.Conflicts {
			e := resolved[c.Path]
			ew.printf("\n  %s -> %s %s\n", c.Path, e.Value,
				st.dim.Render(fmt.Sprintf("(%s, %s)", e.Source, e.Strategy)))
			for _, d := range c.Declarations {
				mark := " "
				if d.Fragment == e.Source {
					mark = "*"
				}
				ew.printf("    %s %-12s %s\n", mark, d.Value, st.dim.Render(location(d.Fragment, d.Line)))
			}
		}
	}

	if len(report.Diagnostics) == 0 {
		ew.println("\nNo issues found.")
	}
	for _, sev := range []diag.Severity{diag.SeverityError, diag.SeverityWarning} {
		ds := bySeverity(report.Diagnostics, sev)
		if len(ds) == 0 {
			continue
		}
		label, style := "[!!] ERRORS", st.errorS
		if sev == diag.SeverityWarning {
			label, style = "[!] WARNINGS", st.warnS
		}
		ew.printf("\n%s\n", style.Render(label))
		ew.println(strings.Repeat("─", 40))
		for _, d := range ds {
			loc := location(d.Fragment, d.Line)
			if loc == "" {
				loc = strings.Join(d.Paths, ", ")
			}
			ew.printf("  %s  [%s]\n", loc, d.Code)
			for _, line := range wrapText(d.Message, 70) {
				ew.printf("    %s\n", line)
			}
		}
	}

	ew.printf("\n%s\n", strings.Repeat("─", 60))
	ew.printf("%s %s\n", report.Tool, st.dim.Render(fmt.Sprintf("%s, input %s", report.Version, report.InputHash)))

	return ew.err
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}

func resolvedByPath(report *reconcile.Report) map[string]reconcile.ResolvedEntry {
	m := make(map[string]reconcile.ResolvedEntry, len(report.Resolved))
	for _, e := range report.Resolved {
		m[e.Path] = e
	}
	return m
}

// bySeverity keeps report order within a severity.
func bySeverity(ds []diag.Diagnostic, sev diag.Severity) []diag.Diagnostic {
	var out []diag.Diagnostic
	for _, d := range ds {
		if d.Severity == sev {
			out = append(out, d)
		}
	}
	return out
}

func location(fragment string, line int) string {
	if fragment != "" && line > 0 {
		return fmt.Sprintf("%s:%d", fragment, line)
	}
	return fragment
}

func wrapText(text string, width int) []string {
	if len(text) <= width {
		return []string{text}
	}
	var lines []string
	words := strings.Fields(text)
	var current strings.Builder
	for _, word := range words {
		if current.Len()+len(word)+1 > width && current.Len() > 0 {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}

package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/dshills/gradlerec/internal/diag"
	"github.com/dshills/gradlerec/internal/reconcile"
)

// MarkdownWriter outputs a PR-comment-friendly markdown report.
type MarkdownWriter struct{}

func (m *MarkdownWriter) Write(w io.Writer, report *reconcile.Report) error {
	ew := &errWriter{w: w}
	s := report.Summary

	ew.printf("## Build Configuration Reconciliation\n\n")

	status := ":white_check_mark: valid"
	if s.Status == diag.StatusInvalid {
		status = ":x: invalid"
	}
	ew.printf("| Status | Fragments | Paths | Conflicts | Errors | Warnings |\n")
	ew.printf("|--------|-----------|-------|-----------|--------|----------|\n")
	ew.printf("| %s | %d | %d | %d | %d | %d |\n\n",
		status, s.Fragments, s.Paths, s.Conflicts, s.Counts.Errors, s.Counts.Warnings)
	ew.printf("Policy: `%s`\n\n", report.Policy)

	if s.Failed > 0 {
		ew.printf("**%d of %d fragments failed to parse.**\n\n", s.Failed, s.Fragments)
	}

	if len(report.Conflicts) > 0 {
		resolved := resolvedByPath(report)
		ew.printf("<details>\n<summary>Conflicts (%d)</summary>\n\n", len(report.Conflicts))
		ew.printf("| Path | Resolved | Strategy | Declarations |\n")
		ew.printf("|------|----------|----------|--------------|\n")
		for _, c := range report.Conflicts {
			e := resolved[c.Path]
			decls := make([]string, len(c.Declarations))
			for i, d := range c.Declarations {
				decls[i] = fmt.Sprintf("`%s` (%s)", mdEscape(d.Value.String()), mdEscape(d.Fragment))
			}
			ew.printf("| `%s` | `%s` | %s | %s |\n",
				c.Path, mdEscape(e.Value.String()), e.Strategy, strings.Join(decls, "<br>"))
		}
		ew.printf("\n</details>\n\n")
	}

	if len(report.Diagnostics) == 0 {
		ew.println("No issues found. :white_check_mark:")
		ew.println("")
	}
	for _, sev := range []diag.Severity{diag.SeverityError, diag.SeverityWarning} {
		ds := bySeverity(report.Diagnostics, sev)
		if len(ds) == 0 {
			continue
		}
		ew.printf("<details>\n<summary>%s %s (%d)</summary>\n\n",
			mdSeverityIcon(sev), strings.ToUpper(string(sev))+"S", len(ds))
		for _, d := range ds {
			loc := location(d.Fragment, d.Line)
			if loc != "" {
				ew.printf("- **`%s`** `%s`: %s\n", loc, d.Code, d.Message)
			} else {
				ew.printf("- `%s`: %s\n", d.Code, d.Message)
			}
		}
		ew.printf("\n</details>\n\n")
	}

	ew.printf("*%s %s, input `%s`*\n", report.Tool, report.Version, report.InputHash)

	return ew.err
}

func mdSeverityIcon(s diag.Severity) string {
	switch s {
	case diag.SeverityError:
		return ":red_circle:"
	case diag.SeverityWarning:
		return ":orange_circle:"
	default:
		return ":white_circle:"
	}
}

// mdEscape keeps values from breaking table cells.
func mdEscape(s string) string {
	return strings.NewReplacer("|", `\|`, "`", "'", "\n", " ").Replace(s)
}

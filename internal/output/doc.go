// Package output formats reconciliation reports and canonical documents.
//
// Four report formats are supported:
//   - text      human-readable terminal output, styled with lipgloss (default)
//   - json      full structured JSON report
//   - markdown  PR-comment-friendly with collapsible sections
//   - sarif     SARIF v2.1.0 for upload to GitHub code scanning and other CI tools
//
// Use [GetWriter] to obtain a [Writer] for a given format string, or
// [WriteReport] to also select the destination.
//
// The canonical document is rendered by [RenderDocument] as "properties"
// (one path = value line per entry, itself a parseable fragment) or "json".
// [Diff] produces the unified diff shown by check mode.
package output

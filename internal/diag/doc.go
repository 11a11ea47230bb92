// Package diag defines the diagnostics every reconciliation stage reports.
//
// A [Diagnostic] carries a severity (warning or error), a stable [Code], a
// human-readable message, and the dotted paths, fragment label, and line it
// refers to. [StatusOf] collapses a diagnostic list into the two terminal
// states of a run: [StatusValid] or [StatusInvalid].
package diag

package diag

import "fmt"

// Severity represents the severity level of a diagnostic.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// SeverityRank returns a numeric rank for sorting (higher = more severe).
func SeverityRank(s Severity) int {
	switch s {
	case SeverityError:
		return 2
	case SeverityWarning:
		return 1
	default:
		return 0
	}
}

// MeetsThreshold returns true if severity is at or above the threshold.
// An empty or unknown threshold is never met.
func MeetsThreshold(s Severity, threshold string) bool {
	rank := SeverityRank(Severity(threshold))
	return rank > 0 && SeverityRank(s) >= rank
}

// Code identifies the check or stage that produced a diagnostic.
type Code string

const (
	CodeParse        Code = "parse"
	CodeSyntax       Code = "syntax"
	CodeReassigned   Code = "reassigned"
	CodeConflict     Code = "conflict"
	CodeStrategy     Code = "strategy"
	CodeSDKOrder     Code = "sdk-order"
	CodeSDKSymbolic  Code = "sdk-symbolic"
	CodeRequired     Code = "required"
	CodePluginDup    Code = "duplicate-plugin"
	CodePluginAlias  Code = "plugin-alias"
	CodeMinify       Code = "minify-without-proguard"
	CodeDebugSigning Code = "debug-signing"
)

// Diagnostic is a single finding produced while reconciling fragments.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Code     Code     `json:"code"`
	Message  string   `json:"message"`
	Paths    []string `json:"paths,omitempty"`
	Fragment string   `json:"fragment,omitempty"`
	Line     int      `json:"line,omitempty"`
}

// Warningf builds a warning diagnostic.
func Warningf(code Code, format string, args ...any) Diagnostic {
	return Diagnostic{Severity: SeverityWarning, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Errorf builds an error diagnostic.
func Errorf(code Code, format string, args ...any) Diagnostic {
	return Diagnostic{Severity: SeverityError, Code: code, Message: fmt.Sprintf(format, args...)}
}

// At returns a copy of d attributed to a fragment and line.
func (d Diagnostic) At(fragment string, line int) Diagnostic {
	d.Fragment = fragment
	d.Line = line
	return d
}

// On returns a copy of d referring to the given dotted paths.
func (d Diagnostic) On(paths ...string) Diagnostic {
	d.Paths = append([]string(nil), paths...)
	return d
}

func (d Diagnostic) String() string {
	loc := d.Fragment
	if loc != "" && d.Line > 0 {
		loc = fmt.Sprintf("%s:%d", loc, d.Line)
	}
	if loc != "" {
		return fmt.Sprintf("%s: %s [%s] %s", loc, d.Severity, d.Code, d.Message)
	}
	return fmt.Sprintf("%s [%s] %s", d.Severity, d.Code, d.Message)
}

// Status is the terminal state of a reconciliation run.
type Status string

const (
	StatusValid   Status = "valid"
	StatusInvalid Status = "invalid"
)

// StatusOf returns StatusInvalid if any diagnostic is an error.
func StatusOf(ds []Diagnostic) Status {
	for _, d := range ds {
		if d.Severity == SeverityError {
			return StatusInvalid
		}
	}
	return StatusValid
}

// Counts holds diagnostic counts by severity.
type Counts struct {
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
}

// Count tallies diagnostics by severity.
func Count(ds []Diagnostic) Counts {
	var c Counts
	for _, d := range ds {
		switch d.Severity {
		case SeverityError:
			c.Errors++
		case SeverityWarning:
			c.Warnings++
		}
	}
	return c
}

package reconcile

import (
	"github.com/dshills/gradlerec/internal/diag"
	"github.com/dshills/gradlerec/internal/fragment"
)

// PolicySource is the provenance recorded for values supplied by an
// explicit strategy rather than by a fragment.
const PolicySource = "(policy)"

// Declaration is one fragment's value for a path.
type Declaration struct {
	Fragment string         `json:"fragment"`
	Value    fragment.Value `json:"value"`
	Line     int            `json:"line,omitempty"`
}

// FieldConflict is a path declared by two or more fragments with at least
// two distinct values. Declarations are in fragment order.
type FieldConflict struct {
	Path         string        `json:"path"`
	Declarations []Declaration `json:"declarations"`
}

// Distinct returns the distinct values in order of first appearance.
func (c FieldConflict) Distinct() []fragment.Value {
	var out []fragment.Value
	for _, d := range c.Declarations {
		seen := false
		for _, v := range out {
			if v.Equal(d.Value) {
				seen = true
				break
			}
		}
		if !seen {
			out = append(out, d.Value)
		}
	}
	return out
}

// ResolvedEntry is the final value of one path.
type ResolvedEntry struct {
	Path  string         `json:"path"`
	Value fragment.Value `json:"value"`
	// Source is the winning fragment label, or PolicySource.
	Source   string   `json:"source"`
	Strategy string   `json:"strategy"`
	Rule     string   `json:"rule,omitempty"`
	Declared []string `json:"declared"`
	// Conflicted is true when the declaring fragments disagreed.
	Conflicted bool `json:"conflicted,omitempty"`
}

// ResolvedConfig is the merged configuration. Entries are ordered by the
// first appearance of each path across the input fragments.
type ResolvedConfig struct {
	sources []string
	entries []ResolvedEntry
	index   map[string]int
}

func newResolvedConfig(sources []string, entries []ResolvedEntry) *ResolvedConfig {
	rc := &ResolvedConfig{
		sources: sources,
		entries: entries,
		index:   make(map[string]int, len(entries)),
	}
	for i, e := range entries {
		rc.index[e.Path] = i
	}
	return rc
}

// Sources returns the labels of the fragments that were merged, in order.
func (rc *ResolvedConfig) Sources() []string {
	return append([]string(nil), rc.sources...)
}

// Entries returns a copy of the resolved entries.
func (rc *ResolvedConfig) Entries() []ResolvedEntry {
	out := make([]ResolvedEntry, len(rc.entries))
	for i, e := range rc.entries {
		e.Declared = append([]string(nil), e.Declared...)
		out[i] = e
	}
	return out
}

// Len returns the number of resolved paths.
func (rc *ResolvedConfig) Len() int { return len(rc.entries) }

// Lookup returns the resolved entry for path.
func (rc *ResolvedConfig) Lookup(path string) (ResolvedEntry, bool) {
	i, ok := rc.index[path]
	if !ok {
		return ResolvedEntry{}, false
	}
	return rc.entries[i], true
}

// Value returns the resolved value for path.
func (rc *ResolvedConfig) Value(path string) (fragment.Value, bool) {
	e, ok := rc.Lookup(path)
	return e.Value, ok
}

// Provenance maps every resolved path to its winning source.
func (rc *ResolvedConfig) Provenance() map[string]string {
	out := make(map[string]string, len(rc.entries))
	for _, e := range rc.entries {
		out[e.Path] = e.Source
	}
	return out
}

// InputInfo describes one input fragment.
type InputInfo struct {
	Label  string `json:"label"`
	Digest string `json:"digest"`
	Paths  int    `json:"paths"`
	Error  string `json:"error,omitempty"`
}

// Summary provides an overview of a run.
type Summary struct {
	Status    diag.Status `json:"status"`
	Counts    diag.Counts `json:"counts"`
	Fragments int         `json:"fragments"`
	Failed    int         `json:"failed"`
	Paths     int         `json:"paths"`
	Conflicts int         `json:"conflicts"`
}

// Timing contains performance metrics of a run.
type Timing struct {
	ParseMs   int64 `json:"parseMs"`
	ResolveMs int64 `json:"resolveMs"`
	TotalMs   int64 `json:"totalMs"`
}

// Report is the top-level output structure.
type Report struct {
	Tool        string            `json:"tool"`
	Version     string            `json:"version"`
	InputHash   string            `json:"inputHash"`
	Policy      string            `json:"policy"`
	Inputs      []InputInfo       `json:"inputs"`
	Summary     Summary           `json:"summary"`
	Conflicts   []FieldConflict   `json:"conflicts"`
	Resolved    []ResolvedEntry   `json:"resolved"`
	Diagnostics []diag.Diagnostic `json:"diagnostics"`
}

// ParseFailed reports whether any input failed to parse.
func (r *Report) ParseFailed() bool { return r.Summary.Failed > 0 }

// ComputeSummary calculates the summary from the report contents.
func ComputeSummary(inputs []InputInfo, resolved int, conflicts int, diags []diag.Diagnostic) Summary {
	s := Summary{
		Status:    diag.StatusOf(diags),
		Counts:    diag.Count(diags),
		Fragments: len(inputs),
		Paths:     resolved,
		Conflicts: conflicts,
	}
	for _, in := range inputs {
		if in.Error != "" {
			s.Failed++
		}
	}
	return s
}

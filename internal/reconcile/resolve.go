package reconcile

import (
	"github.com/dshills/gradlerec/internal/diag"
	"github.com/dshills/gradlerec/internal/fragment"
)

// Resolve merges fragments into one configuration. Every path declared by
// at least one fragment is resolved with the strategy the policy assigns
// it; explicit strategies replace the value of declared paths but never add
// paths. Fallbacks from numeric or union strategies are reported as
// warnings, but only for paths listed in conflicts, since agreeing
// fragments leave nothing to choose.
func Resolve(frags []*fragment.Fragment, conflicts []FieldConflict, policy *Policy) (*ResolvedConfig, []diag.Diagnostic) {
	if policy == nil {
		policy = DefaultPolicy()
	}
	conflicted := make(map[string]bool, len(conflicts))
	for _, c := range conflicts {
		conflicted[c.Path] = true
	}

	var (
		sources []string
		order   []string
	)
	decls := make(map[string][]Declaration)
	for _, f := range frags {
		if f == nil {
			continue
		}
		sources = append(sources, f.Label())
		for _, e := range f.Entries() {
			if _, ok := decls[e.Path]; !ok {
				order = append(order, e.Path)
			}
			decls[e.Path] = append(decls[e.Path], Declaration{Fragment: f.Label(), Value: e.Value, Line: e.Line})
		}
	}

	var diags []diag.Diagnostic
	entries := make([]ResolvedEntry, 0, len(order))
	for _, path := range order {
		ds := decls[path]
		st, rule := policy.StrategyFor(path)
		win, applied, fallback := apply(st, ds)
		if fallback != "" && conflicted[path] {
			last := ds[len(ds)-1]
			diags = append(diags, diag.Warningf(diag.CodeStrategy,
				"%s: %s cannot resolve %s, using last-wins", path, st, fallback).
				At(last.Fragment, last.Line).On(path))
		}
		declared := make([]string, len(ds))
		for i, d := range ds {
			declared[i] = d.Fragment
		}
		entries = append(entries, ResolvedEntry{
			Path:       path,
			Value:      win.Value,
			Source:     win.Fragment,
			Strategy:   applied.String(),
			Rule:       rule,
			Declared:   declared,
			Conflicted: conflicted[path],
		})
	}
	return newResolvedConfig(sources, entries), diags
}

// apply picks the winning declaration. When st cannot be applied it falls
// back to last-wins and names the offending values in fallback.
func apply(st Strategy, ds []Declaration) (win Declaration, applied Strategy, fallback string) {
	last := ds[len(ds)-1]
	switch st.Kind {
	case FirstWins:
		return ds[0], st, ""
	case MaxNumeric, MinNumeric:
		best := -1
		var bestVer []int64
		for i, d := range ds {
			ver, ok := d.Value.Version()
			if !ok {
				return last, Strategy{Kind: LastWins}, "non-numeric value " + d.Value.String()
			}
			if best < 0 {
				best, bestVer = i, ver
				continue
			}
			cmp := fragment.CompareVersions(ver, bestVer)
			// Ties go to the later fragment.
			if (st.Kind == MaxNumeric && cmp >= 0) || (st.Kind == MinNumeric && cmp <= 0) {
				best, bestVer = i, ver
			}
		}
		return ds[best], st, ""
	case Union:
		var items []fragment.Value
		for _, d := range ds {
			if d.Value.Kind() != fragment.KindList {
				return last, Strategy{Kind: LastWins}, "non-list value " + d.Value.String()
			}
			for _, it := range d.Value.Items() {
				if !containsValue(items, it) {
					items = append(items, it)
				}
			}
		}
		return Declaration{Fragment: last.Fragment, Value: fragment.List(items...), Line: last.Line}, st, ""
	case Explicit:
		return Declaration{Fragment: PolicySource, Value: st.Value}, st, ""
	default:
		return last, Strategy{Kind: LastWins}, ""
	}
}

func containsValue(vs []fragment.Value, v fragment.Value) bool {
	for _, x := range vs {
		if x.Equal(v) {
			return true
		}
	}
	return false
}

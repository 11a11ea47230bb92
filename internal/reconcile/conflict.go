package reconcile

import (
	"fmt"
	"strings"

	"github.com/dshills/gradlerec/internal/diag"
	"github.com/dshills/gradlerec/internal/fragment"
)

// DetectConflicts returns the paths that two or more fragments declare
// with differing values. Identical repetitions are not conflicts. Conflicts
// are ordered by the first appearance of their path; nil fragments are
// skipped.
func DetectConflicts(frags []*fragment.Fragment) []FieldConflict {
	var order []string
	decls := make(map[string][]Declaration)
	for _, f := range frags {
		if f == nil {
			continue
		}
		for _, e := range f.Entries() {
			if _, ok := decls[e.Path]; !ok {
				order = append(order, e.Path)
			}
			decls[e.Path] = append(decls[e.Path], Declaration{Fragment: f.Label(), Value: e.Value, Line: e.Line})
		}
	}

	var out []FieldConflict
	for _, path := range order {
		ds := decls[path]
		if len(ds) < 2 || !differ(ds) {
			continue
		}
		out = append(out, FieldConflict{Path: path, Declarations: ds})
	}
	return out
}

func differ(ds []Declaration) bool {
	for _, d := range ds[1:] {
		if !d.Value.Equal(ds[0].Value) {
			return true
		}
	}
	return false
}

// ConflictWarning describes a conflict as a warning attributed to its last
// declaration.
func ConflictWarning(c FieldConflict) diag.Diagnostic {
	parts := make([]string, len(c.Declarations))
	for i, d := range c.Declarations {
		parts[i] = fmt.Sprintf("%s (%s)", d.Value, d.Fragment)
	}
	last := c.Declarations[len(c.Declarations)-1]
	return diag.Warningf(diag.CodeConflict, "%s has %d different values: %s",
		c.Path, len(c.Distinct()), strings.Join(parts, ", ")).
		At(last.Fragment, last.Line).On(c.Path)
}

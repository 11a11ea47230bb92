package output

import (
	"github.com/pmezard/go-difflib/difflib"
)

// Diff returns a unified diff from a to b, or "" when they are equal.
func Diff(fromName, toName string, a, b []byte) string {
	if string(a) == string(b) {
		return ""
	}
	d := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(a)),
		B:        difflib.SplitLines(string(b)),
		FromFile: fromName,
		ToFile:   toName,
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(d)
	if err != nil {
		return err.Error()
	}
	return text
}

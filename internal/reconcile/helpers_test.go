package reconcile

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/dshills/gradlerec/internal/diag"
	"github.com/dshills/gradlerec/internal/fragment"
)

// frag builds a fragment from alternating path and value arguments.
func frag(label string, kv ...any) *fragment.Fragment {
	var entries []fragment.Entry
	for i := 0; i+1 < len(kv); i += 2 {
		entries = append(entries, fragment.Entry{Path: kv[i].(string), Value: kv[i+1].(fragment.Value), Line: i/2 + 1})
	}
	return fragment.New(label, []byte(fmt.Sprint(kv...)), entries)
}

func mustParse(t *testing.T, label, src string) *fragment.Fragment {
	t.Helper()
	f, _, err := fragment.Parse(label, []byte(src))
	require.NoError(t, err)
	return f
}

func loadSource(t *testing.T, name string) fragment.Source {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return fragment.Source{Label: name, Content: data}
}

// resolved resolves fragments with last-wins.
func resolved(frags ...*fragment.Fragment) *ResolvedConfig {
	rc, _ := Resolve(frags, DetectConflicts(frags), nil)
	return rc
}

func codes(ds []diag.Diagnostic) []diag.Code {
	out := make([]diag.Code, len(ds))
	for i, d := range ds {
		out[i] = d.Code
	}
	return out
}

func withCode(ds []diag.Diagnostic, code diag.Code) []diag.Diagnostic {
	var out []diag.Diagnostic
	for _, d := range ds {
		if d.Code == code {
			out = append(out, d)
		}
	}
	return out
}

var valueComparer = cmp.Comparer(func(a, b fragment.Value) bool { return a.Equal(b) })

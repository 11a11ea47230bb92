package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/gradlerec/internal/diag"
	"github.com/dshills/gradlerec/internal/fragment"
)

func TestDetectConflicts_DifferingValues(t *testing.T) {
	f1 := frag("v1", "android.compileSdk", fragment.Int(34), "android.namespace", fragment.String("a"))
	f2 := frag("v2", "android.namespace", fragment.String("a"), "android.compileSdk", fragment.Int(36))

	got := DetectConflicts([]*fragment.Fragment{f1, f2})
	require.Len(t, got, 1)
	assert.Equal(t, "android.compileSdk", got[0].Path)
	require.Len(t, got[0].Declarations, 2)
	assert.Equal(t, "v1", got[0].Declarations[0].Fragment)
	assert.Equal(t, "v2", got[0].Declarations[1].Fragment)
	assert.True(t, got[0].Declarations[1].Value.Equal(fragment.Int(36)))
}

func TestDetectConflicts_IdenticalPluginsAreNotConflicts(t *testing.T) {
	f1 := mustParse(t, "v1", `plugins { id("com.android.application") }`)
	f2 := mustParse(t, "v2", `plugins { id("com.android.application") }`)

	assert.Empty(t, DetectConflicts([]*fragment.Fragment{f1, f2}))
}

func TestDetectConflicts_SingleDeclarationIsNotAConflict(t *testing.T) {
	f1 := frag("v1", "android.compileSdk", fragment.Int(34))
	f2 := frag("v2", "android.namespace", fragment.String("a"))
	assert.Empty(t, DetectConflicts([]*fragment.Fragment{f1, f2}))
}

func TestDetectConflicts_OrderAndNilFragments(t *testing.T) {
	f1 := frag("v1", "b", fragment.Int(1), "a", fragment.Int(1))
	f2 := frag("v2", "a", fragment.Int(2), "b", fragment.Int(2))
	f3 := frag("v3", "b", fragment.Int(1))

	got := DetectConflicts([]*fragment.Fragment{f1, nil, f2, f3})
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Path, "ordered by first appearance")
	assert.Equal(t, "a", got[1].Path)
	assert.Len(t, got[0].Declarations, 3)
	assert.Len(t, got[0].Distinct(), 2)
}

func TestDetectConflicts_KindDifference(t *testing.T) {
	f1 := frag("v1", "android.compileSdk", fragment.Int(34))
	f2 := frag("v2", "android.compileSdk", fragment.String("34"))
	assert.Len(t, DetectConflicts([]*fragment.Fragment{f1, f2}), 1)
}

func TestConflictWarning(t *testing.T) {
	c := FieldConflict{
		Path: "android.compileSdk",
		Declarations: []Declaration{
			{Fragment: "v1", Value: fragment.Int(34), Line: 3},
			{Fragment: "v2", Value: fragment.Int(36), Line: 9},
		},
	}
	d := ConflictWarning(c)
	assert.Equal(t, diag.SeverityWarning, d.Severity)
	assert.Equal(t, diag.CodeConflict, d.Code)
	assert.Equal(t, "android.compileSdk has 2 different values: 34 (v1), 36 (v2)", d.Message)
	assert.Equal(t, "v2", d.Fragment)
	assert.Equal(t, 9, d.Line)
	assert.Equal(t, []string{"android.compileSdk"}, d.Paths)
}

package reconcile

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/gradlerec/internal/diag"
	"github.com/dshills/gradlerec/internal/fragment"
)

func TestRun_SupersededRevisions(t *testing.T) {
	sources := []fragment.Source{loadSource(t, "app_v1.gradle.kts"), loadSource(t, "app_v2.gradle.kts")}

	res, err := Run(context.Background(), sources, Options{Version: "test"})
	require.NoError(t, err)
	r := res.Report

	assert.Equal(t, ToolName, r.Tool)
	assert.Equal(t, "test", r.Version)
	assert.Equal(t, "last-wins", r.Policy)
	assert.Equal(t, diag.StatusValid, r.Summary.Status)
	assert.False(t, r.ParseFailed())
	assert.Equal(t, 2, r.Summary.Fragments)

	var conflicted []string
	for _, c := range r.Conflicts {
		conflicted = append(conflicted, c.Path)
	}
	assert.Equal(t, []string{
		"android.compileSdk",
		"android.defaultConfig.minSdk",
		"android.defaultConfig.targetSdk",
		"android.defaultConfig.versionCode",
		"android.defaultConfig.versionName",
	}, conflicted)
	assert.Equal(t, 5, r.Summary.Conflicts)

	assert.Len(t, withCode(r.Diagnostics, diag.CodeConflict), 5)
	assert.Len(t, withCode(r.Diagnostics, diag.CodeDebugSigning), 1)
	assert.Equal(t, 0, r.Summary.Counts.Errors)

	rc := res.Config
	requireValue(t, rc, "android.compileSdk", fragment.Int(35))
	requireValue(t, rc, "android.defaultConfig.minSdk", fragment.Int(21))
	requireValue(t, rc, "android.buildTypes.release.isMinifyEnabled", fragment.Bool(true))
	assert.Equal(t, "app_v2.gradle.kts", rc.Provenance()["android.compileSdk"])
	assert.Equal(t, "app_v1.gradle.kts", rc.Provenance()["android.kotlinOptions.jvmTarget"])
}

func TestRun_RecommendedPolicy(t *testing.T) {
	sources := []fragment.Source{loadSource(t, "app_v1.gradle.kts"), loadSource(t, "app_v2.gradle.kts")}

	res, err := Run(context.Background(), sources, Options{Policy: RecommendedPolicy()})
	require.NoError(t, err)

	e := requireValue(t, res.Config, "android.compileSdk", fragment.Int(36))
	assert.Equal(t, "app_v1.gradle.kts", e.Source)
	requireValue(t, res.Config, "android.defaultConfig.targetSdk", fragment.Int(35))
	requireValue(t, res.Config, "android.defaultConfig.minSdk", fragment.Int(21))

	strategy := withCode(res.Report.Diagnostics, diag.CodeStrategy)
	require.Len(t, strategy, 1)
	assert.Equal(t, []string{"android.defaultConfig.minSdk"}, strategy[0].Paths)
	assert.Equal(t, diag.StatusValid, res.Report.Summary.Status)
}

func TestRun_ParseErrorDoesNotStopOthers(t *testing.T) {
	sources := []fragment.Source{
		loadSource(t, "app_v1.gradle.kts"),
		loadSource(t, "broken.gradle.kts"),
		loadSource(t, "app_v2.gradle.kts"),
	}

	res, err := Run(context.Background(), sources, Options{})
	require.NoError(t, err)
	r := res.Report

	assert.True(t, r.ParseFailed())
	assert.Equal(t, 1, r.Summary.Failed)
	assert.NotEmpty(t, r.Inputs[1].Error)
	assert.Zero(t, r.Inputs[1].Paths)

	parse := withCode(r.Diagnostics, diag.CodeParse)
	require.Len(t, parse, 1)
	assert.Equal(t, "broken.gradle.kts", parse[0].Fragment)
	assert.Equal(t, 1, parse[0].Line)
	assert.Equal(t, diag.StatusInvalid, r.Summary.Status)

	// The broken fragment contributes nothing.
	requireValue(t, res.Config, "android.compileSdk", fragment.Int(35))
	assert.Len(t, res.Fragments, 2)
	assert.Equal(t, []string{"app_v1.gradle.kts", "app_v2.gradle.kts"}, res.Config.Sources())
}

func TestRun_Deterministic(t *testing.T) {
	sources := []fragment.Source{
		loadSource(t, "app_v1.gradle.kts"),
		loadSource(t, "broken.gradle.kts"),
		loadSource(t, "app_v2.gradle.kts"),
	}
	run := func() *Report {
		res, err := Run(context.Background(), sources, Options{Policy: RecommendedPolicy(), Workers: 3})
		require.NoError(t, err)
		return res.Report
	}

	first, second := run(), run()
	if diff := cmp.Diff(first, second, valueComparer); diff != "" {
		t.Errorf("reports differ (-first +second):\n%s", diff)
	}
	assert.Equal(t, InputHash(sources), first.InputHash)
	assert.NotEqual(t, InputHash(sources[:2]), first.InputHash)
}

func TestRun_Redaction(t *testing.T) {
	signing := func(password string) string {
		return `android {
    signingConfigs {
        create("upload") {
            keyAlias = "upload"
            storePassword = "` + password + `"
        }
    }
}
`
	}
	sources := []fragment.Source{
		{Label: "v1.gradle.kts", Content: []byte(signing("hunter2-old"))},
		{Label: "v2.gradle.kts", Content: []byte(signing("hunter2-new"))},
	}

	res, err := Run(context.Background(), sources, Options{RedactSecrets: true, Required: []string{}})
	require.NoError(t, err)

	const path = "android.signingConfigs.upload.storePassword"
	requireValue(t, res.Config, path, fragment.String("hunter2-new"))

	for _, e := range res.Report.Resolved {
		if e.Path == path {
			assert.Equal(t, "[REDACTED]", e.Value.Text())
		}
		if e.Path == "android.signingConfigs.upload.keyAlias" {
			assert.Equal(t, "upload", e.Value.Text())
		}
	}
	require.Len(t, res.Report.Conflicts, 1)
	for _, d := range res.Report.Conflicts[0].Declarations {
		assert.Equal(t, "[REDACTED]", d.Value.Text())
	}
	for _, d := range res.Report.Diagnostics {
		assert.False(t, strings.Contains(d.Message, "hunter2"), "secret leaked: %s", d.Message)
	}
}

func TestRun_RedactPaths(t *testing.T) {
	sources := []fragment.Source{
		{Label: "android/app/build.gradle.kts", Content: []byte("android {\n namespace = \"a\"\n}\n")},
		{Label: "android/secrets/keys.gradle.kts", Content: []byte("android {\n namespace = \"b\"\n}\n")},
	}
	res, err := Run(context.Background(), sources, Options{RedactPaths: []string{"**/secrets/**"}, Required: []string{}})
	require.NoError(t, err)

	require.Len(t, res.Report.Resolved, 1)
	assert.Equal(t, "[REDACTED]", res.Report.Resolved[0].Value.Text())
	decls := res.Report.Conflicts[0].Declarations
	assert.Equal(t, "a", decls[0].Value.Text())
	assert.Equal(t, "[REDACTED]", decls[1].Value.Text())
}

type memCache struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memCache) Get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *memCache) Put(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func TestRun_Cache(t *testing.T) {
	c := &memCache{data: map[string]string{}}
	sources := []fragment.Source{loadSource(t, "app_v1.gradle.kts"), loadSource(t, "app_v2.gradle.kts")}

	first, err := Run(context.Background(), sources, Options{Cache: c})
	require.NoError(t, err)
	second, err := Run(context.Background(), sources, Options{Cache: c})
	require.NoError(t, err)

	assert.Equal(t, 0, first.CacheHits)
	assert.Equal(t, len(sources), second.CacheHits)
	if diff := cmp.Diff(first.Report, second.Report, valueComparer); diff != "" {
		t.Errorf("cached run differs (-fresh +cached):\n%s", diff)
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, []fragment.Source{{Label: "a", Content: []byte("x = 1\n")}}, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestComputeSummary(t *testing.T) {
	inputs := []InputInfo{{Label: "a"}, {Label: "b", Error: "boom"}}
	diags := []diag.Diagnostic{
		diag.Warningf(diag.CodeConflict, "w"),
		diag.Errorf(diag.CodeSDKOrder, "e"),
	}
	s := ComputeSummary(inputs, 7, 1, diags)
	assert.Equal(t, Summary{
		Status:    diag.StatusInvalid,
		Counts:    diag.Counts{Errors: 1, Warnings: 1},
		Fragments: 2,
		Failed:    1,
		Paths:     7,
		Conflicts: 1,
	}, s)
}

package reconcile

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/dshills/gradlerec/internal/diag"
	"github.com/dshills/gradlerec/internal/fragment"
)

var noRequired = ValidateOptions{Required: []string{}}

func sdkFragment(minSdk, targetSdk, compileSdk fragment.Value) *fragment.Fragment {
	var kv []any
	if !minSdk.IsZero() {
		kv = append(kv, "android.defaultConfig.minSdk", minSdk)
	}
	if !targetSdk.IsZero() {
		kv = append(kv, "android.defaultConfig.targetSdk", targetSdk)
	}
	if !compileSdk.IsZero() {
		kv = append(kv, "android.compileSdk", compileSdk)
	}
	return frag("app", kv...)
}

func TestValidate_SDKOrder(t *testing.T) {
	tests := []struct {
		name          string
		min, tgt, cmp fragment.Value
		want          []diag.Code
	}{
		{"ordered", fragment.Int(21), fragment.Int(34), fragment.Int(34), nil},
		{"min above target", fragment.Int(35), fragment.Int(34), fragment.Int(35), []diag.Code{diag.CodeSDKOrder}},
		{"target above compile", fragment.Int(21), fragment.Int(36), fragment.Int(35), []diag.Code{diag.CodeSDKOrder}},
		{"both violated", fragment.Int(36), fragment.Int(35), fragment.Int(34), []diag.Code{diag.CodeSDKOrder, diag.CodeSDKOrder}},
		{"symbolic min", fragment.Expr("flutter.minSdkVersion"), fragment.Int(34), fragment.Int(33),
			[]diag.Code{diag.CodeSDKSymbolic, diag.CodeSDKOrder}},
		{"symbolic target still compares min and compile", fragment.Int(30), fragment.Expr("flutter.targetSdkVersion"), fragment.Int(29),
			[]diag.Code{diag.CodeSDKSymbolic, diag.CodeSDKOrder}},
		{"string levels", fragment.String("21"), fragment.String("34"), fragment.Int(34), nil},
		{"missing target", fragment.Int(21), fragment.Value{}, fragment.Int(34), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diags := Validate(resolved(sdkFragment(tt.min, tt.tgt, tt.cmp)), noRequired)
			if diff := cmp.Diff(tt.want, codes(diags), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("codes mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidate_SDKOrderMessage(t *testing.T) {
	f1 := frag("v1", "android.defaultConfig.targetSdk", fragment.Int(35))
	f2 := frag("v2", "android.compileSdk", fragment.Int(34))
	diags := Validate(resolved(f1, f2), noRequired)
	require.Len(t, diags, 1)
	assert.Equal(t, diag.SeverityError, diags[0].Severity)
	assert.Equal(t, "targetSdk 35 (from v1) exceeds compileSdk 34 (from v2)", diags[0].Message)
	assert.Equal(t, []string{"android.defaultConfig.targetSdk", "android.compileSdk"}, diags[0].Paths)
}

func TestValidate_AliasPaths(t *testing.T) {
	f := mustParse(t, "groovy.gradle", `android {
    compileSdkVersion 33
    defaultConfig {
        applicationId "com.example"
        minSdkVersion 21
        targetSdkVersion 34
    }
}
`)
	diags := Validate(resolved(f), ValidateOptions{})
	require.Len(t, diags, 1)
	assert.Equal(t, diag.CodeSDKOrder, diags[0].Code)
	assert.Contains(t, diags[0].Message, "targetSdk 34")
}

func TestValidate_AliasDisagreement(t *testing.T) {
	f := frag("app", "android.compileSdk", fragment.Int(34), "android.compileSdkVersion", fragment.Int(33))
	diags := Validate(resolved(f), noRequired)
	require.Len(t, diags, 1)
	assert.Equal(t, diag.CodeConflict, diags[0].Code)
	assert.Equal(t, []string{"android.compileSdk", "android.compileSdkVersion"}, diags[0].Paths)
}

func TestValidate_Required(t *testing.T) {
	f := frag("app", "android.compileSdk", fragment.Int(34), "android.namespace", fragment.String("a"))

	diags := Validate(resolved(f), ValidateOptions{})
	require.Len(t, diags, 1)
	assert.Equal(t, diag.CodeRequired, diags[0].Code)
	assert.Equal(t, diag.SeverityError, diags[0].Severity)
	assert.Equal(t, []string{"android.defaultConfig.applicationId"}, diags[0].Paths)

	diags = Validate(resolved(f), ValidateOptions{Required: []string{"namespace", "flutter.source", "**.jvmTarget"}})
	assert.Equal(t, []diag.Code{diag.CodeRequired, diag.CodeRequired}, codes(diags))
	assert.Contains(t, diags[0].Message, "flutter.source")
	assert.Contains(t, diags[1].Message, "**.jvmTarget")

	diags = Validate(resolved(f), ValidateOptions{Required: []string{"android.*"}})
	assert.Empty(t, diags)
}

func TestValidate_PluginDuplication(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []diag.Code
	}{
		{"distinct", `plugins {
    id("com.android.application")
    id("kotlin-android")
    id("dev.flutter.flutter-gradle-plugin")
}`, nil},
		{"repeated id", `plugins {
    id("com.android.application")
    id("com.android.application")
}`, []diag.Code{diag.CodePluginDup}},
		{"kotlin shorthand and full id", `plugins {
    id("org.jetbrains.kotlin.android")
    kotlin("android")
}`, []diag.Code{diag.CodePluginDup}},
		{"plugins block and apply", `plugins { id("com.android.application") }
apply plugin: "com.android.application"
`, []diag.Code{diag.CodePluginDup}},
		{"legacy alias", `plugins {
    id("kotlin-android")
    kotlin("android")
}`, []diag.Code{diag.CodePluginAlias}},
		{"repeated id and alias", `plugins {
    id("kotlin-android")
    id("kotlin-android")
    kotlin("android")
}`, []diag.Code{diag.CodePluginDup, diag.CodePluginAlias}},
	}
	severity := map[diag.Code]diag.Severity{
		diag.CodePluginDup:   diag.SeverityError,
		diag.CodePluginAlias: diag.SeverityWarning,
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []diag.Code
			for _, d := range Validate(resolved(mustParse(t, "app.gradle.kts", tt.src)), noRequired) {
				if d.Code != diag.CodePluginDup && d.Code != diag.CodePluginAlias {
					continue
				}
				got = append(got, d.Code)
				assert.Equal(t, severity[d.Code], d.Severity, d.Message)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidate_BuildTypes(t *testing.T) {
	f := mustParse(t, "app.gradle.kts", `android {
    buildTypes {
        release {
            isMinifyEnabled = true
            signingConfig = signingConfigs.getByName("debug")
        }
        getByName("debug") { isMinifyEnabled = true; proguardFiles("debug.pro") }
        create("staging") { isMinifyEnabled = false }
    }
}
`)
	diags := Validate(resolved(f), noRequired)
	assert.Equal(t, []diag.Code{diag.CodeMinify, diag.CodeDebugSigning}, codes(diags))
	assert.Contains(t, diags[0].Message, "release")
	assert.Equal(t, []string{"android.buildTypes.release.signingConfig"}, diags[1].Paths)
}

func TestValidate_OriginalScript(t *testing.T) {
	src := loadSource(t, "app_v1.gradle.kts")
	f := mustParse(t, src.Label, string(src.Content))
	diags := Validate(resolved(f), ValidateOptions{})
	assert.Equal(t, []diag.Code{diag.CodeSDKSymbolic, diag.CodeDebugSigning}, codes(diags))
	assert.Equal(t, diag.StatusValid, diag.StatusOf(diags))
}

func TestValidate_DoesNotMutate(t *testing.T) {
	f := mustParse(t, "app.gradle.kts", `android {
    compileSdk = 34
    defaultConfig { minSdk = 35 }
}`)
	rc := resolved(f)
	before := rc.Entries()
	Validate(rc, ValidateOptions{})
	if diff := cmp.Diff(before, rc.Entries(), valueComparer); diff != "" {
		t.Errorf("Validate modified the config (-before +after):\n%s", diff)
	}
}

// For any SDK levels, the ordering holds or an sdk-order error is reported.
func TestValidate_SDKOrderProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		lo := int64(rapid.IntRange(1, 40).Draw(t, "minSdk"))
		mid := int64(rapid.IntRange(1, 40).Draw(t, "targetSdk"))
		hi := int64(rapid.IntRange(1, 40).Draw(t, "compileSdk"))

		diags := Validate(resolved(sdkFragment(fragment.Int(lo), fragment.Int(mid), fragment.Int(hi))), noRequired)
		ordered := lo <= mid && mid <= hi
		hasErr := len(withCode(diags, diag.CodeSDKOrder)) > 0
		if ordered == hasErr {
			t.Fatalf("min=%d target=%d compile=%d: ordered=%v but sdk-order reported=%v", lo, mid, hi, ordered, hasErr)
		}
		if got := diag.StatusOf(diags); (got == diag.StatusValid) != ordered {
			t.Fatalf("status %s for ordered=%v", got, ordered)
		}
	})
}

package reconcile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dshills/gradlerec/internal/diag"
	"github.com/dshills/gradlerec/internal/fragment"
	"github.com/dshills/gradlerec/internal/pathglob"
)

// DefaultRequired are the fields every application module must resolve.
var DefaultRequired = []string{"applicationId", "compileSdk"}

// fieldAliases maps short field names to the full paths that may declare
// them, in order of preference.
var fieldAliases = map[string][]string{
	"applicationId": {"android.defaultConfig.applicationId"},
	"namespace":     {"android.namespace"},
	"compileSdk":    {"android.compileSdk", "android.compileSdkVersion"},
	"minSdk":        {"android.defaultConfig.minSdk", "android.defaultConfig.minSdkVersion"},
	"targetSdk":     {"android.defaultConfig.targetSdk", "android.defaultConfig.targetSdkVersion"},
	"versionCode":   {"android.defaultConfig.versionCode"},
	"versionName":   {"android.defaultConfig.versionName"},
	"ndkVersion":    {"android.ndkVersion"},
}

// pluginAliases maps legacy plugin ids to their canonical ids.
var pluginAliases = map[string]string{
	"kotlin-android":   "org.jetbrains.kotlin.android",
	"kotlin-kapt":      "org.jetbrains.kotlin.kapt",
	"kotlin-parcelize": "org.jetbrains.kotlin.plugin.parcelize",
	"kotlin":           "org.jetbrains.kotlin.jvm",
}

// ValidateOptions controls Validate.
type ValidateOptions struct {
	// Required lists field names (see fieldAliases) or path patterns that
	// must resolve. Nil means DefaultRequired; an empty non-nil slice
	// disables the check.
	Required []string
}

// Validate checks a resolved configuration. It never modifies rc.
func Validate(rc *ResolvedConfig, opts ValidateOptions) []diag.Diagnostic {
	var diags []diag.Diagnostic
	diags = append(diags, checkRequired(rc, opts.Required)...)
	diags = append(diags, checkSDKOrder(rc)...)
	diags = append(diags, checkPlugins(rc)...)
	diags = append(diags, checkBuildTypes(rc)...)
	return diags
}

// field resolves a short field name through its aliases. When more than
// one alias is set to different values a warning is returned as well.
func field(rc *ResolvedConfig, name string) (ResolvedEntry, *diag.Diagnostic, bool) {
	var found []ResolvedEntry
	for _, p := range fieldAliases[name] {
		if e, ok := rc.Lookup(p); ok {
			found = append(found, e)
		}
	}
	if len(found) == 0 {
		return ResolvedEntry{}, nil, false
	}
	for _, e := range found[1:] {
		if !e.Value.Equal(found[0].Value) {
			d := diag.Warningf(diag.CodeConflict, "%s is set to %s by %s and %s by %s; using %s",
				name, found[0].Value, found[0].Path, e.Value, e.Path, found[0].Path).
				At(e.Source, 0).On(found[0].Path, e.Path)
			return found[0], &d, true
		}
	}
	return found[0], nil, true
}

func checkRequired(rc *ResolvedConfig, required []string) []diag.Diagnostic {
	if required == nil {
		required = DefaultRequired
	}
	var diags []diag.Diagnostic
	for _, name := range required {
		if _, ok := fieldAliases[name]; ok {
			if _, _, ok := field(rc, name); ok {
				continue
			}
			diags = append(diags, diag.Errorf(diag.CodeRequired,
				"required field %s is not set (expected %s)", name, strings.Join(fieldAliases[name], " or ")).
				On(fieldAliases[name]...))
			continue
		}
		if anyPath(rc, name) {
			continue
		}
		diags = append(diags, diag.Errorf(diag.CodeRequired, "required field %s is not set", name).On(name))
	}
	return diags
}

func anyPath(rc *ResolvedConfig, pattern string) bool {
	if _, ok := rc.Lookup(pattern); ok {
		return true
	}
	for _, e := range rc.entries {
		if pathglob.Match(pattern, e.Path, '.') {
			return true
		}
	}
	return false
}

type sdkLevel struct {
	name  string
	entry ResolvedEntry
	ver   []int64
}

func checkSDKOrder(rc *ResolvedConfig) []diag.Diagnostic {
	var (
		diags  []diag.Diagnostic
		levels []sdkLevel
	)
	for _, name := range []string{"minSdk", "targetSdk", "compileSdk"} {
		e, warn, ok := field(rc, name)
		if warn != nil {
			diags = append(diags, *warn)
		}
		if !ok {
			continue
		}
		ver, numeric := e.Value.Version()
		if !numeric {
			diags = append(diags, diag.Warningf(diag.CodeSDKSymbolic,
				"%s is %s, which cannot be checked statically", e.Path, e.Value).
				At(e.Source, 0).On(e.Path))
			continue
		}
		levels = append(levels, sdkLevel{name: name, entry: e, ver: ver})
	}

	// Adjacent numeric levels; if targetSdk is symbolic or missing, minSdk
	// is still compared against compileSdk.
	for i := 1; i < len(levels); i++ {
		lo, hi := levels[i-1], levels[i]
		if fragment.CompareVersions(lo.ver, hi.ver) <= 0 {
			continue
		}
		diags = append(diags, diag.Errorf(diag.CodeSDKOrder,
			"%s %s (from %s) exceeds %s %s (from %s)",
			lo.name, lo.entry.Value, lo.entry.Source, hi.name, hi.entry.Value, hi.entry.Source).
			On(lo.entry.Path, hi.entry.Path))
	}
	return diags
}

type pluginRef struct {
	id   string
	raw  string
	path string
	src  string
}

func collectPlugins(rc *ResolvedConfig) []pluginRef {
	var refs []pluginRef
	add := func(path string, prefix string) {
		e, ok := rc.Lookup(path)
		if !ok {
			return
		}
		items := e.Value.Items()
		if e.Value.Kind() != fragment.KindList {
			items = []fragment.Value{e.Value}
		}
		for _, it := range items {
			if it.Kind() != fragment.KindString {
				continue
			}
			refs = append(refs, pluginRef{id: prefix + it.Text(), raw: it.Text(), path: path, src: e.Source})
		}
	}
	add("plugins.id", "")
	add("plugins.kotlin", "org.jetbrains.kotlin.")
	add("apply.plugin", "")
	return refs
}

func checkPlugins(rc *ResolvedConfig) []diag.Diagnostic {
	refs := collectPlugins(rc)
	var diags []diag.Diagnostic

	byID := make(map[string][]pluginRef)
	var ids []string
	for _, r := range refs {
		if _, ok := byID[r.id]; !ok {
			ids = append(ids, r.id)
		}
		byID[r.id] = append(byID[r.id], r)
	}
	for _, id := range ids {
		rs := byID[id]
		if len(rs) < 2 {
			continue
		}
		diags = append(diags, diag.Errorf(diag.CodePluginDup,
			"plugin %s is applied %d times (%s)", id, len(rs), describeRefs(rs)).
			At(rs[len(rs)-1].src, 0).On(refPaths(rs)...))
	}

	for _, id := range ids {
		canon, ok := pluginAliases[id]
		if !ok {
			continue
		}
		other, ok := byID[canon]
		if !ok {
			continue
		}
		rs := append(append([]pluginRef(nil), byID[id]...), other...)
		diags = append(diags, diag.Warningf(diag.CodePluginAlias,
			"plugin %s is an alias of %s; both are applied (%s)", id, canon, describeRefs(rs)).
			At(rs[len(rs)-1].src, 0).On(refPaths(rs)...))
	}
	return diags
}

func describeRefs(rs []pluginRef) string {
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = fmt.Sprintf("%s %q", r.path, r.raw)
	}
	return strings.Join(parts, ", ")
}

func refPaths(rs []pluginRef) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range rs {
		if !seen[r.path] {
			seen[r.path] = true
			out = append(out, r.path)
		}
	}
	return out
}

const buildTypesPrefix = "android.buildTypes."

func checkBuildTypes(rc *ResolvedConfig) []diag.Diagnostic {
	types := make(map[string]bool)
	for _, e := range rc.entries {
		rest, ok := strings.CutPrefix(e.Path, buildTypesPrefix)
		if !ok {
			continue
		}
		if name, _, ok := strings.Cut(rest, "."); ok {
			types[name] = true
		}
	}
	names := make([]string, 0, len(types))
	for n := range types {
		names = append(names, n)
	}
	sort.Strings(names)

	var diags []diag.Diagnostic
	for _, name := range names {
		base := buildTypesPrefix + name + "."
		minify := firstEntry(rc, base+"isMinifyEnabled", base+"minifyEnabled")
		if minify != nil && minify.Value.Equal(fragment.Bool(true)) {
			if firstEntry(rc, base+"proguardFiles", base+"proguardFile") == nil {
				diags = append(diags, diag.Warningf(diag.CodeMinify,
					"build type %s enables minification without proguardFiles", name).
					At(minify.Source, 0).On(minify.Path))
			}
		}
		if name != "release" {
			continue
		}
		if sc := firstEntry(rc, base+"signingConfig"); sc != nil && signsWithDebug(sc.Value) {
			diags = append(diags, diag.Warningf(diag.CodeDebugSigning,
				"release build type is signed with the debug signing config").
				At(sc.Source, 0).On(sc.Path))
		}
	}
	return diags
}

func firstEntry(rc *ResolvedConfig, paths ...string) *ResolvedEntry {
	for _, p := range paths {
		if e, ok := rc.Lookup(p); ok {
			return &e
		}
	}
	return nil
}

func signsWithDebug(v fragment.Value) bool {
	t := strings.ReplaceAll(v.Text(), "'", `"`)
	return strings.Contains(t, `getByName("debug")`) || strings.HasSuffix(t, "signingConfigs.debug")
}

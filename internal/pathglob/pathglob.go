// Package pathglob matches separator-delimited paths against glob patterns.
//
// Patterns are split on the separator and matched segment by segment. Within a
// segment the [path.Match] syntax applies (*, ?, [classes]); a segment that is
// exactly ** matches zero or more whole segments. A pattern that contains no
// separator is matched against the last segment only, so "compileSdk" matches
// "android.compileSdk" and "*.gradle.kts" matches "android/app/build.gradle.kts".
//
// The same matcher serves dotted configuration paths (sep '.') and file paths
// (sep '/').
package pathglob

import (
	"fmt"
	"path"
	"strings"
)

// Match reports whether name matches pattern under the given separator.
// Malformed patterns never match; use [Validate] to reject them up front.
func Match(pattern, name string, sep byte) bool {
	if pattern == "" {
		return false
	}
	segs := strings.Split(name, string(sep))
	if strings.IndexByte(pattern, sep) < 0 && pattern != "**" {
		ok, err := path.Match(pattern, segs[len(segs)-1])
		return err == nil && ok
	}
	return matchSegments(strings.Split(pattern, string(sep)), segs)
}

// MatchAny reports whether name matches any of the patterns.
func MatchAny(name string, patterns []string, sep byte) bool {
	for _, p := range patterns {
		if Match(p, name, sep) {
			return true
		}
	}
	return false
}

// Validate returns an error if any segment of pattern is malformed.
func Validate(pattern string, sep byte) error {
	if pattern == "" {
		return fmt.Errorf("empty pattern")
	}
	for _, seg := range strings.Split(pattern, string(sep)) {
		if seg == "**" {
			continue
		}
		if _, err := path.Match(seg, ""); err != nil {
			return fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
	}
	return nil
}

func matchSegments(pat, segs []string) bool {
	for len(pat) > 0 {
		if pat[0] == "**" {
			rest := pat[1:]
			if len(rest) == 0 {
				return true
			}
			for i := 0; i <= len(segs); i++ {
				if matchSegments(rest, segs[i:]) {
					return true
				}
			}
			return false
		}
		if len(segs) == 0 {
			return false
		}
		ok, err := path.Match(pat[0], segs[0])
		if err != nil || !ok {
			return false
		}
		pat, segs = pat[1:], segs[1:]
	}
	return len(segs) == 0
}

package redact

import (
	"regexp"
	"strings"

	"github.com/dshills/gradlerec/internal/pathglob"
)

// Placeholder replaces redacted text.
const Placeholder = "[REDACTED]"

// secretPatterns are regex heuristics for common secret types.
var secretPatterns = []*regexp.Regexp{
	// Generic API keys (long strings after common key patterns)
	regexp.MustCompile(`(?i)(api[_-]?key|apikey|api[_-]?secret)\s*[:=]\s*["']?([A-Za-z0-9/+=_-]{20,})["']?`),
	// AWS access key IDs
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	// Signing and generic passwords, secrets and tokens in assignments
	regexp.MustCompile(`(?i)(password|secret|token|passwd|credential)\s*[:=]\s*["']([^"']+)["']`),
	// Bearer tokens
	regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9._-]{20,}`),
	// JWTs (three base64 segments separated by dots)
	regexp.MustCompile(`eyJ[A-Za-z0-9_-]{10,}\.eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`),
	// Private key blocks
	regexp.MustCompile(`-----BEGIN\s+(RSA\s+)?PRIVATE KEY-----`),
	// GitHub tokens
	regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{36,}`),
	// Slack tokens
	regexp.MustCompile(`xox[bporas]-[A-Za-z0-9-]{10,}`),
}

// secretKeyMarkers are lower-case substrings of path segments that hold
// secrets.
var secretKeyMarkers = []string{"password", "passwd", "secret", "token", "apikey", "api_key", "credential"}

var quotedRe = regexp.MustCompile(`"(?:[^"\\]|\\.)*"`)

// Secrets replaces detected secrets in text with [REDACTED].
func Secrets(text string) string {
	result := text
	for _, pat := range secretPatterns {
		result = pat.ReplaceAllString(result, Placeholder)
	}
	return result
}

// IsSecretPath reports whether the last segment of a dotted configuration
// path names a secret, as in android.signingConfigs.upload.storePassword.
func IsSecretPath(path string) bool {
	seg := path
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		seg = path[i+1:]
	}
	seg = strings.ToLower(seg)
	for _, m := range secretKeyMarkers {
		if strings.Contains(seg, m) {
			return true
		}
	}
	return false
}

// AnySecretPath reports whether any of the paths names a secret.
func AnySecretPath(paths []string) bool {
	for _, p := range paths {
		if IsSecretPath(p) {
			return true
		}
	}
	return false
}

// Quoted replaces every double-quoted literal in text with a quoted
// placeholder. It is used on messages that quote secret values.
func Quoted(text string) string {
	return quotedRe.ReplaceAllString(text, `"`+Placeholder+`"`)
}

// ShouldRedactPath checks if a file path matches any of the redaction path
// patterns. Patterns without a slash match the file name.
func ShouldRedactPath(path string, patterns []string) bool {
	path = strings.TrimPrefix(path, "./")
	return pathglob.MatchAny(path, patterns, '/')
}

// Package redact masks secrets in reconciliation reports.
//
// Signing passwords, tokens and keys often live in build scripts. The
// canonical document keeps them as declared; reports, which are printed,
// posted to pull requests and cached in CI logs, do not.
//
// Three mechanisms are offered: configuration paths whose last segment names
// a secret (storePassword, keyPassword, apiToken, ...) have their values
// replaced; free text is scanned with regex heuristics for common secret
// shapes (API keys, JWTs, private keys, AWS, GitHub and Slack tokens); and
// fragments whose file path matches a glob have every value masked.
package redact

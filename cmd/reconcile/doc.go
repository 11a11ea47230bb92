// Reconcile merges Gradle build configuration fragments into one validated,
// canonical configuration.
//
// It parses every fragment, detects paths declared with different values,
// resolves them with an explicit policy, validates the result, and reports
// with deterministic exit codes suitable for CI gating and git hooks.
//
// Usage:
//
//	reconcile app/build.gradle.kts overrides.gradle.kts --out merged.gradle
//	reconcile run . --policy policy.yaml --format sarif --report out.sarif
//	reconcile run . --out merged.gradle --check   # fail if merged.gradle is stale
//	reconcile history app/build.gradle --limit 5  # reconcile past revisions
//	reconcile watch app/                          # re-run on change
//
// Exit codes: 0 valid, 1 invalid, 2 parse error, 3 usage error, 4 runtime error.
package main

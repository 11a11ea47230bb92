// Package fragment parses Gradle build-script fragments into ordered
// dotted-path entries.
//
// Both the Kotlin DSL (build.gradle.kts) and Groovy (build.gradle) surface
// syntaxes are understood well enough to extract declarative configuration:
// nested blocks become path segments (android.defaultConfig.minSdk), property
// assignments become scalar entries, and declarations inside plugins,
// dependencies, and repositories blocks accumulate into lists.
//
// Parsing never fails on unrecognized syntax; such statements are skipped
// with a warning diagnostic. Only structurally malformed input (unbalanced
// braces, brackets, or unterminated strings) yields a [*ParseError].
//
// [ParseAll] parses many sources concurrently, optionally through a content
// addressed [Cache], and returns results in input order.
package fragment

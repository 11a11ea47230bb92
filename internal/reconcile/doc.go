// Package reconcile merges parsed build-configuration fragments into one
// resolved configuration.
//
// The pipeline runs in four stages: fragments are parsed (in parallel),
// conflicting paths are detected, a [Policy] picks a winner for every path,
// and the result is validated. [Run] drives all four and returns a [Report].
package reconcile

// Package watch re-runs a callback when build files change.
//
// Directories are watched recursively, except those the caller skips, and
// directories created later are picked up as they appear. Events are
// batched: the callback fires once the watched tree has been quiet for the
// debounce window, with the sorted set of paths that changed.
package watch

// Package cache provides a file-based cache for parsed build fragments.
//
// Entries are keyed by a SHA-256 hash of caller-supplied key material; the
// fragment parser keys on parser version, label and content digest, so an
// edited file or a parser upgrade never reads a stale entry. Each entry
// stores the serialized value with a creation timestamp and a TTL (in
// seconds). Expired entries are skipped on read and removed by Clear.
//
// The default cache directory is $XDG_CACHE_HOME/gradlerec (or the
// OS-appropriate equivalent).
package cache

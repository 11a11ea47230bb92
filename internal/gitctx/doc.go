// Package gitctx reads build fragments and repository metadata from git.
//
// [FileHistory] lists the commits that touched one file, oldest first, and
// [HistorySources] turns each revision of the file into a fragment source
// labelled path@shortsha. Reconciling those sources with last-wins yields
// the newest revision while reporting every value that changed along the
// way. All functions shell out to git in the current directory.
package gitctx

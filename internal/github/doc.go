// Package github provides a minimal GitHub REST API client for publishing
// reconciliation reports on pull requests.
//
// The report is kept in a single sticky conversation comment identified by
// [CommentMarker]; diagnostics that point at a line of a changed build file
// can also be posted as inline review comments. The repository is detected
// from the local git remote and the token is read from GITHUB_TOKEN.
package github

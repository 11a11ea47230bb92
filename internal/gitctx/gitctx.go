package gitctx

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/dshills/gradlerec/internal/fragment"
)

// RepoMeta contains git repository metadata.
type RepoMeta struct {
	Root   string
	Head   string
	Branch string
}

// GetRepoMeta collects repository metadata from git.
func GetRepoMeta() (RepoMeta, error) {
	root, err := gitOutput("rev-parse", "--show-toplevel")
	if err != nil {
		return RepoMeta{}, fmt.Errorf("not a git repository: %w", err)
	}
	head, err := gitOutput("rev-parse", "HEAD")
	if err != nil {
		head = "" // new repo with no commits
	}
	branch, err := gitOutput("rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		branch = ""
	}
	return RepoMeta{
		Root:   strings.TrimSpace(root),
		Head:   strings.TrimSpace(head),
		Branch: strings.TrimSpace(branch),
	}, nil
}

// HooksDir returns the directory git runs hooks from. It honors
// core.hooksPath and linked worktrees.
func HooksDir() (string, error) {
	out, err := gitOutput("rev-parse", "--git-path", "hooks")
	if err != nil {
		return "", fmt.Errorf("not a git repository (git rev-parse --git-path hooks failed)")
	}
	dir, err := filepath.Abs(strings.TrimSpace(out))
	if err != nil {
		return "", fmt.Errorf("resolving hooks directory: %w", err)
	}
	return dir, nil
}

// Revision is one commit that touched a file.
type Revision struct {
	SHA     string
	Short   string
	Subject string
	// Path is the file's repository-relative path at this revision, which
	// differs from the requested path before a rename.
	Path string
	// Deleted is set for the commit that removed the file.
	Deleted bool
}

// FileHistory returns the non-merge commits that changed path, following
// renames, oldest first. A positive limit keeps only the newest limit
// revisions.
func FileHistory(path string, limit int) ([]Revision, error) {
	args := []string{"log", "--follow", "--no-merges", "--name-status", "--format=%x1e%H%x00%h%x00%s"}
	if limit > 0 {
		args = append(args, fmt.Sprintf("-n%d", limit))
	}
	args = append(args, "--", path)
	out, err := gitOutput(args...)
	if err != nil {
		return nil, fmt.Errorf("git log %s: %w", path, err)
	}

	var revs []Revision
	for _, record := range strings.Split(out, "\x1e") {
		lines := strings.Split(strings.TrimSpace(record), "\n")
		parts := strings.SplitN(lines[0], "\x00", 3)
		if len(parts) < 2 {
			continue
		}
		r := Revision{SHA: parts[0], Short: parts[1]}
		if len(parts) == 3 {
			r.Subject = parts[2]
		}
		for _, line := range lines[1:] {
			fields := strings.Split(strings.TrimSpace(line), "\t")
			if len(fields) < 2 {
				continue
			}
			// Renames and copies list the old path first.
			r.Path = fields[len(fields)-1]
			r.Deleted = strings.HasPrefix(fields[0], "D")
		}
		if r.Path == "" {
			return nil, fmt.Errorf("git log %s: no file status for commit %s", path, r.Short)
		}
		revs = append(revs, r)
	}
	// git log lists newest first.
	for i, j := 0, len(revs)-1; i < j; i, j = i+1, j-1 {
		revs[i], revs[j] = revs[j], revs[i]
	}
	return revs, nil
}

// Show returns the content of path at rev. Relative paths are resolved
// against the current directory.
func Show(rev, path string) ([]byte, error) {
	spec := rev + ":" + path
	if !filepath.IsAbs(path) && !strings.HasPrefix(path, "./") && !strings.HasPrefix(path, "../") {
		spec = rev + ":./" + path
	}
	return show(spec)
}

func show(spec string) ([]byte, error) {
	out, err := gitOutput("show", spec)
	if err != nil {
		return nil, fmt.Errorf("git show %s: %w", spec, err)
	}
	return []byte(out), nil
}

// HistorySources returns one fragment source per revision of path, oldest
// first, labelled path@shortsha with the path the file had at that
// revision. Commits that deleted the file contribute no source; any other
// failure to read a revision is an error.
func HistorySources(path string, limit int) ([]fragment.Source, []Revision, error) {
	revs, err := FileHistory(path, limit)
	if err != nil {
		return nil, nil, err
	}
	if len(revs) == 0 {
		return nil, nil, fmt.Errorf("no history for %s", path)
	}
	var (
		sources []fragment.Source
		kept    []Revision
	)
	for _, r := range revs {
		if r.Deleted {
			continue
		}
		content, err := show(r.SHA + ":" + r.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("reading %s at %s: %w", r.Path, r.Short, err)
		}
		sources = append(sources, fragment.Source{Label: r.Path + "@" + r.Short, Content: content})
		kept = append(kept, r)
	}
	if len(sources) == 0 {
		return nil, nil, fmt.Errorf("%s is not present in any revision", path)
	}
	return sources, kept, nil
}

func gitOutput(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return string(out), fmt.Errorf("%s: %s", err, string(exitErr.Stderr))
		}
		return "", err
	}
	return string(out), nil
}

package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/dshills/gradlerec/internal/diag"
)

const defaultAPIURL = "https://api.github.com"

// CommentMarker tags the sticky report comment so later runs update it
// instead of adding another.
const CommentMarker = "<!-- gradlerec-report -->"

// Client provides access to the GitHub REST API.
type Client struct {
	token   string
	apiURL  string
	httpCli *http.Client
}

// NewClient creates a new GitHub client. Requires GITHUB_TOKEN env var.
func NewClient() (*Client, error) {
	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("GITHUB_TOKEN environment variable is not set")
	}

	apiURL := os.Getenv("GITHUB_API_URL")
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	apiURL = strings.TrimRight(apiURL, "/")

	return &Client{
		token:   token,
		apiURL:  apiURL,
		httpCli: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Sprintf("authentication failed: %s", e.Body)
	case http.StatusUnprocessableEntity:
		return fmt.Sprintf("GitHub rejected request (422): %s", e.Body)
	default:
		return fmt.Sprintf("GitHub API error (status %d): %s", e.StatusCode, e.Body)
	}
}

// do sends a JSON request and decodes a JSON response into out if non-nil.
func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}
	}
	return nil
}

// PRFile represents a file changed in a pull request.
type PRFile struct {
	Filename string `json:"filename"`
	Status   string `json:"status,omitempty"`
}

// GetPRFiles fetches the files changed in a pull request, excluding
// removed ones.
func (c *Client) GetPRFiles(ctx context.Context, owner, repo string, prNumber int) ([]string, error) {
	var names []string
	for page := 1; ; page++ {
		var files []PRFile
		path := fmt.Sprintf("/repos/%s/%s/pulls/%d/files?per_page=100&page=%d", owner, repo, prNumber, page)
		if err := c.do(ctx, http.MethodGet, path, nil, &files); err != nil {
			return nil, prError(err, owner, repo, prNumber)
		}
		for _, f := range files {
			if f.Status != "removed" {
				names = append(names, f.Filename)
			}
		}
		if len(files) < 100 {
			return names, nil
		}
	}
}

// IssueComment is a pull-request conversation comment.
type IssueComment struct {
	ID   int64  `json:"id"`
	Body string `json:"body"`
}

// ListComments fetches every conversation comment on a pull request.
func (c *Client) ListComments(ctx context.Context, owner, repo string, prNumber int) ([]IssueComment, error) {
	var all []IssueComment
	for page := 1; ; page++ {
		var batch []IssueComment
		path := fmt.Sprintf("/repos/%s/%s/issues/%d/comments?per_page=100&page=%d", owner, repo, prNumber, page)
		if err := c.do(ctx, http.MethodGet, path, nil, &batch); err != nil {
			return nil, prError(err, owner, repo, prNumber)
		}
		all = append(all, batch...)
		if len(batch) < 100 {
			return all, nil
		}
	}
}

// UpsertComment edits the comment carrying CommentMarker, or creates one.
// It reports whether an existing comment was updated.
func (c *Client) UpsertComment(ctx context.Context, owner, repo string, prNumber int, body string) (updated bool, err error) {
	if !strings.Contains(body, CommentMarker) {
		body = CommentMarker + "\n" + body
	}
	comments, err := c.ListComments(ctx, owner, repo, prNumber)
	if err != nil {
		return false, err
	}
	payload := map[string]string{"body": body}
	for _, cm := range comments {
		if strings.Contains(cm.Body, CommentMarker) {
			path := fmt.Sprintf("/repos/%s/%s/issues/comments/%d", owner, repo, cm.ID)
			if err := c.do(ctx, http.MethodPatch, path, payload, nil); err != nil {
				return false, fmt.Errorf("updating comment %d: %w", cm.ID, err)
			}
			return true, nil
		}
	}
	path := fmt.Sprintf("/repos/%s/%s/issues/%d/comments", owner, repo, prNumber)
	if err := c.do(ctx, http.MethodPost, path, payload, nil); err != nil {
		return false, fmt.Errorf("creating comment: %w", err)
	}
	return false, nil
}

func prError(err error, owner, repo string, prNumber int) error {
	var ae *APIError
	if errors.As(err, &ae) && ae.StatusCode == http.StatusNotFound {
		return fmt.Errorf("PR #%d not found in %s/%s", prNumber, owner, repo)
	}
	return err
}

// ReviewComment represents an inline comment on a PR review.
type ReviewComment struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Body string `json:"body"`
}

// ReviewRequest represents a PR review to post.
type ReviewRequest struct {
	Body     string          `json:"body"`
	Event    string          `json:"event"`
	Comments []ReviewComment `json:"comments"`
}

// PostReview posts a pull request review with inline comments.
func (c *Client) PostReview(ctx context.Context, owner, repo string, prNumber int, review ReviewRequest) error {
	path := fmt.Sprintf("/repos/%s/%s/pulls/%d/reviews", owner, repo, prNumber)
	if err := c.do(ctx, http.MethodPost, path, review, nil); err != nil {
		return fmt.Errorf("posting review: %w", err)
	}
	return nil
}

// BuildReview turns located diagnostics into inline review comments.
// diffFiles is the set of repository paths changed by the PR and repoPath
// maps a fragment label to its repository path (nil means identity).
// Diagnostics without a line in a changed file are left to the summary.
func BuildReview(diags []diag.Diagnostic, summary string, diffFiles map[string]bool, repoPath func(string) string) ReviewRequest {
	if repoPath == nil {
		repoPath = func(s string) string { return s }
	}
	var comments []ReviewComment
	for _, d := range diags {
		if d.Fragment == "" || d.Line == 0 {
			continue
		}
		path := repoPath(d.Fragment)
		if !diffFiles[path] {
			continue
		}
		comments = append(comments, ReviewComment{
			Path: path,
			Line: d.Line,
			Body: fmt.Sprintf("**%s** `%s`\n\n%s", strings.ToUpper(string(d.Severity)), d.Code, d.Message),
		})
	}
	return ReviewRequest{
		Body:     summary,
		Event:    "COMMENT",
		Comments: comments,
	}
}

var (
	httpsRemoteRe = regexp.MustCompile(`https?://[^/]+/([^/]+)/([^/.\s]+)`)
	sshRemoteRe   = regexp.MustCompile(`[^@]+@[^:]+:([^/]+)/([^/.\s]+)`)
)

// DetectRepo parses owner/repo from the git remote origin URL.
func DetectRepo() (owner, repo string, err error) {
	out, err := exec.Command("git", "remote", "get-url", "origin").Output()
	if err != nil {
		return "", "", fmt.Errorf("cannot detect repo: git remote get-url origin failed: %w", err)
	}
	url := strings.TrimSpace(string(out))
	return ParseRemoteURL(url)
}

// ParseRemoteURL extracts owner/repo from a git remote URL.
func ParseRemoteURL(url string) (owner, repo string, err error) {
	url = strings.TrimSuffix(url, ".git")

	if m := httpsRemoteRe.FindStringSubmatch(url); len(m) == 3 {
		return m[1], m[2], nil
	}
	if m := sshRemoteRe.FindStringSubmatch(url); len(m) == 3 {
		return m[1], m[2], nil
	}
	return "", "", fmt.Errorf("cannot parse owner/repo from remote URL: %s", url)
}

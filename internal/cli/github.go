package cli

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/gradlerec/internal/gitctx"
	"github.com/dshills/gradlerec/internal/github"
	"github.com/dshills/gradlerec/internal/output"
	"github.com/dshills/gradlerec/internal/source"
)

var (
	flagGHPR     int
	flagGHOwner  string
	flagGHRepo   string
	flagGHDryRun bool
	flagGHInline bool
)

var githubCmd = &cobra.Command{
	Use:   "github",
	Short: "Publish reconciliation reports on GitHub",
}

var githubCommentCmd = &cobra.Command{
	Use:   "comment --pr <number> [fragment-paths...]",
	Short: "Post the reconciliation report on a pull request",
	Long: "Reconcile the given fragments, or the build scripts the pull request changes when none are given, " +
		"and post the markdown report as a single pull request comment that later runs update in place.",
	RunE: func(cmd *cobra.Command, args []string) error {
		stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
		if flagGHPR <= 0 {
			fmt.Fprintln(stderr, "Error: --pr is required")
			exitCode = ExitUsageError
			return nil
		}
		cfg, ok := loadRunConfig(cmd)
		if !ok {
			return nil
		}

		owner, repo := flagGHOwner, flagGHRepo
		if owner == "" || repo == "" {
			detected, detectedRepo, err := github.DetectRepo()
			if err != nil {
				fmt.Fprintf(stderr, "Error: %v\nUse --owner and --repo flags to specify manually.\n", err)
				exitCode = ExitRuntimeError
				return nil
			}
			if owner == "" {
				owner = detected
			}
			if repo == "" {
				repo = detectedRepo
			}
		}

		needAPI := !flagGHDryRun || len(args) == 0
		var client *github.Client
		if needAPI {
			c, err := github.NewClient()
			if err != nil {
				fmt.Fprintf(stderr, "Error: %v\n", err)
				exitCode = ExitRuntimeError
				return nil
			}
			client = c
		}

		ctx := cmd.Context()
		toRepo := repoRelative()

		var prFiles []string
		if client != nil {
			fmt.Fprintf(stderr, "Fetching PR #%d from %s/%s...\n", flagGHPR, owner, repo)
			files, err := client.GetPRFiles(ctx, owner, repo, flagGHPR)
			if err != nil {
				fmt.Fprintf(stderr, "Error: %v\n", err)
				exitCode = ExitRuntimeError
				return nil
			}
			prFiles = files
		}

		paths := args
		if len(paths) == 0 {
			match := fragmentMatcher(cfg)
			for _, f := range prFiles {
				if match(f) {
					paths = append(paths, f)
				}
			}
			if len(paths) == 0 {
				fmt.Fprintf(stdout, "PR #%d changes no build fragments, nothing to reconcile.\n", flagGHPR)
				return nil
			}
		}

		sources, err := source.Gather(paths, source.Options{Include: cfg.Include, Exclude: cfg.Exclude})
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}
		p, err := newPipeline(cfg, logger)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			exitCode = ExitUsageError
			return nil
		}
		res, err := p.run(ctx, sources)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		var buf bytes.Buffer
		buf.WriteString(github.CommentMarker + "\n")
		if err := (&output.MarkdownWriter{}).Write(&buf, res.Report); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		if flagGHDryRun {
			fmt.Fprint(stdout, buf.String())
			fmt.Fprintf(stderr, "Dry run: not posting to PR #%d.\n", flagGHPR)
			exitCode = statusCode(res.Report, cfg.FailOn, false)
			return nil
		}

		updated, err := client.UpsertComment(ctx, owner, repo, flagGHPR, buf.String())
		if err != nil {
			fmt.Fprintf(stderr, "Error posting comment: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}
		if updated {
			fmt.Fprintf(stderr, "Updated report comment on PR #%d.\n", flagGHPR)
		} else {
			fmt.Fprintf(stderr, "Posted report comment on PR #%d.\n", flagGHPR)
		}

		if flagGHInline {
			changed := make(map[string]bool, len(prFiles))
			for _, f := range prFiles {
				changed[f] = true
			}
			summary := fmt.Sprintf("gradlerec: %s (%d errors, %d warnings)",
				res.Report.Summary.Status, res.Report.Summary.Counts.Errors, res.Report.Summary.Counts.Warnings)
			review := github.BuildReview(res.Report.Diagnostics, summary, changed, toRepo)
			if len(review.Comments) > 0 {
				fmt.Fprintf(stderr, "Posting review (%d inline comments)...\n", len(review.Comments))
				if err := client.PostReview(ctx, owner, repo, flagGHPR, review); err != nil {
					fmt.Fprintf(stderr, "Error posting review: %v\n", err)
					exitCode = ExitRuntimeError
					return nil
				}
			}
		}

		exitCode = statusCode(res.Report, cfg.FailOn, false)
		return nil
	},
}

// repoRelative maps fragment labels to paths relative to the repository
// root. Outside a repository labels are returned unchanged.
func repoRelative() func(string) string {
	meta, err := gitctx.GetRepoMeta()
	if err != nil || meta.Root == "" {
		return func(s string) string { return s }
	}
	return func(label string) string {
		abs, err := filepath.Abs(label)
		if err != nil {
			return label
		}
		rel, err := filepath.Rel(meta.Root, abs)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return label
		}
		return filepath.ToSlash(rel)
	}
}

func init() {
	githubCmd.AddCommand(githubCommentCmd)
	addRunFlags(githubCommentCmd)
	githubCommentCmd.Flags().IntVar(&flagGHPR, "pr", 0, "Pull request number")
	githubCommentCmd.Flags().StringVar(&flagGHOwner, "owner", "", "GitHub repository owner (auto-detected if omitted)")
	githubCommentCmd.Flags().StringVar(&flagGHRepo, "repo", "", "GitHub repository name (auto-detected if omitted)")
	githubCommentCmd.Flags().BoolVar(&flagGHDryRun, "dry-run", false, "Print the comment instead of posting it")
	githubCommentCmd.Flags().BoolVar(&flagGHInline, "inline", false, "Also post diagnostics on changed lines as review comments")
}

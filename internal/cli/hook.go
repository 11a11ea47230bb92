package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/gradlerec/internal/config"
	"github.com/dshills/gradlerec/internal/gitctx"
	"github.com/dshills/gradlerec/internal/output"
)

const (
	hookMarkerStart = "# >>> gradlerec pre-commit hook >>>"
	hookMarkerEnd   = "# <<< gradlerec pre-commit hook <<<"
)

var (
	hookFailOn string
	hookFormat string
	hookPaths  string
	hookOut    string
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Manage git pre-commit hook",
}

var hookInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install reconcile as a git pre-commit hook",
	RunE: func(cmd *cobra.Command, args []string) error {
		stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
		hookPath, err := getHookPath()
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		if !slices.Contains(config.FailOnLevels, hookFailOn) {
			fmt.Fprintf(stderr, "Error: invalid --fail-on %q (want one of %s)\n", hookFailOn, strings.Join(config.FailOnLevels, ", "))
			exitCode = ExitUsageError
			return nil
		}
		if !slices.Contains(output.Formats, hookFormat) {
			fmt.Fprintf(stderr, "Error: invalid --format %q (want one of %s)\n", hookFormat, strings.Join(output.Formats, ", "))
			exitCode = ExitUsageError
			return nil
		}

		paths := splitComma(hookPaths)
		if len(paths) == 0 {
			fmt.Fprintln(stderr, "Error: --paths must name at least one fragment or directory")
			exitCode = ExitUsageError
			return nil
		}
		section := generateHookScript(paths, hookFailOn, hookFormat, hookOut)

		existing, err := os.ReadFile(hookPath)
		if err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(stderr, "Error reading hook file: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		var content string
		if os.IsNotExist(err) || len(existing) == 0 {
			content = "#!/bin/sh\n" + section
		} else {
			content = replaceHookSection(string(existing), section)
		}

		if err := os.MkdirAll(filepath.Dir(hookPath), 0o755); err != nil {
			fmt.Fprintf(stderr, "Error creating hooks directory: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		if err := os.WriteFile(hookPath, []byte(content), 0o755); err != nil {
			fmt.Fprintf(stderr, "Error writing hook file: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		fmt.Fprintf(stdout, "Installed gradlerec pre-commit hook at %s\n", hookPath)
		return nil
	},
}

var hookUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove reconcile pre-commit hook",
	RunE: func(cmd *cobra.Command, args []string) error {
		stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
		hookPath, err := getHookPath()
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		existing, err := os.ReadFile(hookPath)
		if err != nil {
			if os.IsNotExist(err) {
				fmt.Fprintln(stdout, "No pre-commit hook found.")
				return nil
			}
			fmt.Fprintf(stderr, "Error reading hook file: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		content := removeHookSection(string(existing))

		// If only shebang (and whitespace) remains, delete the file entirely
		trimmed := strings.TrimSpace(content)
		if trimmed == "" || trimmed == "#!/bin/sh" || trimmed == "#!/bin/bash" {
			if err := os.Remove(hookPath); err != nil {
				fmt.Fprintf(stderr, "Error removing hook file: %v\n", err)
				exitCode = ExitRuntimeError
				return nil
			}
			fmt.Fprintf(stdout, "Removed gradlerec pre-commit hook at %s\n", hookPath)
			return nil
		}

		if err := os.WriteFile(hookPath, []byte(content), 0o755); err != nil {
			fmt.Fprintf(stderr, "Error writing hook file: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		fmt.Fprintf(stdout, "Removed gradlerec section from %s\n", hookPath)
		return nil
	},
}

func getHookPath() (string, error) {
	dir, err := gitctx.HooksDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "pre-commit"), nil
}

// generateHookScript returns the marked hook section. Exit 1 (invalid or
// stale) and 2 (parse error) block the commit; usage and runtime errors
// only warn.
func generateHookScript(paths []string, failOn, format, out string) string {
	quoted := make([]string, len(paths))
	for i, p := range paths {
		quoted[i] = shellQuote(p)
	}
	args := fmt.Sprintf("run %s --fail-on %s --format %s --no-color", strings.Join(quoted, " "), failOn, format)
	if out != "" {
		args += " --out " + shellQuote(out) + " --check"
	}

	var b strings.Builder
	b.WriteString(hookMarkerStart + "\n")
	b.WriteString("reconcile " + args + "\n")
	b.WriteString("GRADLEREC_EXIT=$?\n")
	b.WriteString("if [ $GRADLEREC_EXIT -eq 1 ] || [ $GRADLEREC_EXIT -eq 2 ]; then\n")
	b.WriteString("  echo \"gradlerec: build configuration does not reconcile, commit blocked\"\n")
	b.WriteString("  exit 1\n")
	b.WriteString("elif [ $GRADLEREC_EXIT -ge 3 ]; then\n")
	b.WriteString("  echo \"gradlerec: warning: reconcile failed to run (exit $GRADLEREC_EXIT), allowing commit\"\n")
	b.WriteString("fi\n")
	b.WriteString(hookMarkerEnd + "\n")
	return b.String()
}

func shellQuote(s string) string {
	if s != "" && strings.IndexFunc(s, func(r rune) bool {
		return !(r == '/' || r == '.' || r == '-' || r == '_' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'))
	}) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func replaceHookSection(existing, section string) string {
	startIdx := strings.Index(existing, hookMarkerStart)
	endIdx := strings.Index(existing, hookMarkerEnd)

	if startIdx == -1 || endIdx == -1 {
		if !strings.HasSuffix(existing, "\n") {
			existing += "\n"
		}
		return existing + section
	}

	before := existing[:startIdx]
	after := existing[endIdx+len(hookMarkerEnd):]
	// Trim leading newline from after to avoid double newlines
	after = strings.TrimPrefix(after, "\n")
	return before + section + after
}

func removeHookSection(existing string) string {
	startIdx := strings.Index(existing, hookMarkerStart)
	endIdx := strings.Index(existing, hookMarkerEnd)

	if startIdx == -1 || endIdx == -1 {
		return existing
	}

	before := existing[:startIdx]
	after := existing[endIdx+len(hookMarkerEnd):]
	after = strings.TrimPrefix(after, "\n")

	return before + after
}

func init() {
	hookCmd.AddCommand(hookInstallCmd)
	hookCmd.AddCommand(hookUninstallCmd)
	hookInstallCmd.Flags().StringVar(&hookFailOn, "fail-on", "error", "Fail on severity threshold (error, warning)")
	hookInstallCmd.Flags().StringVar(&hookFormat, "format", "text", "Report format (text, json, markdown, sarif)")
	hookInstallCmd.Flags().StringVar(&hookPaths, "paths", ".", "Fragments or directories to reconcile (comma-separated)")
	hookInstallCmd.Flags().StringVar(&hookOut, "out", "", "Canonical document that must stay up to date")
}

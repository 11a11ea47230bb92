package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/gradlerec/internal/cache"
	"github.com/dshills/gradlerec/internal/config"
	"github.com/dshills/gradlerec/internal/diag"
	"github.com/dshills/gradlerec/internal/fragment"
	"github.com/dshills/gradlerec/internal/output"
	"github.com/dshills/gradlerec/internal/reconcile"
	"github.com/dshills/gradlerec/internal/source"
)

// recommendedPolicy names the built-in policy accepted by --policy.
const recommendedPolicy = "recommended"

// Shared run flags
var (
	flagStrategy string
	flagPolicy   string
	flagOut      string
	flagEmit     string
	flagFormat   string
	flagReport   string
	flagFailOn   string
	flagCheck    bool
	flagInclude  string
	flagExclude  string
	flagRequired string
	flagWorkers  int
	flagNoCache  bool
	flagNoRedact bool
	flagNoColor  bool
)

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagStrategy, "strategy", "", "Default resolution strategy ("+strings.Join(reconcile.StrategyNames, ", ")+")")
	cmd.Flags().StringVar(&flagPolicy, "policy", "", "Policy file (YAML or JSON), or \"recommended\"")
	cmd.Flags().StringVar(&flagOut, "out", "", "Write the canonical configuration document to this path")
	cmd.Flags().StringVar(&flagEmit, "emit", "", "Canonical document format (properties, json)")
	cmd.Flags().StringVar(&flagFormat, "format", "", "Report format (text, json, markdown, sarif)")
	cmd.Flags().StringVar(&flagReport, "report", "", "Report file path (default: stdout)")
	cmd.Flags().StringVar(&flagFailOn, "fail-on", "", "Exit 1 on diagnostics at or above this severity (error, warning)")
	cmd.Flags().BoolVar(&flagCheck, "check", false, "Compare with the existing --out document instead of writing it")
	cmd.Flags().StringVar(&flagInclude, "include", "", "File globs scanned in directories (comma-separated)")
	cmd.Flags().StringVar(&flagExclude, "exclude", "", "File globs skipped in directories (comma-separated)")
	cmd.Flags().StringVar(&flagRequired, "required", "", "Required dotted paths (comma-separated, overrides the policy)")
	cmd.Flags().IntVar(&flagWorkers, "workers", 0, "Parallel parse workers")
	cmd.Flags().BoolVar(&flagNoCache, "no-cache", false, "Disable the parse cache")
	cmd.Flags().BoolVar(&flagNoRedact, "no-redact", false, "Show signing secrets in reports")
	cmd.Flags().BoolVar(&flagNoColor, "no-color", false, "Disable colored text output")
}

func buildOverrides() map[string]string {
	m := make(map[string]string)
	if flagStrategy != "" {
		m["strategy"] = flagStrategy
	}
	if flagPolicy != "" {
		m["policyFile"] = flagPolicy
	}
	if flagEmit != "" {
		m["emit"] = flagEmit
	}
	if flagFormat != "" {
		m["format"] = flagFormat
	}
	if flagFailOn != "" {
		m["failOn"] = flagFailOn
	}
	if flagInclude != "" {
		m["include"] = flagInclude
	}
	if flagExclude != "" {
		m["exclude"] = flagExclude
	}
	if flagRequired != "" {
		m["required"] = flagRequired
	}
	if flagWorkers > 0 {
		m["workers"] = strconv.Itoa(flagWorkers)
	}
	if flagNoCache {
		m["cache.enabled"] = "false"
	}
	if flagNoRedact {
		m["privacy.redactSecrets"] = "false"
	}
	return m
}

func splitComma(s string) []string {
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// pipeline holds the resolved settings for one or more reconciliations.
type pipeline struct {
	cfg    config.Config
	policy *reconcile.Policy
	cache  *cache.Cache
	log    *zap.Logger
}

func newPipeline(cfg config.Config, log *zap.Logger) (*pipeline, error) {
	policy, err := buildPolicy(cfg, flagStrategy != "")
	if err != nil {
		return nil, err
	}
	c, err := cache.New(cfg.Cache.Enabled, cfg.Cache.Dir, cfg.Cache.TTLSeconds)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	return &pipeline{cfg: cfg, policy: policy, cache: c, log: log}, nil
}

// buildPolicy selects the policy for cfg. The configured strategy becomes the
// default of the built-in policies; a policy file keeps its own default
// unless forceStrategy is set.
func buildPolicy(cfg config.Config, forceStrategy bool) (*reconcile.Policy, error) {
	strategy, err := reconcile.ParseStrategy(cfg.Strategy)
	if err != nil {
		return nil, err
	}
	switch cfg.PolicyFile {
	case "":
		return reconcile.DefaultPolicy().WithDefault(strategy), nil
	case recommendedPolicy:
		return reconcile.RecommendedPolicy().WithDefault(strategy), nil
	}
	p, err := reconcile.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		return nil, err
	}
	if forceStrategy {
		p = p.WithDefault(strategy)
	}
	return p, nil
}

func (p *pipeline) run(ctx context.Context, sources []fragment.Source) (*reconcile.Result, error) {
	var c fragment.Cache
	if p.cache.Enabled() {
		c = p.cache
	}
	return reconcile.Run(ctx, sources, reconcile.Options{
		Policy:        p.policy,
		Required:      p.cfg.Required,
		Workers:       p.cfg.Workers,
		Cache:         c,
		Logger:        p.log,
		Version:       version,
		RedactSecrets: p.cfg.Privacy.RedactSecrets,
		RedactPaths:   p.cfg.Privacy.RedactPaths,
	})
}

// loadRunConfig loads the effective config for the run flags. It prints
// errors and sets exitCode itself, returning false on failure.
func loadRunConfig(cmd *cobra.Command) (config.Config, bool) {
	stderr := cmd.ErrOrStderr()
	cfg, err := config.Load(buildOverrides())
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		exitCode = ExitUsageError
		return config.Config{}, false
	}
	if flagCheck && flagOut == "" {
		fmt.Fprintln(stderr, "Error: --check requires --out")
		exitCode = ExitUsageError
		return config.Config{}, false
	}
	if !cfg.Privacy.RedactSecrets {
		fmt.Fprintln(stderr, "WARNING: secret redaction is disabled")
	}
	return cfg, true
}

func runReconcile(cmd *cobra.Command, args []string) {
	stderr := cmd.ErrOrStderr()
	cfg, ok := loadRunConfig(cmd)
	if !ok {
		return
	}

	sources, err := source.Gather(args, source.Options{
		Include: cfg.Include,
		Exclude: cfg.Exclude,
		Stdin:   cmd.InOrStdin(),
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if errors.Is(err, source.ErrNoSources) {
			exitCode = ExitUsageError
		} else {
			exitCode = ExitRuntimeError
		}
		return
	}

	p, err := newPipeline(cfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		exitCode = ExitUsageError
		return
	}

	res, err := p.run(cmd.Context(), sources)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		exitCode = ExitRuntimeError
		return
	}
	exitCode = emitResult(cmd, res, cfg)
}

// emitResult writes the report and the canonical document and returns the
// exit code for the run.
func emitResult(cmd *cobra.Command, res *reconcile.Result, cfg config.Config) int {
	stderr := cmd.ErrOrStderr()

	if err := writeReport(cmd.OutOrStdout(), res.Report, cfg.Format); err != nil {
		fmt.Fprintf(stderr, "Error writing report: %v\n", err)
		return ExitRuntimeError
	}

	stale := false
	if flagOut != "" {
		doc, err := output.RenderDocument(res.Config, cfg.Emit)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return ExitRuntimeError
		}
		if flagCheck {
			existing, err := os.ReadFile(flagOut)
			if err != nil && !os.IsNotExist(err) {
				fmt.Fprintf(stderr, "Error reading %s: %v\n", flagOut, err)
				return ExitRuntimeError
			}
			if d := output.Diff(flagOut, flagOut+" (reconciled)", existing, doc); d != "" {
				fmt.Fprintf(stderr, "%s is out of date:\n%s", flagOut, d)
				stale = true
			}
		} else if err := writeDocument(flagOut, doc); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return ExitRuntimeError
		}
	}

	return statusCode(res.Report, cfg.FailOn, stale)
}

func writeReport(stdout io.Writer, report *reconcile.Report, format string) error {
	if flagReport != "" {
		return output.WriteReport(report, format, flagReport)
	}
	writer, err := output.GetWriter(format)
	if err != nil {
		return err
	}
	if tw, ok := writer.(*output.TextWriter); ok {
		tw.Color = !flagNoColor
	}
	return writer.Write(stdout, report)
}

// writeDocument replaces path atomically.
func writeDocument(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".reconcile-*")
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing output file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing output file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing output file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing output file: %w", err)
	}
	return nil
}

// statusCode maps a report to an exit code. Parse failures take precedence
// over validation errors.
func statusCode(report *reconcile.Report, failOn string, stale bool) int {
	if report.ParseFailed() {
		return ExitParseError
	}
	if report.Summary.Status == diag.StatusInvalid || stale {
		return ExitInvalid
	}
	for _, d := range report.Diagnostics {
		if diag.MeetsThreshold(d.Severity, failOn) {
			return ExitInvalid
		}
	}
	return ExitValid
}

var runCmd = &cobra.Command{
	Use:   "run <fragment-paths...>",
	Short: "Reconcile fragments into one canonical configuration",
	Long: "Parse the given fragments (directories are scanned for Gradle scripts, \"-\" reads stdin), " +
		"resolve conflicting declarations with the selected policy, validate the result, and print a report.",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runReconcile(cmd, args)
		return nil
	},
}

func init() {
	addRunFlags(runCmd)
}

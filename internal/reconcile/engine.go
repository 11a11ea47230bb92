package reconcile

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/gradlerec/internal/diag"
	"github.com/dshills/gradlerec/internal/fragment"
	"github.com/dshills/gradlerec/internal/redact"
)

// ToolName identifies reports produced by this package.
const ToolName = "gradlerec"

// Options controls Run.
type Options struct {
	// Policy selects strategies; nil means DefaultPolicy.
	Policy *Policy
	// Required overrides the policy's required fields when non-nil.
	Required []string
	Workers  int
	Cache    fragment.Cache
	Logger   *zap.Logger
	// Version is recorded in the report.
	Version string

	RedactSecrets bool
	// RedactPaths masks every value contributed by fragments whose label
	// matches one of these globs.
	RedactPaths []string
}

// Result holds everything a run produced. Config is never redacted; the
// Report is. Timing and CacheHits vary between runs on the same input and
// are kept out of the Report.
type Result struct {
	Report    *Report
	Config    *ResolvedConfig
	Fragments []*fragment.Fragment
	Timing    Timing
	CacheHits int
}

// Run parses, detects conflicts, resolves and validates the sources in the
// given order. A fragment that fails to parse is reported and left out;
// the others are still reconciled. The returned error is non-nil only if
// ctx is cancelled.
func Run(ctx context.Context, sources []fragment.Source, opts Options) (*Result, error) {
	startTime := time.Now()
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	policy := opts.Policy
	if policy == nil {
		policy = DefaultPolicy()
	}

	results, err := fragment.ParseAll(ctx, sources, fragment.ParseOptions{
		Workers: opts.Workers,
		Cache:   opts.Cache,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("parsing fragments: %w", err)
	}
	parseMs := time.Since(startTime).Milliseconds()

	var (
		diags  []diag.Diagnostic
		frags  []*fragment.Fragment
		inputs = make([]InputInfo, len(results))
		hits   int
	)
	for i, r := range results {
		inputs[i] = InputInfo{Label: r.Label, Digest: fragment.Digest(sources[i].Content)}
		if r.Cached {
			hits++
		}
		diags = append(diags, r.Diagnostics...)
		if r.Err != nil {
			var pe *fragment.ParseError
			if errors.As(r.Err, &pe) {
				diags = append(diags, pe.Diagnostic())
			} else {
				diags = append(diags, diag.Errorf(diag.CodeParse, "%v", r.Err).At(r.Label, 0))
			}
			inputs[i].Error = r.Err.Error()
			logger.Warn("fragment skipped", zap.String("fragment", r.Label), zap.Error(r.Err))
			continue
		}
		inputs[i].Paths = r.Fragment.Len()
		frags = append(frags, r.Fragment)
	}

	resolveStart := time.Now()
	conflicts := DetectConflicts(frags)
	for _, c := range conflicts {
		diags = append(diags, ConflictWarning(c))
	}

	rc, rdiags := Resolve(frags, conflicts, policy)
	diags = append(diags, rdiags...)

	required := opts.Required
	if required == nil {
		required = policy.Required
	}
	diags = append(diags, Validate(rc, ValidateOptions{Required: required})...)
	resolveMs := time.Since(resolveStart).Milliseconds()

	version := opts.Version
	if version == "" {
		version = "dev"
	}
	if conflicts == nil {
		conflicts = []FieldConflict{}
	}
	if diags == nil {
		diags = []diag.Diagnostic{}
	}
	report := &Report{
		Tool:        ToolName,
		Version:     version,
		InputHash:   InputHash(sources),
		Policy:      policy.String(),
		Inputs:      inputs,
		Summary:     ComputeSummary(inputs, rc.Len(), len(conflicts), diags),
		Conflicts:   conflicts,
		Resolved:    rc.Entries(),
		Diagnostics: diags,
	}
	if opts.RedactSecrets || len(opts.RedactPaths) > 0 {
		redactReport(report, opts.RedactSecrets, opts.RedactPaths)
	}

	timing := Timing{
		ParseMs:   parseMs,
		ResolveMs: resolveMs,
		TotalMs:   time.Since(startTime).Milliseconds(),
	}
	logger.Debug("reconciled fragments",
		zap.Int("fragments", len(sources)),
		zap.Int("failed", report.Summary.Failed),
		zap.Int("cacheHits", hits),
		zap.Int("paths", rc.Len()),
		zap.Int("conflicts", len(conflicts)),
		zap.String("status", string(report.Summary.Status)),
		zap.Int64("parseMs", timing.ParseMs),
		zap.Int64("resolveMs", timing.ResolveMs),
		zap.Int64("totalMs", timing.TotalMs))

	return &Result{Report: report, Config: rc, Fragments: frags, Timing: timing, CacheHits: hits}, nil
}

// InputHash digests the ordered labels and contents of the sources.
func InputHash(sources []fragment.Source) string {
	h := sha256.New()
	for _, s := range sources {
		fmt.Fprintf(h, "%s\x00%d\x00", s.Label, len(s.Content))
		h.Write(s.Content)
	}
	return fmt.Sprintf("%x", h.Sum(nil)[:16])
}

// redactReport masks secret values in place. Declarations and entries are
// copies owned by the report.
func redactReport(r *Report, secrets bool, paths []string) {
	masked := fragment.String(redact.Placeholder)
	hidden := func(path, source string) bool {
		return (secrets && redact.IsSecretPath(path)) || redact.ShouldRedactPath(source, paths)
	}

	for i := range r.Resolved {
		e := &r.Resolved[i]
		if hidden(e.Path, e.Source) {
			e.Value = masked
		}
	}
	for i := range r.Conflicts {
		c := &r.Conflicts[i]
		decls := make([]Declaration, len(c.Declarations))
		for j, d := range c.Declarations {
			if hidden(c.Path, d.Fragment) {
				d.Value = masked
			}
			decls[j] = d
		}
		c.Declarations = decls
	}
	for i := range r.Diagnostics {
		d := &r.Diagnostics[i]
		if secrets {
			d.Message = redact.Secrets(d.Message)
			if redact.AnySecretPath(d.Paths) {
				d.Message = redact.Quoted(d.Message)
			}
		}
		if redact.ShouldRedactPath(d.Fragment, paths) {
			d.Message = redact.Quoted(d.Message)
		}
	}
}

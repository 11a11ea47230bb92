package fragment

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/gradlerec/internal/diag"
)

// Cache stores serialized parse results. *cache.Cache satisfies it.
type Cache interface {
	Get(key string) (string, bool)
	Put(key, value string) error
}

// Result is the outcome of parsing one source.
type Result struct {
	Label       string
	Fragment    *Fragment
	Diagnostics []diag.Diagnostic
	Err         error
	Cached      bool
}

// ParseOptions controls ParseAll.
type ParseOptions struct {
	// Workers bounds parallel parsing; values below 1 mean one worker.
	Workers int
	Cache   Cache
	Logger  *zap.Logger
}

type cachedParse struct {
	Fragment    *Fragment         `json:"fragment"`
	Diagnostics []diag.Diagnostic `json:"diagnostics,omitempty"`
}

// CacheKey identifies a parse result for a label and content.
func CacheKey(label string, content []byte) string {
	return fmt.Sprintf("fragment:%s:%s:%s", ParserVersion, label, Digest(content))
}

// ParseAll parses every source concurrently and returns results in input
// order. It returns only after all parses finish. A parse error fails its
// own result, never the batch; the returned error is non-nil only if ctx is
// cancelled.
func ParseAll(ctx context.Context, sources []Source, opts ParseOptions) ([]Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	results := make([]Result, len(sources))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = parseOne(src, opts.Cache, logger)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func parseOne(src Source, c Cache, logger *zap.Logger) Result {
	key := CacheKey(src.Label, src.Content)
	if c != nil {
		if raw, ok := c.Get(key); ok {
			var cp cachedParse
			if err := json.Unmarshal([]byte(raw), &cp); err == nil && cp.Fragment != nil {
				logger.Debug("parse cache hit", zap.String("fragment", src.Label))
				return Result{Label: src.Label, Fragment: cp.Fragment, Diagnostics: cp.Diagnostics, Cached: true}
			}
		}
	}

	frag, diags, err := Parse(src.Label, src.Content)
	if err != nil {
		logger.Debug("parse failed", zap.String("fragment", src.Label), zap.Error(err))
		return Result{Label: src.Label, Diagnostics: diags, Err: err}
	}
	logger.Debug("parsed fragment",
		zap.String("fragment", src.Label),
		zap.Int("paths", frag.Len()),
		zap.Int("warnings", len(diags)))

	if c != nil {
		data, err := json.Marshal(cachedParse{Fragment: frag, Diagnostics: diags})
		if err == nil {
			if err := c.Put(key, string(data)); err != nil {
				logger.Warn("writing parse cache", zap.String("fragment", src.Label), zap.Error(err))
			}
		}
	}
	return Result{Label: src.Label, Fragment: frag, Diagnostics: diags}
}

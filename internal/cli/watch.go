package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/gradlerec/internal/config"
	"github.com/dshills/gradlerec/internal/pathglob"
	"github.com/dshills/gradlerec/internal/source"
	"github.com/dshills/gradlerec/internal/watch"
)

var flagDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch <fragment-paths...>",
	Short: "Reconcile again whenever a fragment changes",
	Long:  "Run the reconciliation once, then watch the given files and directories and re-run it after each burst of changes until interrupted.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stderr := cmd.ErrOrStderr()
		cfg, ok := loadRunConfig(cmd)
		if !ok {
			return nil
		}
		for _, a := range args {
			if a == "-" {
				fmt.Fprintln(stderr, "Error: watch cannot read fragments from stdin")
				exitCode = ExitUsageError
				return nil
			}
		}

		p, err := newPipeline(cfg, logger)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			exitCode = ExitUsageError
			return nil
		}

		w, err := watch.New(args, watch.Options{
			Debounce: flagDebounce,
			Match:    fragmentMatcher(cfg),
			SkipDir:  excludedDir(cfg),
			Logger:   logger,
		})
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		reconcileOnce := func(ctx context.Context) {
			sources, err := source.Gather(args, source.Options{Include: cfg.Include, Exclude: cfg.Exclude})
			if err != nil {
				fmt.Fprintf(stderr, "Error: %v\n", err)
				exitCode = ExitRuntimeError
				return
			}
			res, err := p.run(ctx, sources)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					fmt.Fprintf(stderr, "Error: %v\n", err)
					exitCode = ExitRuntimeError
				}
				return
			}
			exitCode = emitResult(cmd, res, cfg)
		}

		reconcileOnce(ctx)
		fmt.Fprintf(stderr, "Watching %d paths (Ctrl-C to stop)\n", len(w.WatchList()))

		err = w.Run(ctx, func(ctx context.Context, changed []string) {
			fmt.Fprintf(stderr, "\nChanged: %v\n", changed)
			reconcileOnce(ctx)
		})
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		stats := w.Stats()
		logger.Info("watch stopped",
			zap.Int("events", stats.Events),
			zap.Int("batches", stats.Batches),
			zap.Int("errors", stats.Errors))
		return nil
	},
}

// fragmentMatcher reports whether a changed file is a fragment the include
// and exclude globs select.
func fragmentMatcher(cfg config.Config) func(string) bool {
	include := cfg.Include
	if len(include) == 0 {
		include = source.DefaultInclude
	}
	return func(path string) bool {
		p := filepath.ToSlash(path)
		return pathglob.MatchAny(p, include, '/') && !pathglob.MatchAny(p, cfg.Exclude, '/')
	}
}

func excludedDir(cfg config.Config) func(string) bool {
	return func(dir string) bool {
		return pathglob.MatchAny(filepath.ToSlash(dir)+"/x", cfg.Exclude, '/')
	}
}

func init() {
	addRunFlags(watchCmd)
	watchCmd.Flags().DurationVar(&flagDebounce, "debounce", watch.DefaultDebounce, "Quiet period before re-running")
}

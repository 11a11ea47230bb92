package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/gradlerec/internal/gitctx"
)

var flagHistoryLimit int

var historyCmd = &cobra.Command{
	Use:   "history <file>",
	Short: "Reconcile the committed revisions of one build file",
	Long: "Treat every git revision of the file as a fragment, oldest first. With last-wins the newest " +
		"declaration of each path is kept, and the conflicts list shows values that changed between revisions.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stderr := cmd.ErrOrStderr()
		cfg, ok := loadRunConfig(cmd)
		if !ok {
			return nil
		}

		sources, revs, err := gitctx.HistorySources(args[0], flagHistoryLimit)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}
		fmt.Fprintf(stderr, "Reconciling %d revisions of %s (%s..%s)\n",
			len(revs), args[0], revs[0].Short, revs[len(revs)-1].Short)

		p, err := newPipeline(cfg, logger)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			exitCode = ExitUsageError
			return nil
		}
		res, err := p.run(cmd.Context(), sources)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}
		exitCode = emitResult(cmd, res, cfg)
		return nil
	},
}

func init() {
	addRunFlags(historyCmd)
	historyCmd.Flags().IntVar(&flagHistoryLimit, "limit", 0, "Only use the newest N revisions (0 = all)")
}

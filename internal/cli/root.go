package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const version = "0.1.0"

// Exit codes
const (
	ExitValid        = 0
	ExitInvalid      = 1
	ExitParseError   = 2
	ExitUsageError   = 3
	ExitRuntimeError = 4
)

var (
	flagVerbose bool
	logger      = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "reconcile [fragment-paths...]",
	Short: "Reconcile Gradle build configuration fragments",
	Long: "Reconcile merges Gradle build script fragments into one canonical configuration, " +
		"resolves conflicting declarations with an explicit policy, and validates the result " +
		"with deterministic exit codes.",
	Args: cobra.ArbitraryArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = newLogger(cmd.ErrOrStderr(), flagVerbose)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		runReconcile(cmd, args)
		return nil
	},
}

// newLogger logs JSON to w at warn level, or debug level when verbose.
func newLogger(w io.Writer, verbose bool) *zap.Logger {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(config.EncoderConfig),
		zapcore.Lock(zapcore.AddSync(w)),
		config.Level,
	)
	return zap.New(core, zap.AddCaller())
}

// Run executes the root command and returns an exit code.
func Run() int {
	return execute(os.Args[1:])
}

func execute(args []string) int {
	exitCode = ExitValid
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error
		return ExitUsageError
	}
	return exitCode
}

// exitCode is set by command handlers to control the process exit code.
var exitCode = ExitValid

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print reconcile version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "reconcile version %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")
	addRunFlags(rootCmd)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(hookCmd)
	rootCmd.AddCommand(githubCmd)
	rootCmd.AddCommand(versionCmd)
}

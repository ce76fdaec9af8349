// Package cli wires the command-line surface: flag parsing, dependency
// construction, and the batch run loop.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/RevCBH/gannet/internal/config"
)

// versionInfo carries build-time metadata for the version command
type versionInfo struct {
	Version string
	Commit  string
	Date    string
}

// App represents the CLI application
type App struct {
	rootCmd     *cobra.Command
	opts        RunOptions
	versionInfo versionInfo
}

// New creates a new CLI application
func New() *App {
	app := &App{}
	app.setupRootCmd()
	return app
}

// Execute runs the CLI application
func (a *App) Execute() error {
	return a.rootCmd.Execute()
}

// SetVersion records build metadata for the version command
func (a *App) SetVersion(version, commit, date string) {
	a.versionInfo = versionInfo{Version: version, Commit: commit, Date: date}
}

// setupRootCmd configures the root Cobra command. The dispatcher runs
// directly off the root:
//
//	gannet [flags] <output-path> [input-file ...]
func (a *App) setupRootCmd() {
	a.opts = DefaultRunOptions()

	a.rootCmd = &cobra.Command{
		Use:   "gannet [flags] <output-path> [input-file ...]",
		Short: "Batch dispatcher for genome annotation jobs",
		Long: `Gannet uploads genome inputs to the annotation store and runs the
annotation pipeline once per input, with bounded concurrency and
per-job logs. The batch keeps going when individual jobs fail; the
exit status reports whether every input made it through.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.opts.Validate(); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
				os.Exit(2)
			}

			a.opts.parallelSet = cmd.Flags().Changed("parallel")

			ctx := context.Background()
			return a.RunBatch(ctx, a.opts, args)
		},
	}

	flags := a.rootCmd.Flags()
	flags.IntVarP(&a.opts.Parallel, "parallel", "p", config.DefaultParallelism,
		"Max concurrent annotation jobs")
	flags.BoolVar(&a.opts.Rerun, "rerun", false,
		"Skip jobs whose output artifact already exists")
	flags.StringVar(&a.opts.GBFiles, "gb-files", "",
		"File listing input paths, one per line")
	flags.StringVar(&a.opts.WorkflowFile, "workflow-file", "",
		"Workflow document (local path or ws: store path)")
	flags.StringVar(&a.opts.LogDir, "log-dir", "",
		"Directory for per-job logs (default from config)")
	flags.BoolVar(&a.opts.Public, "public", false,
		"Mark annotated genomes public")
	flags.BoolVar(&a.opts.Overwrite, "overwrite", false,
		"Replace inputs already present in the store")
	flags.StringVar(&a.opts.IndexingURL, "indexing-url", "",
		"Override the indexing service URL")
	flags.BoolVar(&a.opts.NoIndex, "no-index", false,
		"Skip search indexing after annotation")
	flags.BoolVarP(&a.opts.DryRun, "dry-run", "n", false,
		"Validate inputs and show the plan without running")
	flags.BoolVar(&a.opts.NoTUI, "no-tui", false,
		"Disable interactive TUI (use plain log output)")
	flags.BoolVar(&a.opts.JSONEvents, "json-events", false,
		"Emit lifecycle events as JSON lines on stdout")
	flags.StringVar(&a.opts.MetricsAddr, "metrics-addr", "",
		"Serve Prometheus metrics on this address while the batch runs")

	a.rootCmd.AddCommand(NewVersionCmd(a))
}

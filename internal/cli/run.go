package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/RevCBH/gannet/internal/cli/tui"
	"github.com/RevCBH/gannet/internal/config"
	"github.com/RevCBH/gannet/internal/dispatch"
	"github.com/RevCBH/gannet/internal/events"
	"github.com/RevCBH/gannet/internal/params"
	"github.com/RevCBH/gannet/internal/pipeline"
	"github.com/RevCBH/gannet/internal/store"
	"github.com/RevCBH/gannet/internal/telemetry"
	"github.com/RevCBH/gannet/internal/workflow"
)

// RunOptions holds flags for a batch run
type RunOptions struct {
	Parallel     int    // Max concurrent jobs (default: 1)
	Rerun        bool   // Skip jobs whose output artifact exists
	Overwrite    bool   // Replace conflicting remote inputs
	GBFiles      string // File listing additional input paths
	WorkflowFile string // Workflow document path (local or ws:)
	IndexingURL  string // Override for the indexing service
	NoIndex      bool   // Skip search indexing
	Public       bool   // Mark results public
	LogDir       string // Override for the per-job log directory
	DryRun       bool   // Plan without uploading or running
	NoTUI        bool   // Disable TUI even on a TTY
	JSONEvents   bool   // Emit events as JSON lines
	MetricsAddr  string // Prometheus listen address ("" = off)

	// parallelSet records whether --parallel was given explicitly, so
	// an untouched flag defers to the configured value
	parallelSet bool
}

// DefaultRunOptions returns the flag defaults
func DefaultRunOptions() RunOptions {
	return RunOptions{
		Parallel: config.DefaultParallelism,
	}
}

// Validate checks RunOptions for validity
func (opts RunOptions) Validate() error {
	if opts.Parallel <= 0 {
		return fmt.Errorf("parallel must be greater than 0, got %d", opts.Parallel)
	}
	return nil
}

// RunBatch wires dependencies and drives one dispatch batch. args[0] is
// the remote output path; the rest are local input files, optionally
// extended by --gb-files.
func (a *App) RunBatch(ctx context.Context, opts RunOptions, args []string) error {
	if err := opts.Validate(); err != nil {
		return err
	}

	outputPath := args[0]
	inputs := append([]string(nil), args[1:]...)
	if opts.GBFiles != "" {
		listed, err := readInputList(opts.GBFiles)
		if err != nil {
			return fmt.Errorf("read --gb-files: %w", err)
		}
		inputs = append(inputs, listed...)
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no input files: pass them as arguments or via --gb-files")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	handler := NewSignalHandler(cancel)
	handler.OnShutdown(func() {
		fmt.Fprintln(os.Stderr, "\nInterrupted - stopping in-flight jobs...")
	})
	handler.Start()
	defer handler.Stop()

	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	cfg, err := config.LoadConfig(wd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	parallel := cfg.Parallelism
	if opts.parallelSet {
		parallel = opts.Parallel
	}
	logDir := cfg.LogDir
	if opts.LogDir != "" {
		logDir = opts.LogDir
	}

	st, err := store.NewS3(ctx, store.S3Options{
		Endpoint:  cfg.Store.Endpoint,
		Region:    cfg.Store.Region,
		Bucket:    cfg.Store.Bucket,
		AccessKey: cfg.Store.AccessKey,
		SecretKey: cfg.Store.SecretKey,
		PathStyle: cfg.Store.PathStyle,
	})
	if err != nil {
		return fmt.Errorf("connect to store: %w", err)
	}

	var wf map[string]any
	if opts.WorkflowFile != "" {
		doc, err := workflow.Resolve(ctx, st, opts.WorkflowFile)
		if err != nil {
			return fmt.Errorf("resolve workflow: %w", err)
		}
		wf = doc.Parsed
	}

	if err := pipeline.CheckBinary(cfg.Pipeline.Command); err != nil {
		return err
	}
	specFile, err := pipeline.SpecPath(cfg.Pipeline.SpecDirs, cfg.Pipeline.App)
	if err != nil {
		return err
	}

	if opts.MetricsAddr != "" {
		metrics := telemetry.NewServer(opts.MetricsAddr)
		metrics.Start(func(err error) {
			fmt.Fprintf(os.Stderr, "metrics server: %v\n", err)
		})
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = metrics.Shutdown(shutdownCtx)
		}()
	}

	bus := events.NewBus(1000)
	defer bus.Close()

	jsonMode := events.IsJSONMode(opts.JSONEvents)
	useTUI := !opts.NoTUI && !opts.DryRun && !jsonMode &&
		term.IsTerminal(int(os.Stdout.Fd()))

	var tuiProgram *tea.Program
	var tuiBridge *tui.Bridge
	switch {
	case jsonMode:
		bus.Subscribe(events.JSONEmitterHandler(events.NewJSONEmitter(os.Stdout)))
	case useTUI:
		model := tui.NewModel(parallel)
		tuiProgram = tea.NewProgram(model, tea.WithAltScreen())
		tuiBridge = tui.NewBridge(tuiProgram)
		bus.Subscribe(tuiBridge.Handler())

		go func() {
			if _, err := tuiProgram.Run(); err != nil {
				fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
			}
		}()
	default:
		// Dry runs log payloads so the plan (input, remote path) is visible.
		bus.Subscribe(events.LogHandler(events.LogConfig{
			Writer:         os.Stderr,
			IncludePayload: opts.DryRun,
		}))
	}

	d, err := dispatch.New(dispatch.Options{
		Params: params.Config{
			OutputPath:   outputPath,
			Workflow:     wf,
			IndexingURL:  opts.IndexingURL,
			SkipIndexing: opts.NoIndex,
			Public:       opts.Public,
		},
		Parallel:   parallel,
		Rerun:      opts.Rerun,
		Overwrite:  opts.Overwrite,
		LogDir:     logDir,
		ScratchDir: cfg.Pipeline.ScratchDir,
		SpecFile:   specFile,
		DryRun:     opts.DryRun,
	}, dispatch.Dependencies{
		Store:  st,
		Client: pipeline.NewCLIClient(cfg.Pipeline.Command, cfg.Pipeline.App),
		Bus:    bus,
	})
	if err != nil {
		return err
	}

	result, runErr := d.Run(ctx, inputs)

	// Take down the TUI before writing the summary so it lands on the
	// primary screen.
	if tuiBridge != nil {
		tuiBridge.SendDone()
		tuiProgram.Wait()
	}

	if runErr != nil {
		return runErr
	}

	if !jsonMode {
		printSummary(result)
	}

	if result.Failures() > 0 {
		return fmt.Errorf("%d of %d inputs failed", result.Failures(), result.Total+result.Rejected)
	}
	if result.Interrupted > 0 {
		return fmt.Errorf("interrupted with %d jobs never started", result.Interrupted)
	}
	return nil
}

func printSummary(result *dispatch.Result) {
	fmt.Printf("\nBatch complete:\n")
	fmt.Printf("  Jobs:        %d\n", result.Total)
	fmt.Printf("  Succeeded:   %d\n", result.Succeeded)
	fmt.Printf("  Failed:      %d\n", result.Failed)
	fmt.Printf("  Skipped:     %d\n", result.Skipped)
	fmt.Printf("  Rejected:    %d\n", result.Rejected)
	if result.Interrupted > 0 {
		fmt.Printf("  Interrupted: %d\n", result.Interrupted)
	}
	fmt.Printf("  Duration:    %s\n", result.Duration.Round(time.Millisecond))
}

// readInputList reads newline-separated input paths, skipping blanks and
// # comment lines.
func readInputList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var paths []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		paths = append(paths, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return paths, nil
}

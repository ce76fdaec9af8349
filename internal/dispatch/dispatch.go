// Package dispatch schedules a batch of genome-annotation jobs across a
// bounded pool of workers: pre-flight input checks, upload-if-absent,
// pipeline invocation, and failure tallying without aborting the batch.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/RevCBH/gannet/internal/events"
	"github.com/RevCBH/gannet/internal/params"
	"github.com/RevCBH/gannet/internal/pipeline"
	"github.com/RevCBH/gannet/internal/store"
)

// Options holds batch-wide dispatch settings
type Options struct {
	// Params carries the batch-wide parameter fields merged into every
	// job, including the remote output path
	Params params.Config

	// Parallel is the worker count (minimum 1)
	Parallel int

	// Rerun skips jobs whose output artifact already exists with
	// non-zero size
	Rerun bool

	// Overwrite passes through to uploads, replacing conflicting
	// remote objects instead of rejecting them
	Overwrite bool

	// LogDir is the directory per-job logs are written to
	LogDir string

	// ScratchDir is the base for private job work dirs ("" = system temp)
	ScratchDir string

	// SpecFile is the parameter-schema path handed to every job
	SpecFile string

	// BatchID tags this run's uploads (generated when empty)
	BatchID string

	// DryRun validates inputs and plans jobs without uploading or
	// spawning anything
	DryRun bool
}

// Dependencies bundles external dependencies for injection
type Dependencies struct {
	Store  store.Store
	Client pipeline.Client
	Bus    *events.Bus
}

// Dispatcher runs one batch of annotation jobs
type Dispatcher struct {
	opts   Options
	store  store.Store
	client pipeline.Client
	bus    *events.Bus

	// Per-run counters, safe under concurrent increment from workers
	failed      atomic.Int64
	succeeded   atomic.Int64
	skipped     atomic.Int64
	interrupted atomic.Int64
}

// Result summarizes a finished batch
type Result struct {
	// Total is the number of jobs scheduled after pre-flight checks
	Total int

	// Rejected counts inputs excluded by pre-flight checks
	Rejected int

	Succeeded int
	Failed    int
	Skipped   int

	// Interrupted counts jobs never started because the run was canceled
	Interrupted int

	Duration time.Duration
}

// Failures is the batch tally deciding the process exit status: pre-flight
// rejections plus job failures.
func (r *Result) Failures() int {
	return r.Failed + r.Rejected
}

// New creates a dispatcher with the given options and dependencies
func New(opts Options, deps Dependencies) (*Dispatcher, error) {
	if opts.Parallel < 1 {
		return nil, errors.New("dispatch: parallel must be at least 1")
	}
	if deps.Store == nil {
		return nil, errors.New("dispatch: store is required")
	}
	if deps.Client == nil {
		return nil, errors.New("dispatch: pipeline client is required")
	}
	if deps.Bus == nil {
		return nil, errors.New("dispatch: event bus is required")
	}
	if opts.BatchID == "" {
		opts.BatchID = uuid.NewString()
	}

	return &Dispatcher{
		opts:   opts,
		store:  deps.Store,
		client: deps.Client,
		bus:    deps.Bus,
	}, nil
}

// Run executes the batch and returns its tally. Job-scoped failures are
// counted, never propagated; the returned error is reserved for
// batch-scoped configuration problems that abort the run before any job
// starts.
func (d *Dispatcher) Run(ctx context.Context, inputs []string) (*Result, error) {
	start := time.Now()

	// The output path is batch-wide configuration: if it is missing or
	// unreachable nothing can succeed, so fail before scheduling.
	if _, err := d.store.Stat(ctx, d.opts.Params.OutputPath); err != nil {
		return nil, fmt.Errorf("output path %s: %w", d.opts.Params.OutputPath, err)
	}

	if d.opts.DryRun {
		return d.dryRun(inputs, start), nil
	}

	if err := os.MkdirAll(d.opts.LogDir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	d.bus.Emit(events.NewEvent(events.BatchStarted, "").WithPayload(map[string]any{
		"batch_id": d.opts.BatchID,
		"inputs":   len(inputs),
		"parallel": d.opts.Parallel,
	}))

	jobs, rejected := d.preflight(inputs)

	// Buffered so dispatch order is exactly input order and the feed
	// never blocks behind slow workers.
	jobsChan := make(chan job, len(jobs))
	for _, jb := range jobs {
		jobsChan <- jb
	}
	close(jobsChan)

	var wg sync.WaitGroup
	for i := 0; i < d.opts.Parallel; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for jb := range jobsChan {
				if ctx.Err() != nil {
					d.interrupted.Add(1)
					continue
				}
				d.runJob(ctx, jb)
			}
		}()
	}
	wg.Wait()

	result := &Result{
		Total:       len(jobs),
		Rejected:    rejected,
		Succeeded:   int(d.succeeded.Load()),
		Failed:      int(d.failed.Load()),
		Skipped:     int(d.skipped.Load()),
		Interrupted: int(d.interrupted.Load()),
		Duration:    time.Since(start),
	}

	payload := map[string]any{
		"total":     result.Total,
		"rejected":  result.Rejected,
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
		"skipped":   result.Skipped,
	}
	if result.Failures() > 0 {
		d.bus.Emit(events.NewEvent(events.BatchFailed, "").WithPayload(payload))
	} else {
		d.bus.Emit(events.NewEvent(events.BatchCompleted, "").WithPayload(payload))
	}

	return result, nil
}

// dryRun validates and plans the batch. Pre-flight's local file checks
// are its only I/O: nothing is uploaded and nothing is spawned.
func (d *Dispatcher) dryRun(inputs []string, start time.Time) *Result {
	d.bus.Emit(events.NewEvent(events.BatchDryRunStarted, "").WithPayload(map[string]any{
		"batch_id": d.opts.BatchID,
		"inputs":   len(inputs),
	}))

	jobs, rejected := d.preflight(inputs)

	d.bus.Emit(events.NewEvent(events.BatchDryRunCompleted, "").WithPayload(map[string]any{
		"planned":  len(jobs),
		"rejected": rejected,
	}))

	return &Result{
		Total:    len(jobs),
		Rejected: rejected,
		Duration: time.Since(start),
	}
}

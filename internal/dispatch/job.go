package dispatch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/RevCBH/gannet/internal/events"
	"github.com/RevCBH/gannet/internal/params"
	"github.com/RevCBH/gannet/internal/pipeline"
	"github.com/RevCBH/gannet/internal/telemetry"
)

// job is one accepted input, fully resolved before dispatch
type job struct {
	input   string
	size    int64
	doc     params.Document
	logBase string
}

// preflight validates inputs and builds the job list in input order.
// Rejected inputs are tallied and announced but never abort the batch.
func (d *Dispatcher) preflight(inputs []string) ([]job, int) {
	jobs := make([]job, 0, len(inputs))
	rejected := 0

	// Output names double as log-file and scratch-dir names, so two
	// inputs resolving to the same name would silently clobber each
	// other's diagnostics.
	seen := make(map[string]string, len(inputs))

	for _, input := range inputs {
		info, err := os.Stat(input)
		switch {
		case err != nil:
			rejected += d.reject(input, "file not found")
			continue
		case info.IsDir():
			rejected += d.reject(input, "is a directory")
			continue
		case info.Size() == 0:
			rejected += d.reject(input, "file is empty")
			continue
		}

		id := params.OutputID(input)
		if id == "" {
			rejected += d.reject(input, "cannot derive an output name")
			continue
		}
		if prev, dup := seen[id]; dup {
			rejected += d.reject(input, fmt.Sprintf("output name %q already used by %s", id, prev))
			continue
		}
		seen[id] = input

		doc := params.Build(d.opts.Params, input)
		jobs = append(jobs, job{
			input:   input,
			size:    info.Size(),
			doc:     doc,
			logBase: filepath.Join(d.opts.LogDir, id),
		})

		telemetry.JobsQueuedTotal.Inc()
		d.bus.Emit(events.NewEvent(events.JobQueued, id).WithPayload(map[string]any{
			"path":   input,
			"remote": doc.GenbankFile,
		}))
	}

	return jobs, rejected
}

func (d *Dispatcher) reject(input, reason string) int {
	telemetry.InputsRejectedTotal.Inc()
	d.bus.Emit(events.NewEvent(events.InputRejected, input).WithError(
		fmt.Errorf("%s", reason)))
	return 1
}

// runJob drives one job through its lifecycle: skip check, upload,
// pipeline run. Failures are recorded against this job only.
func (d *Dispatcher) runJob(ctx context.Context, jb job) {
	id := jb.doc.OutputFile

	if d.opts.Rerun && d.isComplete(ctx, jb.doc) {
		d.skipped.Add(1)
		telemetry.JobsSkippedTotal.Inc()
		d.bus.Emit(events.NewEvent(events.JobSkipped, id).WithPayload(map[string]any{
			"artifact": jb.doc.OutputArtifact(),
		}))
		return
	}

	if err := d.ensureUploaded(ctx, jb); err != nil {
		d.fail(id, err)
		return
	}

	telemetry.JobsInProgress.Inc()
	defer telemetry.JobsInProgress.Dec()

	d.bus.Emit(events.NewEvent(events.JobStarted, id).WithPayload(map[string]any{
		"path": jb.input,
	}))

	result, err := d.client.Run(ctx, pipeline.RunOptions{
		Params:      jb.doc,
		SpecFile:    d.opts.SpecFile,
		LogBase:     jb.logBase,
		ScratchBase: d.opts.ScratchDir,
	})
	if err != nil {
		d.fail(id, fmt.Errorf("annotate %s: %w", jb.input, err))
		return
	}

	d.succeeded.Add(1)
	telemetry.JobsCompletedTotal.Inc()
	telemetry.JobDurationSeconds.Observe(result.Elapsed.Seconds())
	d.bus.Emit(events.NewEvent(events.JobCompleted, id).WithPayload(map[string]any{
		"elapsed_seconds": result.Elapsed.Seconds(),
		"stdout":          result.StdoutPath,
		"stderr":          result.StderrPath,
	}))
}

func (d *Dispatcher) fail(id string, err error) {
	d.failed.Add(1)
	telemetry.JobsFailedTotal.Inc()
	d.bus.Emit(events.NewEvent(events.JobFailed, id).WithError(err))
}

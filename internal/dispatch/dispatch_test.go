package dispatch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RevCBH/gannet/internal/events"
	"github.com/RevCBH/gannet/internal/params"
	"github.com/RevCBH/gannet/internal/pipeline"
	"github.com/RevCBH/gannet/internal/store"
)

const testOutputPath = "/flu-2026"

// eventLog captures bus traffic for assertions after the bus drains
type eventLog struct {
	mu   sync.Mutex
	list []events.Event
}

func (l *eventLog) record(e events.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.list = append(l.list, e)
}

func (l *eventLog) types() []events.EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]events.EventType, len(l.list))
	for i, e := range l.list {
		out[i] = e.Type
	}
	return out
}

func (l *eventLog) byType(t events.EventType) []events.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []events.Event
	for _, e := range l.list {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// callLog records pipeline invocations in dispatch order
type callLog struct {
	mu   sync.Mutex
	runs []pipeline.RunOptions
}

func (c *callLog) record(opts pipeline.RunOptions) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runs = append(c.runs, opts)
}

func (c *callLog) list() []pipeline.RunOptions {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]pipeline.RunOptions(nil), c.runs...)
}

func (c *callLog) outputFiles() []string {
	var out []string
	for _, r := range c.list() {
		out = append(out, r.Params.OutputFile)
	}
	return out
}

type fixture struct {
	store  *store.Memory
	client *pipeline.MockClient
	calls  *callLog
	bus    *events.Bus
	log    *eventLog
	opts   Options
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store: store.NewMemory(),
		calls: &callLog{},
		log:   &eventLog{},
		bus:   events.NewBus(256),
	}
	f.store.MkDir(testOutputPath)
	f.client = &pipeline.MockClient{
		RunFunc: func(ctx context.Context, opts pipeline.RunOptions) (*pipeline.RunResult, error) {
			f.calls.record(opts)
			return &pipeline.RunResult{ExitCode: 0, Elapsed: 5 * time.Millisecond}, nil
		},
	}
	f.bus.Subscribe(f.log.record)
	t.Cleanup(f.bus.Close)

	f.opts = Options{
		Params:   params.Config{OutputPath: testOutputPath},
		Parallel: 1,
		LogDir:   filepath.Join(t.TempDir(), "logs"),
		SpecFile: "/usr/share/gannet/app_specs/GenomeAnnotation.json",
		BatchID:  "batch-test",
	}
	return f
}

// run drives a batch and closes the bus so every event is delivered
// before assertions read the log.
func (f *fixture) run(ctx context.Context, t *testing.T, inputs ...string) (*Result, error) {
	t.Helper()

	d, err := New(f.opts, Dependencies{Store: f.store, Client: f.client, Bus: f.bus})
	require.NoError(t, err)

	result, runErr := d.Run(ctx, inputs)
	f.bus.Close()
	return result, runErr
}

func writeGenome(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNew_Validation(t *testing.T) {
	bus := events.NewBus(1)
	defer bus.Close()
	mem := store.NewMemory()
	client := &pipeline.MockClient{}

	_, err := New(Options{Parallel: 0}, Dependencies{Store: mem, Client: client, Bus: bus})
	assert.ErrorContains(t, err, "parallel")

	_, err = New(Options{Parallel: 1}, Dependencies{Client: client, Bus: bus})
	assert.ErrorContains(t, err, "store")

	_, err = New(Options{Parallel: 1}, Dependencies{Store: mem, Bus: bus})
	assert.ErrorContains(t, err, "pipeline client")

	_, err = New(Options{Parallel: 1}, Dependencies{Store: mem, Client: client})
	assert.ErrorContains(t, err, "bus")
}

func TestNew_GeneratesBatchID(t *testing.T) {
	bus := events.NewBus(1)
	defer bus.Close()

	d, err := New(
		Options{Parallel: 1},
		Dependencies{Store: store.NewMemory(), Client: &pipeline.MockClient{}, Bus: bus},
	)
	require.NoError(t, err)
	assert.Len(t, d.opts.BatchID, 36)
}

func TestRun_MissingOutputPathAborts(t *testing.T) {
	f := newFixture(t)
	f.store = store.NewMemory() // output path never created
	input := writeGenome(t, "a.gb", "LOCUS a")

	result, err := f.run(context.Background(), t, input)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Contains(t, err.Error(), "output path")
	assert.Nil(t, result)
	assert.Empty(t, f.calls.list())
	assert.Empty(t, f.log.types())
}

func TestRun_UploadsAndAnnotatesInOrder(t *testing.T) {
	f := newFixture(t)
	alpha := writeGenome(t, "alpha.gb", "LOCUS alpha")
	beta := writeGenome(t, "beta.gb", "LOCUS beta")

	result, err := f.run(context.Background(), t, alpha, beta)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 2, result.Succeeded)
	assert.Zero(t, result.Failed)
	assert.Zero(t, result.Rejected)
	assert.Zero(t, result.Failures())

	assert.Equal(t, []string{"alpha", "beta"}, f.calls.outputFiles())

	saves := f.store.Saves()
	require.Len(t, saves, 2)
	assert.Equal(t, "/flu-2026/alpha.gb", saves[0].RemotePath)
	assert.Equal(t, "contigs", saves[0].ContentType)
	assert.False(t, saves[0].Overwrite)
	assert.Equal(t, "batch-test", saves[0].Metadata["batch"])
	_, parseErr := time.Parse(time.RFC3339, saves[0].Metadata["upload-time"])
	assert.NoError(t, parseErr)

	data, ok := f.store.Object("/flu-2026/alpha.gb")
	require.True(t, ok)
	assert.Equal(t, "LOCUS alpha", string(data))

	runs := f.calls.list()
	assert.Equal(t, "/flu-2026/alpha.gb", runs[0].Params.GenbankFile)
	assert.Equal(t, f.opts.SpecFile, runs[0].SpecFile)
	assert.Equal(t, filepath.Join(f.opts.LogDir, "alpha"), runs[0].LogBase)

	want := []events.EventType{
		events.BatchStarted,
		events.JobQueued, events.JobQueued,
		events.JobUploadStarted, events.JobUploaded, events.JobStarted, events.JobCompleted,
		events.JobUploadStarted, events.JobUploaded, events.JobStarted, events.JobCompleted,
		events.BatchCompleted,
	}
	assert.Equal(t, want, f.log.types())
}

func TestRun_RejectsInvalidInputsAndContinues(t *testing.T) {
	f := newFixture(t)
	empty := writeGenome(t, "empty.gb", "")
	missing := filepath.Join(t.TempDir(), "missing.gb")
	dir := t.TempDir()
	good := writeGenome(t, "good.gb", "LOCUS good")

	result, err := f.run(context.Background(), t, empty, missing, dir, good)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Total)
	assert.Equal(t, 3, result.Rejected)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 3, result.Failures())

	assert.Equal(t, []string{"good"}, f.calls.outputFiles())

	rejections := f.log.byType(events.InputRejected)
	require.Len(t, rejections, 3)
	assert.Equal(t, empty, rejections[0].Job)
	assert.Contains(t, rejections[0].Error, "empty")
	assert.Equal(t, missing, rejections[1].Job)
	assert.Contains(t, rejections[1].Error, "not found")
	assert.Equal(t, dir, rejections[2].Job)
	assert.Contains(t, rejections[2].Error, "directory")
}

func TestRun_RejectsDuplicateOutputNames(t *testing.T) {
	f := newFixture(t)
	first := writeGenome(t, "strain.gb", "LOCUS one")
	second := writeGenome(t, "strain.gb", "LOCUS two")

	result, err := f.run(context.Background(), t, first, second)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Total)
	assert.Equal(t, 1, result.Rejected)
	assert.Equal(t, []string{"strain"}, f.calls.outputFiles())

	rejections := f.log.byType(events.InputRejected)
	require.Len(t, rejections, 1)
	assert.Equal(t, second, rejections[0].Job)
	assert.Contains(t, rejections[0].Error, "already used by")
}

func TestRun_RerunSkipsCompletedJobs(t *testing.T) {
	f := newFixture(t)
	f.opts.Rerun = true
	f.store.Put("/flu-2026/.done/done.genome", "annotated")
	done := writeGenome(t, "done.gb", "LOCUS done")
	todo := writeGenome(t, "todo.gb", "LOCUS todo")

	result, err := f.run(context.Background(), t, done, todo)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, result.Succeeded)
	assert.Zero(t, result.Failed)

	assert.Equal(t, []string{"todo"}, f.calls.outputFiles())
	for _, s := range f.store.Saves() {
		assert.NotEqual(t, "/flu-2026/done.gb", s.RemotePath)
	}

	skips := f.log.byType(events.JobSkipped)
	require.Len(t, skips, 1)
	assert.Equal(t, "done", skips[0].Job)
}

func TestRun_RerunIgnoresEmptyArtifact(t *testing.T) {
	f := newFixture(t)
	f.opts.Rerun = true
	f.store.Put("/flu-2026/.half/half.genome", "")
	input := writeGenome(t, "half.gb", "LOCUS half")

	result, err := f.run(context.Background(), t, input)
	require.NoError(t, err)

	assert.Zero(t, result.Skipped)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, []string{"half"}, f.calls.outputFiles())
}

func TestRun_RerunResumesWhenArtifactMissing(t *testing.T) {
	f := newFixture(t)
	f.opts.Rerun = true
	// Input already uploaded by the failed previous run; no artifact yet.
	f.store.Put("/flu-2026/a.gb", "LOCUS a")
	input := writeGenome(t, "a.gb", "LOCUS a")

	result, err := f.run(context.Background(), t, input)
	require.NoError(t, err)

	assert.Zero(t, result.Skipped)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, []string{"a"}, f.calls.outputFiles())
	assert.Empty(t, f.store.Saves())
}

func TestRun_RerunChecksFailOpen(t *testing.T) {
	f := newFixture(t)
	f.opts.Rerun = true
	f.store.FailStat("/flu-2026/.a/a.genome", errors.New("connection reset"))
	input := writeGenome(t, "a.gb", "LOCUS a")

	result, err := f.run(context.Background(), t, input)
	require.NoError(t, err)

	// an unreadable artifact must not block the job
	assert.Zero(t, result.Skipped)
	assert.Equal(t, 1, result.Succeeded)
}

func TestRun_JobFailureDoesNotAbortBatch(t *testing.T) {
	f := newFixture(t)
	f.client.RunFunc = func(ctx context.Context, opts pipeline.RunOptions) (*pipeline.RunResult, error) {
		f.calls.record(opts)
		if opts.Params.OutputFile == "bad" {
			return &pipeline.RunResult{ExitCode: 3}, pipeline.NewExitError(3, errors.New("exit status 3"))
		}
		return &pipeline.RunResult{ExitCode: 0, Elapsed: time.Millisecond}, nil
	}
	bad := writeGenome(t, "bad.gb", "LOCUS bad")
	good := writeGenome(t, "good.gb", "LOCUS good")

	result, err := f.run(context.Background(), t, bad, good)
	require.NoError(t, err) // job failures are tallied, never returned

	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, result.Failures())
	assert.Equal(t, []string{"bad", "good"}, f.calls.outputFiles())

	fails := f.log.byType(events.JobFailed)
	require.Len(t, fails, 1)
	assert.Equal(t, "bad", fails[0].Job)
	assert.Contains(t, fails[0].Error, "annotate")
	assert.Contains(t, fails[0].Error, "exit 3")

	batchFails := f.log.byType(events.BatchFailed)
	assert.Len(t, batchFails, 1)
}

func TestRun_HonorsParallelBound(t *testing.T) {
	f := newFixture(t)
	f.opts.Parallel = 2

	var inFlight, peak atomic.Int64
	f.client.RunFunc = func(ctx context.Context, opts pipeline.RunOptions) (*pipeline.RunResult, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		inFlight.Add(-1)
		return &pipeline.RunResult{ExitCode: 0}, nil
	}

	var inputs []string
	for _, name := range []string{"s1.gb", "s2.gb", "s3.gb", "s4.gb", "s5.gb", "s6.gb"} {
		inputs = append(inputs, writeGenome(t, name, "LOCUS "+name))
	}

	result, err := f.run(context.Background(), t, inputs...)
	require.NoError(t, err)
	assert.Equal(t, 6, result.Succeeded)

	// the pool saturates but never exceeds the bound
	assert.Equal(t, int64(2), peak.Load())
}

func TestRun_CanceledContextSkipsPendingJobs(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := writeGenome(t, "a.gb", "LOCUS a")
	b := writeGenome(t, "b.gb", "LOCUS b")

	result, err := f.run(ctx, t, a, b)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Interrupted)
	assert.Zero(t, result.Succeeded)
	assert.Empty(t, f.calls.list())
	assert.Empty(t, f.store.Saves())
}

func TestRun_DryRunPlansWithoutSideEffects(t *testing.T) {
	f := newFixture(t)
	f.opts.DryRun = true
	good := writeGenome(t, "good.gb", "LOCUS good")
	empty := writeGenome(t, "empty.gb", "")

	result, err := f.run(context.Background(), t, good, empty)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Total)
	assert.Equal(t, 1, result.Rejected)
	assert.Empty(t, f.calls.list())
	assert.Empty(t, f.store.Saves())

	_, statErr := os.Stat(f.opts.LogDir)
	assert.True(t, os.IsNotExist(statErr))

	types := f.log.types()
	assert.Contains(t, types, events.BatchDryRunStarted)
	assert.Contains(t, types, events.BatchDryRunCompleted)
	assert.NotContains(t, types, events.BatchStarted)
}

func TestResultFailures(t *testing.T) {
	r := Result{Failed: 2, Rejected: 1}
	assert.Equal(t, 3, r.Failures())
	assert.Zero(t, (&Result{Succeeded: 5, Skipped: 2}).Failures())
}

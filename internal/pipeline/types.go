package pipeline

import (
	"time"

	"github.com/RevCBH/gannet/internal/params"
)

// RunOptions configures one pipeline invocation
type RunOptions struct {
	// Params is the job's parameter document. It is serialized to a
	// transient file that is removed on every exit path.
	Params params.Document

	// SpecFile is the path to the app's JSON parameter-schema file,
	// passed to the pipeline as its second argument
	SpecFile string

	// LogBase is the per-job log path prefix: stdout goes to
	// <LogBase>.out, stderr to <LogBase>.err, and elapsed seconds to
	// <LogBase>.elapsed on success
	LogBase string

	// ScratchBase is where the job's private working directory is
	// created (empty = system temp dir)
	ScratchBase string
}

// RunResult contains the outcome of one pipeline invocation
type RunResult struct {
	// ExitCode is the pipeline process exit code (-1 if the process
	// never ran)
	ExitCode int

	// Elapsed is the wall-clock duration of the spawn+wait
	Elapsed time.Duration

	// StdoutPath and StderrPath are the captured log files
	StdoutPath string
	StderrPath string

	// ScratchDir is the job's private working directory. It is removed
	// on success and kept on failure for diagnosis.
	ScratchDir string
}

// Package pipeline invokes the external annotation pipeline, one process
// per job, capturing its output and exit status.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"
)

// Client defines the interface for running the annotation pipeline
type Client interface {
	// Run invokes the pipeline once and waits for it to exit
	Run(ctx context.Context, opts RunOptions) (*RunResult, error)
}

// CLIClient implements Client by spawning the pipeline launcher binary.
// Invocation shape: <command> <app> <spec-file> <params-file>, with the
// working directory set to a scratch directory private to the job.
type CLIClient struct {
	// command is the pipeline launcher binary (path or name)
	command string

	// app is the fixed leading token naming the application to run
	app string
}

var _ Client = (*CLIClient)(nil)

// NewCLIClient creates a CLIClient for the given launcher and app token
func NewCLIClient(command, app string) *CLIClient {
	return &CLIClient{
		command: command,
		app:     app,
	}
}

// Run invokes the pipeline with the provided options. A non-zero or
// abnormal exit is returned as an *ExitError alongside the populated
// RunResult; the scratch directory is kept in that case so operators can
// inspect what the pipeline left behind.
func (c *CLIClient) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	// Validate inputs
	if opts.LogBase == "" {
		return nil, ErrEmptyLogBase
	}
	if opts.SpecFile == "" {
		return nil, ErrEmptySpecFile
	}
	if opts.Params.OutputFile == "" {
		return nil, ErrEmptyOutputID
	}

	scratchDir, err := os.MkdirTemp(opts.ScratchBase, "gannet-"+opts.Params.OutputFile+"-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}

	paramsPath, err := writeParams(scratchDir, opts.Params)
	if err != nil {
		os.RemoveAll(scratchDir)
		return nil, err
	}
	// The parameter document is scoped to this invocation whatever the
	// outcome.
	defer os.Remove(paramsPath)

	stdout, err := os.Create(opts.LogBase + ".out")
	if err != nil {
		os.RemoveAll(scratchDir)
		return nil, fmt.Errorf("create stdout log: %w", err)
	}
	defer stdout.Close()

	stderr, err := os.Create(opts.LogBase + ".err")
	if err != nil {
		os.RemoveAll(scratchDir)
		return nil, fmt.Errorf("create stderr log: %w", err)
	}
	defer stderr.Close()

	cmd := exec.CommandContext(ctx, c.command, c.app, opts.SpecFile, paramsPath)
	cmd.Dir = scratchDir
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	result := &RunResult{
		ExitCode:   0,
		Elapsed:    elapsed,
		StdoutPath: opts.LogBase + ".out",
		StderrPath: opts.LogBase + ".err",
		ScratchDir: scratchDir,
	}

	if runErr != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, NewExitError(result.ExitCode, runErr)
	}

	if err := writeElapsed(opts.LogBase+".elapsed", elapsed); err != nil {
		return result, err
	}

	os.RemoveAll(scratchDir)
	return result, nil
}

// writeParams serializes the parameter document into the scratch directory
func writeParams(scratchDir string, doc interface{}) (string, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode params: %w", err)
	}

	path := filepath.Join(scratchDir, "params.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write params: %w", err)
	}
	return path, nil
}

// writeElapsed records wall-clock seconds as a single plain-text line
func writeElapsed(path string, elapsed time.Duration) error {
	line := strconv.FormatFloat(elapsed.Seconds(), 'f', 3, 64) + "\n"
	if err := os.WriteFile(path, []byte(line), 0o644); err != nil {
		return fmt.Errorf("write elapsed file: %w", err)
	}
	return nil
}

// MockClient is a test implementation of Client
type MockClient struct {
	// RunFunc is called when Run is invoked
	RunFunc func(ctx context.Context, opts RunOptions) (*RunResult, error)
}

// Run delegates to RunFunc
func (m *MockClient) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	if m.RunFunc != nil {
		return m.RunFunc(ctx, opts)
	}
	return &RunResult{ExitCode: 0}, nil
}

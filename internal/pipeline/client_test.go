package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/RevCBH/gannet/internal/params"
)

// writeScript creates an executable shell script standing in for the
// pipeline launcher.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fakepipe.sh")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func testRunOptions(t *testing.T) RunOptions {
	t.Helper()
	return RunOptions{
		Params:      params.Build(params.Config{OutputPath: "/flu-2026"}, "/data/genome42.gb"),
		SpecFile:    "/opt/annosvc/app_specs/GenomeAnnotation.json",
		LogBase:     filepath.Join(t.TempDir(), "genome42"),
		ScratchBase: t.TempDir(),
	}
}

func TestCLIClient_Run_Success(t *testing.T) {
	script := writeScript(t, `printf '%s\n%s\n%s\n' "$1" "$2" "$3"
cat "$3" >&2`)
	client := NewCLIClient(script, "GenomeAnnotation")
	opts := testRunOptions(t)

	result, err := client.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.ExitCode != 0 {
		t.Errorf("expected exit code 0, got %d", result.ExitCode)
	}

	// Args arrive as <app> <spec-file> <params-file>
	out, err := os.ReadFile(opts.LogBase + ".out")
	if err != nil {
		t.Fatalf("read stdout log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 arg lines, got %d: %q", len(lines), out)
	}
	if lines[0] != "GenomeAnnotation" {
		t.Errorf("expected app token first, got %q", lines[0])
	}
	if lines[1] != opts.SpecFile {
		t.Errorf("expected spec file second, got %q", lines[1])
	}
	if filepath.Dir(lines[2]) != result.ScratchDir {
		t.Errorf("expected params file inside scratch dir %q, got %q", result.ScratchDir, lines[2])
	}

	// The pipeline saw the serialized parameter document
	errOut, err := os.ReadFile(opts.LogBase + ".err")
	if err != nil {
		t.Fatalf("read stderr log: %v", err)
	}
	if !strings.Contains(string(errOut), `"genbank_file": "/flu-2026/genome42.gb"`) {
		t.Errorf("expected params JSON on stderr, got: %s", errOut)
	}

	// Elapsed file holds one parseable line of seconds
	elapsedData, err := os.ReadFile(opts.LogBase + ".elapsed")
	if err != nil {
		t.Fatalf("read elapsed file: %v", err)
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(elapsedData)), 64)
	if err != nil {
		t.Fatalf("elapsed file not a number: %q", elapsedData)
	}
	if seconds < 0 {
		t.Errorf("expected non-negative elapsed seconds, got %f", seconds)
	}

	// Scratch dir is removed on success
	if _, err := os.Stat(result.ScratchDir); !os.IsNotExist(err) {
		t.Errorf("expected scratch dir removed on success, stat err: %v", err)
	}
}

func TestCLIClient_Run_NonZeroExit(t *testing.T) {
	script := writeScript(t, `echo "stage call_features_CDS failed" >&2
exit 3`)
	client := NewCLIClient(script, "GenomeAnnotation")
	opts := testRunOptions(t)

	result, err := client.Run(context.Background(), opts)
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}

	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected *ExitError, got %T: %v", err, err)
	}
	if exitErr.Code != 3 {
		t.Errorf("expected exit code 3, got %d", exitErr.Code)
	}
	if result.ExitCode != 3 {
		t.Errorf("expected result exit code 3, got %d", result.ExitCode)
	}

	// Stderr was captured for diagnosis
	errOut, readErr := os.ReadFile(opts.LogBase + ".err")
	if readErr != nil {
		t.Fatalf("read stderr log: %v", readErr)
	}
	if !strings.Contains(string(errOut), "stage call_features_CDS failed") {
		t.Errorf("expected captured stderr, got: %s", errOut)
	}

	// No elapsed file on failure
	if _, statErr := os.Stat(opts.LogBase + ".elapsed"); !os.IsNotExist(statErr) {
		t.Error("expected no elapsed file on failure")
	}

	// Scratch dir kept for diagnosis, but the params file is gone
	if _, statErr := os.Stat(result.ScratchDir); statErr != nil {
		t.Errorf("expected scratch dir kept on failure: %v", statErr)
	}
	if _, statErr := os.Stat(filepath.Join(result.ScratchDir, "params.json")); !os.IsNotExist(statErr) {
		t.Error("expected params file removed on failure")
	}
}

func TestCLIClient_Run_SpawnFailure(t *testing.T) {
	client := NewCLIClient(filepath.Join(t.TempDir(), "missing-binary"), "GenomeAnnotation")
	opts := testRunOptions(t)

	result, err := client.Run(context.Background(), opts)
	if err == nil {
		t.Fatal("expected error for missing binary")
	}

	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected *ExitError, got %T: %v", err, err)
	}
	if exitErr.Code != -1 {
		t.Errorf("expected exit code -1 for spawn failure, got %d", exitErr.Code)
	}
	if result == nil || result.ExitCode != -1 {
		t.Error("expected populated result with exit code -1")
	}
}

func TestCLIClient_Run_ValidationErrors(t *testing.T) {
	client := NewCLIClient("appserv-run", "GenomeAnnotation")
	ctx := context.Background()

	base := testRunOptions(t)

	tests := []struct {
		name    string
		mutate  func(*RunOptions)
		wantErr error
	}{
		{
			name:    "empty log base",
			mutate:  func(o *RunOptions) { o.LogBase = "" },
			wantErr: ErrEmptyLogBase,
		},
		{
			name:    "empty spec file",
			mutate:  func(o *RunOptions) { o.SpecFile = "" },
			wantErr: ErrEmptySpecFile,
		},
		{
			name:    "empty output id",
			mutate:  func(o *RunOptions) { o.Params.OutputFile = "" },
			wantErr: ErrEmptyOutputID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := base
			tt.mutate(&opts)

			_, err := client.Run(ctx, opts)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestMockClient(t *testing.T) {
	callCount := 0
	mock := &MockClient{
		RunFunc: func(ctx context.Context, opts RunOptions) (*RunResult, error) {
			callCount++
			return &RunResult{ExitCode: 0}, nil
		},
	}

	result, err := mock.Run(context.Background(), RunOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ExitCode != 0 {
		t.Errorf("expected exit code 0, got %d", result.ExitCode)
	}
	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
}

func TestMockClient_DefaultBehavior(t *testing.T) {
	mock := &MockClient{}

	result, err := mock.Run(context.Background(), RunOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ExitCode != 0 {
		t.Error("expected default success")
	}
}

//go:build e2e

// cli_harness_test.go provides a test harness for E2E testing of the
// taskwatch CLI.
//
// The CLIHarness builds the taskwatch binary and runs commands in an
// isolated workspace against a simulated gateway.
package integration

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testops/taskwatch/internal/simulate"
)

// CLIHarness manages a taskwatch binary for E2E testing.
type CLIHarness struct {
	// BinaryPath is the path to the built taskwatch binary.
	BinaryPath string

	// WorkDir is the working directory commands run in. It holds a
	// taskwatch.yaml pointing at Engine.
	WorkDir string

	// EnvVars are added to the inherited environment.
	EnvVars map[string]string

	Engine *simulate.Engine

	t *testing.T
}

// CLIResult contains the output from a CLI command execution.
type CLIResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
}

// Success returns true if the command completed with exit code 0.
func (r *CLIResult) Success() bool {
	return r.ExitCode == 0 && r.Err == nil
}

// NewCLIHarness builds the binary, starts a seeded simulated gateway and
// writes a workspace config that points at it.
func NewCLIHarness(t *testing.T) *CLIHarness {
	t.Helper()

	projectRoot := findProjectRoot(t)

	tmpDir := t.TempDir()
	binaryPath := filepath.Join(tmpDir, "taskwatch")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/taskwatch")
	cmd.Dir = projectRoot
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "failed to build taskwatch binary: %s", output)

	engine := simulate.New(simulate.Options{})
	engine.Seed()
	srv := httptest.NewServer(engine.Handler())
	t.Cleanup(srv.Close)

	workDir := filepath.Join(tmpDir, "workspace")
	require.NoError(t, os.MkdirAll(workDir, 0755))
	cfg := "api:\n  url: " + srv.URL + "/api/v1\n" +
		"stream:\n  reconnect_interval: 10ms\n  max_reconnect_interval: 50ms\n  max_reconnect_attempts: 2\n"
	require.NoError(t, os.WriteFile(filepath.Join(workDir, "taskwatch.yaml"), []byte(cfg), 0644))

	return &CLIHarness{
		BinaryPath: binaryPath,
		WorkDir:    workDir,
		EnvVars:    map[string]string{"HOME": tmpDir},
		Engine:     engine,
		t:          t,
	}
}

// SetEnv sets an environment variable for subsequent command executions.
func (h *CLIHarness) SetEnv(key, value string) {
	h.EnvVars[key] = value
}

// Run executes a taskwatch command with default timeout (30 seconds).
func (h *CLIHarness) Run(args ...string) *CLIResult {
	return h.RunWithTimeout(30*time.Second, args...)
}

// RunWithTimeout executes a taskwatch command with the specified timeout.
func (h *CLIHarness) RunWithTimeout(timeout time.Duration, args ...string) *CLIResult {
	h.t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return h.RunWithContext(ctx, args...)
}

// RunWithContext executes a taskwatch command with the given context.
func (h *CLIHarness) RunWithContext(ctx context.Context, args ...string) *CLIResult {
	h.t.Helper()

	cmd := exec.CommandContext(ctx, h.BinaryPath, args...)
	cmd.Dir = h.WorkDir
	cmd.Env = h.buildEnv()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := &CLIResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		result.Err = err
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
		}
	}
	return result
}

// buildEnv drops inherited TASKWATCH_* variables so the workspace config
// decides.
func (h *CLIHarness) buildEnv() []string {
	var env []string
	for _, e := range os.Environ() {
		if strings.HasPrefix(e, "TASKWATCH_") {
			continue
		}
		env = append(env, e)
	}
	for k, v := range h.EnvVars {
		env = append(env, k+"="+v)
	}
	return env
}

// findProjectRoot walks up from the current directory to the go.mod.
func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err, "failed to get working directory")
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		require.NotEqual(t, dir, parent, "could not find project root")
		dir = parent
	}
}

// RequireSuccess fails the test if the command did not succeed.
func (h *CLIHarness) RequireSuccess(result *CLIResult, msgAndArgs ...interface{}) {
	h.t.Helper()
	if !result.Success() {
		h.t.Logf("stdout: %s", result.Stdout)
		h.t.Logf("stderr: %s", result.Stderr)
	}
	require.True(h.t, result.Success(), msgAndArgs...)
}

// RequireFailure fails the test if the command succeeded.
func (h *CLIHarness) RequireFailure(result *CLIResult, msgAndArgs ...interface{}) {
	h.t.Helper()
	require.False(h.t, result.Success(), msgAndArgs...)
}

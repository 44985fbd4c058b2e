// Package daemon invokes the mesh daemon's CLI control surface. It owns
// subprocess execution, timeouts, and the classification of failures; retry
// policy belongs to callers.
package daemon

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds a single control command invocation.
const DefaultTimeout = 10 * time.Second

// Result captures the streams and exit code of one control command.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Runner executes one control command against the daemon.
type Runner interface {
	Run(ctx context.Context, args ...string) (Result, error)
}

// RunnerFunc adapts a function to the Runner interface. Tests use this to
// stand in for the real CLI.
type RunnerFunc func(ctx context.Context, args ...string) (Result, error)

func (f RunnerFunc) Run(ctx context.Context, args ...string) (Result, error) {
	return f(ctx, args...)
}

// ErrNotInstalled reports that the daemon CLI binary is absent from PATH.
var ErrNotInstalled = errors.New("mesh daemon CLI is not installed")

// TimeoutError reports a control command that exceeded its deadline and was
// forcibly terminated.
type TimeoutError struct {
	Args    []string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("command %q timed out after %s", strings.Join(e.Args, " "), e.Timeout)
}

// ExitError reports a control command that ran to completion with a non-zero
// exit code.
type ExitError struct {
	Args   []string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("command %q exited with code %d", strings.Join(e.Args, " "), e.Code)
	}
	return fmt.Sprintf("command %q exited with code %d: %s", strings.Join(e.Args, " "), e.Code, msg)
}

// SpawnError reports a subprocess that could not be started at all.
type SpawnError struct {
	Args []string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to run %q: %v", strings.Join(e.Args, " "), e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// CLI runs control commands by spawning the daemon's command line binary.
type CLI struct {
	// Binary is the command name or path, e.g. "tailscale".
	Binary string
	// Timeout bounds each invocation; zero means DefaultTimeout.
	Timeout time.Duration
}

// Run executes one command as an isolated subprocess, capturing both streams
// and the exit code. The subprocess is killed when the timeout elapses.
func (c *CLI) Run(ctx context.Context, args ...string) (Result, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, c.Binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}

	if err == nil {
		return res, nil
	}

	if errors.Is(err, exec.ErrNotFound) {
		return res, ErrNotInstalled
	}
	if runCtx.Err() == context.DeadlineExceeded {
		return res, &TimeoutError{Args: args, Timeout: timeout}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, &ExitError{Args: args, Code: res.ExitCode, Stderr: stderr.String()}
	}

	return res, &SpawnError{Args: args, Err: err}
}

// Package gateways provides adapter implementations for external services and tools.
package gateways

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

var (
	// ErrToolNotFound is returned when an external tool is not on PATH
	ErrToolNotFound = errors.New("tool not found")
	// ErrUnparsableOutput is returned when tool output cannot be interpreted
	ErrUnparsableOutput = errors.New("unparsable tool output")
)

// lookupTool resolves an external tool binary; swapped in tests
var lookupTool = exec.LookPath

// ToolError describes a failed external tool invocation
type ToolError struct {
	Tool     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s failed (exit %d): %v", e.Tool, e.ExitCode, e.Err)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

func (e *ToolError) Unwrap() error { return e.Err }

// CommandRunner executes external tools and captures their output
type CommandRunner struct {
	timeout time.Duration
	env     []string
}

// NewCommandRunner creates a runner; a zero timeout lets tools run to completion
func NewCommandRunner(timeout time.Duration, env []string) *CommandRunner {
	return &CommandRunner{timeout: timeout, env: env}
}

// CommandResult contains the result of a tool invocation
type CommandResult struct {
	Success  bool
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	Error    error
}

// Run executes name with args and waits for it to finish
func (r *CommandRunner) Run(ctx context.Context, name string, args ...string) *CommandResult {
	startTime := time.Now()
	result := &CommandResult{}

	execCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	//nolint:gosec // G204: tool names come from analyzer configuration
	cmd := exec.CommandContext(execCtx, name, args...)
	if len(r.env) > 0 {
		cmd.Env = append(os.Environ(), r.env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result.Duration = time.Since(startTime)
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	if err != nil {
		result.Error = err
		result.ExitCode = -1
		var exitErr *exec.ExitError
		switch {
		case errors.Is(err, exec.ErrNotFound):
			result.Error = fmt.Errorf("%w: %s", ErrToolNotFound, name)
		case errors.Is(execCtx.Err(), context.DeadlineExceeded):
			result.Error = fmt.Errorf("%s timed out after %v", name, r.timeout)
		case errors.As(err, &exitErr):
			result.ExitCode = exitErr.ExitCode()
		}
		return result
	}

	result.Success = true
	return result
}

// toolError converts an unsuccessful result into a *ToolError
func (res *CommandResult) toolError(tool string) error {
	return &ToolError{
		Tool:     tool,
		ExitCode: res.ExitCode,
		Stderr:   res.Stderr,
		Err:      res.Error,
	}
}

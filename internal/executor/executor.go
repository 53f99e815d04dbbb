// Package executor runs shell commands on behalf of the investigation loop.
// It is the only component with real-world effect: every command passes the
// safety filter first, runs in its own process group, and is bounded by a
// wall-clock timeout that tears the whole group down.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"sysnerd/internal/safety"
)

// maxCapturedOutput bounds stdout+stderr fed back into the conversation.
const maxCapturedOutput = 50000

// Result describes one command execution. Blocked commands, timeouts and
// spawn failures are all Results, never errors; exit code -1 is reserved
// for those non-process outcomes.
type Result struct {
	Succeeded bool
	Stdout    string
	Stderr    string
	ExitCode  int
	Duration  time.Duration
}

// Executor executes shell commands with safety and timeout constraints.
type Executor struct {
	filter  *safety.Filter
	timeout time.Duration
	dryRun  bool
	logger  *zap.Logger
}

// New creates an executor. The filter must not be nil.
func New(filter *safety.Filter, timeout time.Duration, dryRun bool, logger *zap.Logger) *Executor {
	return &Executor{
		filter:  filter,
		timeout: timeout,
		dryRun:  dryRun,
		logger:  logger,
	}
}

// DryRun reports whether the executor simulates execution.
func (e *Executor) DryRun() bool { return e.dryRun }

// Execute runs a command through the shell and returns a structured result.
// It never returns an error: command failure, blocking, timeout and spawn
// faults are all folded into the Result.
func (e *Executor) Execute(ctx context.Context, command string) Result {
	if e.dryRun {
		e.logger.Info("dry run", zap.String("command", command))
		return Result{
			Succeeded: true,
			Stdout:    fmt.Sprintf("[DRY RUN] Would execute: %s", command),
			ExitCode:  0,
		}
	}

	if verdict := e.filter.Classify(command); !verdict.Allowed {
		msg := fmt.Sprintf("Command blocked for safety: %s", verdict.Reason)
		e.logger.Warn("command blocked", zap.String("command", command), zap.String("reason", verdict.Reason))
		return Result{
			Succeeded: false,
			Stderr:    msg,
			ExitCode:  -1,
		}
	}

	e.logger.Info("executing command", zap.String("command", command))
	start := time.Now()

	cmd := exec.Command("sh", "-c", command)
	cmd.SysProcAttr = procGroupAttr()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		e.logger.Error("failed to spawn command", zap.String("command", command), zap.Error(err))
		return Result{
			Succeeded: false,
			Stderr:    fmt.Sprintf("Failed to execute command: %v", err),
			ExitCode:  -1,
			Duration:  time.Since(start),
		}
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	var (
		exitCode    int
		timeoutNote string
	)

	select {
	case err := <-done:
		exitCode = exitCodeOf(cmd, err)

	case <-timer.C:
		// Kill the whole group so children spawned by the shell die too.
		killProcessGroup(cmd)
		<-done
		exitCode = -1
		timeoutNote = fmt.Sprintf("Command timed out after %d seconds\n", int(e.timeout.Seconds()))
		e.logger.Warn("command timed out",
			zap.String("command", command),
			zap.Duration("timeout", e.timeout))

	case <-ctx.Done():
		killProcessGroup(cmd)
		<-done
		exitCode = -1
		timeoutNote = "Command canceled\n"
		e.logger.Warn("command canceled", zap.String("command", command))
	}

	elapsed := time.Since(start)

	result := Result{
		Succeeded: exitCode == 0,
		Stdout:    truncate(stdout.String()),
		Stderr:    truncate(timeoutNote + stderr.String()),
		ExitCode:  exitCode,
		Duration:  elapsed,
	}

	e.logger.Info("command completed",
		zap.String("command", command),
		zap.Int("exit_code", exitCode),
		zap.Duration("elapsed", elapsed))
	return result
}

// exitCodeOf extracts the exit code from a finished command.
func exitCodeOf(cmd *exec.Cmd, err error) int {
	if err == nil {
		return cmd.ProcessState.ExitCode()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func truncate(s string) string {
	if len(s) > maxCapturedOutput {
		return s[:maxCapturedOutput] + "\n...[truncated]"
	}
	return s
}

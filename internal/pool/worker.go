// Package pool runs N identical fuzzing workers from one process spec,
// multiplexes their line output, and resolves which worker exits first.
package pool

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// CommandSource materializes fresh, unstarted commands for workers.
// *process.Spec is the production implementation; tests substitute
// sources that misbehave on demand.
type CommandSource interface {
	Command(ctx context.Context) *exec.Cmd
}

// Worker is a handle on one running fuzz process. IDs are assigned in
// spawn order, 0..N-1.
type Worker struct {
	id  int
	cmd *exec.Cmd

	stdout io.ReadCloser
	stderr io.ReadCloser

	startTime time.Time
	logger    *slog.Logger

	killOnce sync.Once
}

// spawnWorker starts one worker from the source with both output streams
// piped and the process in its own group. The returned worker is running.
func spawnWorker(ctx context.Context, src CommandSource, id int, logger *slog.Logger) (*Worker, error) {
	cmd := src.Command(ctx)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	// Own process group, so the whole worker tree can be signalled at once.
	configureCommand(cmd)

	w := &Worker{
		id:     id,
		cmd:    cmd,
		stdout: stdout,
		stderr: stderr,
		logger: logger,
	}

	w.startTime = time.Now()
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	logger.Info("worker_started",
		"worker_id", id,
		"pid", cmd.Process.Pid,
	)
	return w, nil
}

// ID returns the worker's pool index.
func (w *Worker) ID() int {
	return w.id
}

// PID returns the worker's process ID.
func (w *Worker) PID() int {
	return w.cmd.Process.Pid
}

// Uptime returns how long the worker has been running.
func (w *Worker) Uptime() time.Duration {
	return time.Since(w.startTime)
}

// Wait blocks until the worker exits and returns the raw wait error.
// The pool calls Wait exactly once per worker, after both stream pumps
// reach EOF, so reaping never races the output readers.
func (w *Worker) Wait() error {
	return w.cmd.Wait()
}

// Kill force-terminates the worker's process group. It is idempotent and
// best-effort: the process may already be gone, so failures are logged at
// debug and swallowed.
func (w *Worker) Kill() {
	w.killOnce.Do(func() {
		if w.cmd.Process == nil {
			return
		}
		if err := killProcessGroup(w.cmd.Process.Pid); err != nil {
			w.logger.Debug("worker_kill_failed",
				"worker_id", w.id,
				"pid", w.cmd.Process.Pid,
				"error", err,
			)
		}
	})
}

// extractExitCode extracts the exit code from a Wait() error.
func extractExitCode(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			if status.Signaled() {
				// Signal exit: 128 + signal number
				return 128 + int(status.Signal())
			}
			return status.ExitStatus()
		}
	}

	// Unknown error, assume exit code 1
	return 1
}

// isExitError reports whether a Wait() error is a plain non-zero exit,
// as opposed to a wait failure in the driver itself.
func isExitError(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr)
}

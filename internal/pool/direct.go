package pool

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"fuzzswarm/internal/process"
)

// ReplaceProcess swaps the driver for the worker outright where the
// platform supports it. On success it never returns: the worker inherits
// the terminal, the PID, and the exit status path entirely. The error
// return means replacement was not possible and the caller should fall
// back to RunAttached.
func ReplaceProcess(spec *process.Spec) error {
	return replaceProcess(spec)
}

// RunAttached runs a single worker with all three stdio streams
// inherited and no line tagging, and returns its exit code exactly as
// the shell would see it. This is the single-worker path for platforms
// without process replacement.
func RunAttached(ctx context.Context, src CommandSource, logger *slog.Logger) (int, error) {
	cmd := src.Command(ctx)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	// No process group here: the single worker stays in the driver's,
	// so terminal signals reach it directly.

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("spawning worker 0: %w", err)
	}
	logger.Info("worker_started", "worker_id", 0, "pid", cmd.Process.Pid)

	err := cmd.Wait()
	if err != nil && !isExitError(err) {
		return 0, fmt.Errorf("waiting on worker 0: %w", err)
	}
	return extractExitCode(err), nil
}

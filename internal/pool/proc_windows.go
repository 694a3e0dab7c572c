//go:build windows

package pool

import (
	"errors"
	"os"
	"os/exec"

	"fuzzswarm/internal/process"
)

// errNoReplace makes the single-worker path fall back to RunAttached.
var errNoReplace = errors.New("process replacement is not supported on this platform")

func configureCommand(cmd *exec.Cmd) {
	// No process groups to configure; workers are killed individually.
}

func killProcessGroup(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Kill()
}

func replaceProcess(spec *process.Spec) error {
	return errNoReplace
}

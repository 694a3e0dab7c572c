//go:build unix

package pool

import (
	"os"
	"os/exec"
	"syscall"

	"fuzzswarm/internal/process"
)

// configureCommand places the child in its own process group so the
// whole worker tree can be signalled at once.
func configureCommand(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}

// killProcessGroup force-kills the process group led by pid, falling back
// to the single process when the group cannot be resolved.
func killProcessGroup(pid int) error {
	pgid, err := syscall.Getpgid(pid)
	if err != nil {
		return syscall.Kill(pid, syscall.SIGKILL)
	}
	return syscall.Kill(-pgid, syscall.SIGKILL)
}

// replaceProcess swaps the driver's process image for the worker via
// exec(2). On success it never returns: the worker inherits the
// terminal, the PID, and the exit status path entirely.
func replaceProcess(spec *process.Spec) error {
	path, err := exec.LookPath(spec.Path)
	if err != nil {
		return err
	}
	if spec.Dir != "" {
		if err := os.Chdir(spec.Dir); err != nil {
			return err
		}
	}
	return syscall.Exec(path, spec.Argv(), spec.Environ())
}

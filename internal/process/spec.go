// Package process builds the external commands fuzzswarm runs: the fuzz
// binary build step and the per-worker fuzzing invocations.
package process

import (
	"context"
	"os"
	"os/exec"
	"strings"
)

// Spec is an immutable template for launching one external process.
// The worker pool spawns every worker from the same Spec and never
// interprets its contents.
type Spec struct {
	// Path is the executable to run.
	Path string

	// Args are the arguments, not including the executable name.
	Args []string

	// Env holds KEY=VALUE entries appended to the parent environment.
	Env []string

	// Dir is the working directory. Empty means inherit.
	Dir string
}

// Command materializes a fresh exec.Cmd from the spec. Each call returns
// an independent command, so one Spec can back any number of workers.
func (s *Spec) Command(ctx context.Context) *exec.Cmd {
	cmd := exec.CommandContext(ctx, s.Path, s.Args...)
	cmd.Dir = s.Dir
	cmd.Env = s.Environ()
	return cmd
}

// Argv returns the full argument vector including the executable name,
// the form process replacement wants.
func (s *Spec) Argv() []string {
	argv := make([]string, 0, len(s.Args)+1)
	argv = append(argv, s.Path)
	return append(argv, s.Args...)
}

// Environ returns the parent environment with the spec's entries
// appended. Later entries win, so spec values override inherited ones.
func (s *Spec) Environ() []string {
	env := os.Environ()
	return append(env, s.Env...)
}

// String returns the command line for logging.
func (s *Spec) String() string {
	return s.Path + " " + strings.Join(s.Args, " ")
}

package process

import (
	"fmt"
	"os"
	"strings"
)

// Sanitizer selects the instrumentation the fuzz binary is built with.
type Sanitizer string

const (
	// SanitizerAddress builds with -asan. Needs cgo and an ASan-capable
	// C toolchain.
	SanitizerAddress Sanitizer = "address"

	// SanitizerThread builds with the race detector.
	SanitizerThread Sanitizer = "thread"

	// SanitizerMemory builds with -msan. Linux/clang only.
	SanitizerMemory Sanitizer = "memory"

	// SanitizerNone builds without instrumentation.
	SanitizerNone Sanitizer = "none"
)

// Sanitizers lists the accepted sanitizer names.
func Sanitizers() []string {
	return []string{
		string(SanitizerAddress),
		string(SanitizerThread),
		string(SanitizerMemory),
		string(SanitizerNone),
	}
}

// ParseSanitizer validates a sanitizer name.
func ParseSanitizer(s string) (Sanitizer, error) {
	switch Sanitizer(strings.ToLower(s)) {
	case SanitizerAddress:
		return SanitizerAddress, nil
	case SanitizerThread:
		return SanitizerThread, nil
	case SanitizerMemory:
		return SanitizerMemory, nil
	case SanitizerNone:
		return SanitizerNone, nil
	}
	return "", fmt.Errorf("unknown sanitizer %q (expected one of %s)", s, strings.Join(Sanitizers(), ", "))
}

// buildFlag returns the go test flag enabling the sanitizer, if any.
func (s Sanitizer) buildFlag() (string, bool) {
	switch s {
	case SanitizerAddress:
		return "-asan", true
	case SanitizerThread:
		return "-race", true
	case SanitizerMemory:
		return "-msan", true
	}
	return "", false
}

// buildEnv returns environment entries the build step needs.
// -asan and -msan only work with cgo enabled.
func (s Sanitizer) buildEnv() []string {
	switch s {
	case SanitizerAddress, SanitizerMemory:
		return []string{"CGO_ENABLED=1"}
	}
	return nil
}

// runtimeEnv returns environment entries the instrumented binary needs at
// run time. Values merge after anything the user already exported, so the
// driver's settings take precedence without discarding theirs.
func (s Sanitizer) runtimeEnv() []string {
	switch s {
	case SanitizerAddress:
		// The Go allocator holds memory in ways ASan's leak checker
		// misreports as leaks on fuzzer aborts.
		return []string{mergeEnv("ASAN_OPTIONS", "detect_leaks=0", ":")}
	case SanitizerThread:
		// A detected race must stop the worker so the pool sees an exit.
		return []string{mergeEnv("GORACE", "halt_on_error=1", " ")}
	}
	return nil
}

// mergeEnv builds a KEY=VALUE entry, appending value to any existing
// KEY with sep between them.
func mergeEnv(key, value, sep string) string {
	if existing := os.Getenv(key); existing != "" {
		return key + "=" + existing + sep + value
	}
	return key + "=" + value
}

// FuzzConfig holds everything needed to build and run one fuzz target.
type FuzzConfig struct {
	// GoBinary is the go tool used for the build step.
	GoBinary string

	// RootDir is the module root; build and run both execute from here.
	RootDir string

	// PackageDir is the fuzz target package, relative to RootDir
	// (e.g. "./fuzz/targets").
	PackageDir string

	// BinPath is the output path for the built test binary.
	BinPath string

	// FuzzFunc is the fuzz function the run is anchored on.
	FuzzFunc string

	// CorpusDir is handed to workers as -test.fuzzcachedir.
	CorpusDir string

	// Sanitizer selects build instrumentation.
	Sanitizer Sanitizer

	// ExtraArgs are appended verbatim to the worker command line, after
	// the driver-generated flags so the user can override them.
	ExtraArgs []string
}

// DefaultFuzzConfig returns a FuzzConfig with the default toolchain and
// sanitizer.
func DefaultFuzzConfig() *FuzzConfig {
	return &FuzzConfig{
		GoBinary:  "go",
		Sanitizer: SanitizerAddress,
	}
}

// BuildSpec returns the spec that compiles the fuzz test binary:
//
//	go test -c -o <bin> [sanitizer flag] <package>
//
// The build runs in the foreground with inherited stdio, so compiler
// output reaches the user untouched.
func (c *FuzzConfig) BuildSpec() *Spec {
	args := []string{"test", "-c", "-o", c.BinPath}
	if flag, ok := c.Sanitizer.buildFlag(); ok {
		args = append(args, flag)
	}
	args = append(args, c.PackageDir)

	return &Spec{
		Path: c.GoBinary,
		Args: args,
		Env:  c.Sanitizer.buildEnv(),
		Dir:  c.RootDir,
	}
}

// WorkerSpec returns the spec every fuzzing worker runs: the built test
// binary anchored on exactly one fuzz function, with unit tests disabled.
func (c *FuzzConfig) WorkerSpec() *Spec {
	args := []string{
		"-test.fuzz=^" + c.FuzzFunc + "$",
		"-test.fuzzcachedir=" + c.CorpusDir,
		"-test.run=^$",
	}
	args = append(args, c.ExtraArgs...)

	return &Spec{
		Path: c.BinPath,
		Args: args,
		Env:  c.Sanitizer.runtimeEnv(),
		Dir:  c.RootDir,
	}
}

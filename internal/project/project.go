// Package project locates the Go module being fuzzed and owns the layout
// of its fuzz/ directory: manifest, target files, corpus and artifact
// directories, and built binaries.
package project

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ManifestName is the fuzz manifest file name inside the fuzz directory.
const ManifestName = "fuzz.toml"

// Project is the Go module being fuzzed.
// Not the fuzz targets themselves, but the code they exercise.
type Project struct {
	// Root is the directory containing go.mod.
	Root string
	// ModulePath is the module path declared in go.mod.
	ModulePath string
}

// Find walks up from startDir until it finds a directory containing go.mod
// and returns the project rooted there. Every subcommand starts with Find,
// so all of them work from any subdirectory of the module.
func Find(startDir string) (*Project, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, fmt.Errorf("resolving start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, "go.mod")
		if _, err := os.Stat(candidate); err == nil {
			modPath, err := modulePath(candidate)
			if err != nil {
				return nil, err
			}
			return &Project{Root: dir, ModulePath: modPath}, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return nil, fmt.Errorf("no go.mod found in %s or any parent directory", startDir)
}

// Name returns the last element of the module path, used as the package
// name in scaffolded manifests.
func (p *Project) Name() string {
	return path.Base(p.ModulePath)
}

// Dir returns the fuzz directory, fuzz/ under the module root.
func (p *Project) Dir() string {
	return filepath.Join(p.Root, "fuzz")
}

// ManifestPath returns the path to fuzz/fuzz.toml.
func (p *Project) ManifestPath() string {
	return filepath.Join(p.Dir(), ManifestName)
}

// TargetsDir returns the directory holding target test files,
// fuzz/targets. All targets share one Go package there, so one
// `go test -c` build covers every target.
func (p *Project) TargetsDir() string {
	return filepath.Join(p.Dir(), "targets")
}

// TargetPath returns the test file for a target, fuzz/targets/<name>_test.go.
func (p *Project) TargetPath(target string) string {
	return filepath.Join(p.TargetsDir(), target+"_test.go")
}

// BinDir returns the directory for built fuzz binaries, fuzz/bin.
func (p *Project) BinDir() string {
	return filepath.Join(p.Dir(), "bin")
}

// BinPath returns the built test binary path for a target.
func (p *Project) BinPath(target string) string {
	return filepath.Join(p.BinDir(), target+".test")
}

// FuzzFuncName returns the fuzz function name embedded in a target's test
// file. The run command anchors -test.fuzz on this exact name.
func FuzzFuncName(target string) string {
	return "Fuzz_" + target
}

// CorpusDir returns the accumulated-corpus directory for a target,
// fuzz/corpus/<name>, creating it if needed. This is handed to workers as
// -test.fuzzcachedir.
func (p *Project) CorpusDir(target string) (string, error) {
	dir := filepath.Join(p.Dir(), "corpus", target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating corpus directory: %w", err)
	}
	return dir, nil
}

// ArtifactDir returns the directory where the Go fuzzing runtime reads
// seeds and writes failing inputs for a target,
// fuzz/targets/testdata/fuzz/Fuzz_<name>, creating it if needed.
func (p *Project) ArtifactDir(target string) (string, error) {
	dir := filepath.Join(p.TargetsDir(), "testdata", "fuzz", FuzzFuncName(target))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating artifact directory: %w", err)
	}
	return dir, nil
}

// modulePath extracts the module path from a go.mod file.
func modulePath(gomod string) (string, error) {
	f, err := os.Open(gomod)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", gomod, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 2 && fields[0] == "module" {
			// A quoted module path is rare but legal.
			return strings.Trim(fields[1], `"`), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading %s: %w", gomod, err)
	}
	return "", fmt.Errorf("%s: no module declaration found", gomod)
}

package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const manifestTemplate = `# fuzzswarm manifest. Targets are appended by "fuzzswarm add".
[package]
name = %q

[package.metadata]
fuzzswarm = true
`

const targetEntryTemplate = `
[[target]]
name = %q
`

// Built binaries and the accumulated corpus are reproducible; seeds and
// failing inputs under targets/testdata are not, so they stay tracked.
const gitignoreTemplate = `bin/
corpus/
`

const targetTemplate = `package targets

import "testing"

// %s exercises %s. Replace the body with calls into the code under test.
func %s(f *testing.F) {
	f.Fuzz(func(t *testing.T, data []byte) {
		_ = data
	})
}
`

// Init scaffolds fuzzing support for the project: the fuzz directory, the
// manifest, a .gitignore, and one initial target. It returns the created
// paths, and refuses to run twice.
func (p *Project) Init(target string) ([]string, error) {
	if !ValidTargetName(target) {
		return nil, fmt.Errorf("invalid target name %q (must match %s)", target, targetNameRE)
	}
	manifestPath := p.ManifestPath()
	if _, err := os.Stat(manifestPath); err == nil {
		return nil, fmt.Errorf("fuzz directory already initialized: %s exists", manifestPath)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat %q: %w", manifestPath, err)
	}

	if err := os.MkdirAll(p.TargetsDir(), 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", p.TargetsDir(), err)
	}

	if err := os.WriteFile(manifestPath, fmt.Appendf(nil, manifestTemplate, p.Name()), 0o600); err != nil {
		return nil, fmt.Errorf("writing manifest: %w", err)
	}
	created := []string{manifestPath}

	gitignorePath := filepath.Join(p.Dir(), ".gitignore")
	if err := os.WriteFile(gitignorePath, []byte(gitignoreTemplate), 0o600); err != nil {
		return nil, fmt.Errorf("writing .gitignore: %w", err)
	}
	created = append(created, gitignorePath)

	targetFile, err := p.createTargetFile(target)
	if err != nil {
		return nil, err
	}
	if err := p.appendTargetEntry(target); err != nil {
		return nil, err
	}
	return append(created, targetFile), nil
}

// AddTarget adds a new fuzz target to an initialized project: corpus and
// artifact directories, the target test file, and a manifest entry. It
// returns the created test file path.
func (p *Project) AddTarget(m *Manifest, target string) (string, error) {
	if !ValidTargetName(target) {
		return "", fmt.Errorf("invalid target name %q (must match %s)", target, targetNameRE)
	}
	if m.HasTarget(target) {
		return "", fmt.Errorf("target %q already exists in %s", target, p.ManifestPath())
	}
	if _, err := p.CorpusDir(target); err != nil {
		return "", err
	}
	if _, err := p.ArtifactDir(target); err != nil {
		return "", err
	}
	targetFile, err := p.createTargetFile(target)
	if err != nil {
		return "", fmt.Errorf("adding target %q: %w", target, err)
	}
	if err := p.appendTargetEntry(target); err != nil {
		return "", err
	}
	return targetFile, nil
}

// createTargetFile writes the target test file from the template,
// refusing to clobber an existing one.
func (p *Project) createTargetFile(target string) (string, error) {
	if err := os.MkdirAll(p.TargetsDir(), 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", p.TargetsDir(), err)
	}
	path := p.TargetPath(target)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("creating target file %s: %w", path, err)
	}
	defer f.Close()

	fn := FuzzFuncName(target)
	if _, err := fmt.Fprintf(f, targetTemplate, fn, p.ModulePath, fn); err != nil {
		return "", fmt.Errorf("writing target file %s: %w", path, err)
	}
	return path, nil
}

// appendTargetEntry appends a [[target]] block to the manifest.
func (p *Project) appendTargetEntry(target string) error {
	f, err := os.OpenFile(p.ManifestPath(), os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return fmt.Errorf("opening manifest: %w", err)
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, targetEntryTemplate, target); err != nil {
		return fmt.Errorf("appending to manifest: %w", err)
	}
	return nil
}

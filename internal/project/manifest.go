package project

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// Manifest mirrors fuzz/fuzz.toml.
type Manifest struct {
	Package PackageSection `toml:"package"`
	Targets []Target       `toml:"target"`
}

// PackageSection is the [package] table.
type PackageSection struct {
	Name     string   `toml:"name"`
	Metadata Metadata `toml:"metadata"`
}

// Metadata carries the marker distinguishing our manifest from any other
// TOML file that happens to live at the same path.
type Metadata struct {
	Fuzzswarm bool `toml:"fuzzswarm"`
}

// Target is one [[target]] entry.
type Target struct {
	Name string `toml:"name"`
}

// Target names become part of a Go function name, so they are restricted
// to identifier characters.
var targetNameRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidTargetName reports whether name can be used as a fuzz target name.
func ValidTargetName(name string) bool {
	return targetNameRE.MatchString(name)
}

// LoadManifest parses and validates the manifest at path.
func LoadManifest(path string) (*Manifest, error) {
	var m Manifest
	meta, err := toml.DecodeFile(path, &m)
	if err != nil {
		return nil, fmt.Errorf("%s: parsing TOML: %w", path, err)
	}
	if !meta.IsDefined("package") {
		return nil, fmt.Errorf("%s: missing [package]", path)
	}
	if !meta.IsDefined("package", "name") || strings.TrimSpace(m.Package.Name) == "" {
		return nil, fmt.Errorf("%s: missing [package].name", path)
	}
	if !m.Package.Metadata.Fuzzswarm {
		return nil, fmt.Errorf("%s does not look like a fuzzswarm manifest; add the following lines to override:\n[package.metadata]\nfuzzswarm = true", path)
	}
	seen := make(map[string]bool, len(m.Targets))
	for _, t := range m.Targets {
		if !ValidTargetName(t.Name) {
			return nil, fmt.Errorf("%s: invalid target name %q (must match %s)", path, t.Name, targetNameRE)
		}
		if seen[t.Name] {
			return nil, fmt.Errorf("%s: duplicate target %q", path, t.Name)
		}
		seen[t.Name] = true
	}
	return &m, nil
}

// Manifest loads and validates the project's fuzz manifest.
func (p *Project) Manifest() (*Manifest, error) {
	return LoadManifest(p.ManifestPath())
}

// HasTarget reports whether the manifest declares a target with this name.
func (m *Manifest) HasTarget(name string) bool {
	for _, t := range m.Targets {
		if t.Name == name {
			return true
		}
	}
	return false
}

// TargetNames returns all target names sorted lexicographically, for
// stable script-consumable listing.
func (m *Manifest) TargetNames() []string {
	names := make([]string, 0, len(m.Targets))
	for _, t := range m.Targets {
		names = append(names, t.Name)
	}
	sort.Strings(names)
	return names
}

package project

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// writeManifest drops raw TOML at a temp path and returns the path.
func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ManifestName)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing manifest: %v", err)
	}
	return path
}

const validManifest = `[package]
name = "widget"

[package.metadata]
fuzzswarm = true

[[target]]
name = "decode_frame"

[[target]]
name = "auth_token"
`

func TestLoadManifest_Valid(t *testing.T) {
	path := writeManifest(t, validManifest)

	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest() error: %v", err)
	}
	if m.Package.Name != "widget" {
		t.Errorf("Package.Name = %q, want %q", m.Package.Name, "widget")
	}
	if len(m.Targets) != 2 {
		t.Fatalf("len(Targets) = %d, want 2", len(m.Targets))
	}
	if !m.HasTarget("decode_frame") || !m.HasTarget("auth_token") {
		t.Error("HasTarget missed a declared target")
	}
	if m.HasTarget("nope") {
		t.Error("HasTarget reported an undeclared target")
	}
}

func TestLoadManifest_Invalid(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		errWant string
	}{
		{
			name:    "missing_package",
			content: "[[target]]\nname = \"x\"\n",
			errWant: "missing [package]",
		},
		{
			name:    "missing_name",
			content: "[package]\n[package.metadata]\nfuzzswarm = true\n",
			errWant: "missing [package].name",
		},
		{
			name:    "empty_name",
			content: "[package]\nname = \"  \"\n[package.metadata]\nfuzzswarm = true\n",
			errWant: "missing [package].name",
		},
		{
			name:    "missing_marker",
			content: "[package]\nname = \"widget\"\n",
			errWant: "fuzzswarm = true",
		},
		{
			name:    "marker_false",
			content: "[package]\nname = \"widget\"\n[package.metadata]\nfuzzswarm = false\n",
			errWant: "fuzzswarm = true",
		},
		{
			name: "duplicate_target",
			content: validManifest + `
[[target]]
name = "decode_frame"
`,
			errWant: "duplicate target",
		},
		{
			name: "invalid_target_name",
			content: `[package]
name = "widget"
[package.metadata]
fuzzswarm = true
[[target]]
name = "bad-name"
`,
			errWant: "invalid target name",
		},
		{
			name:    "broken_toml",
			content: "[package\n",
			errWant: "parsing TOML",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeManifest(t, tc.content)
			_, err := LoadManifest(path)
			if err == nil {
				t.Fatal("LoadManifest() succeeded, want error")
			}
			if !strings.Contains(err.Error(), tc.errWant) {
				t.Errorf("error = %v, want substring %q", err, tc.errWant)
			}
		})
	}
}

func TestManifest_TargetNames_Sorted(t *testing.T) {
	m := &Manifest{Targets: []Target{{Name: "zeta"}, {Name: "alpha"}, {Name: "mid"}}}

	got := m.TargetNames()
	want := []string{"alpha", "mid", "zeta"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TargetNames() = %v, want %v", got, want)
	}
}

func TestValidTargetName(t *testing.T) {
	testCases := []struct {
		name  string
		valid bool
	}{
		{"fuzz_target_1", true},
		{"DecodeFrame", true},
		{"_private", true},
		{"a", true},
		{"", false},
		{"1starts_with_digit", false},
		{"has-dash", false},
		{"has space", false},
		{"has/slash", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ValidTargetName(tc.name); got != tc.valid {
				t.Errorf("ValidTargetName(%q) = %v, want %v", tc.name, got, tc.valid)
			}
		})
	}
}

package process

import (
	"context"
	"slices"
	"testing"
)

func TestSpec_Command(t *testing.T) {
	spec := &Spec{
		Path: "/bin/echo",
		Args: []string{"hello", "world"},
		Env:  []string{"FUZZ_TEST_VAR=1"},
		Dir:  "/tmp",
	}

	cmd := spec.Command(context.Background())
	if cmd.Path != "/bin/echo" {
		t.Errorf("Path = %q, want /bin/echo", cmd.Path)
	}
	if cmd.Dir != "/tmp" {
		t.Errorf("Dir = %q, want /tmp", cmd.Dir)
	}
	wantArgs := []string{"/bin/echo", "hello", "world"}
	if !slices.Equal(cmd.Args, wantArgs) {
		t.Errorf("Args = %v, want %v", cmd.Args, wantArgs)
	}
	if !slices.Contains(cmd.Env, "FUZZ_TEST_VAR=1") {
		t.Error("spec env entry missing from command environment")
	}
	// The parent environment is inherited, not replaced.
	if len(cmd.Env) < 2 {
		t.Errorf("environment suspiciously small: %d entries", len(cmd.Env))
	}
}

func TestSpec_CommandIndependence(t *testing.T) {
	spec := &Spec{Path: "/bin/true"}

	a := spec.Command(context.Background())
	b := spec.Command(context.Background())
	if a == b {
		t.Error("Command() returned the same *exec.Cmd twice")
	}
}

func TestSpec_Argv(t *testing.T) {
	spec := &Spec{Path: "/usr/bin/fuzzer", Args: []string{"-x", "1"}}

	got := spec.Argv()
	want := []string{"/usr/bin/fuzzer", "-x", "1"}
	if !slices.Equal(got, want) {
		t.Errorf("Argv() = %v, want %v", got, want)
	}
}

func TestSpec_Environ_SpecEntriesLast(t *testing.T) {
	t.Setenv("FUZZ_ENV_ORDER", "parent")
	spec := &Spec{Path: "/bin/true", Env: []string{"FUZZ_ENV_ORDER=spec"}}

	env := spec.Environ()
	last := ""
	for _, e := range env {
		if v, ok := cutEnv(e, "FUZZ_ENV_ORDER"); ok {
			last = v
		}
	}
	if last != "spec" {
		t.Errorf("last FUZZ_ENV_ORDER = %q, want %q (spec entries must win)", last, "spec")
	}
}

func TestSpec_String(t *testing.T) {
	spec := &Spec{Path: "go", Args: []string{"test", "-c"}}
	if got := spec.String(); got != "go test -c" {
		t.Errorf("String() = %q, want %q", got, "go test -c")
	}
}

// cutEnv splits a KEY=VALUE entry for key, reporting whether it matched.
func cutEnv(entry, key string) (string, bool) {
	prefix := key + "="
	if len(entry) > len(prefix) && entry[:len(prefix)] == prefix {
		return entry[len(prefix):], true
	}
	return "", false
}

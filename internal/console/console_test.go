package console

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
)

// capture redirects Out and Err for the duration of fn.
func capture(fn func()) (stdout, stderr string) {
	var out, err bytes.Buffer
	oldOut, oldErr := Out, Err
	oldNoColor := color.NoColor
	Out, Err = &out, &err
	color.NoColor = true
	defer func() {
		Out, Err = oldOut, oldErr
		color.NoColor = oldNoColor
	}()

	fn()
	return out.String(), err.String()
}

func TestSuccessf(t *testing.T) {
	stdout, stderr := capture(func() {
		Successf("created %s", "fuzz/fuzz.toml")
	})
	if stdout != "created fuzz/fuzz.toml\n" {
		t.Errorf("stdout = %q", stdout)
	}
	if stderr != "" {
		t.Errorf("stderr = %q, want empty", stderr)
	}
}

func TestErrorf_GoesToStderrWithPrefix(t *testing.T) {
	stdout, stderr := capture(func() {
		Errorf("target %q not found", "nope")
	})
	if stdout != "" {
		t.Errorf("stdout = %q, want empty", stdout)
	}
	if !strings.HasPrefix(stderr, "error: ") {
		t.Errorf("stderr = %q, want error: prefix", stderr)
	}
	if !strings.Contains(stderr, `"nope"`) {
		t.Errorf("stderr = %q, missing target name", stderr)
	}
}

func TestPlainf_NoDecoration(t *testing.T) {
	stdout, _ := capture(func() {
		Plainf("%s", "fuzz_target_1")
	})
	if stdout != "fuzz_target_1\n" {
		t.Errorf("stdout = %q", stdout)
	}
}

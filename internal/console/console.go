// Package console prints user-facing messages: green for success, red
// for failure, plain for script-consumable output. Diagnostic logging
// stays in internal/logging; this package is only the human surface.
package console

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	noteColor    = color.New(color.FgCyan)
)

// Out and Err are the destination writers, swappable for tests.
var (
	Out io.Writer = os.Stdout
	Err io.Writer = os.Stderr
)

// Successf prints a green confirmation line to stdout.
func Successf(format string, args ...any) {
	successColor.Fprintf(Out, format+"\n", args...)
}

// Errorf prints a red error line to stderr.
func Errorf(format string, args ...any) {
	errorColor.Fprintf(Err, "error: "+format+"\n", args...)
}

// Notef prints a cyan informational line to stdout.
func Notef(format string, args ...any) {
	noteColor.Fprintf(Out, format+"\n", args...)
}

// Plainf prints an undecorated line to stdout, for output meant to be
// piped into other tools.
func Plainf(format string, args ...any) {
	fmt.Fprintf(Out, format+"\n", args...)
}

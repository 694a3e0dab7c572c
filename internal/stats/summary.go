package stats

import (
	"fmt"
	"strings"
	"time"
)

// SummaryConfig holds run context for the exit summary.
type SummaryConfig struct {
	// Target is the fuzz target name.
	Target string

	// Sanitizer is the configured sanitizer name.
	Sanitizer string

	// Jobs is the requested worker count.
	Jobs int

	// Winner is the worker id that resolved the exit race, or -1 when
	// the run was cancelled before any worker exited.
	Winner int

	// ExitCode is the winning worker's exit status.
	ExitCode int
}

// FormatRunSummary formats pool totals for display at the end of a run.
func FormatRunSummary(snap Snapshot, cfg SummaryConfig) string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString("═══════════════════════════════════════════════════════════════\n")
	b.WriteString("                    fuzzswarm run summary\n")
	b.WriteString("═══════════════════════════════════════════════════════════════\n\n")

	fmt.Fprintf(&b, "Target:              %s (sanitizer=%s)\n", cfg.Target, cfg.Sanitizer)
	fmt.Fprintf(&b, "Duration:            %s\n", FormatDuration(snap.Elapsed))
	fmt.Fprintf(&b, "Workers:             %d\n", cfg.Jobs)
	if cfg.Winner >= 0 {
		fmt.Fprintf(&b, "First exit:          worker %d (exit code %d)\n", cfg.Winner, cfg.ExitCode)
	} else {
		b.WriteString("First exit:          none (run cancelled)\n")
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Output lines:        %s (%s stdout, %s stderr)\n",
		FormatNumber(snap.TotalLines),
		FormatNumber(snap.StdoutLines),
		FormatNumber(snap.StderrLines),
	)
	fmt.Fprintf(&b, "Output volume:       %s\n", FormatBytes(snap.TotalBytes))

	if snap.RateP50 > 0 || snap.RateP95 > 0 {
		fmt.Fprintf(&b, "Line rate (p50/p95/p99): %.0f / %.0f / %.0f lines/s\n",
			snap.RateP50, snap.RateP95, snap.RateP99)
	}
	b.WriteString("\n")

	for _, w := range snap.Workers {
		fmt.Fprintf(&b, "  worker %d: %s, %s lines, up %s\n",
			w.WorkerID,
			w.State,
			FormatNumber(w.StdoutLines+w.StderrLines),
			FormatDuration(w.Uptime),
		)
	}

	return b.String()
}

// FormatTail formats a worker's retained stderr/stdout tail for replay
// after the TUI's alternate screen is torn down.
func FormatTail(workerID int, lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "\nLast output from worker %d:\n", workerID)
	for _, l := range lines {
		fmt.Fprintf(&b, "  [%d] %s\n", workerID, l)
	}
	return b.String()
}

// FormatNumber formats a count with K/M suffixes.
func FormatNumber(n int64) string {
	if n >= 1_000_000 {
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	}
	if n >= 1_000 {
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	}
	return fmt.Sprintf("%d", n)
}

// FormatBytes formats bytes with KB/MB/GB suffixes.
func FormatBytes(n int64) string {
	if n >= 1_000_000_000 {
		return fmt.Sprintf("%.2f GB", float64(n)/1_000_000_000)
	}
	if n >= 1_000_000 {
		return fmt.Sprintf("%.2f MB", float64(n)/1_000_000)
	}
	if n >= 1_000 {
		return fmt.Sprintf("%.2f KB", float64(n)/1_000)
	}
	return fmt.Sprintf("%d B", n)
}

// FormatDuration formats a duration as HH:MM:SS.
func FormatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

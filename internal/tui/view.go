package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"fuzzswarm/internal/stats"
)

// render draws the whole dashboard.
func (m Model) render() string {
	sections := []string{
		m.renderHeader(),
		m.renderTotals(),
		m.renderWorkerTable(),
		m.renderFooter(),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader() string {
	header := fmt.Sprintf(
		" fuzzswarm │ %s (%s) │ Workers: %d/%d │ Elapsed: %s ",
		m.target,
		m.sanitizer,
		m.snap.ActiveWorkers,
		m.jobs,
		formatDuration(m.Elapsed()),
	)
	return headerStyle.Width(m.width).Render(header)
}

func (m Model) renderTotals() string {
	var b strings.Builder

	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(valueStyle.Render(value))
		b.WriteString("\n")
	}

	row("Output lines", fmt.Sprintf("%s (%s out / %s err)",
		stats.FormatNumber(m.snap.TotalLines),
		stats.FormatNumber(m.snap.StdoutLines),
		stats.FormatNumber(m.snap.StderrLines),
	))
	row("Line rate", fmt.Sprintf("%.0f/s (p50 %.0f, p95 %.0f, p99 %.0f)",
		m.snap.LinesPerSec, m.snap.RateP50, m.snap.RateP95, m.snap.RateP99))
	row("Output volume", stats.FormatBytes(m.snap.TotalBytes))
	if m.metricsAddr != "" {
		row("Metrics", "http://"+m.metricsAddr+"/metrics")
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		sectionHeaderStyle.Render("Pool"),
		strings.TrimRight(b.String(), "\n"),
	)
	return boxStyle.Width(m.width - 2).Render(content)
}

func (m Model) renderWorkerTable() string {
	var rows []string
	rows = append(rows, tableHeaderStyle.Render(
		fmt.Sprintf("%-4s %-8s %-8s %10s %10s  %s", "ID", "PID", "STATE", "LINES", "UPTIME", "LAST LINE"),
	))

	// Last-line column takes whatever width remains.
	lastWidth := m.width - 50
	if lastWidth < 10 {
		lastWidth = 10
	}

	for _, w := range m.snap.Workers {
		lines := w.StdoutLines + w.StderrLines
		rows = append(rows, fmt.Sprintf("%-4d %-8d %-8s %10s %10s  %s",
			w.WorkerID,
			w.PID,
			renderState(w.State),
			stats.FormatNumber(lines),
			stats.FormatDuration(w.Uptime),
			lastLineStyle.Render(truncate(w.LastLine, lastWidth)),
		))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		sectionHeaderStyle.Render("Workers"),
		strings.Join(rows, "\n"),
	)
	return boxStyle.Width(m.width - 2).Render(content)
}

func (m Model) renderFooter() string {
	return footerStyle.Render(" q: quit and stop fuzzing ")
}

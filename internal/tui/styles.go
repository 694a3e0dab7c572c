package tui

import (
	"github.com/charmbracelet/lipgloss"

	"fuzzswarm/internal/stats"
)

// Colors based on a modern dark theme
var (
	colorPrimary   = lipgloss.Color("#7C3AED") // Purple
	colorSecondary = lipgloss.Color("#06B6D4") // Cyan

	colorSuccess = lipgloss.Color("#10B981") // Green
	colorWarning = lipgloss.Color("#F59E0B") // Amber
	colorError   = lipgloss.Color("#EF4444") // Red

	colorText      = lipgloss.Color("#E5E7EB") // Light gray
	colorTextMuted = lipgloss.Color("#9CA3AF") // Medium gray
	colorTextDim   = lipgloss.Color("#6B7280") // Dark gray
	colorBorder    = lipgloss.Color("#374151") // Border gray
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Background(colorPrimary).
			Bold(true).
			Padding(0, 1).
			MarginBottom(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	sectionHeaderStyle = lipgloss.NewStyle().
				Foreground(colorSecondary).
				Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted).
			Width(16)

	valueStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Bold(true)

	tableHeaderStyle = lipgloss.NewStyle().
				Foreground(colorSecondary).
				Bold(true)

	lastLineStyle = lipgloss.NewStyle().
			Foreground(colorTextDim)

	footerStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted).
			MarginTop(1)

	stateRunningStyle = lipgloss.NewStyle().
				Foreground(colorSuccess).
				Bold(true)

	stateExitedStyle = lipgloss.NewStyle().
				Foreground(colorError).
				Bold(true)

	statePendingStyle = lipgloss.NewStyle().
				Foreground(colorWarning)
)

// renderState styles a worker state cell.
func renderState(s stats.WorkerState) string {
	switch s {
	case stats.StateRunning:
		return stateRunningStyle.Render(string(s))
	case stats.StateExited:
		return stateExitedStyle.Render(string(s))
	default:
		return statePendingStyle.Render(string(s))
	}
}

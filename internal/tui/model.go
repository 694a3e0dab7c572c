// Package tui provides the live terminal dashboard for a fuzzing run
// (--tui): one row per worker, pool totals, and line rates.
package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"fuzzswarm/internal/stats"
)

// TickMsg is sent periodically to refresh the display.
type TickMsg time.Time

// QuitMsg tells the dashboard to exit, e.g. when the pool resolves.
type QuitMsg struct{}

// StatsSource provides pool snapshots for each refresh tick.
type StatsSource interface {
	Snapshot() stats.Snapshot
}

// Config holds dashboard configuration.
type Config struct {
	Target      string
	Sanitizer   string
	Jobs        int
	MetricsAddr string
	Source      StatsSource
}

// Model is the Bubble Tea model for the dashboard.
type Model struct {
	target      string
	sanitizer   string
	jobs        int
	metricsAddr string
	source      StatsSource

	snap      stats.Snapshot
	startTime time.Time

	width  int
	height int

	quitting bool
}

// New creates a dashboard model.
func New(cfg Config) Model {
	return Model{
		target:      cfg.Target,
		sanitizer:   cfg.Sanitizer,
		jobs:        cfg.Jobs,
		metricsAddr: cfg.MetricsAddr,
		source:      cfg.Source,
		startTime:   time.Now(),
		width:       80,
		height:      24,
	}
}

// Init starts the refresh ticker. The alt screen is requested via
// tea.WithAltScreen when the program is created.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case TickMsg:
		if m.source != nil {
			m.snap = m.source.Snapshot()
		}
		return m, tickCmd()

	case QuitMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return m.render()
}

// SendQuit asks a running dashboard to exit.
func SendQuit(p *tea.Program) {
	if p != nil {
		p.Send(QuitMsg{})
	}
}

// tickCmd returns a command that sends a tick after one second.
func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// Elapsed returns the time since the dashboard started.
func (m Model) Elapsed() time.Duration {
	return time.Since(m.startTime)
}

// truncate shortens s to width runes, marking the cut with an ellipsis.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}

// formatDuration formats a duration as MM:SS, rolling to HH:MM:SS when
// runs go long.
func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// Package stats tracks per-worker output activity for the live dashboard,
// the Prometheus collector, and the end-of-run summary.
package stats

import (
	"sync"
	"sync/atomic"
	"time"

	"fuzzswarm/internal/pool"
)

// RecentLineCount is the number of recent lines retained per worker.
// The tail is replayed after a run so crash output survives the TUI's
// alternate screen.
const RecentLineCount = 20

// WorkerState describes a worker's lifecycle stage.
type WorkerState string

const (
	StatePending WorkerState = "pending"
	StateRunning WorkerState = "running"
	StateExited  WorkerState = "exited"
)

// WorkerStats holds counters for a single fuzzing worker.
//
// Counters use atomics so the mux writer goroutine never contends with
// snapshot readers; the recent-lines ring is the only locked state.
type WorkerStats struct {
	WorkerID int

	pid       atomic.Int64
	started   atomic.Bool
	exited    atomic.Bool
	exitCode  atomic.Int64
	startNano atomic.Int64

	stdoutLines atomic.Int64
	stderrLines atomic.Int64
	bytes       atomic.Int64

	mu       sync.Mutex
	lastLine string
	recent   []string
	recentN  int // total lines ever pushed through the ring
}

// NewWorkerStats creates stats for one worker.
func NewWorkerStats(workerID int) *WorkerStats {
	return &WorkerStats{
		WorkerID: workerID,
		recent:   make([]string, RecentLineCount),
	}
}

// Started marks the worker running.
func (s *WorkerStats) Started(pid int) {
	s.pid.Store(int64(pid))
	s.startNano.Store(time.Now().UnixNano())
	s.started.Store(true)
}

// Exited records the worker's exit code. First call wins; the pool can
// report a kill-time reap after the real exit.
func (s *WorkerStats) Exited(code int) {
	if s.exited.CompareAndSwap(false, true) {
		s.exitCode.Store(int64(code))
	}
}

// RecordLine counts one line of output and pushes it into the ring.
func (s *WorkerStats) RecordLine(stream pool.Stream, text string) {
	if stream == pool.StreamStderr {
		s.stderrLines.Add(1)
	} else {
		s.stdoutLines.Add(1)
	}
	s.bytes.Add(int64(len(text)) + 1) // line terminator included

	s.mu.Lock()
	s.lastLine = text
	s.recent[s.recentN%RecentLineCount] = text
	s.recentN++
	s.mu.Unlock()
}

// TotalLines returns lines seen across both streams.
func (s *WorkerStats) TotalLines() int64 {
	return s.stdoutLines.Load() + s.stderrLines.Load()
}

// State returns the worker's current lifecycle stage.
func (s *WorkerStats) State() WorkerState {
	switch {
	case s.exited.Load():
		return StateExited
	case s.started.Load():
		return StateRunning
	default:
		return StatePending
	}
}

// RecentLines returns the retained output tail, oldest first.
func (s *WorkerStats) RecentLines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.recentN
	if n > RecentLineCount {
		n = RecentLineCount
	}
	out := make([]string, 0, n)
	start := s.recentN - n
	for i := start; i < s.recentN; i++ {
		out = append(out, s.recent[i%RecentLineCount])
	}
	return out
}

// WorkerSummary is a point-in-time snapshot of one worker.
type WorkerSummary struct {
	WorkerID    int
	PID         int
	State       WorkerState
	ExitCode    int
	StdoutLines int64
	StderrLines int64
	Bytes       int64
	LastLine    string
	Uptime      time.Duration
}

// Summary returns a consistent-enough snapshot of the worker's counters.
func (s *WorkerStats) Summary() WorkerSummary {
	s.mu.Lock()
	last := s.lastLine
	s.mu.Unlock()

	var uptime time.Duration
	if start := s.startNano.Load(); start > 0 {
		uptime = time.Since(time.Unix(0, start))
	}

	return WorkerSummary{
		WorkerID:    s.WorkerID,
		PID:         int(s.pid.Load()),
		State:       s.State(),
		ExitCode:    int(s.exitCode.Load()),
		StdoutLines: s.stdoutLines.Load(),
		StderrLines: s.stderrLines.Load(),
		Bytes:       s.bytes.Load(),
		LastLine:    last,
		Uptime:      uptime,
	}
}

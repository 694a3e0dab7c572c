package stats

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/influxdata/tdigest"

	"fuzzswarm/internal/pool"
)

// SampleInterval is how often the tracker folds the current line rate
// into its digest.
const SampleInterval = 1 * time.Second

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// realClock uses time.Now() for production.
type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Tracker aggregates output activity across a fixed pool of workers.
//
// It implements pool.Recorder, so the output multiplexer feeds it every
// forwarded line. A sampling loop folds per-second line rates into a
// t-digest for the summary's rate percentiles.
type Tracker struct {
	workers   []*WorkerStats
	startTime time.Time
	clock     Clock

	totalLines  atomic.Int64
	totalBytes  atomic.Int64
	currentRate atomic.Uint64 // math.Float64bits

	mu          sync.Mutex
	digest      *tdigest.TDigest
	sampleCount int
	lastLines   int64
	lastSample  time.Time
}

// NewTracker creates a tracker for a pool of n workers.
func NewTracker(n int) *Tracker {
	return NewTrackerWithClock(n, realClock{})
}

// NewTrackerWithClock creates a tracker with a custom clock for testing.
func NewTrackerWithClock(n int, clock Clock) *Tracker {
	now := clock.Now()
	t := &Tracker{
		workers:    make([]*WorkerStats, n),
		startTime:  now,
		clock:      clock,
		digest:     tdigest.NewWithCompression(100),
		lastSample: now,
	}
	for i := range t.workers {
		t.workers[i] = NewWorkerStats(i)
	}
	return t
}

// RecordLine implements pool.Recorder.
func (t *Tracker) RecordLine(worker int, stream pool.Stream, text string) {
	if worker < 0 || worker >= len(t.workers) {
		return
	}
	t.workers[worker].RecordLine(stream, text)
	t.totalLines.Add(1)
	t.totalBytes.Add(int64(len(text)) + 1)
}

// WorkerStarted records a worker spawn. Wired to pool.Callbacks.OnSpawn.
func (t *Tracker) WorkerStarted(worker, pid int) {
	if worker >= 0 && worker < len(t.workers) {
		t.workers[worker].Started(pid)
	}
}

// WorkerExited records a worker exit. Wired to pool.Callbacks.OnExit.
func (t *Tracker) WorkerExited(worker, code int) {
	if worker >= 0 && worker < len(t.workers) {
		t.workers[worker].Exited(code)
	}
}

// Worker returns the stats for one worker, or nil if out of range.
func (t *Tracker) Worker(id int) *WorkerStats {
	if id < 0 || id >= len(t.workers) {
		return nil
	}
	return t.workers[id]
}

// Run samples line rates until the context is cancelled.
func (t *Tracker) Run(ctx context.Context) {
	ticker := time.NewTicker(SampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Sample()
		}
	}
}

// Sample folds the line rate since the previous sample into the digest.
// Exported so tests can drive sampling without the ticker.
func (t *Tracker) Sample() {
	now := t.clock.Now()
	lines := t.totalLines.Load()

	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := now.Sub(t.lastSample).Seconds()
	if elapsed <= 0 {
		return
	}
	rate := float64(lines-t.lastLines) / elapsed
	t.digest.Add(rate, 1)
	t.sampleCount++
	t.lastLines = lines
	t.lastSample = now

	t.currentRate.Store(math.Float64bits(rate))
}

// Snapshot is a point-in-time view of the whole pool.
type Snapshot struct {
	Elapsed       time.Duration
	ActiveWorkers int
	TotalLines    int64
	StdoutLines   int64
	StderrLines   int64
	TotalBytes    int64
	LinesPerSec   float64

	// Rate percentiles over 1-second samples. Zero until the first
	// sample lands.
	RateP50 float64
	RateP95 float64
	RateP99 float64

	Workers []WorkerSummary
}

// Snapshot captures the current state of every worker plus pool totals.
func (t *Tracker) Snapshot() Snapshot {
	snap := Snapshot{
		Elapsed:     t.clock.Now().Sub(t.startTime),
		TotalLines:  t.totalLines.Load(),
		TotalBytes:  t.totalBytes.Load(),
		LinesPerSec: math.Float64frombits(t.currentRate.Load()),
		Workers:     make([]WorkerSummary, 0, len(t.workers)),
	}

	for _, w := range t.workers {
		ws := w.Summary()
		if ws.State == StateRunning {
			snap.ActiveWorkers++
		}
		snap.StdoutLines += ws.StdoutLines
		snap.StderrLines += ws.StderrLines
		snap.Workers = append(snap.Workers, ws)
	}

	t.mu.Lock()
	if t.sampleCount > 0 {
		snap.RateP50 = t.digest.Quantile(0.50)
		snap.RateP95 = t.digest.Quantile(0.95)
		snap.RateP99 = t.digest.Quantile(0.99)
	}
	t.mu.Unlock()

	return snap
}

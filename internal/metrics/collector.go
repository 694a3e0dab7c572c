// Package metrics provides the optional Prometheus endpoint for a
// fuzzing run (--metrics ADDR).
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"fuzzswarm/internal/stats"
)

var (
	fuzzInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fuzzswarm_info",
			Help: "Information about the fuzzing run (value always 1)",
		},
		[]string{"version", "target", "sanitizer"},
	)

	fuzzTargetWorkers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fuzzswarm_target_workers",
			Help: "Requested number of fuzzing workers",
		},
	)

	fuzzActiveWorkers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fuzzswarm_active_workers",
			Help: "Currently running fuzzing workers",
		},
	)

	fuzzElapsedSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fuzzswarm_elapsed_seconds",
			Help: "Seconds since the run started",
		},
	)

	fuzzWorkerStartsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fuzzswarm_worker_starts_total",
			Help: "Total worker processes spawned",
		},
	)

	fuzzWorkerExitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fuzzswarm_worker_exits_total",
			Help: "Total worker exits by category (success, crash, signal)",
		},
		[]string{"category"},
	)

	fuzzLinesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fuzzswarm_output_lines_total",
			Help: "Total multiplexed output lines by stream",
		},
		[]string{"stream"},
	)

	fuzzOutputBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fuzzswarm_output_bytes_total",
			Help: "Total multiplexed output bytes",
		},
	)

	fuzzLinesPerSecond = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fuzzswarm_output_lines_per_second",
			Help: "Current multiplexed output line rate",
		},
	)
)

// CollectorConfig identifies the run on the info metric.
type CollectorConfig struct {
	Version   string
	Target    string
	Sanitizer string
	Jobs      int
}

// Collector publishes pool activity as Prometheus metrics.
type Collector struct {
	startTime time.Time

	// Counter metrics are fed by deltas from cumulative snapshot totals.
	mu         sync.Mutex
	prevStdout int64
	prevStderr int64
	prevBytes  int64
}

// NewCollector creates a collector registered on the default registry.
func NewCollector(cfg CollectorConfig) *Collector {
	return NewCollectorWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewCollectorWithRegistry creates a collector with a custom registry,
// which tests use to keep runs isolated.
func NewCollectorWithRegistry(cfg CollectorConfig, registry prometheus.Registerer) *Collector {
	registry.MustRegister(
		fuzzInfo,
		fuzzTargetWorkers,
		fuzzActiveWorkers,
		fuzzElapsedSeconds,
		fuzzWorkerStartsTotal,
		fuzzWorkerExitsTotal,
		fuzzLinesTotal,
		fuzzOutputBytesTotal,
		fuzzLinesPerSecond,
	)

	fuzzInfo.WithLabelValues(cfg.Version, cfg.Target, cfg.Sanitizer).Set(1)
	fuzzTargetWorkers.Set(float64(cfg.Jobs))

	return &Collector{startTime: time.Now()}
}

// WorkerStarted records a worker spawn. Wired to pool.Callbacks.OnSpawn.
func (c *Collector) WorkerStarted(worker, pid int) {
	fuzzWorkerStartsTotal.Inc()
}

// WorkerExited records a worker exit. Wired to pool.Callbacks.OnExit.
func (c *Collector) WorkerExited(worker, exitCode int) {
	fuzzWorkerExitsTotal.WithLabelValues(exitCategory(exitCode)).Inc()
}

// Update publishes a stats snapshot. Called periodically while the pool
// runs and once more before the final scrape window closes.
func (c *Collector) Update(snap stats.Snapshot) {
	fuzzActiveWorkers.Set(float64(snap.ActiveWorkers))
	fuzzElapsedSeconds.Set(time.Since(c.startTime).Seconds())
	fuzzLinesPerSecond.Set(snap.LinesPerSec)

	c.mu.Lock()
	defer c.mu.Unlock()

	if d := snap.StdoutLines - c.prevStdout; d > 0 {
		fuzzLinesTotal.WithLabelValues("stdout").Add(float64(d))
		c.prevStdout = snap.StdoutLines
	}
	if d := snap.StderrLines - c.prevStderr; d > 0 {
		fuzzLinesTotal.WithLabelValues("stderr").Add(float64(d))
		c.prevStderr = snap.StderrLines
	}
	if d := snap.TotalBytes - c.prevBytes; d > 0 {
		fuzzOutputBytesTotal.Add(float64(d))
		c.prevBytes = snap.TotalBytes
	}
}

// exitCategory buckets an exit code for the exits counter.
func exitCategory(code int) string {
	switch {
	case code == 0:
		return "success"
	case code > 128:
		return "signal"
	default:
		return "crash"
	}
}

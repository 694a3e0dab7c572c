package pool

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
)

// DefaultDrainTimeout bounds how long Run waits for buffered output
// after the exit race resolves.
const DefaultDrainTimeout = 5 * time.Second

// Callbacks contains optional hooks for pool events.
type Callbacks struct {
	// OnSpawn is called when a worker process starts.
	OnSpawn func(worker, pid int)

	// OnExit is called when a worker process has been reaped, the race
	// winner first and every killed sibling eventually.
	OnExit func(worker, exitCode int)
}

// Config holds configuration for creating a Pool.
type Config struct {
	// Source is the process template every worker runs, usually a
	// *process.Spec.
	Source CommandSource

	// Workers is the number of processes to spawn. Must be >= 1.
	Workers int

	// Stdout and Stderr receive the tagged output streams.
	// Defaults to the driver's own stdout and stderr.
	Stdout io.Writer
	Stderr io.Writer

	// Logger receives driver diagnostics. Defaults to slog.Default().
	Logger *slog.Logger

	// Recorder observes every forwarded line. Optional.
	Recorder Recorder

	// Callbacks hook pool events. Optional.
	Callbacks Callbacks

	// DrainTimeout bounds the post-race output flush.
	// Defaults to DefaultDrainTimeout.
	DrainTimeout time.Duration
}

// Outcome is the single result of a pool run: which worker exited first
// and with what code. A non-zero code is a fuzzing result (a crash was
// found), not a driver failure.
type Outcome struct {
	Worker   int
	ExitCode int
}

// exitEvent is one worker's wait result in the exit race.
type exitEvent struct {
	worker  int
	code    int
	waitErr error // non-nil only for wait failures, not plain exits
}

// Pool spawns and supervises N workers until the first one exits.
type Pool struct {
	cfg Config
}

// New creates a Pool, applying defaults for unset config fields.
func New(cfg Config) *Pool {
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = DefaultDrainTimeout
	}
	return &Pool{cfg: cfg}
}

// Run executes the pool: spawn all workers, multiplex their output, wait
// for the first exit, kill the rest, and flush remaining output.
//
// Exactly one Outcome is produced per run. An error means the driver's
// own machinery failed (spawn, wait, cancellation), never that a fuzzer
// found a crash.
func (p *Pool) Run(ctx context.Context) (Outcome, error) {
	if p.cfg.Workers < 1 {
		return Outcome{}, fmt.Errorf("pool needs at least one worker, got %d", p.cfg.Workers)
	}
	logger := p.cfg.Logger

	mux := NewMux(p.cfg.Stdout, p.cfg.Stderr, logger, p.cfg.Recorder)

	// Spawn everything up front. A failure part way in kills the workers
	// already running and fails the whole run; no output handling has
	// started at that point.
	workers := make([]*Worker, 0, p.cfg.Workers)
	for i := 0; i < p.cfg.Workers; i++ {
		w, err := spawnWorker(ctx, p.cfg.Source, i, logger)
		if err != nil {
			for _, started := range workers {
				started.Kill()
			}
			return Outcome{}, fmt.Errorf("spawning worker %d: %w", i, err)
		}
		workers = append(workers, w)
		mux.Attach(w.ID(), w.stdout, w.stderr)

		if p.cfg.Callbacks.OnSpawn != nil {
			p.cfg.Callbacks.OnSpawn(w.ID(), w.PID())
		}
	}

	mux.Start()

	// The exit race: one waiter per worker, first event wins. The
	// channel holds every event so losing waiters never leak.
	events := make(chan exitEvent, len(workers))
	for _, w := range workers {
		w := w
		go func() {
			// Let both pumps reach EOF before reaping, so Wait can
			// never truncate output that was already written.
			mux.WaitWorker(w.ID())
			err := w.Wait()

			ev := exitEvent{worker: w.ID(), code: extractExitCode(err)}
			if err != nil && !isExitError(err) {
				ev.waitErr = err
			}
			events <- ev
		}()
	}

	var winner exitEvent
	select {
	case winner = <-events:
	case <-ctx.Done():
		logger.Info("shutdown_initiated", "reason", "context_cancelled")
		p.killAll(workers)
		p.reapRemaining(events, len(workers), -1)
		mux.Drain(p.cfg.DrainTimeout)
		return Outcome{}, ctx.Err()
	}

	logger.Info("worker_exited",
		"worker_id", winner.worker,
		"exit_code", winner.code,
		"uptime", workers[winner.worker].Uptime().String(),
	)
	if p.cfg.Callbacks.OnExit != nil {
		p.cfg.Callbacks.OnExit(winner.worker, winner.code)
	}

	// First exit wins; the rest are killed without waiting for their
	// termination to complete.
	p.killAll(workers)
	p.reapRemaining(events, len(workers)-1, winner.worker)

	mux.Drain(p.cfg.DrainTimeout)

	if winner.waitErr != nil {
		return Outcome{}, fmt.Errorf("waiting on worker %d: %w", winner.worker, winner.waitErr)
	}
	return Outcome{Worker: winner.worker, ExitCode: winner.code}, nil
}

// killAll force-terminates every worker. Kill is idempotent, so the race
// winner (already exited) is safe to include.
func (p *Pool) killAll(workers []*Worker) {
	for _, w := range workers {
		w.Kill()
	}
}

// reapRemaining consumes the losing waiters' events in the background so
// sibling exits still reach the OnExit hook. Run does not wait for this.
func (p *Pool) reapRemaining(events chan exitEvent, n, winner int) {
	if n <= 0 {
		return
	}
	go func() {
		for i := 0; i < n; i++ {
			ev := <-events
			p.cfg.Logger.Debug("worker_reaped",
				"worker_id", ev.worker,
				"exit_code", ev.code,
			)
			if p.cfg.Callbacks.OnExit != nil && ev.worker != winner {
				p.cfg.Callbacks.OnExit(ev.worker, ev.code)
			}
		}
	}()
}

//go:build unix

package pool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// =============================================================================
// Test Helpers
// =============================================================================

// scriptSource hands out one shell script per spawn, in spawn order, so
// a test can give each worker different behavior from one source.
type scriptSource struct {
	mu      sync.Mutex
	scripts []string
	next    int
}

func (s *scriptSource) Command(ctx context.Context) *exec.Cmd {
	s.mu.Lock()
	defer s.mu.Unlock()
	script := s.scripts[s.next%len(s.scripts)]
	s.next++
	return exec.CommandContext(ctx, "/bin/sh", "-c", script)
}

// brokenAtSource spawns normally until index failAt, where the command
// points at a binary that does not exist.
type brokenAtSource struct {
	mu     sync.Mutex
	script string
	failAt int
	next   int
}

func (s *brokenAtSource) Command(ctx context.Context) *exec.Cmd {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.next
	s.next++
	if i == s.failAt {
		return exec.CommandContext(ctx, "/nonexistent/fuzz-binary")
	}
	return exec.CommandContext(ctx, "/bin/sh", "-c", s.script)
}

// exitCollector records OnExit callbacks.
type exitCollector struct {
	mu    sync.Mutex
	exits []Outcome
	ch    chan Outcome
}

func newExitCollector() *exitCollector {
	return &exitCollector{ch: make(chan Outcome, 16)}
}

func (c *exitCollector) OnExit(worker, code int) {
	c.mu.Lock()
	c.exits = append(c.exits, Outcome{Worker: worker, ExitCode: code})
	c.mu.Unlock()
	c.ch <- Outcome{Worker: worker, ExitCode: code}
}

func (c *exitCollector) waitFor(t *testing.T, n int) []Outcome {
	t.Helper()
	deadline := time.After(10 * time.Second)
	for {
		c.mu.Lock()
		got := len(c.exits)
		c.mu.Unlock()
		if got >= n {
			break
		}
		select {
		case <-c.ch:
		case <-deadline:
			t.Fatalf("saw %d exit callbacks, want %d", got, n)
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Outcome(nil), c.exits...)
}

// =============================================================================
// Exit race
// =============================================================================

func TestPool_FirstExitWins(t *testing.T) {
	var stdout, stderr bytes.Buffer
	src := &scriptSource{scripts: []string{
		"sleep 0.1; exit 0",
		"sleep 0.2; exit 1",
		"sleep 0.3; exit 2",
	}}

	p := New(Config{
		Source:  src,
		Workers: 3,
		Stdout:  &stdout,
		Stderr:  &stderr,
		Logger:  newTestLogger(),
	})

	start := time.Now()
	outcome, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if outcome.Worker != 0 {
		t.Errorf("winner = worker %d, want 0", outcome.Worker)
	}
	if outcome.ExitCode != 0 {
		t.Errorf("exit code = %d, want 0", outcome.ExitCode)
	}
	// The losers sleep far longer than the winner; the race must not
	// wait for them.
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("run took %s, siblings were apparently waited on", elapsed)
	}
}

func TestPool_NonZeroExitIsOutcomeNotError(t *testing.T) {
	src := &scriptSource{scripts: []string{"exit 7"}}

	var stdout, stderr bytes.Buffer
	p := New(Config{
		Source:  src,
		Workers: 1,
		Stdout:  &stdout,
		Stderr:  &stderr,
		Logger:  newTestLogger(),
	})

	outcome, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("a fuzzer crash is a result, not a driver error: %v", err)
	}
	if outcome.Worker != 0 || outcome.ExitCode != 7 {
		t.Errorf("outcome = %+v, want worker 0 exit 7", outcome)
	}
}

func TestPool_OutputForwardedAndTagged(t *testing.T) {
	var stdout, stderr bytes.Buffer
	src := &scriptSource{scripts: []string{
		"echo out-line; echo err-line >&2; exit 0",
	}}

	p := New(Config{
		Source:  src,
		Workers: 1,
		Stdout:  &stdout,
		Stderr:  &stderr,
		Logger:  newTestLogger(),
	})

	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got, want := stdout.String(), "[0] out-line\n"; got != want {
		t.Errorf("stdout = %q, want %q", got, want)
	}
	if got, want := stderr.String(), "[0] err-line\n"; got != want {
		t.Errorf("stderr = %q, want %q", got, want)
	}
}

func TestPool_WinnerOutputDrainedBeforeReturn(t *testing.T) {
	var stdout, stderr bytes.Buffer

	// The winner emits a burst right before exiting; every line must be
	// flushed by the time Run returns.
	const n = 200
	var script strings.Builder
	fmt.Fprintf(&script, "i=0; while [ $i -lt %d ]; do echo line-$i; i=$((i+1)); done; exit 3", n)

	src := &scriptSource{scripts: []string{script.String()}}
	p := New(Config{
		Source:  src,
		Workers: 1,
		Stdout:  &stdout,
		Stderr:  &stderr,
		Logger:  newTestLogger(),
	})

	outcome, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", outcome.ExitCode)
	}

	lines := nonEmptyLines(&stdout)
	if len(lines) != n {
		t.Fatalf("got %d lines after Run returned, want %d (output truncated by reaping)", len(lines), n)
	}
	for i, l := range lines {
		if want := fmt.Sprintf("[0] line-%d", i); l != want {
			t.Fatalf("line %d = %q, want %q", i, l, want)
		}
	}
}

// =============================================================================
// Callbacks
// =============================================================================

func TestPool_CallbacksFireForWinnerAndSiblings(t *testing.T) {
	var stdout, stderr bytes.Buffer
	src := &scriptSource{scripts: []string{
		"sleep 0.1; exit 3",
		"sleep 30",
	}}

	var spawnMu sync.Mutex
	spawned := map[int]int{}
	exits := newExitCollector()

	p := New(Config{
		Source:  src,
		Workers: 2,
		Stdout:  &stdout,
		Stderr:  &stderr,
		Logger:  newTestLogger(),
		Callbacks: Callbacks{
			OnSpawn: func(worker, pid int) {
				spawnMu.Lock()
				spawned[worker] = pid
				spawnMu.Unlock()
			},
			OnExit: exits.OnExit,
		},
	})

	outcome, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.Worker != 0 || outcome.ExitCode != 3 {
		t.Errorf("outcome = %+v, want worker 0 exit 3", outcome)
	}

	spawnMu.Lock()
	if len(spawned) != 2 || spawned[0] <= 0 || spawned[1] <= 0 {
		t.Errorf("spawn callbacks = %v, want pids for workers 0 and 1", spawned)
	}
	spawnMu.Unlock()

	// The sibling's exit callback arrives after Run returns; its reaping
	// is deliberately not waited on.
	all := exits.waitFor(t, 2)
	if all[0].Worker != 0 || all[0].ExitCode != 3 {
		t.Errorf("first exit callback = %+v, want the winner", all[0])
	}
	if all[1].Worker != 1 {
		t.Errorf("second exit callback = %+v, want the killed sibling", all[1])
	}
	// SIGKILL surfaces as 128+9.
	if all[1].ExitCode != 137 {
		t.Errorf("sibling exit code = %d, want 137", all[1].ExitCode)
	}
}

// =============================================================================
// Spawn failure
// =============================================================================

func TestPool_PartialSpawnFailureAbortsRun(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "alive")

	// Worker 0 would prove it survived by writing the marker; worker 1
	// fails to spawn. The pool must kill worker 0 before it gets there.
	src := &brokenAtSource{
		script: fmt.Sprintf("sleep 0.3; echo alive > %s", marker),
		failAt: 1,
	}

	var stdout, stderr bytes.Buffer
	p := New(Config{
		Source:  src,
		Workers: 2,
		Stdout:  &stdout,
		Stderr:  &stderr,
		Logger:  newTestLogger(),
	})

	_, err := p.Run(context.Background())
	if err == nil {
		t.Fatal("Run succeeded despite a spawn failure")
	}
	if !strings.Contains(err.Error(), "spawning worker 1") {
		t.Errorf("error = %q, want it to name the failing worker index", err)
	}

	time.Sleep(600 * time.Millisecond)
	if _, statErr := os.Stat(marker); !errors.Is(statErr, os.ErrNotExist) {
		t.Error("worker 0 survived the aborted spawn")
	}
}

func TestPool_RejectsZeroWorkers(t *testing.T) {
	p := New(Config{
		Source:  &scriptSource{scripts: []string{"exit 0"}},
		Workers: 0,
		Logger:  newTestLogger(),
	})
	if _, err := p.Run(context.Background()); err == nil {
		t.Fatal("Run accepted a zero-worker pool")
	}
}

// =============================================================================
// Cancellation
// =============================================================================

func TestPool_ContextCancellationKillsWorkers(t *testing.T) {
	var stdout, stderr bytes.Buffer
	src := &scriptSource{scripts: []string{"sleep 30"}}

	p := New(Config{
		Source:  src,
		Workers: 2,
		Stdout:  &stdout,
		Stderr:  &stderr,
		Logger:  newTestLogger(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := p.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("cancellation took %s, workers were apparently not killed", elapsed)
	}
}

// =============================================================================
// Worker plumbing
// =============================================================================

func TestWorker_KillIsIdempotent(t *testing.T) {
	src := &scriptSource{scripts: []string{"sleep 30"}}
	w, err := spawnWorker(context.Background(), src, 0, newTestLogger())
	if err != nil {
		t.Fatalf("spawnWorker: %v", err)
	}

	w.Kill()
	w.Kill() // second call must be a no-op, not a double signal

	waitErr := w.Wait()
	if code := extractExitCode(waitErr); code != 137 {
		t.Errorf("exit code = %d, want 137 (SIGKILL)", code)
	}
}

func TestExtractExitCode(t *testing.T) {
	if got := extractExitCode(nil); got != 0 {
		t.Errorf("extractExitCode(nil) = %d, want 0", got)
	}
	// Not an *exec.ExitError at all.
	if got := extractExitCode(errors.New("pipe broke")); got != 1 {
		t.Errorf("extractExitCode(non-exit error) = %d, want 1", got)
	}
}

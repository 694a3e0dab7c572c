package pool

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Stream identifies which side of a worker's output a line came from.
type Stream string

const (
	StreamStdout Stream = "stdout"
	StreamStderr Stream = "stderr"
)

// Scanner sizing for long fuzzer output lines (stack traces, input dumps).
const (
	maxLineSize   = 64 * 1024
	maxLineBuffer = 1024 * 1024
)

// Recorder receives every line the mux forwards, for stats and dashboards.
// Implementations must be safe for concurrent use.
type Recorder interface {
	RecordLine(worker int, stream Stream, text string)
}

// taggedLine is one line of worker output on its way to the shared
// destination writers.
type taggedLine struct {
	worker int
	stream Stream
	text   string
}

// Mux fans worker output into the driver's own stdout and stderr, tagging
// every line with the worker ID that produced it.
//
// Each stream gets its own reader goroutine, so a slow or silent worker
// never delays reads from the others. A single writer goroutine serializes
// all emission: concurrent workers cannot interleave mid-line. Order is
// preserved per worker per stream; nothing is promised across workers or
// across one worker's two streams.
type Mux struct {
	stdout   io.Writer
	stderr   io.Writer
	logger   *slog.Logger
	recorder Recorder

	lines      chan taggedLine
	pumps      errgroup.Group
	attached   []attachedStream
	perWorker  map[int]*sync.WaitGroup
	writerDone chan struct{}

	started bool
}

// attachedStream is a registered but not yet running stream pump.
type attachedStream struct {
	worker int
	stream Stream
	r      io.Reader
}

// NewMux creates a multiplexer writing tagged stdout lines to stdout and
// tagged stderr lines to stderr. recorder may be nil.
func NewMux(stdout, stderr io.Writer, logger *slog.Logger, recorder Recorder) *Mux {
	return &Mux{
		stdout:     stdout,
		stderr:     stderr,
		logger:     logger,
		recorder:   recorder,
		lines:      make(chan taggedLine),
		perWorker:  map[int]*sync.WaitGroup{},
		writerDone: make(chan struct{}),
	}
}

// Attach registers one worker's streams. Nothing is read until Start,
// so a pool that fails to spawn fully never begins output handling.
func (m *Mux) Attach(worker int, stdout, stderr io.Reader) {
	if m.started {
		panic("pool: Attach after Start")
	}
	wg := &sync.WaitGroup{}
	wg.Add(2)
	m.perWorker[worker] = wg

	m.attached = append(m.attached,
		attachedStream{worker: worker, stream: StreamStdout, r: stdout},
		attachedStream{worker: worker, stream: StreamStderr, r: stderr},
	)
}

// Start launches one pump per attached stream plus the writer, and
// arranges channel teardown once every pump has finished.
func (m *Mux) Start() {
	m.started = true

	for _, s := range m.attached {
		s := s
		wg := m.perWorker[s.worker]
		m.pumps.Go(func() error {
			defer wg.Done()
			return m.pump(s.worker, s.stream, s.r)
		})
	}

	go func() {
		// Pump errors are local degradation, already logged at the
		// source; completion is all that matters here.
		_ = m.pumps.Wait()
		close(m.lines)
	}()

	go m.write()
}

// pump reads one stream line by line until EOF or a read error. A read
// error abandons this stream only; everything else keeps flowing.
func (m *Mux) pump(worker int, stream Stream, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, maxLineSize), maxLineBuffer)

	for scanner.Scan() {
		m.lines <- taggedLine{worker: worker, stream: stream, text: scanner.Text()}
	}

	if err := scanner.Err(); err != nil {
		m.logger.Warn("stream_read_error",
			"worker_id", worker,
			"stream", string(stream),
			"error", err,
		)
		return fmt.Errorf("worker %d %s: %w", worker, stream, err)
	}
	return nil
}

// write is the single emission point. It runs until the line channel
// closes, then signals writerDone.
func (m *Mux) write() {
	defer close(m.writerDone)

	var failed bool
	for line := range m.lines {
		if m.recorder != nil {
			m.recorder.RecordLine(line.worker, line.stream, line.text)
		}

		if failed {
			continue
		}
		dst := m.stdout
		if line.stream == StreamStderr {
			dst = m.stderr
		}
		if _, err := fmt.Fprintf(dst, "[%d] %s\n", line.worker, line.text); err != nil {
			// Keep draining so pumps and workers are not wedged behind
			// a dead destination.
			failed = true
			m.logger.Warn("output_write_error",
				"stream", string(line.stream),
				"error", err,
			)
		}
	}
}

// WaitWorker blocks until both of a worker's stream pumps have finished,
// which happens when the process closes its pipes, normally by exiting.
func (m *Mux) WaitWorker(worker int) {
	if wg, ok := m.perWorker[worker]; ok {
		wg.Wait()
	}
}

// Drain waits for all buffered output to be written, up to timeout.
// It reports whether the mux finished cleanly.
func (m *Mux) Drain(timeout time.Duration) bool {
	select {
	case <-m.writerDone:
		return true
	case <-time.After(timeout):
		m.logger.Warn("output_drain_timeout",
			"timeout", timeout.String(),
		)
		return false
	}
}

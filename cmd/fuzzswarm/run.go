package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"fuzzswarm/internal/config"
	"fuzzswarm/internal/console"
	"fuzzswarm/internal/logging"
	"fuzzswarm/internal/metrics"
	"fuzzswarm/internal/pool"
	"fuzzswarm/internal/preflight"
	"fuzzswarm/internal/process"
	"fuzzswarm/internal/project"
	"fuzzswarm/internal/stats"
	"fuzzswarm/internal/tui"
)

const (
	// interruptExitCode is the conventional 128+SIGINT status reported
	// when a run is stopped from the keyboard.
	interruptExitCode = 130

	// shutdownTimeout bounds the metrics server drain on exit.
	shutdownTimeout = 3 * time.Second
)

var runCfg = config.DefaultRun()

var runCmd = &cobra.Command{
	Use:   "run [flags] <target> [corpus-dir] [-- fuzz-binary-args...]",
	Short: "Build a fuzz target and run a pool of fuzzing workers",
	Long: `Run builds the instrumented test binary for a target and spawns N
worker processes fuzzing it in parallel against a shared corpus. Every
worker's output is forwarded line by line, tagged with its worker id:

  [3] fuzz: elapsed 3s, execs: 181490 (60495/sec)

The pool runs until the first worker exits, then the remaining workers
are killed and their buffered output is flushed.

With a single worker and no --tui or --metrics, the worker runs
directly attached to the terminal with no tagging, and its exit code
is passed through unchanged.

Arguments after -- go to the fuzz binary verbatim:

  fuzzswarm run -j 8 parse_header -- -test.fuzzminimizetime=10s`,
	// Positional arity is checked in runFuzzing: cobra counts args
	// after -- toward its validators.
	Args: cobra.ArbitraryArgs,
	RunE: runFuzzing,
}

func init() {
	flags := runCmd.Flags()
	flags.IntVarP(&runCfg.Jobs, "jobs", "j", runCfg.Jobs, "number of parallel fuzzing workers")
	flags.StringVarP(&runCfg.Sanitizer, "sanitizer", "s", runCfg.Sanitizer,
		"sanitizer to build with: "+strings.Join(process.Sanitizers(), ", "))
	flags.BoolVar(&runCfg.BuildOnly, "build-only", false, "build the fuzz binary and exit")
	flags.BoolVar(&runCfg.SkipPreflight, "no-preflight", false, "skip startup resource checks")
	flags.StringVar(&runCfg.MetricsAddr, "metrics", "", "serve Prometheus metrics on this address (e.g. :9090)")
	flags.BoolVar(&runCfg.TUIEnabled, "tui", false, "show the live worker dashboard instead of raw output")
	flags.StringVar(&runCfg.LogFormat, "log-format", runCfg.LogFormat, "driver log format: text, json")
	flags.BoolVarP(&runCfg.Verbose, "verbose", "v", false, "enable debug logging")
}

func runFuzzing(cmd *cobra.Command, args []string) error {
	if dash := cmd.ArgsLenAtDash(); dash >= 0 {
		runCfg.PassthroughArgs = args[dash:]
		args = args[:dash]
	}
	switch len(args) {
	case 1:
		runCfg.Target = args[0]
	case 2:
		runCfg.Target = args[0]
		runCfg.CorpusDir = args[1]
	default:
		return fmt.Errorf("expected <target> [corpus-dir], got %d arguments", len(args))
	}

	if err := runCfg.Validate(); err != nil {
		return err
	}

	// Under the TUI the driver log is dropped entirely: slog lines on
	// stderr would corrupt the alternate screen.
	logger := logging.New(runCfg.LogFormat, "info", runCfg.Verbose)
	if runCfg.TUIEnabled {
		logger = logging.Discard()
	}
	logging.SetDefault(logger)

	proj, err := project.Find(".")
	if err != nil {
		return err
	}
	manifest, err := proj.Manifest()
	if err != nil {
		return err
	}
	if !manifest.HasTarget(runCfg.Target) {
		names := manifest.TargetNames()
		if len(names) == 0 {
			return fmt.Errorf("no target named %q in %s (manifest declares no targets; run \"fuzzswarm add %s\")",
				runCfg.Target, proj.ManifestPath(), runCfg.Target)
		}
		return fmt.Errorf("no target named %q in %s (have: %s)",
			runCfg.Target, proj.ManifestPath(), strings.Join(names, ", "))
	}

	// Already validated; parse again for the typed value.
	sanitizer, err := process.ParseSanitizer(runCfg.Sanitizer)
	if err != nil {
		return err
	}

	corpusDir := runCfg.CorpusDir
	if corpusDir == "" {
		corpusDir, err = proj.CorpusDir(runCfg.Target)
		if err != nil {
			return err
		}
	} else if err := os.MkdirAll(corpusDir, 0o755); err != nil {
		return fmt.Errorf("creating corpus directory %s: %w", corpusDir, err)
	}
	// The fuzzing runtime writes failing inputs here; create it up front
	// so the first crash has somewhere to land.
	if _, err := proj.ArtifactDir(runCfg.Target); err != nil {
		return err
	}

	fuzzCfg := process.DefaultFuzzConfig()
	fuzzCfg.RootDir = proj.Root
	fuzzCfg.PackageDir = "./fuzz/targets"
	fuzzCfg.BinPath = proj.BinPath(runCfg.Target)
	fuzzCfg.FuzzFunc = project.FuzzFuncName(runCfg.Target)
	fuzzCfg.CorpusDir = corpusDir
	fuzzCfg.Sanitizer = sanitizer
	fuzzCfg.ExtraArgs = runCfg.PassthroughArgs

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !runCfg.SkipPreflight {
		result := preflight.RunAll(runCfg.Jobs, fuzzCfg.GoBinary)
		if !result.Passed || runCfg.Verbose {
			preflight.PrintResults(result)
		}
		if !result.Passed {
			return errors.New("preflight checks failed (use --no-preflight to override)")
		}
	}

	if err := buildFuzzBinary(ctx, proj, fuzzCfg, logger); err != nil {
		return err
	}
	if runCfg.BuildOnly {
		console.Successf("built %s", relToRoot(proj, fuzzCfg.BinPath))
		return nil
	}

	workerSpec := fuzzCfg.WorkerSpec()

	// Single-worker fast path: no tagging, no orchestration. Skipped
	// when the dashboard or the metrics endpoint was requested, since
	// both need the driver to stay resident.
	if runCfg.Jobs == 1 && !runCfg.TUIEnabled && runCfg.MetricsAddr == "" {
		return runSingle(stop, workerSpec, logger)
	}

	return runPool(ctx, workerSpec, logger)
}

// buildFuzzBinary compiles the target's test binary in the foreground
// with inherited stdio, so compiler errors reach the user untouched.
func buildFuzzBinary(ctx context.Context, proj *project.Project, fuzzCfg *process.FuzzConfig, logger *slog.Logger) error {
	if err := os.MkdirAll(proj.BinDir(), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", proj.BinDir(), err)
	}

	spec := fuzzCfg.BuildSpec()
	logger.Info("building_fuzz_binary", "cmd", spec.String())

	buildCmd := spec.Command(ctx)
	buildCmd.Stdin = os.Stdin
	buildCmd.Stdout = os.Stdout
	buildCmd.Stderr = os.Stderr
	if err := buildCmd.Run(); err != nil {
		return fmt.Errorf("building fuzz binary for %s: %w", fuzzCfg.FuzzFunc, err)
	}
	return nil
}

// runSingle runs the lone worker attached to the terminal, replacing
// the driver process entirely where the platform allows it.
func runSingle(stop context.CancelFunc, spec *process.Spec, logger *slog.Logger) error {
	// Restore default signal dispositions first: from here on the
	// worker owns the terminal, including Ctrl-C.
	stop()

	if err := pool.ReplaceProcess(spec); err != nil {
		logger.Debug("process_replacement_unavailable", "error", err)
	}

	code, err := pool.RunAttached(context.Background(), spec, logger)
	if err != nil {
		return err
	}
	exitCode = code
	return nil
}

// runPool runs the orchestrated worker pool with stats tracking and the
// optional dashboard and metrics endpoint.
func runPool(ctx context.Context, spec *process.Spec, logger *slog.Logger) error {
	tracker := stats.NewTracker(runCfg.Jobs)
	trackerCtx, stopTracker := context.WithCancel(context.Background())
	defer stopTracker()
	go tracker.Run(trackerCtx)

	var collector *metrics.Collector
	if runCfg.MetricsAddr != "" {
		collector = metrics.NewCollector(metrics.CollectorConfig{
			Version:   version,
			Target:    runCfg.Target,
			Sanitizer: runCfg.Sanitizer,
			Jobs:      runCfg.Jobs,
		})
		srv := metrics.NewServer(runCfg.MetricsAddr, prometheus.DefaultGatherer, logger)
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		go func() {
			ticker := time.NewTicker(time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-trackerCtx.Done():
					return
				case <-ticker.C:
					collector.Update(tracker.Snapshot())
				}
			}
		}()
	}

	poolCfg := pool.Config{
		Source:   spec,
		Workers:  runCfg.Jobs,
		Logger:   logger,
		Recorder: tracker,
		Callbacks: pool.Callbacks{
			OnSpawn: func(worker, pid int) {
				tracker.WorkerStarted(worker, pid)
				if collector != nil {
					collector.WorkerStarted(worker, pid)
				}
			},
			OnExit: func(worker, code int) {
				tracker.WorkerExited(worker, code)
				if collector != nil {
					collector.WorkerExited(worker, code)
				}
			},
		},
	}

	poolCtx, cancelPool := context.WithCancel(ctx)
	defer cancelPool()

	var (
		prog    *tea.Program
		tuiDone chan struct{}
	)
	if runCfg.TUIEnabled {
		// The dashboard owns the terminal; raw worker output would be
		// invisible inside the alternate screen anyway, so it is
		// dropped and the tracker keeps each worker's tail for replay.
		poolCfg.Stdout = io.Discard
		poolCfg.Stderr = io.Discard

		prog = tea.NewProgram(tui.New(tui.Config{
			Target:      runCfg.Target,
			Sanitizer:   runCfg.Sanitizer,
			Jobs:        runCfg.Jobs,
			MetricsAddr: runCfg.MetricsAddr,
			Source:      tracker,
		}), tea.WithAltScreen())

		tuiDone = make(chan struct{})
		go func() {
			defer close(tuiDone)
			if _, err := prog.Run(); err != nil {
				logger.Debug("dashboard_error", "error", err)
			}
			// A dashboard quit (q) stops the run.
			cancelPool()
		}()
	}

	outcome, runErr := pool.New(poolCfg).Run(poolCtx)

	// Fold the final partial second into the digest so short runs still
	// report rate percentiles, then freeze the metrics.
	tracker.Sample()
	stopTracker()
	if collector != nil {
		collector.Update(tracker.Snapshot())
	}
	if prog != nil {
		tui.SendQuit(prog)
		<-tuiDone
	}

	summary := stats.SummaryConfig{
		Target:    runCfg.Target,
		Sanitizer: runCfg.Sanitizer,
		Jobs:      runCfg.Jobs,
		Winner:    -1,
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			// Interrupted from the keyboard, or quit from the dashboard.
			fmt.Fprint(os.Stdout, stats.FormatRunSummary(tracker.Snapshot(), summary))
			if ctx.Err() != nil {
				console.Notef("Fuzzing interrupted")
				exitCode = interruptExitCode
			} else {
				console.Notef("Fuzzing stopped")
			}
			return nil
		}
		return runErr
	}

	summary.Winner = outcome.Worker
	summary.ExitCode = outcome.ExitCode

	fmt.Fprint(os.Stdout, stats.FormatRunSummary(tracker.Snapshot(), summary))
	if prog != nil {
		// The crash output scrolled by inside the alternate screen;
		// replay the winner's tail where it survives.
		if w := tracker.Worker(outcome.Worker); w != nil {
			fmt.Fprint(os.Stdout, stats.FormatTail(outcome.Worker, w.RecentLines()))
		}
	}
	console.Successf("Worker %d finished fuzzing", outcome.Worker)
	return nil
}

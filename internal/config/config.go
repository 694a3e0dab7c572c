// Package config holds and validates the configuration for a fuzzing run.
package config

// Run holds all options for one `fuzzswarm run` invocation.
type Run struct {
	// Target is the fuzz target name from the manifest.
	Target string `json:"target"`

	// Jobs is the number of parallel fuzzing workers.
	Jobs int `json:"jobs"`

	// Sanitizer selects build instrumentation: address, thread, memory, none.
	Sanitizer string `json:"sanitizer"`

	// CorpusDir overrides the default corpus directory when non-empty.
	CorpusDir string `json:"corpus_dir"`

	// BuildOnly builds the fuzz binary and exits without running workers.
	BuildOnly bool `json:"build_only"`

	// SkipPreflight disables startup resource checks.
	SkipPreflight bool `json:"skip_preflight"`

	// Observability
	MetricsAddr string `json:"metrics_addr"` // empty = metrics disabled
	TUIEnabled  bool   `json:"tui"`
	LogFormat   string `json:"log_format"` // text, json
	Verbose     bool   `json:"verbose"`

	// PassthroughArgs are forwarded verbatim to every worker's fuzz
	// binary, after the driver-generated flags.
	PassthroughArgs []string `json:"passthrough_args"`
}

// DefaultRun returns a Run with sensible defaults.
func DefaultRun() *Run {
	return &Run{
		Jobs:      1,
		Sanitizer: "address",
		LogFormat: "text",
	}
}

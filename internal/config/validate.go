package config

import (
	"errors"
	"fmt"
	"strings"

	"fortio.org/safecast"

	"fuzzswarm/internal/process"
	"fuzzswarm/internal/project"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the run configuration, collecting every violation rather
// than stopping at the first one. Returns nil if valid.
func (cfg *Run) Validate() error {
	var errs []error

	if cfg.Target == "" {
		errs = append(errs, ValidationError{
			Field:   "target",
			Message: "fuzz target name is required",
		})
	} else if !project.ValidTargetName(cfg.Target) {
		errs = append(errs, ValidationError{
			Field:   "target",
			Message: fmt.Sprintf("invalid target name %q (letters, digits and underscores only, not starting with a digit)", cfg.Target),
		})
	}

	// Workers hold a pipe pair each; the count must be positive and fit
	// the 16-bit bound the rest of the driver assumes.
	if cfg.Jobs < 1 {
		errs = append(errs, ValidationError{
			Field:   "jobs",
			Message: "must be at least 1",
		})
	} else if _, err := safecast.Conv[uint16](cfg.Jobs); err != nil {
		errs = append(errs, ValidationError{
			Field:   "jobs",
			Message: fmt.Sprintf("must fit in 16 bits (got %d)", cfg.Jobs),
		})
	}

	if _, err := process.ParseSanitizer(cfg.Sanitizer); err != nil {
		errs = append(errs, ValidationError{
			Field:   "sanitizer",
			Message: err.Error(),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(cfg.LogFormat)] {
		errs = append(errs, ValidationError{
			Field:   "log_format",
			Message: fmt.Sprintf("must be 'json' or 'text' (got %q)", cfg.LogFormat),
		})
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

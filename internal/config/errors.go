package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages. Using errors.New() here rather than fmt.Errorf()
// because we don't need to include dynamic values in these messages.
var (
	// ErrNoTarget is returned when no save file is specified.
	// This error occurs when the scan command receives no positional arguments.
	ErrNoTarget = errors.New("no target specified: provide at least one save-file path")

	// ErrInvalidSampleSize is returned when the sample size is not positive.
	// The canonical report always carries a sample section, so a size of
	// zero or less has no meaning.
	ErrInvalidSampleSize = errors.New("invalid sample size: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	// A batch size of zero would mean no concurrent audits, effectively
	// stopping the run.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)

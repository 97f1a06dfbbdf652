package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These mirror the constants the original diagnostic script hard-coded,
// lifted into configuration so operators can override them.
const (
	// DefaultSampleSize is the number of heroes shown in the sample section.
	// Three records are enough to eyeball format problems without flooding
	// the terminal on large saves.
	DefaultSampleSize = 3

	// DefaultBatchSize of 4 concurrent audits balances throughput with
	// memory usage. Each audit holds a fully parsed save document in
	// memory, so this is deliberately lower than a network-bound tool
	// would pick.
	DefaultBatchSize = 4

	// AppName is the application name used for XDG directory paths.
	AppName = "savescan"
)

// DefaultRemovedItems is the deny list of item identifiers retired from the
// game. These five shipped during early seasons and were removed from the
// client, but old save data may still reference them.
var DefaultRemovedItems = []string{"👷", "🦹", "🕵️", "🦴", "🦙"}

// Config holds all configuration options for savescan.
// This struct is designed to be populated from CLI flags and passed through
// the application via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., AuditConfig, ReportConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
// If the configuration grows significantly, consider refactoring into sub-structs.
type Config struct {
	// Targets is the list of save-file paths to audit.
	// Must contain at least one path.
	Targets []string

	// RemovedItems is the deny list of retired item identifiers an audit
	// tests equipped values against. Defaults to DefaultRemovedItems.
	RemovedItems []string

	// SampleSize is the number of leading heroes shown in the sample
	// section of the report.
	SampleSize int

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// BatchSize is the number of concurrent audits when processing
	// multiple save files. Higher values increase throughput but hold
	// more parsed documents in memory at once.
	BatchSize int

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .savescan in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// FileConfigs holds per-save-file configurations loaded from the
	// config file. This is populated by LoadConfigFile and consulted per
	// target during auditing.
	FileConfigs *File

	// JSONReport enables JSON report output instead of the canonical text
	// format. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of the
	// canonical text format. When true, outputs GitHub Flavored Markdown
	// with tables, alerts, and a format-distribution pie chart.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	// Directories are created automatically if they don't exist.
	ReportFile string

	// DBDir is the directory path for storing the SQLite audit history.
	// Defaults to the XDG data directory (~/.local/share/savescan on
	// Linux).
	DBDir string

	// SaveToDB indicates whether to save audit results to the history
	// database. Disabled with the --no-history flag.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use cases.
// Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., the removed-item
// list, sample size). This also serves as documentation of what the
// defaults are.
func NewConfig() *Config {
	removed := make([]string, len(DefaultRemovedItems))
	copy(removed, DefaultRemovedItems)

	return &Config{
		RemovedItems: removed,
		SampleSize:   DefaultSampleSize,
		BatchSize:    DefaultBatchSize,
		SaveToDB:     true,
	}
}

// XDGDataDir returns the XDG data directory for savescan.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.local/share/savescan
// On macOS: ~/Library/Application Support/savescan
// On Windows: %LOCALAPPDATA%\savescan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for savescan.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.config/savescan
// On macOS: ~/Library/Application Support/savescan
// On Windows: %APPDATA%\savescan
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any auditing begins.
//
// We chose to return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	// We must have at least one save file to audit
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}

	// SampleSize must be positive; the canonical report always carries a
	// sample section
	if c.SampleSize <= 0 {
		return ErrInvalidSampleSize
	}

	// BatchSize must be positive; zero would mean no auditing
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	// JSONReport and MarkdownReport are mutually exclusive
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	return nil
}

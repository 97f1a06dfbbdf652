package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/urachaosarena-lab/TerminalOne/internal/config"
	"github.com/urachaosarena-lab/TerminalOne/internal/database"
	"github.com/urachaosarena-lab/TerminalOne/internal/log"
	"github.com/urachaosarena-lab/TerminalOne/internal/model"
	"github.com/urachaosarena-lab/TerminalOne/internal/pipeline"
	"github.com/urachaosarena-lab/TerminalOne/internal/report"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [save-file]",
		Short: "Audit hero save files for equipped-item format problems",
		Long: `Scan audits exported hero save files (JSON documents).

It loads each save, inspects every hero record, and reports on:
- Equipped-item format distribution (legacy strings vs current objects)
- Retired items that are still equipped
- Equipped values that match neither format
- Total inventory size across all heroes

Examples:
  # Audit a single save file
  savescan scan saves/heroes.json

  # Audit multiple save files
  savescan scan day1.json day2.json day3.json

  # Flag a custom set of retired items
  savescan scan -r "👷" -r "🦙" saves/heroes.json

  # Output JSON report
  savescan scan --json saves/heroes.json

  # Use a custom configuration file
  savescan scan -c myconfig.yaml saves/heroes.json

Configuration file (.savescan) example:
  defaults:
    sampleSize: 3
  files:
    heroes.json:
      removedItems:
        - "👷"
        - "🦙"
    legacy-export.json:
      sampleSize: 5`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	// Audit behavior flags
	cmd.Flags().StringSliceP("removed-item", "r", nil,
		"Retired item identifier to flag (repeatable, overrides the built-in list)")
	cmd.Flags().IntP("sample", "s", config.DefaultSampleSize,
		"Number of heroes shown in the sample section")

	// Batch auditing flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of concurrent audits")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .savescan in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	// History flags
	cmd.Flags().Bool("no-history", false,
		"Skip recording the audit in the history database")

	return cmd
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	// Build config from flags
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging
	verbose := getVerboseFlag(cmd)
	logger := setupLogger(verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runScan(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	// Get flag values
	var err error

	// Only override the built-in deny list when the flag was actually set
	if cmd.Flags().Changed("removed-item") {
		cfg.RemovedItems, err = cmd.Flags().GetStringSlice("removed-item")
		if err != nil {
			return nil, err
		}
	}

	cfg.SampleSize, err = cmd.Flags().GetInt("sample")
	if err != nil {
		return nil, err
	}

	cfg.BatchSize, err = cmd.Flags().GetInt("batch")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load per-file configurations from config file
	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use empty config if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.FileConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		// User explicitly specified a config file that doesn't exist
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		// Use empty config if no file found and user didn't explicitly specify one
		cfg.FileConfigs = &config.File{
			Files: make(map[string]config.FileConfig),
		}
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	noHistory, err := cmd.Flags().GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noHistory
	cfg.DBDir = config.XDGDataDir()

	// Get positional arguments (save-file paths)
	cfg.Targets = args

	return cfg, nil
}

// setupLogger creates a structured logger based on verbosity setting.
// The logger writes to stderr so stdout stays reserved for report output.
func setupLogger(verbose bool) *slog.Logger {
	return log.NewSecureLogger(os.Stderr, verbose)
}

// runScan executes the audit.
func runScan(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if len(cfg.Targets) == 0 {
		return errors.New("no targets provided (specify one or more save-file paths as arguments)")
	}

	logger.Info("starting audit",
		"targets", cfg.Targets,
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	// Open database connection if saving is enabled
	var db *database.AuditDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "dir", cfg.DBDir)
	}

	// Verify all save files are readable before any auditing starts
	for _, target := range cfg.Targets {
		if _, err := os.Stat(target); err != nil {
			return fmt.Errorf("cannot access save file %q: %w", target, err)
		}
	}

	// Use batch processor for parallel auditing if multiple targets
	if len(cfg.Targets) > 1 && cfg.BatchSize > 1 {
		return runBatchScan(ctx, cfg, db, logger)
	}

	// Single target or sequential auditing
	return runSequentialScan(ctx, cfg, db, logger)
}

// runSequentialScan audits targets one at a time.
// A failed audit emits no report for that file; remaining targets are still
// audited, and the run exits nonzero if any audit failed.
func runSequentialScan(ctx context.Context, cfg *config.Config, db *database.AuditDB, logger *slog.Logger) error {
	failed := 0
	for _, target := range cfg.Targets {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// Get per-file configuration
		fileConfig := getFileConfig(cfg, target)

		// Create pipeline with per-file options
		p := createPipelineForTarget(logger, cfg, fileConfig)

		auditReport := model.NewReport(target)

		fmt.Fprintf(os.Stderr, "Auditing %s...\n", target)
		startTime := time.Now()

		// Execute the pipeline
		if err := p.Execute(ctx, auditReport); err != nil {
			logger.Error("audit failed", "target", target, "error", err)
			fmt.Fprintf(os.Stderr, "Audit error for %s: %v\n", target, err)
			failed++
			continue
		}

		elapsed := time.Since(startTime)
		fmt.Fprintf(os.Stderr, "Audit completed in %s\n\n", elapsed.Round(time.Millisecond))

		// Generate and output report
		if err := outputReport(cfg, auditReport); err != nil {
			logger.Error("report failed", "target", target, "error", err)
		}

		// Save to database if enabled
		if err := saveAuditReport(ctx, db, auditReport, logger); err != nil {
			logger.Error("failed to save audit report", "target", target, "error", err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d audits failed", failed, len(cfg.Targets))
	}
	return nil
}

// runBatchScan audits multiple targets concurrently using BatchProcessor.
func runBatchScan(ctx context.Context, cfg *config.Config, db *database.AuditDB, logger *slog.Logger) error {
	fmt.Fprintf(os.Stderr, "Starting batch audit of %d save files (concurrency: %d)...\n\n",
		len(cfg.Targets), cfg.BatchSize)

	startTime := time.Now()

	// Warn user about batch processing limitation
	if cfg.FileConfigs != nil && len(cfg.FileConfigs.Files) > 0 {
		logger.Warn("batch processing uses default file config only; per-file configs (removed items, sample size) are ignored",
			"fileCount", len(cfg.FileConfigs.Files))
		fmt.Fprintf(os.Stderr, "Warning: Per-file configurations are ignored in batch mode. Use sequential mode (--batch 1) to apply per-file settings.\n\n")
	}

	// Create batch processor with pipeline factory
	bp := pipeline.NewBatchProcessor(
		func() *pipeline.Pipeline {
			// Note: For batch processing, we use the default file config
			// Per-file configs would require per-target pipeline creation
			var fileConfig config.FileConfig
			if cfg.FileConfigs != nil {
				fileConfig = cfg.FileConfigs.Defaults
			}
			return createPipelineForTarget(logger, cfg, fileConfig)
		},
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	// Process with callback for streaming output
	var mu sync.Mutex
	failed := 0
	err := bp.ProcessBatchWithCallback(ctx, cfg.Targets, func(auditReport *model.Report, index int) {
		mu.Lock()
		defer mu.Unlock()

		// A failed audit emits no report and is not recorded in history
		if auditReport.Error != nil {
			failed++
			fmt.Fprintf(os.Stderr, "[%d/%d] Audit error for %s: %v\n",
				index+1, len(cfg.Targets), auditReport.SaveFile, auditReport.Error)
			return
		}

		fmt.Fprintf(os.Stderr, "[%d/%d] Audit completed: %s\n", index+1, len(cfg.Targets), auditReport.SaveFile)

		// Generate and output report
		if err := outputReport(cfg, auditReport); err != nil {
			logger.Error("report failed", "target", auditReport.SaveFile, "error", err)
		}

		// Save to database if enabled
		if err := saveAuditReport(ctx, db, auditReport, logger); err != nil {
			logger.Error("failed to save audit report", "target", auditReport.SaveFile, "error", err)
		}
	})

	elapsed := time.Since(startTime)
	fmt.Fprintf(os.Stderr, "\nBatch audit completed in %s\n", elapsed.Round(time.Millisecond))

	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d audits failed", failed, len(cfg.Targets))
	}
	return nil
}

// getFileConfig returns the per-file configuration for a target.
// Falls back to defaults if no per-file config exists.
func getFileConfig(cfg *config.Config, target string) config.FileConfig {
	if cfg.FileConfigs == nil {
		return config.FileConfig{}
	}

	// Try the path as given first
	if _, ok := cfg.FileConfigs.Files[target]; ok {
		return cfg.FileConfigs.GetFileConfig(target)
	}

	// Try the base name so "saves/heroes.json" matches a "heroes.json" entry
	base := filepath.Base(target)
	if _, ok := cfg.FileConfigs.Files[base]; ok {
		return cfg.FileConfigs.GetFileConfig(base)
	}

	return cfg.FileConfigs.Defaults
}

// createPipelineForTarget creates a pipeline with the given configuration.
// The pipeline stops on the first step error: a failed load invalidates
// every later count, so partial results would be misleading.
func createPipelineForTarget(logger *slog.Logger, cfg *config.Config, fileConfig config.FileConfig) *pipeline.Pipeline {
	pipelineOpts := []pipeline.Option{
		pipeline.WithLogger(logger),
	}

	// Determine the deny list (per-file overrides global)
	removedItems := cfg.RemovedItems
	if len(fileConfig.RemovedItems) > 0 {
		removedItems = fileConfig.RemovedItems
	}

	// Determine the sample size (per-file overrides global)
	sampleSize := cfg.SampleSize
	if fileConfig.SampleSize > 0 {
		sampleSize = fileConfig.SampleSize
	}

	configOpts := []pipeline.DefaultPipelineOption{
		pipeline.WithPipelineRemovedItems(removedItems),
		pipeline.WithPipelineSampleSize(sampleSize),
	}

	return pipeline.DefaultPipeline(pipelineOpts, configOpts...)
}

// outputReport outputs the audit report in the requested format.
func outputReport(cfg *config.Config, auditReport *model.Report) error {
	// Determine output destination
	var output *os.File
	if cfg.ReportFile != "" {
		// Create directories if they don't exist
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Create/overwrite the output file with owner-only permissions (0600)
		// Reports carry user identifiers that should not be world-readable
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	// JSON output
	if cfg.JSONReport {
		writer := report.NewJSONWriter(output, report.WithPrettyPrint())
		_, err := writer.Write(auditReport)
		return err
	}

	// Markdown output
	if cfg.MarkdownReport {
		writer := report.NewMarkdownWriter(output)
		_, err := writer.Write(auditReport)
		return err
	}

	// Canonical text report (default)
	writer := report.NewTextWriter(output)
	_, err := writer.Write(auditReport)
	return err
}

// saveAuditReport saves the audit report to the database if enabled.
// If db is nil, this function is a no-op.
func saveAuditReport(ctx context.Context, db *database.AuditDB, auditReport *model.Report, logger *slog.Logger) error {
	if db == nil {
		return nil
	}

	// A repeat digest means the file has not changed since an earlier audit;
	// the new row still records that this run happened.
	if seen, err := db.HasAuditForDigest(ctx, auditReport.Digest); err == nil && seen {
		logger.Info("save file unchanged since a previous audit",
			"saveFile", auditReport.SaveFile,
			"digest", auditReport.Digest,
		)
	}

	auditID, err := db.SaveAuditReport(ctx, auditReport)
	if err != nil {
		return fmt.Errorf("failed to save audit report: %w", err)
	}

	logger.Info("audit report saved to database",
		"saveFile", auditReport.SaveFile,
		"auditID", auditID,
	)
	return nil
}

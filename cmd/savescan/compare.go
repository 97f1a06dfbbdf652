package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/urachaosarena-lab/TerminalOne/internal/config"
	"github.com/urachaosarena-lab/TerminalOne/internal/database"
	"github.com/urachaosarena-lab/TerminalOne/internal/model"
)

// Constants for trend direction and summary messages.
const (
	trendWorsened  = "worsened"
	trendImproved  = "improved"
	trendUnchanged = "unchanged"
	noFlagsMessage = "No flagged items"
)

// NewCompareCmd creates the compare command.
// This command compares audit results with historical data stored in the database.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [save-file]",
		Short: "Compare audit results with historical data",
		Long: `Compare displays differences between the current and previous audit results.

This command retrieves historical audit data from the database and shows:
- New findings that appeared since the last audit
- Resolved findings that are no longer present
- Changes in the equipped-item format census

The comparison requires at least two audits in the database for the specified
save file. Use 'savescan scan' to perform audits and save results.

Examples:
  # Compare latest two audits for a save file
  savescan compare saves/heroes.json

  # List all audit history for a save file
  savescan compare --list saves/heroes.json

  # Compare with a specific historical audit by ID
  savescan compare --with-audit-id 5 saves/heroes.json

  # Compare audits since a specific date
  savescan compare --since "2026-01-01" saves/heroes.json

  # Output comparison in JSON format
  savescan compare --json saves/heroes.json

  # List all audited save files in the database
  savescan compare --list-files`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCompareCmd,
	}

	// History listing flags
	cmd.Flags().BoolP("list", "l", false,
		"List audit history for the specified save file")
	cmd.Flags().BoolP("list-files", "L", false,
		"List all audited save files in the database")

	// Comparison target flags
	cmd.Flags().Int64P("with-audit-id", "i", 0,
		"Compare with a specific audit by ID (use --list to see available IDs)")
	cmd.Flags().StringP("since", "s", "",
		"Compare with the first audit after this date (format: YYYY-MM-DD)")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	// Handle --list-files flag first (requires database but no save file)
	listFiles, err := cmd.Flags().GetBool("list-files")
	if err != nil {
		return err
	}

	// Validate arguments before opening database (unless --list-files)
	// This prevents database lock issues when validation fails
	var saveFile string
	if !listFiles {
		// Require a save-file path for other operations
		if len(args) == 0 {
			return errors.New("save-file path is required (use --list-files to see available files)")
		}

		// Paths are matched exactly as recorded by the scan command
		saveFile = args[0]
	}

	// Use XDG data directory for database
	dbDir := config.XDGDataDir()

	// Open database
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()

	// Handle --list-files flag
	if listFiles {
		return listAuditedFiles(ctx, db)
	}

	// Handle --list flag
	listHistory, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}
	if listHistory {
		return listAuditHistory(ctx, db, saveFile)
	}

	// Get output format flags
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}

	// Get comparison target flags
	withAuditID, err := cmd.Flags().GetInt64("with-audit-id")
	if err != nil {
		return err
	}
	sinceDate, err := cmd.Flags().GetString("since")
	if err != nil {
		return err
	}

	// Perform comparison
	return runComparison(ctx, db, saveFile, withAuditID, sinceDate, jsonOutput, markdownOutput)
}

// listAuditedFiles lists all save files that have audit records in the database.
func listAuditedFiles(ctx context.Context, db *database.AuditDB) error {
	files, err := db.ListAuditedFiles(ctx)
	if err != nil {
		return fmt.Errorf("failed to list audited files: %w", err)
	}

	if len(files) == 0 {
		fmt.Println("No audited save files found in the database.")
		fmt.Println("\nUse 'savescan scan <save-file>' to audit a save file.")
		return nil
	}

	fmt.Printf("Audited save files (%d):\n\n", len(files))
	for _, file := range files {
		fmt.Printf("  • %s\n", file)
	}
	fmt.Println("\nUse 'savescan compare --list <save-file>' to see audit history for a file.")

	return nil
}

// listAuditHistory lists all audit records for a specific save file.
func listAuditHistory(ctx context.Context, db *database.AuditDB, saveFile string) error {
	reports, err := db.GetAuditHistoryWithMetadata(ctx, saveFile)
	if err != nil {
		return fmt.Errorf("failed to get audit history: %w", err)
	}

	if len(reports) == 0 {
		fmt.Printf("No audit history found for %s\n", saveFile)
		fmt.Println("\nUse 'savescan scan' to audit this save file.")
		return nil
	}

	fmt.Printf("Audit history for %s (%d audits):\n\n", saveFile, len(reports))
	fmt.Printf("  %-6s  %-20s  %s\n", "ID", "Date", "Flag Summary")
	fmt.Println("  " + strings.Repeat("-", 60))

	for _, meta := range reports {
		flagSummary := formatCensusSummary(meta.FormatSummary)
		fmt.Printf("  %-6d  %-20s  %s\n",
			meta.ID,
			meta.Timestamp.Format("2006-01-02 15:04:05"),
			flagSummary,
		)
	}

	fmt.Println("\nUse 'savescan compare <save-file>' to compare the latest two audits.")
	fmt.Println("Use 'savescan compare --with-audit-id <id> <save-file>' to compare with a specific audit.")

	return nil
}

// formatCensusSummary formats the census summary map into a human-readable string.
func formatCensusSummary(summary map[string]int) string {
	if summary == nil {
		return "N/A"
	}

	var parts []string
	if v := summary["removed"]; v > 0 {
		parts = append(parts, fmt.Sprintf("R:%d", v))
	}
	if v := summary["legacy"]; v > 0 {
		parts = append(parts, fmt.Sprintf("L:%d", v))
	}
	if v := summary["unrecognized"]; v > 0 {
		parts = append(parts, fmt.Sprintf("U:%d", v))
	}

	if len(parts) == 0 {
		return noFlagsMessage
	}
	return strings.Join(parts, " ")
}

// runComparison performs the actual comparison between audit reports.
func runComparison(ctx context.Context, db *database.AuditDB, saveFile string, withAuditID int64, sinceDate string, jsonOutput, markdownOutput bool) error {
	// Get the audit history
	reports, err := db.GetAuditHistory(ctx, saveFile)
	if err != nil {
		return fmt.Errorf("failed to get audit history: %w", err)
	}

	if len(reports) == 0 {
		return fmt.Errorf("no audit history found for %s", saveFile)
	}

	if len(reports) < 2 && withAuditID == 0 && sinceDate == "" {
		return fmt.Errorf("at least 2 audits are required for comparison (found %d)", len(reports))
	}

	// Determine which reports to compare
	var currentReport, previousReport *model.Report

	// Latest report is always the current one
	currentReport = reports[0]

	if withAuditID > 0 {
		// Find the report with the specified ID
		previousReport, err = db.GetAuditReportByID(ctx, withAuditID)
		if err != nil {
			return fmt.Errorf("failed to get audit with ID %d: %w", withAuditID, err)
		}
		if previousReport == nil {
			return fmt.Errorf("audit with ID %d not found", withAuditID)
		}
		// Validate that the audit ID belongs to the same save file
		if previousReport.SaveFile != saveFile {
			return fmt.Errorf("audit ID %d belongs to %s, not %s", withAuditID, previousReport.SaveFile, saveFile)
		}
	} else if sinceDate != "" {
		// Parse the date and find the first (oldest) report at or after the specified date
		parsedDate, err := time.Parse("2006-01-02", sinceDate)
		if err != nil {
			return fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
		}

		// Reports are sorted by timestamp DESC (newest first), so iterate in reverse
		// to find the first (oldest) report at or after the date
		for i := len(reports) - 1; i >= 0; i-- {
			r := reports[i]
			if r.DateScanned.After(parsedDate) || r.DateScanned.Equal(parsedDate) {
				previousReport = r
				break // Stop at the first (oldest) matching report
			}
		}
		if previousReport == nil {
			return fmt.Errorf("no audits found since %s", sinceDate)
		}
		// If only one audit matches and it's the current report, we can't compare
		if previousReport == currentReport {
			return fmt.Errorf("only one audit found since %s; at least 2 audits are required for comparison", sinceDate)
		}
	} else {
		// Default: compare with the previous audit
		previousReport = reports[1]
	}

	// Generate comparison result
	comparison := compareAudits(previousReport, currentReport)

	// Output the result
	if jsonOutput {
		return outputComparisonJSON(comparison)
	}
	if markdownOutput {
		return outputComparisonMarkdown(comparison)
	}
	return outputComparisonText(comparison)
}

// ComparisonResult holds the result of comparing two audit reports.
type ComparisonResult struct {
	// SaveFile is the audited save-file path.
	SaveFile string `json:"save_file"`

	// PreviousAudit contains metadata about the previous audit.
	PreviousAudit AuditMetadata `json:"previous_audit"`

	// CurrentAudit contains metadata about the current audit.
	CurrentAudit AuditMetadata `json:"current_audit"`

	// NewFindings contains findings that are new in the current audit.
	NewFindings []model.Finding `json:"new_findings,omitempty"`

	// ResolvedFindings contains findings that were in the previous audit but not in current.
	ResolvedFindings []model.Finding `json:"resolved_findings,omitempty"`

	// UnchangedCount is the number of findings that remain unchanged.
	UnchangedCount int `json:"unchanged_count"`

	// Trend describes the overall change in the format census.
	Trend TrendChange `json:"trend"`

	// IdenticalBytes reports whether both audits saw the same file content.
	// When true, any census difference comes from configuration, not data.
	IdenticalBytes bool `json:"identical_bytes"`
}

// AuditMetadata contains metadata about an audit for comparison display.
type AuditMetadata struct {
	// DateScanned is when the audit was performed.
	DateScanned time.Time `json:"date_scanned"`

	// RunID is the unique identifier of the audit run.
	RunID string `json:"run_id"`

	// Digest is the SHA3-256 digest of the save-file bytes.
	Digest string `json:"digest"`

	// TotalHeroes is the number of hero records in the save.
	TotalHeroes int `json:"total_heroes"`

	// LegacyCount is the number of legacy-format equipped items.
	LegacyCount int `json:"legacy_count"`

	// CurrentCount is the number of current-format equipped items.
	CurrentCount int `json:"current_count"`

	// UnrecognizedCount is the number of unrecognized equipped values.
	UnrecognizedCount int `json:"unrecognized_count"`

	// RemovedCount is the number of retired items still equipped.
	RemovedCount int `json:"removed_count"`

	// TotalFindings is the total number of findings in this audit.
	TotalFindings int `json:"total_findings"`
}

// TrendChange describes the change in the format census between audits.
type TrendChange struct {
	// Direction is "improved", "worsened", or "unchanged".
	Direction string `json:"direction"`

	// LegacyDelta is the change in legacy-format item count.
	LegacyDelta int `json:"legacy_delta"`

	// CurrentDelta is the change in current-format item count.
	CurrentDelta int `json:"current_delta"`

	// UnrecognizedDelta is the change in unrecognized value count.
	UnrecognizedDelta int `json:"unrecognized_delta"`

	// RemovedDelta is the change in retired-items-still-equipped count.
	RemovedDelta int `json:"removed_delta"`
}

// compareAudits compares two audit reports and generates a comparison result.
func compareAudits(previous, current *model.Report) *ComparisonResult {
	result := &ComparisonResult{
		SaveFile:      current.SaveFile,
		PreviousAudit: auditMetadata(previous),
		CurrentAudit:  auditMetadata(current),
	}

	// Build finding maps for comparison
	previousFindings := make(map[string]model.Finding)
	currentFindings := make(map[string]model.Finding)

	for _, f := range previous.Findings {
		previousFindings[findingKey(f)] = f
	}
	for _, f := range current.Findings {
		currentFindings[findingKey(f)] = f
	}

	// Find new findings (in current but not in previous)
	for key, finding := range currentFindings {
		if _, exists := previousFindings[key]; !exists {
			result.NewFindings = append(result.NewFindings, finding)
		}
	}

	// Find resolved findings (in previous but not in current)
	for key, finding := range previousFindings {
		if _, exists := currentFindings[key]; !exists {
			result.ResolvedFindings = append(result.ResolvedFindings, finding)
		} else {
			result.UnchangedCount++
		}
	}

	// Calculate census trend
	result.Trend = calculateTrendChange(result.PreviousAudit, result.CurrentAudit)

	// Same digest means the file itself did not change between audits
	result.IdenticalBytes = previous.Digest != "" && previous.Digest == current.Digest

	return result
}

// auditMetadata extracts comparison metadata from an audit report.
func auditMetadata(r *model.Report) AuditMetadata {
	return AuditMetadata{
		DateScanned:       r.DateScanned,
		RunID:             r.RunID,
		Digest:            r.Digest,
		TotalHeroes:       r.TotalHeroes,
		LegacyCount:       r.LegacyCount,
		CurrentCount:      r.CurrentCount,
		UnrecognizedCount: r.UnrecognizedCount,
		RemovedCount:      len(r.RemovedMatches),
		TotalFindings:     r.TotalFindings(),
	}
}

// findingKey generates a unique key for a finding for comparison purposes.
func findingKey(f model.Finding) string {
	return f.Type + "|" + f.Value + "|" + f.Location
}

// calculateTrendChange calculates the census change between two audits.
func calculateTrendChange(previous, current AuditMetadata) TrendChange {
	change := TrendChange{
		LegacyDelta:       current.LegacyCount - previous.LegacyCount,
		CurrentDelta:      current.CurrentCount - previous.CurrentCount,
		UnrecognizedDelta: current.UnrecognizedCount - previous.UnrecognizedCount,
		RemovedDelta:      current.RemovedCount - previous.RemovedCount,
	}

	// Determine overall direction based on weighted score
	// Retired items still equipped weigh most; current-format items are
	// the desired state and carry no weight
	previousScore := previous.RemovedCount*50 + previous.LegacyCount*10 + previous.UnrecognizedCount*5
	currentScore := current.RemovedCount*50 + current.LegacyCount*10 + current.UnrecognizedCount*5

	if currentScore < previousScore {
		change.Direction = trendImproved
	} else if currentScore > previousScore {
		change.Direction = trendWorsened
	} else {
		change.Direction = trendUnchanged
	}

	return change
}

// outputComparisonJSON outputs the comparison result in JSON format.
func outputComparisonJSON(result *ComparisonResult) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// outputComparisonMarkdown outputs the comparison result in Markdown format.
func outputComparisonMarkdown(result *ComparisonResult) error {
	fmt.Printf("# Audit Comparison: %s\n\n", result.SaveFile)

	// Trend summary
	fmt.Println("## Summary")
	fmt.Printf("\n**Migration Status:** %s\n\n", formatTrendDirection(result.Trend.Direction))

	if result.IdenticalBytes {
		fmt.Println("> Both audits saw identical file content (same digest).")
		fmt.Println()
	}

	// Audit metadata table
	fmt.Println("| Metric | Previous | Current | Change |")
	fmt.Println("|--------|----------|---------|--------|")
	fmt.Printf("| Date | %s | %s | - |\n",
		result.PreviousAudit.DateScanned.Format("2006-01-02 15:04"),
		result.CurrentAudit.DateScanned.Format("2006-01-02 15:04"))
	fmt.Printf("| Total heroes | %d | %d | %s |\n",
		result.PreviousAudit.TotalHeroes,
		result.CurrentAudit.TotalHeroes,
		formatDelta(result.CurrentAudit.TotalHeroes-result.PreviousAudit.TotalHeroes))
	fmt.Printf("| Legacy items | %d | %d | %s |\n",
		result.PreviousAudit.LegacyCount,
		result.CurrentAudit.LegacyCount,
		formatDelta(result.Trend.LegacyDelta))
	fmt.Printf("| Current items | %d | %d | %s |\n",
		result.PreviousAudit.CurrentCount,
		result.CurrentAudit.CurrentCount,
		formatDelta(result.Trend.CurrentDelta))
	fmt.Printf("| Unrecognized | %d | %d | %s |\n",
		result.PreviousAudit.UnrecognizedCount,
		result.CurrentAudit.UnrecognizedCount,
		formatDelta(result.Trend.UnrecognizedDelta))
	fmt.Printf("| Removed items | %d | %d | %s |\n",
		result.PreviousAudit.RemovedCount,
		result.CurrentAudit.RemovedCount,
		formatDelta(result.Trend.RemovedDelta))
	fmt.Printf("| **Findings** | **%d** | **%d** | **%s** |\n",
		result.PreviousAudit.TotalFindings,
		result.CurrentAudit.TotalFindings,
		formatDelta(result.CurrentAudit.TotalFindings-result.PreviousAudit.TotalFindings))

	// New findings
	if len(result.NewFindings) > 0 {
		fmt.Printf("\n## New Findings (%d)\n\n", len(result.NewFindings))
		for _, f := range result.NewFindings {
			fmt.Printf("- **[%s]** %s: %s\n", f.SeverityText, f.Title, f.Value)
			if f.Location != "" {
				fmt.Printf("  - Location: `%s`\n", f.Location)
			}
		}
	}

	// Resolved findings
	if len(result.ResolvedFindings) > 0 {
		fmt.Printf("\n## Resolved Findings (%d)\n\n", len(result.ResolvedFindings))
		for _, f := range result.ResolvedFindings {
			fmt.Printf("- ~~**[%s]** %s: %s~~\n", f.SeverityText, f.Title, f.Value)
		}
	}

	// Unchanged count
	if result.UnchangedCount > 0 {
		fmt.Printf("\n---\n\n*%d findings unchanged*\n", result.UnchangedCount)
	}

	return nil
}

// outputComparisonText outputs the comparison result in human-readable text format.
func outputComparisonText(result *ComparisonResult) error {
	fmt.Printf("Audit Comparison: %s\n", result.SaveFile)
	fmt.Println(strings.Repeat("=", 60))

	// Trend summary
	fmt.Printf("\nMigration Status: %s\n", formatTrendDirection(result.Trend.Direction))

	// Audit dates
	fmt.Printf("\nPrevious audit: %s\n", result.PreviousAudit.DateScanned.Format("2006-01-02 15:04:05"))
	fmt.Printf("Current audit:  %s\n", result.CurrentAudit.DateScanned.Format("2006-01-02 15:04:05"))

	if result.IdenticalBytes {
		fmt.Println("\nNote: both audits saw identical file content (same digest).")
	}

	// Census table
	fmt.Println("\nFormat Census:")
	fmt.Printf("  %-14s  %-10s  %-10s  %-10s\n", "Metric", "Previous", "Current", "Change")
	fmt.Println("  " + strings.Repeat("-", 49))
	fmt.Printf("  %-14s  %-10d  %-10d  %-10s\n", "Total heroes",
		result.PreviousAudit.TotalHeroes, result.CurrentAudit.TotalHeroes,
		formatDelta(result.CurrentAudit.TotalHeroes-result.PreviousAudit.TotalHeroes))
	fmt.Printf("  %-14s  %-10d  %-10d  %-10s\n", "Legacy items",
		result.PreviousAudit.LegacyCount, result.CurrentAudit.LegacyCount,
		formatDelta(result.Trend.LegacyDelta))
	fmt.Printf("  %-14s  %-10d  %-10d  %-10s\n", "Current items",
		result.PreviousAudit.CurrentCount, result.CurrentAudit.CurrentCount,
		formatDelta(result.Trend.CurrentDelta))
	fmt.Printf("  %-14s  %-10d  %-10d  %-10s\n", "Unrecognized",
		result.PreviousAudit.UnrecognizedCount, result.CurrentAudit.UnrecognizedCount,
		formatDelta(result.Trend.UnrecognizedDelta))
	fmt.Printf("  %-14s  %-10d  %-10d  %-10s\n", "Removed items",
		result.PreviousAudit.RemovedCount, result.CurrentAudit.RemovedCount,
		formatDelta(result.Trend.RemovedDelta))
	fmt.Println("  " + strings.Repeat("-", 49))
	fmt.Printf("  %-14s  %-10d  %-10d  %-10s\n", "Findings",
		result.PreviousAudit.TotalFindings, result.CurrentAudit.TotalFindings,
		formatDelta(result.CurrentAudit.TotalFindings-result.PreviousAudit.TotalFindings))

	// New findings
	if len(result.NewFindings) > 0 {
		fmt.Printf("\nNew Findings (%d):\n", len(result.NewFindings))
		for _, f := range result.NewFindings {
			fmt.Printf("  [+] [%s] %s: %s\n", f.SeverityText, f.Title, f.Value)
			if f.Location != "" {
				fmt.Printf("      Location: %s\n", f.Location)
			}
		}
	}

	// Resolved findings
	if len(result.ResolvedFindings) > 0 {
		fmt.Printf("\nResolved Findings (%d):\n", len(result.ResolvedFindings))
		for _, f := range result.ResolvedFindings {
			fmt.Printf("  [-] [%s] %s: %s\n", f.SeverityText, f.Title, f.Value)
		}
	}

	// Unchanged count
	if result.UnchangedCount > 0 {
		fmt.Printf("\nUnchanged: %d findings\n", result.UnchangedCount)
	}

	return nil
}

// formatTrendDirection formats the trend direction for display.
func formatTrendDirection(direction string) string {
	switch direction {
	case trendImproved:
		return "IMPROVED (flagged items decreased)"
	case trendWorsened:
		return "WORSENED (flagged items increased)"
	default:
		return "UNCHANGED"
	}
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	} else if delta < 0 {
		return strconv.Itoa(delta)
	}
	return "0"
}

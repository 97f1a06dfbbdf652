package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/urachaosarena-lab/TerminalOne/internal/model"
)

// TextWriter outputs the audit report in plain text.
// The default output is the stable diagnostic format: two runs over the
// same save file with the same configuration produce identical bytes, so
// the output can be diffed or committed next to the save it describes.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Stable bytes are part of the format's contract
type TextWriter struct {
	baseWriter

	// findingSummary appends the categorized finding section after the
	// diagnostic output. Off by default to keep the output stable.
	findingSummary bool
}

// TextWriterOption configures a TextWriter.
type TextWriterOption func(*TextWriter)

// WithFindingSummary appends the categorized findings after the
// diagnostic section.
func WithFindingSummary(show bool) TextWriterOption {
	return func(w *TextWriter) {
		w.findingSummary = show
	}
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
func NewTextWriter(output io.Writer, opts ...TextWriterOption) *TextWriter {
	w := &TextWriter{
		baseWriter:     newBaseWriter(output),
		findingSummary: false,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in the diagnostic text format.
func (w *TextWriter) Write(report *model.Report) (int, error) {
	var sb strings.Builder

	// Census and legacy listing
	w.writeCensus(&sb, report)

	// Format summary with removed-item details
	w.writeFormatSummary(&sb, report)

	// Inventory total
	w.writeInventory(&sb, report)

	// Sample heroes
	w.writeSamples(&sb, report)

	if w.findingSummary {
		w.writeFindings(&sb, report)
	}

	return w.output.Write([]byte(sb.String()))
}

// writeCensus writes the hero total and the legacy-format listing.
// Legacy lines keep discovery order so the listing doubles as a
// migration worklist.
func (w *TextWriter) writeCensus(sb *strings.Builder, report *model.Report) {
	sb.WriteString(fmt.Sprintf("Total heroes: %d\n", report.TotalHeroes))

	for _, item := range report.LegacyItems {
		sb.WriteString(fmt.Sprintf("OLD FORMAT: User %s has %s=%s\n", item.UserID, item.Slot, item.Value))
	}
}

// writeFormatSummary writes the format counters and removed-item details.
func (w *TextWriter) writeFormatSummary(sb *strings.Builder, report *model.Report) {
	sb.WriteString(fmt.Sprintf("\nHeroes with equipped items: %d\n", report.HeroesWithItems))
	sb.WriteString(fmt.Sprintf("Old format (string): %d\n", report.LegacyCount))
	sb.WriteString(fmt.Sprintf("New format (object): %d\n", report.CurrentCount))
	sb.WriteString(fmt.Sprintf("Removed items still present: %d\n", len(report.RemovedMatches)))

	for _, match := range report.RemovedMatches {
		sb.WriteString(fmt.Sprintf("  - User %s: %s = %s\n", match.UserID, match.Slot, match.Item.DisplayValue()))
	}
}

// writeInventory writes the summed inventory line.
func (w *TextWriter) writeInventory(sb *strings.Builder, report *model.Report) {
	sb.WriteString(fmt.Sprintf("\nTotal inventory items across all heroes: %d\n", report.InventoryTotal))
}

// writeSamples writes the sample-hero section.
func (w *TextWriter) writeSamples(sb *strings.Builder, report *model.Report) {
	sb.WriteString("\n=== Sample Heroes ===\n")

	for _, sample := range report.Samples {
		sb.WriteString(fmt.Sprintf("\nUser %s:\n", sample.UserID))
		sb.WriteString(fmt.Sprintf("  Level: %d, Energy: %d/%d\n", sample.Level, sample.Energy, sample.MaxEnergy))
		sb.WriteString(fmt.Sprintf("  Equipped: %s\n", sample.Equipped))
		sb.WriteString(fmt.Sprintf("  Inventory: %d items\n", sample.InventoryCount))
	}
}

// writeFindings writes all findings grouped by severity.
// This section is opt-in and sits after the stable output on purpose:
// tools that parse the diagnostic format can stop at the first separator.
func (w *TextWriter) writeFindings(sb *strings.Builder, report *model.Report) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("FINDINGS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("  HIGH:   %d\n", report.HighCount))
	sb.WriteString(fmt.Sprintf("  MEDIUM: %d\n", report.MediumCount))
	sb.WriteString(fmt.Sprintf("  LOW:    %d\n", report.LowCount))
	sb.WriteString(fmt.Sprintf("  INFO:   %d\n", report.InfoCount))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("  TOTAL:  %d findings\n", report.TotalFindings()))
	sb.WriteString("\n")

	severities := []model.Severity{
		model.SeverityHigh,
		model.SeverityMedium,
		model.SeverityLow,
		model.SeverityInfo,
	}

	for _, severity := range severities {
		findings := report.GetFindingsBySeverity(severity)
		if len(findings) == 0 {
			continue
		}

		w.writeFindingsForSeverity(sb, severity, findings)
	}
}

// writeFindingsForSeverity writes findings of a specific severity level.
func (w *TextWriter) writeFindingsForSeverity(sb *strings.Builder, severity model.Severity, findings []model.Finding) {
	indicator := w.getSeverityIndicator(severity)
	sb.WriteString(fmt.Sprintf("[%s] %s\n", indicator, severity.String()))

	for _, finding := range findings {
		sb.WriteString(fmt.Sprintf("  * %s\n", finding.Title))
		if finding.Value != "" {
			sb.WriteString(fmt.Sprintf("    Value: %s\n", finding.Value))
		}
		if finding.Location != "" {
			sb.WriteString(fmt.Sprintf("    Location: %s\n", finding.Location))
		}
	}
	sb.WriteString("\n")
}

// getSeverityIndicator returns a visual indicator for the severity level.
func (w *TextWriter) getSeverityIndicator(severity model.Severity) string {
	switch severity {
	case model.SeverityHigh:
		return "!!"
	case model.SeverityMedium:
		return "!"
	case model.SeverityLow:
		return "-"
	case model.SeverityInfo:
		return "i"
	default:
		return "?"
	}
}

package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/urachaosarena-lab/TerminalOne/internal/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the full report in Markdown format.
func (w *MarkdownWriter) Write(report *model.Report) (int, error) {
	md := markdown.NewMarkdown(w.output)

	// Header
	w.writeHeader(md, report)

	// Format census
	w.writeCensus(md, report)

	// Removed items
	w.writeRemoved(md, report)

	// Legacy items
	w.writeLegacy(md, report)

	// Sample heroes
	w.writeSamples(md, report)

	// Findings by severity
	w.writeFindings(md, report)

	// Footer
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with audit information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.Report) {
	md.H1("Savescan Report")
	md.PlainText("")

	// Basic info table
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Save File", "`" + report.SaveFile + "`"},
			{"Audit Date", report.DateScanned.Format("2006-01-02 15:04:05 MST")},
			{"Run ID", "`" + report.RunID + "`"},
			{"Digest", "`" + shortDigest(report.Digest) + "`"},
			{"Status", w.getStatusText(report)},
		},
	})
	md.PlainText("")
}

// getStatusText returns the status text based on report state.
func (w *MarkdownWriter) getStatusText(report *model.Report) string {
	if report.Interrupted {
		return "⚠️ Interrupted (partial results)"
	}
	if report.ErrorMessage != "" {
		return "❌ Error - " + report.ErrorMessage
	}
	return "✅ Complete"
}

// writeCensus writes the format census section.
func (w *MarkdownWriter) writeCensus(md *markdown.Markdown, report *model.Report) {
	md.H2("Format Census")
	md.PlainText("")

	// Census table
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Count"},
		Rows: [][]string{
			{"Total heroes", strconv.Itoa(report.TotalHeroes)},
			{"Heroes with equipped items", strconv.Itoa(report.HeroesWithItems)},
			{"Old format (string)", strconv.Itoa(report.LegacyCount)},
			{"New format (object)", strconv.Itoa(report.CurrentCount)},
			{"Unrecognized shapes", strconv.Itoa(report.UnrecognizedCount)},
			{"Removed items still present", strconv.Itoa(len(report.RemovedMatches))},
			{"Inventory items", strconv.Itoa(report.InventoryTotal)},
		},
	})
	md.PlainText("")

	// Add pie chart if any equipped values were classified
	if report.TruthyEquippedCount() > 0 {
		w.writePieChart(md, report)
	}

	// Add alert based on audit result
	w.writeAlert(md, report)
}

// writePieChart writes a mermaid pie chart for the format distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.Report) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Equipped Item Format Distribution"),
		piechart.WithShowData(true),
	)

	if report.LegacyCount > 0 {
		chart.LabelAndIntValue("Old format (string)", uint64(report.LegacyCount))
	}
	if report.CurrentCount > 0 {
		chart.LabelAndIntValue("New format (object)", uint64(report.CurrentCount))
	}
	if report.UnrecognizedCount > 0 {
		chart.LabelAndIntValue("Unrecognized", uint64(report.UnrecognizedCount))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an appropriate alert based on the audit result.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.Report) {
	switch {
	case len(report.RemovedMatches) > 0:
		md.Warningf(
			"Removed items detected! %d equipped item(s) reference identifiers retired from the game.",
			len(report.RemovedMatches),
		)
	case report.LegacyCount > 0:
		md.Importantf(
			"Legacy format in use. %d equipped item(s) still use the bare-string format and should be migrated.",
			report.LegacyCount,
		)
	case report.UnrecognizedCount > 0:
		md.Note("Some equipped values have unrecognized shapes. Check the findings for details.")
	default:
		md.Tip("All equipped items use the structured format and none are retired.")
	}
	md.PlainText("")
}

// writeRemoved writes the removed-item matches section.
func (w *MarkdownWriter) writeRemoved(md *markdown.Markdown, report *model.Report) {
	md.H2("Removed Items")
	md.PlainText("")

	if len(report.RemovedMatches) == 0 {
		md.PlainText("No removed items detected.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.RemovedMatches))
	for i, match := range report.RemovedMatches {
		rows[i] = []string{
			"`" + match.UserID + "`",
			slotTitle(match.Slot),
			"`" + truncateString(match.Item.DisplayValue(), 50) + "`",
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"User", "Slot", "Item"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeLegacy writes the legacy-format migration worklist.
func (w *MarkdownWriter) writeLegacy(md *markdown.Markdown, report *model.Report) {
	md.H2("Legacy Items")
	md.PlainText("")

	if len(report.LegacyItems) == 0 {
		md.PlainText("No legacy-format items found.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.LegacyItems))
	for i, item := range report.LegacyItems {
		rows[i] = []string{
			"`" + item.UserID + "`",
			slotTitle(item.Slot),
			"`" + item.Value + "`",
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"User", "Slot", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeSamples writes the sample-hero section.
func (w *MarkdownWriter) writeSamples(md *markdown.Markdown, report *model.Report) {
	md.H2("Sample Heroes")
	md.PlainText("")

	if len(report.Samples) == 0 {
		md.PlainText("No heroes sampled.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Samples))
	for i, sample := range report.Samples {
		rows[i] = []string{
			"`" + sample.UserID + "`",
			strconv.Itoa(sample.Level),
			fmt.Sprintf("%d/%d", sample.Energy, sample.MaxEnergy),
			"`" + truncateString(string(sample.Equipped), 50) + "`",
			strconv.Itoa(sample.InventoryCount),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"User", "Level", "Energy", "Equipped", "Inventory"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFindings writes all findings grouped by severity.
func (w *MarkdownWriter) writeFindings(md *markdown.Markdown, report *model.Report) {
	if !report.HasFindings() {
		md.H2("Findings")
		md.PlainText("")
		md.PlainText("No findings.")
		md.PlainText("")
		return
	}

	md.H2("Findings")
	md.PlainText("")

	severities := []struct {
		level  model.Severity
		header string
	}{
		{model.SeverityHigh, "### 🟠 High"},
		{model.SeverityMedium, "### 🟡 Medium"},
		{model.SeverityLow, "### 🔵 Low"},
		{model.SeverityInfo, "### ⚪ Info"},
	}

	for _, sev := range severities {
		findings := report.GetFindingsBySeverity(sev.level)
		if len(findings) == 0 {
			continue
		}

		md.PlainText(sev.header)
		md.PlainText("")
		w.writeFindingsTable(md, findings)
	}
}

// writeFindingsTable writes a table of findings with details.
func (w *MarkdownWriter) writeFindingsTable(md *markdown.Markdown, findings []model.Finding) {
	headers := []string{"Title", "Value", "Location", "Recommendation"}

	rows := make([][]string, len(findings))
	for i, f := range findings {
		value := f.Value
		if value == "" {
			value = "-"
		}
		location := f.Location
		if location == "" {
			location = "-"
		}
		rec := f.Recommendation
		if rec == "" {
			rec = "-"
		}

		rows[i] = []string{
			f.Title,
			truncateString(value, 50),
			truncateString(location, 40),
			truncateString(rec, 60),
		}
	}

	md.Table(markdown.TableSet{
		Header: headers,
		Rows:   rows,
	})
	md.PlainText("")

	// Add detailed descriptions for all findings
	for _, f := range findings {
		if f.Description != "" {
			md.Details(f.Title, f.Description)
		}
	}
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [savescan](https://github.com/urachaosarena-lab/TerminalOne)*")
}

// slotTitle returns a display name for an equipped slot.
// Snake-case slot names become spaced title case ("off_hand" -> "Off Hand").
func slotTitle(slot string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(slot, "_", " "))
}

// shortDigest returns the leading 12 characters of a digest for display.
func shortDigest(digest string) string {
	if len(digest) <= 12 {
		return digest
	}
	return digest[:12]
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Report is the result of one audit of one save file.
// It carries the census counters the canonical text report prints, the
// removed-item matches, the hero samples, and the categorized findings.
//
// Design decision: We use a single struct for both collection and output
// rather than a raw/summary pair because the audit result is already
// summary-sized; the only bulky data is the parsed hero list, which is
// excluded from serialization.
type Report struct {
	// === Basic Information ===

	// SaveFile is the audited save-file path as given on the command line.
	SaveFile string `json:"save_file"`

	// RunID uniquely identifies this audit run.
	RunID string `json:"run_id"`

	// Digest is the SHA3-256 digest of the raw save-file bytes.
	// Two audits with equal digests saw byte-identical input.
	Digest string `json:"digest,omitempty"`

	// DateScanned is the timestamp when the audit was performed.
	DateScanned time.Time `json:"date_scanned"`

	// === Equipped-Item Census ===

	// TotalHeroes is the number of entries in the top-level mapping.
	TotalHeroes int `json:"total_heroes"`

	// HeroesWithItems counts heroes with at least one truthy equipped value.
	HeroesWithItems int `json:"heroes_with_items"`

	// LegacyCount counts equipped values in the bare-string format.
	LegacyCount int `json:"legacy_count"`

	// CurrentCount counts equipped values in the structured format.
	CurrentCount int `json:"current_count"`

	// UnrecognizedCount counts truthy equipped values of any other shape.
	// These are in neither format bucket.
	UnrecognizedCount int `json:"unrecognized_count"`

	// LegacyItems lists every legacy-format value in discovery order.
	// Each one becomes an OLD FORMAT diagnostic line in the text report.
	LegacyItems []LegacyItemRecord `json:"legacy_items,omitempty"`

	// === Removed-Item Detection ===

	// RemovedItemSet is the deny list this audit ran with, in
	// configuration order. Stored so historical reports stay
	// interpretable when the configured set changes.
	RemovedItemSet []string `json:"removed_item_set,omitempty"`

	// RemovedMatches lists equipped values whose identifier is in the
	// removed set, in discovery order, with the full original value.
	RemovedMatches []RemovedMatch `json:"removed_matches,omitempty"`

	// === Inventory ===

	// InventoryTotal is the summed inventory length across all heroes.
	InventoryTotal int `json:"inventory_total"`

	// === Samples ===

	// Samples holds the leading heroes in document order.
	Samples []HeroSample `json:"samples,omitempty"`

	// === Findings ===

	// Findings contains all categorized findings.
	Findings []Finding `json:"findings,omitempty"`

	// HighCount is the number of high severity findings.
	HighCount int `json:"high_count"`

	// MediumCount is the number of medium severity findings.
	MediumCount int `json:"medium_count"`

	// LowCount is the number of low severity findings.
	LowCount int `json:"low_count"`

	// InfoCount is the number of informational findings.
	InfoCount int `json:"info_count"`

	// === Audit State ===

	// Heroes holds the parsed entries in document order.
	// Populated by the load step and consumed by the later steps.
	Heroes []HeroEntry `json:"-"` // Excluded from JSON due to size

	// Interrupted is true if the audit was stopped by cancellation.
	Interrupted bool `json:"interrupted,omitempty"`

	// PerformedSteps lists the pipeline steps that actually ran.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Error contains any error that occurred during the audit.
	Error error `json:"-"` // Excluded from JSON

	// ErrorMessage is the string representation of Error for serialization.
	ErrorMessage string `json:"error,omitempty"` //nolint:tagliatelle // error is conventional
}

// LegacyItemRecord is one equipped value still in the bare-string format.
type LegacyItemRecord struct {
	// UserID is the owning hero's user identifier.
	UserID string `json:"user_id"`

	// Slot is the equipped slot name.
	Slot string `json:"slot"`

	// Value is the bare identifier string.
	Value string `json:"value"`
}

// RemovedMatch is one equipped value whose identifier is on the deny list.
// Item preserves the full original value, not just the identifier, so the
// detail line can show the record exactly as the save file spells it.
type RemovedMatch struct {
	// UserID is the owning hero's user identifier.
	UserID string `json:"user_id"`

	// Slot is the equipped slot name.
	Slot string `json:"slot"`

	// Item is the full decoded value.
	Item EquippedItem `json:"item"`
}

// HeroSample is one hero in the sample section.
type HeroSample struct {
	// UserID is the hero's user identifier.
	UserID string `json:"user_id"`

	// Level is the hero's progression level.
	Level int `json:"level"`

	// Energy is the hero's current energy.
	Energy int `json:"energy"`

	// MaxEnergy is the effective energy cap, default applied.
	MaxEnergy int `json:"max_energy"`

	// Equipped is the compacted raw equipped mapping.
	Equipped json.RawMessage `json:"equipped"`

	// InventoryCount is the hero's inventory length.
	InventoryCount int `json:"inventory_count"`
}

// Finding represents a single categorized audit finding.
type Finding struct {
	// Type is the finding type identifier.
	// This maps to the finding catalogue in severity.go.
	Type string `json:"type"`

	// Severity is the assessed level.
	Severity Severity `json:"severity"`

	// SeverityText is the human-readable severity.
	SeverityText string `json:"severity_text"`

	// Title is a short description of the finding.
	Title string `json:"title"`

	// Description provides more detail about the finding.
	Description string `json:"description,omitempty"`

	// Impact explains why this finding matters.
	Impact string `json:"impact,omitempty"`

	// Recommendation provides guidance on how to address this finding.
	Recommendation string `json:"recommendation,omitempty"`

	// Value is the specific value found (item identifier, raw record).
	Value string `json:"value,omitempty"`

	// Location is where the finding was discovered (user and slot).
	Location string `json:"location,omitempty"`
}

// NewReport creates a new report for the given save file with a fresh run
// identifier and timestamp.
func NewReport(saveFile string) *Report {
	return &Report{
		SaveFile:    saveFile,
		RunID:       uuid.NewString(),
		DateScanned: time.Now(),
	}
}

// NewFinding builds a finding of the given type, pulling severity, impact,
// and recommendation from the catalogue so every call site assesses the
// same type the same way.
func NewFinding(findingType, title, description, value, location string) Finding {
	info := GetFindingInfo(findingType)
	return Finding{
		Type:           findingType,
		Severity:       info.Severity,
		SeverityText:   info.Severity.String(),
		Title:          title,
		Description:    description,
		Impact:         info.Impact,
		Recommendation: info.Recommendation,
		Value:          value,
		Location:       location,
	}
}

// AddFinding adds a finding to the report, skipping duplicates with the
// same type, value, and location, and keeps the severity counters in sync.
func (r *Report) AddFinding(finding Finding) {
	for _, f := range r.Findings {
		if f.Type == finding.Type && f.Value == finding.Value && f.Location == finding.Location {
			return
		}
	}

	r.Findings = append(r.Findings, finding)

	switch finding.Severity {
	case SeverityHigh:
		r.HighCount++
	case SeverityMedium:
		r.MediumCount++
	case SeverityLow:
		r.LowCount++
	case SeverityInfo:
		r.InfoCount++
	}
}

// TotalFindings returns the total number of findings.
func (r *Report) TotalFindings() int {
	return len(r.Findings)
}

// HasFindings returns true if there are any findings.
func (r *Report) HasFindings() bool {
	return len(r.Findings) > 0
}

// GetFindingsBySeverity returns findings filtered by severity.
func (r *Report) GetFindingsBySeverity(severity Severity) []Finding {
	var result []Finding
	for _, f := range r.Findings {
		if f.Severity == severity {
			result = append(result, f)
		}
	}
	return result
}

// TruthyEquippedCount returns the number of classified truthy equipped
// values across all format buckets.
func (r *Report) TruthyEquippedCount() int {
	return r.LegacyCount + r.CurrentCount + r.UnrecognizedCount
}

// Clean reports whether the audit found nothing needing attention: no
// removed-item matches, no legacy-format values, no unrecognized shapes.
func (r *Report) Clean() bool {
	return len(r.RemovedMatches) == 0 && r.LegacyCount == 0 && r.UnrecognizedCount == 0
}

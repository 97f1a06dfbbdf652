package model

// Severity represents how urgently a save-data finding needs attention.
// This allows categorizing findings by their impact on save integrity.
//
// Design decision: We use iota-based constants rather than string constants
// for efficiency in comparisons and sorting. The String() method provides
// human-readable output when needed.
type Severity int

const (
	// SeverityInfo indicates informational findings with no direct impact.
	// These are recorded for completeness but require no action.
	SeverityInfo Severity = iota

	// SeverityLow indicates minor issues with limited impact.
	// Example: an equipped value whose shape the census cannot classify.
	// The save still loads; the affected slot simply cannot be audited.
	SeverityLow

	// SeverityMedium indicates issues that warrant a scheduled fix.
	// Example: an equipped item still in the legacy bare-string format.
	// Services reading structured item records will miss its attributes.
	SeverityMedium

	// SeverityHigh indicates issues that risk breaking the save in play.
	// Example: a retired item still attached to an equipped slot.
	// The client no longer ships assets for retired items.
	SeverityHigh
)

// String returns a human-readable representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

// FindingInfo contains metadata about a finding type including severity,
// impact description, and remediation recommendation.
type FindingInfo struct {
	Severity       Severity
	Impact         string
	Recommendation string
}

// findingInfoMapping maps finding types to their metadata.
// This centralized mapping ensures consistent assessment across the application.
//
// Design decision: We use a map rather than embedding severity in each finding type
// because:
// 1. It allows updating assessments without modifying type definitions
// 2. It provides a single source of truth for severity levels
// 3. It makes it easy to generate severity documentation
var findingInfoMapping = map[string]FindingInfo{
	// HIGH - save can break in play
	"removed_item_equipped": {
		Severity:       SeverityHigh,
		Impact:         "A retired item is still attached to an equipped slot. The client no longer ships assets or stats for retired items, so loading this save can fail or render a broken slot.",
		Recommendation: "Run the item migration job to strip retired identifiers, or grant the documented replacement item before the next client release.",
	},

	// MEDIUM - scheduled migration work
	"legacy_item_format": {
		Severity:       SeverityMedium,
		Impact:         "The equipped item uses the pre-migration bare-string representation. Services that read structured item records see no attributes for this slot.",
		Recommendation: "Schedule the save for the equipped-item migration that wraps bare identifiers into structured records.",
	},

	// LOW - audit blind spots
	"unrecognized_item_shape": {
		Severity:       SeverityLow,
		Impact:         "The equipped value is neither a bare identifier nor a structured record, so the census skips it and the slot contents cannot be audited.",
		Recommendation: "Inspect the save manually and normalize the slot to the structured item format.",
	},
}

// GetSeverity returns the severity level for a finding type.
// Returns SeverityInfo if the finding type is not in the mapping.
func GetSeverity(findingType string) Severity {
	if info, ok := findingInfoMapping[findingType]; ok {
		return info.Severity
	}
	return SeverityInfo
}

// GetFindingInfo returns the full finding information for a finding type.
// Returns a default FindingInfo with SeverityInfo if the type is not in the mapping.
func GetFindingInfo(findingType string) FindingInfo {
	if info, ok := findingInfoMapping[findingType]; ok {
		return info
	}
	return FindingInfo{
		Severity:       SeverityInfo,
		Impact:         "Unknown finding type. Review manually.",
		Recommendation: "Investigate the finding and assess impact.",
	}
}

package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ItemFormat identifies which historical representation an equipped value
// uses. The save data carries two item generations side by side: bare
// identifier strings written by old clients and structured records written
// by current ones. Classification is per-value, never per-file.
//
// Design decision: falsy placeholders and unclassifiable shapes are explicit
// variants rather than being absorbed by the legacy/current branches. The
// census skips both, but skipping is a visible branch, not an accident of
// type sniffing.
type ItemFormat int

const (
	// FormatEmpty is a falsy placeholder: JSON null, an empty string, an
	// empty object or array, false, or the number zero. The slot holds
	// nothing and every pass skips it.
	FormatEmpty ItemFormat = iota

	// FormatLegacy is the old representation: a bare item identifier string.
	FormatLegacy

	// FormatCurrent is the structured representation: an object carrying at
	// least an id field plus arbitrary attributes.
	FormatCurrent

	// FormatUnrecognized is any other truthy shape (true, a non-zero number,
	// a non-empty array). Counted in neither format bucket.
	FormatUnrecognized
)

// String returns the format name used in reports and logs.
func (f ItemFormat) String() string {
	switch f {
	case FormatEmpty:
		return "empty"
	case FormatLegacy:
		return "legacy"
	case FormatCurrent:
		return "current"
	case FormatUnrecognized:
		return "unrecognized"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the format as its name so stored reports stay
// readable without the constant table.
func (f ItemFormat) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

// UnmarshalJSON decodes a format name written by MarshalJSON.
func (f *ItemFormat) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("item format: %w", err)
	}
	switch name {
	case "empty":
		*f = FormatEmpty
	case "legacy":
		*f = FormatLegacy
	case "current":
		*f = FormatCurrent
	case "unrecognized":
		*f = FormatUnrecognized
	default:
		return fmt.Errorf("item format: unknown name %q", name)
	}
	return nil
}

// EquippedItem is one decoded equipped-slot value.
//
// ID is the item identifier: the string itself for legacy values, the id
// attribute for current ones (empty when the attribute is absent or not a
// string, in which case the value never matches a removed-item set).
// Attributes holds the remaining fields of a current record. Raw preserves
// the original JSON bytes, compacted, so reports can show the value exactly
// as the save file spells it.
type EquippedItem struct {
	Format     ItemFormat      `json:"format"`
	ID         string          `json:"id,omitempty"`
	Attributes map[string]any  `json:"attributes,omitempty"`
	Raw        json.RawMessage `json:"raw,omitempty"`
}

// Truthy reports whether the value counts as present. Only FormatEmpty is
// falsy; unrecognized shapes are present but unclassifiable.
func (e EquippedItem) Truthy() bool {
	return e.Format != FormatEmpty
}

// DisplayValue renders the item for diagnostic lines: legacy values as the
// bare identifier, everything else as the compacted original JSON.
func (e EquippedItem) DisplayValue() string {
	if e.Format == FormatLegacy {
		return e.ID
	}
	return string(e.Raw)
}

// DecodeEquippedItem classifies a raw equipped-slot value into the item
// union. It is the single place shape sniffing happens; raw must be valid
// JSON (it comes out of a successfully parsed document).
func DecodeEquippedItem(raw json.RawMessage) EquippedItem {
	item := EquippedItem{Raw: compactJSON(raw)}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return item
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil || s == "" {
			return item
		}
		item.Format = FormatLegacy
		item.ID = s
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &fields); err != nil || len(fields) == 0 {
			return item
		}
		item.Format = FormatCurrent
		if idRaw, ok := fields["id"]; ok {
			var id string
			if err := json.Unmarshal(idRaw, &id); err == nil {
				item.ID = id
			}
		}
		item.Attributes = decodeAttributes(fields)
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(trimmed, &elems); err != nil || len(elems) == 0 {
			return item
		}
		item.Format = FormatUnrecognized
	case 't':
		item.Format = FormatUnrecognized
	case 'f', 'n':
		// false and null are falsy placeholders
	default:
		var num json.Number
		if err := json.Unmarshal(trimmed, &num); err != nil {
			return item
		}
		if v, err := strconv.ParseFloat(num.String(), 64); err != nil || v == 0 {
			return item
		}
		item.Format = FormatUnrecognized
	}
	return item
}

// decodeAttributes decodes every field except id into a generic map.
// The id field lives in EquippedItem.ID; keeping it out of Attributes means
// the two never disagree.
func decodeAttributes(fields map[string]json.RawMessage) map[string]any {
	attrs := make(map[string]any, len(fields))
	for key, value := range fields {
		if key == "id" {
			continue
		}
		var v any
		if err := json.Unmarshal(value, &v); err != nil {
			v = string(value)
		}
		attrs[key] = v
	}
	if len(attrs) == 0 {
		return nil
	}
	return attrs
}

// compactJSON strips insignificant whitespace from raw while preserving key
// order and value spelling. Falls back to the input bytes if raw does not
// compact (it always should).
func compactJSON(raw json.RawMessage) json.RawMessage {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		out := make(json.RawMessage, len(raw))
		copy(out, raw)
		return out
	}
	return json.RawMessage(buf.Bytes())
}

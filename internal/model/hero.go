package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// DefaultMaxEnergy is the effective maximum energy for heroes whose record
// predates the maxEnergy field. Applied at decode time so every consumer
// sees a fully populated record instead of re-deriving the default.
const DefaultMaxEnergy = 3

// Hero decode errors.
var (
	// ErrNotHeroObject is returned when a hero record is not a JSON object.
	ErrNotHeroObject = errors.New("hero record is not a JSON object")
	// ErrMissingEquipped is returned when a record has no equipped mapping.
	ErrMissingEquipped = errors.New("hero record missing equipped mapping")
	// ErrMissingInventory is returned when a record has no inventory list.
	ErrMissingInventory = errors.New("hero record missing inventory list")
	// ErrEquippedNotObject is returned when equipped is not a JSON object.
	ErrEquippedNotObject = errors.New("equipped value is not a JSON object")
	// ErrInventoryNotArray is returned when inventory is not a JSON array.
	ErrInventoryNotArray = errors.New("inventory value is not a JSON array")
)

// EquippedSlot is one named attachment point on a hero together with its
// decoded value. Slots keep the order they have in the save file.
type EquippedSlot struct {
	Name string       `json:"name"`
	Item EquippedItem `json:"item"`
}

// Hero represents one decoded game-save record.
//
// Design decision: Equipped is an ordered slice rather than a map, and the
// raw equipped bytes are kept alongside the decoded slots, because:
// 1. Go maps do not preserve JSON object order and report output depends on
//    document order being stable
// 2. Sample blocks must show the mapping exactly as the save file spells it
// 3. Inventory contents are opaque; only the length is significant
type Hero struct {
	// Level is the hero's progression level.
	Level int `json:"level"`

	// Energy is the hero's current energy.
	Energy int `json:"energy"`

	// MaxEnergy is the effective energy cap, DefaultMaxEnergy when the
	// record does not carry one.
	MaxEnergy int `json:"max_energy"`

	// Equipped holds the decoded equipped slots in document order.
	Equipped []EquippedSlot `json:"equipped,omitempty"`

	// EquippedRaw is the compacted original equipped mapping, kept for
	// faithful rendering in sample blocks.
	EquippedRaw json.RawMessage `json:"equipped_raw,omitempty"`

	// Inventory holds the raw inventory entries. Contents are never
	// inspected; the slice length is the inventory size.
	Inventory []json.RawMessage `json:"-"`

	// InventoryCount is the inventory length, kept separately so it
	// survives serialization without the raw entries.
	InventoryCount int `json:"inventory_count"`
}

// HeroEntry pairs a hero with its user identifier, preserving the position
// the record has in the save document.
type HeroEntry struct {
	UserID string `json:"user_id"`
	Hero   Hero   `json:"hero"`
}

// HasEquippedItem reports whether any equipped slot holds a truthy value.
func (h Hero) HasEquippedItem() bool {
	for _, slot := range h.Equipped {
		if slot.Item.Truthy() {
			return true
		}
	}
	return false
}

// DecodeHero decodes one hero record from its raw JSON bytes.
//
// The equipped and inventory keys are required; their absence or a wrong
// shape fails the decode, and callers treat that as fatal for the whole
// document. level and energy decode to zero when absent. maxEnergy defaults
// to DefaultMaxEnergy.
func DecodeHero(raw json.RawMessage) (Hero, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Hero{}, ErrNotHeroObject
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return Hero{}, fmt.Errorf("decode hero record: %w", err)
	}

	equippedRaw, ok := fields["equipped"]
	if !ok {
		return Hero{}, ErrMissingEquipped
	}
	inventoryRaw, ok := fields["inventory"]
	if !ok {
		return Hero{}, ErrMissingInventory
	}

	hero := Hero{MaxEnergy: DefaultMaxEnergy}

	if levelRaw, ok := fields["level"]; ok {
		if err := json.Unmarshal(levelRaw, &hero.Level); err != nil {
			return Hero{}, fmt.Errorf("decode level: %w", err)
		}
	}
	if energyRaw, ok := fields["energy"]; ok {
		if err := json.Unmarshal(energyRaw, &hero.Energy); err != nil {
			return Hero{}, fmt.Errorf("decode energy: %w", err)
		}
	}
	if maxRaw, ok := fields["maxEnergy"]; ok {
		if err := json.Unmarshal(maxRaw, &hero.MaxEnergy); err != nil {
			return Hero{}, fmt.Errorf("decode maxEnergy: %w", err)
		}
	}

	slots, err := decodeEquippedSlots(equippedRaw)
	if err != nil {
		return Hero{}, err
	}
	hero.Equipped = slots
	hero.EquippedRaw = compactJSON(equippedRaw)

	if tok := firstJSONToken(inventoryRaw); tok != "array" {
		return Hero{}, fmt.Errorf("%w: got %s", ErrInventoryNotArray, tok)
	}
	if err := json.Unmarshal(inventoryRaw, &hero.Inventory); err != nil {
		return Hero{}, fmt.Errorf("decode inventory: %w", err)
	}
	hero.InventoryCount = len(hero.Inventory)

	return hero, nil
}

// decodeEquippedSlots walks the equipped object with a token decoder so the
// returned slots keep document order. A duplicate slot name keeps its first
// position and takes the last value, matching how JSON object decoding
// resolves duplicates elsewhere.
func decodeEquippedSlots(raw json.RawMessage) ([]EquippedSlot, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: got %s", ErrEquippedNotObject, firstJSONToken(raw))
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("decode equipped mapping: %w", err)
	}

	var slots []EquippedSlot
	index := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode equipped slot name: %w", err)
		}
		name, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("decode equipped slot name: unexpected token %v", tok)
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("decode equipped slot %q: %w", name, err)
		}

		item := DecodeEquippedItem(value)
		if at, seen := index[name]; seen {
			slots[at].Item = item
			continue
		}
		index[name] = len(slots)
		slots = append(slots, EquippedSlot{Name: name, Item: item})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("decode equipped mapping: %w", err)
	}
	return slots, nil
}

// firstJSONToken names the leading JSON value kind in raw, for error text.
func firstJSONToken(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "empty value"
	}
	switch trimmed[0] {
	case '{':
		return "object"
	case '[':
		return "array"
	case '"':
		return "string"
	case 't', 'f':
		return "boolean"
	case 'n':
		return "null"
	default:
		return "number"
	}
}

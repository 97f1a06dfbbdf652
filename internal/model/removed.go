package model

// RemovedItemSet is an immutable set of item identifiers retired from the
// game. Membership is the only semantic: an equipped value matches when its
// identifier is in the set.
//
// The set is built from configuration and passed into the detection pass as
// a value, never read from a global, so the pass stays pure and testable.
type RemovedItemSet struct {
	ids   map[string]struct{}
	order []string
}

// NewRemovedItemSet builds a set from identifiers in configuration order.
// Duplicates collapse to their first occurrence.
func NewRemovedItemSet(ids []string) RemovedItemSet {
	set := RemovedItemSet{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := set.ids[id]; ok {
			continue
		}
		set.ids[id] = struct{}{}
		set.order = append(set.order, id)
	}
	return set
}

// Contains reports whether id is in the set. The empty identifier never
// matches: records without a usable id cannot be deny-listed.
func (s RemovedItemSet) Contains(id string) bool {
	if id == "" {
		return false
	}
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of identifiers in the set.
func (s RemovedItemSet) Len() int {
	return len(s.order)
}

// Items returns the identifiers in configuration order.
func (s RemovedItemSet) Items() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

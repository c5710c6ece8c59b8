package itc

// Equatable lets Map detect true no-op re-insertions so that Apply stays
// idempotent: reapplying an unchanged patch must not re-bump the clock.
type Equatable[V any] interface {
	Equal(other V) bool
}

// Entry pairs an owned interval with the value stored there.
type Entry[V Equatable[V]] struct {
	ID    IDTree
	Value V
}

// Patch is a delta that can be shipped to a peer and folded into its Map via
// Apply.
type Patch[V Equatable[V]] struct {
	Timestamp EventTree
	Entries   []Entry[V]
}

// Map is a causal, delta-replicated map keyed by IDTree and timestamped by a
// single embedded EventTree covering the whole map.
type Map[V Equatable[V]] struct {
	timestamp EventTree
	entries   map[string]Entry[V]
}

// NewMap returns an empty map with a zero clock.
func NewMap[V Equatable[V]]() *Map[V] {
	return &Map[V]{timestamp: ZeroEvent, entries: make(map[string]Entry[V])}
}

// Timestamp returns the map's embedded clock.
func (m *Map[V]) Timestamp() EventTree { return m.timestamp }

// Len returns the number of live entries.
func (m *Map[V]) Len() int { return len(m.entries) }

// All returns a snapshot of every entry currently stored.
func (m *Map[V]) All() []Entry[V] {
	out := make([]Entry[V], 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	return out
}

// Get looks up the entry stored at exactly id.
func (m *Map[V]) Get(id IDTree) (V, bool) {
	e, ok := m.entries[id.String()]
	return e.Value, ok
}

// Event bumps the embedded clock at id without touching the map's entries.
func (m *Map[V]) Event(id IDTree) {
	m.timestamp = Bump(id, m.timestamp)
}

// Insert stores v at id, displacing (and returning) any existing entries
// whose owned interval is subsumed by id's — e.g. when an id is reclaimed
// from a dead peer and now covers ids that used to hold tombstones.
func (m *Map[V]) Insert(id IDTree, v V) []Entry[V] {
	key := id.String()
	var displaced []Entry[V]
	for k, e := range m.entries {
		if k == key {
			if !e.Value.Equal(v) {
				displaced = append(displaced, e)
			}
			continue
		}
		if Contains(id, e.ID) {
			displaced = append(displaced, e)
			delete(m.entries, k)
		}
	}
	m.entries[key] = Entry[V]{ID: id, Value: v}
	m.timestamp = Bump(id, m.timestamp)
	return displaced
}

// Remove deletes the entry stored at exactly id, if any. Used when a
// node's own id shrinks (forking off part of it for a newcomer): the new,
// smaller id doesn't contain the old one, so Insert's displacement logic
// can't find and clean up the stale slot on its own.
func (m *Map[V]) Remove(id IDTree) {
	delete(m.entries, id.String())
}

// Clone returns an independent copy of m.
func (m *Map[V]) Clone() *Map[V] {
	cp := &Map[V]{timestamp: m.timestamp, entries: make(map[string]Entry[V], len(m.entries))}
	for k, v := range m.entries {
		cp.entries[k] = v
	}
	return cp
}

// Diff produces a patch carrying the entries peerTimestamp doesn't already
// dominate, meant to be shipped to a peer and folded in via Apply. Every id
// interval is owned by a single lineage at a time (the membership protocol's
// reality-token defection resolves any conflict before it could produce two
// independent writers on the same slot), so the map's shared event clock
// doubles as a per-slot version number: an entry is included only when this
// map's event count somewhere within its id's interval exceeds the peer's,
// i.e. the peer's own history hasn't yet caught up to this slot's latest
// write.
func (m *Map[V]) Diff(peerTimestamp EventTree) Patch[V] {
	entries := make([]Entry[V], 0, len(m.entries))
	for _, e := range m.entries {
		if minEventAt(m.timestamp, e.ID) > minEventAt(peerTimestamp, e.ID) {
			entries = append(entries, e)
		}
	}
	return Patch[V]{Timestamp: m.timestamp, Entries: entries}
}

// Apply folds patch into the map, returning the entries that were newly
// added or changed (additions) and the entries that were displaced as a
// result (removals). Re-applying an identical patch yields empty additions
// and removals: every entry whose id and value already match is skipped
// before touching the clock, so the operation is idempotent.
func (m *Map[V]) Apply(patch Patch[V]) (additions, removals []Entry[V]) {
	for _, e := range patch.Entries {
		if existing, ok := m.entries[e.ID.String()]; ok && existing.Value.Equal(e.Value) {
			continue
		}
		disp := m.Insert(e.ID, e.Value)
		additions = append(additions, e)
		removals = append(removals, disp...)
	}
	m.timestamp = EventJoin(m.timestamp, patch.Timestamp)
	return additions, removals
}

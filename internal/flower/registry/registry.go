// Package registry is the connection arena a Flower keeps its live
// connections in, plus the multi-topic directory one process's Flowers are
// found through. The arena is grounded on the original source's
// `ds::StableVec` (a push/get/iterate vector that never shifts existing
// indices); the topic directory borrows its mutex-guarded
// create-or-fetch-by-name shape from the teacher's
// `internal/infra/federation.go`.
package registry

import (
	"sync"

	"github.com/byronwasti/florescence/internal/domain"
)

// Slots is a stable arena: Push returns an index that remains valid (until
// Remove) even as other entries come and go, so callers can tag a
// connection's index once and use it as a stable key (e.g. in per-connection
// goroutines) without a generation counter.
type Slots[T any] struct {
	mu    sync.Mutex
	items []*T
}

// NewSlots returns an empty arena.
func NewSlots[T any]() *Slots[T] {
	return &Slots[T]{}
}

// Push stores v, reusing the first freed slot if one exists, and returns its
// index.
func (s *Slots[T]) Push(v T) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, slot := range s.items {
		if slot == nil {
			s.items[i] = &v
			return i
		}
	}
	s.items = append(s.items, &v)
	return len(s.items) - 1
}

// Get returns the value at idx, if live.
func (s *Slots[T]) Get(idx int) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	if idx < 0 || idx >= len(s.items) || s.items[idx] == nil {
		return zero, false
	}
	return *s.items[idx], true
}

// Set overwrites the value at idx in place, if live.
func (s *Slots[T]) Set(idx int, v T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx < 0 || idx >= len(s.items) || s.items[idx] == nil {
		return false
	}
	s.items[idx] = &v
	return true
}

// Remove frees idx so a later Push may reuse it.
func (s *Slots[T]) Remove(idx int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx >= 0 && idx < len(s.items) {
		s.items[idx] = nil
	}
}

// Each calls fn for every live entry, in index order. fn must not call back
// into s.
func (s *Slots[T]) Each(fn func(idx int, v T)) {
	s.mu.Lock()
	snapshot := make([]*T, len(s.items))
	copy(snapshot, s.items)
	s.mu.Unlock()

	for i, slot := range snapshot {
		if slot != nil {
			fn(i, *slot)
		}
	}
}

// Len returns the number of live entries.
func (s *Slots[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, slot := range s.items {
		if slot != nil {
			n++
		}
	}
	return n
}

// Registry is the per-process directory of topics, each with its own
// connection arena — the resolution of the "multi-topic routing" open
// question: a single process can run one Flower per domain.Topic, sharing
// this directory, while internal/pollination.Node itself stays single-topic.
type Registry[T any] struct {
	mu     sync.Mutex
	topics map[domain.Topic]*Slots[T]
}

// New returns an empty topic directory.
func New[T any]() *Registry[T] {
	return &Registry[T]{topics: make(map[domain.Topic]*Slots[T])}
}

// Topic returns the arena for t, creating it on first use.
func (r *Registry[T]) Topic(t domain.Topic) *Slots[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.topics[t]
	if !ok {
		s = NewSlots[T]()
		r.topics[t] = s
	}
	return s
}

// Topics lists every topic currently registered.
func (r *Registry[T]) Topics() []domain.Topic {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Topic, 0, len(r.topics))
	for t := range r.topics {
		out = append(out, t)
	}
	return out
}

// Drop removes a topic's arena entirely.
func (r *Registry[T]) Drop(t domain.Topic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.topics, t)
}

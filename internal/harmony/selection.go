package harmony

import (
	"slices"
	"sync"
)

// Selection is the set of currently active pitch offsets. It is a pure
// state container with toggle semantics: it never creates or destroys voice
// chains itself — reconciling the registry on toggle-off is the caller's
// responsibility ([Engine.Toggle] does this), and chain creation for newly
// active offsets is deferred to the next play request.
//
// A fresh Selection contains only [Unison].
type Selection struct {
	mu     sync.Mutex
	active map[Offset]struct{}
}

// NewSelection returns a selection containing only the unison offset.
func NewSelection() *Selection {
	return &Selection{
		active: map[Offset]struct{}{Unison: {}},
	}
}

// Toggle flips the membership of o and reports whether o is active after
// the flip. Toggling the same offset twice restores the original set.
func (s *Selection) Toggle(o Offset) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.active[o]; ok {
		delete(s.active, o)
		return false
	}
	s.active[o] = struct{}{}
	return true
}

// Active reports whether o is currently selected.
func (s *Selection) Active(o Offset) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[o]
	return ok
}

// Offsets returns a sorted snapshot of the active offsets.
func (s *Selection) Offsets() []Offset {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Offset, 0, len(s.active))
	for o := range s.active {
		out = append(out, o)
	}
	slices.Sort(out)
	return out
}

// Len returns the number of active offsets.
func (s *Selection) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

package channel

import "sync"

// DefaultSeenCapacity is the number of envelope ids a handle remembers.
const DefaultSeenCapacity = 1024

// Seen is a bounded set of recently observed envelope ids. When full, the
// oldest id is forgotten.
type Seen struct {
	mu    sync.Mutex
	ids   map[string]struct{}
	ring  []string
	next  int
	limit int
}

// NewSeen creates a filter remembering up to capacity ids.
func NewSeen(capacity int) *Seen {
	if capacity < 1 {
		capacity = DefaultSeenCapacity
	}
	return &Seen{
		ids:   make(map[string]struct{}, capacity),
		ring:  make([]string, 0, capacity),
		limit: capacity,
	}
}

// Add records id and reports whether it was new.
func (s *Seen) Add(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[id]; ok {
		return false
	}
	if len(s.ring) < s.limit {
		s.ring = append(s.ring, id)
	} else {
		delete(s.ids, s.ring[s.next])
		s.ring[s.next] = id
		s.next = (s.next + 1) % s.limit
	}
	s.ids[id] = struct{}{}
	return true
}

// Len returns the number of remembered ids.
func (s *Seen) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

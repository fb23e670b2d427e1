package duel

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps matches in process memory, serializing updates with one
// lock per match id.
type MemoryStore struct {
	mu      sync.Mutex
	matches map[string]*Match
	locks   map[string]*sync.Mutex
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		matches: make(map[string]*Match),
		locks:   make(map[string]*sync.Mutex),
	}
}

func (s *MemoryStore) lockFor(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// Create implements Store.
func (s *MemoryStore) Create(_ context.Context, m *Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.matches[m.ID]; ok {
		return fmt.Errorf("%w: %s", ErrMatchExists, m.ID)
	}
	s.matches[m.ID] = m.Clone()
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id string) (*Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, id)
	}
	return m.Clone(), nil
}

// Update implements Store.
func (s *MemoryStore) Update(ctx context.Context, id string, fn func(*Match) error) (*Match, error) {
	l := s.lockFor(id)
	l.Lock()
	defer l.Unlock()

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(current); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.matches[id]; !ok {
		// Deleted while fn ran.
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, id)
	}
	s.matches[id] = current.Clone()
	return current, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.matches, id)
	delete(s.locks, id)
	return nil
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context) ([]*Match, error) {
	s.mu.Lock()
	out := make([]*Match, 0, len(s.matches))
	for _, m := range s.matches {
		out = append(out, m.Clone())
	}
	s.mu.Unlock()
	sortByCreation(out)
	return out, nil
}

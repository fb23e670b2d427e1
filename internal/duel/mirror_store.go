package duel

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dyluth/hecto/internal/storage"
)

// MirrorKey is the key/value entry holding every mirrored match.
const MirrorKey = "hecto_matches"

// MirrorStore persists matches as one JSON array in the SQL key/value table.
// It backs local play with the Mock transport, where each client owns the
// record it last wrote. A process lock plus a SQL transaction serialize
// updates.
type MirrorStore struct {
	kv *storage.KV
	mu sync.Mutex
}

// NewMirrorStore creates a store over kv.
func NewMirrorStore(kv *storage.KV) *MirrorStore {
	return &MirrorStore{kv: kv}
}

func decodeMirror(data []byte) ([]*Match, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var ms []*Match
	if err := json.Unmarshal(data, &ms); err != nil {
		return nil, fmt.Errorf("corrupt match mirror: %w", err)
	}
	return ms, nil
}

func encodeMirror(ms []*Match) ([]byte, error) {
	if ms == nil {
		ms = []*Match{}
	}
	data, err := json.Marshal(ms)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal match mirror: %w", err)
	}
	return data, nil
}

func (s *MirrorStore) load(ctx context.Context) ([]*Match, error) {
	data, err := s.kv.Get(ctx, MirrorKey)
	if storage.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeMirror(data)
}

// modify rewrites the array under the process lock and a transaction.
func (s *MirrorStore) modify(ctx context.Context, fn func([]*Match) ([]*Match, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv.Update(ctx, MirrorKey, func(current []byte) ([]byte, error) {
		ms, err := decodeMirror(current)
		if err != nil {
			return nil, err
		}
		next, err := fn(ms)
		if err != nil {
			return nil, err
		}
		return encodeMirror(next)
	})
}

// Create implements Store.
func (s *MirrorStore) Create(ctx context.Context, m *Match) error {
	return s.modify(ctx, func(ms []*Match) ([]*Match, error) {
		for _, existing := range ms {
			if existing.ID == m.ID {
				return nil, fmt.Errorf("%w: %s", ErrMatchExists, m.ID)
			}
		}
		return append(ms, m.Clone()), nil
	})
}

// Get implements Store.
func (s *MirrorStore) Get(ctx context.Context, id string) (*Match, error) {
	ms, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range ms {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, id)
}

// Update implements Store.
func (s *MirrorStore) Update(ctx context.Context, id string, fn func(*Match) error) (*Match, error) {
	var out *Match
	err := s.modify(ctx, func(ms []*Match) ([]*Match, error) {
		for i, m := range ms {
			if m.ID != id {
				continue
			}
			if err := fn(m); err != nil {
				return nil, err
			}
			ms[i] = m
			out = m.Clone()
			return ms, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, id)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete implements Store.
func (s *MirrorStore) Delete(ctx context.Context, id string) error {
	return s.modify(ctx, func(ms []*Match) ([]*Match, error) {
		out := ms[:0]
		for _, m := range ms {
			if m.ID != id {
				out = append(out, m)
			}
		}
		return out, nil
	})
}

// List implements Store.
func (s *MirrorStore) List(ctx context.Context) ([]*Match, error) {
	ms, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if ms == nil {
		ms = []*Match{}
	}
	sortByCreation(ms)
	return ms, nil
}

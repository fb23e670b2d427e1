package duel

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
)

// Store holds active matches. Update is atomic per match id: concurrent
// updates of the same match are applied one after another, never
// interleaved.
type Store interface {
	// Create inserts m, failing with ErrMatchExists on an id collision.
	Create(ctx context.Context, m *Match) error

	// Get returns a copy of the match or ErrMatchNotFound.
	Get(ctx context.Context, id string) (*Match, error)

	// Update applies fn to a copy of the stored match and writes the result.
	// If fn returns an error nothing is written. fn may be invoked more than
	// once by optimistic implementations and must not have side effects.
	Update(ctx context.Context, id string, fn func(*Match) error) (*Match, error)

	// Delete evicts the match. Deleting a missing match is not an error.
	Delete(ctx context.Context, id string) error

	// List returns every stored match ordered by creation time.
	List(ctx context.Context) ([]*Match, error)
}

func encodeMatch(m *Match) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal match %s: %w", m.ID, err)
	}
	return data, nil
}

func decodeMatch(data []byte) (*Match, error) {
	var m Match
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal match: %w", err)
	}
	return &m, nil
}

func sortByCreation(ms []*Match) {
	sort.SliceStable(ms, func(i, j int) bool {
		if ms[i].CreatedAt.Equal(ms[j].CreatedAt) {
			return ms[i].ID < ms[j].ID
		}
		return ms[i].CreatedAt.Before(ms[j].CreatedAt)
	})
}

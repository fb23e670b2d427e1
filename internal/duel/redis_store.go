package duel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultMatchTTL expires matches nobody resolved, e.g. after a crash.
	DefaultMatchTTL = 24 * time.Hour

	// maxWatchRetries bounds optimistic transaction retries per update.
	maxWatchRetries = 50
)

// MatchKey returns the Redis key of a match record.
// Pattern: hecto:{namespace}:match:{match_id}
func MatchKey(namespace, id string) string {
	return fmt.Sprintf("hecto:%s:match:%s", namespace, id)
}

// MatchIndexKey returns the Redis set of active match ids.
// Pattern: hecto:{namespace}:matches
func MatchIndexKey(namespace string) string {
	return fmt.Sprintf("hecto:%s:matches", namespace)
}

// RedisStore keeps matches in Redis so several service instances can share
// them. Updates use WATCH/MULTI and retry when another writer wins the race.
type RedisStore struct {
	rdb       *redis.Client
	namespace string
	ttl       time.Duration
}

// NewRedisStore creates a store over rdb. Keys are namespaced.
func NewRedisStore(rdb *redis.Client, namespace string) (*RedisStore, error) {
	if namespace == "" {
		return nil, fmt.Errorf("namespace cannot be empty")
	}
	return &RedisStore{rdb: rdb, namespace: namespace, ttl: DefaultMatchTTL}, nil
}

// Create implements Store.
func (s *RedisStore) Create(ctx context.Context, m *Match) error {
	data, err := encodeMatch(m)
	if err != nil {
		return err
	}
	ok, err := s.rdb.SetNX(ctx, MatchKey(s.namespace, m.ID), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to write match to Redis: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrMatchExists, m.ID)
	}
	if err := s.rdb.SAdd(ctx, MatchIndexKey(s.namespace), m.ID).Err(); err != nil {
		return fmt.Errorf("failed to index match: %w", err)
	}
	return nil
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, id string) (*Match, error) {
	data, err := s.rdb.Get(ctx, MatchKey(s.namespace, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read match from Redis: %w", err)
	}
	return decodeMatch(data)
}

// Update implements Store.
func (s *RedisStore) Update(ctx context.Context, id string, fn func(*Match) error) (*Match, error) {
	key := MatchKey(s.namespace, id)
	var out *Match

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: %s", ErrMatchNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("failed to read match from Redis: %w", err)
		}
		m, err := decodeMatch(data)
		if err != nil {
			return err
		}
		if err := fn(m); err != nil {
			return err
		}
		next, err := encodeMatch(m)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, redis.KeepTTL)
			return nil
		})
		if err == nil {
			out = m
		}
		return err
	}

	for i := 0; i < maxWatchRetries; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, fmt.Errorf("update match %s: too much contention", id)
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, MatchKey(s.namespace, id))
		pipe.SRem(ctx, MatchIndexKey(s.namespace), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete match: %w", err)
	}
	return nil
}

// List implements Store. Index entries whose record expired are pruned.
func (s *RedisStore) List(ctx context.Context) ([]*Match, error) {
	ids, err := s.rdb.SMembers(ctx, MatchIndexKey(s.namespace)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	if len(ids) == 0 {
		return []*Match{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = MatchKey(s.namespace, id)
	}
	values, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read matches: %w", err)
	}

	out := make([]*Match, 0, len(values))
	var stale []any
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		m, err := decodeMatch([]byte(str))
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if len(stale) > 0 {
		_ = s.rdb.SRem(ctx, MatchIndexKey(s.namespace), stale...).Err()
	}
	sortByCreation(out)
	return out, nil
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// KV is a string-keyed document table. Values are opaque to storage; callers
// store JSON.
type KV struct {
	db *DB
}

// KV returns the key/value table of db.
func (db *DB) KV() *KV {
	return &KV{db: db}
}

// Get loads the value stored under key or ErrNotFound.
func (kv *KV) Get(ctx context.Context, key string) ([]byte, error) {
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("key is required")
	}
	var value string
	err := kv.db.sqlDB.QueryRowContext(ctx, kv.db.rebind(`SELECT value FROM kv WHERE key = ?`), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("key %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get key %q: %w", key, err)
	}
	return []byte(value), nil
}

// Put upserts value under key.
func (kv *KV) Put(ctx context.Context, key string, value []byte) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("key is required")
	}
	return put(ctx, kv.db, kv.db.sqlDB, key, value)
}

// Delete removes key. Deleting a missing key is not an error.
func (kv *KV) Delete(ctx context.Context, key string) error {
	if _, err := kv.db.sqlDB.ExecContext(ctx, kv.db.rebind(`DELETE FROM kv WHERE key = ?`), key); err != nil {
		return fmt.Errorf("delete key %q: %w", key, err)
	}
	return nil
}

// Update reads key, passes the current value (nil when absent) to fn and
// writes back what fn returns, all inside one transaction. If fn returns an
// error nothing is written.
func (kv *KV) Update(ctx context.Context, key string, fn func(current []byte) ([]byte, error)) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("key is required")
	}
	return kv.db.inTx(ctx, func(tx *sql.Tx) error {
		var current []byte
		var value string
		err := tx.QueryRowContext(ctx, kv.db.rebind(`SELECT value FROM kv WHERE key = ?`+kv.db.forUpdate()), key).Scan(&value)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("get key %q: %w", key, err)
		default:
			current = []byte(value)
		}

		next, err := fn(current)
		if err != nil {
			return err
		}
		return put(ctx, kv.db, tx, key, next)
	})
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func put(ctx context.Context, db *DB, ex execer, key string, value []byte) error {
	_, err := ex.ExecContext(ctx, db.rebind(
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`),
		key, string(value), toMillis(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("put key %q: %w", key, err)
	}
	return nil
}

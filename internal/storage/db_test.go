package storage

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB opens an in-memory SQLite database closed at test end.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenMemory(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen(t *testing.T) {
	t.Run("opens sqlite and migrates", func(t *testing.T) {
		db := setupTestDB(t)
		assert.Equal(t, DriverSQLite, db.Driver())
		assert.NoError(t, db.Ping(context.Background()))
	})

	t.Run("rejects unknown driver", func(t *testing.T) {
		_, err := Open(context.Background(), "mysql", "x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported storage driver")
	})

	t.Run("rejects empty dsn", func(t *testing.T) {
		_, err := Open(context.Background(), DriverSQLite, " ")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "dsn is required")
	})

	t.Run("migrations are idempotent", func(t *testing.T) {
		db := setupTestDB(t)
		assert.NoError(t, db.migrate(context.Background()))
	})
}

func TestRebind(t *testing.T) {
	pg := &DB{driver: DriverPostgres}
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y = $2", pg.rebind("SELECT a FROM t WHERE x = ? AND y = ?"))
	assert.Equal(t, " FOR UPDATE", pg.forUpdate())

	lite := &DB{driver: DriverSQLite}
	assert.Equal(t, "SELECT a FROM t WHERE x = ?", lite.rebind("SELECT a FROM t WHERE x = ?"))
	assert.Empty(t, lite.forUpdate())
}

func TestKV(t *testing.T) {
	db := setupTestDB(t)
	kv := db.KV()
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		_, err := kv.Get(ctx, "absent")
		assert.True(t, IsNotFound(err))
	})

	t.Run("put then get", func(t *testing.T) {
		require.NoError(t, kv.Put(ctx, "k", []byte(`{"a":1}`)))
		got, err := kv.Get(ctx, "k")
		require.NoError(t, err)
		assert.JSONEq(t, `{"a":1}`, string(got))

		require.NoError(t, kv.Put(ctx, "k", []byte(`{"a":2}`)))
		got, err = kv.Get(ctx, "k")
		require.NoError(t, err)
		assert.JSONEq(t, `{"a":2}`, string(got))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, kv.Put(ctx, "gone", []byte("x")))
		require.NoError(t, kv.Delete(ctx, "gone"))
		_, err := kv.Get(ctx, "gone")
		assert.True(t, IsNotFound(err))
		assert.NoError(t, kv.Delete(ctx, "gone"))
	})

	t.Run("empty key rejected", func(t *testing.T) {
		assert.Error(t, kv.Put(ctx, "", nil))
		_, err := kv.Get(ctx, "")
		assert.Error(t, err)
	})
}

func TestKVUpdate(t *testing.T) {
	db := setupTestDB(t)
	kv := db.KV()
	ctx := context.Background()

	t.Run("sees nil for missing key", func(t *testing.T) {
		err := kv.Update(ctx, "fresh", func(current []byte) ([]byte, error) {
			assert.Nil(t, current)
			return []byte("1"), nil
		})
		require.NoError(t, err)
		got, err := kv.Get(ctx, "fresh")
		require.NoError(t, err)
		assert.Equal(t, "1", string(got))
	})

	t.Run("error aborts the write", func(t *testing.T) {
		boom := errors.New("boom")
		err := kv.Update(ctx, "fresh", func([]byte) ([]byte, error) {
			return []byte("2"), boom
		})
		assert.ErrorIs(t, err, boom)
		got, err := kv.Get(ctx, "fresh")
		require.NoError(t, err)
		assert.Equal(t, "1", string(got))
	})

	t.Run("concurrent updates serialize", func(t *testing.T) {
		require.NoError(t, kv.Put(ctx, "counter", []byte("0")))
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := kv.Update(ctx, "counter", func(current []byte) ([]byte, error) {
					return append(current, '+'), nil
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		got, err := kv.Get(ctx, "counter")
		require.NoError(t, err)
		assert.Len(t, got, 21)
	})
}

package commands

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/hecto/internal/config"
	"github.com/dyluth/hecto/internal/duel"
	"github.com/dyluth/hecto/internal/logging"
)

func testConfig(t *testing.T) *config.HectoConfig {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.DSN = filepath.Join(t.TempDir(), "hecto.db")
	zero := time.Duration(0)
	cfg.Transport.MockDelay = &zero
	return cfg
}

func TestBuildRuntime_MockAndMemory(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Store.Kind = config.StoreMemory
	rt, err := buildRuntime(ctx, cfg, logging.Discard())
	require.NoError(t, err)

	assert.Equal(t, "mock", rt.transport.Name())
	assert.Nil(t, rt.rdb)

	m, err := rt.service.Create(ctx, duel.CreateRequest{CreatorID: "alice"})
	require.NoError(t, err)
	got, err := rt.service.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, got.Participants)

	require.NoError(t, rt.Close())
}

func TestBuildRuntime_MirrorStoreByDefault(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	require.Equal(t, config.StoreMirror, cfg.Store.Kind)

	rt, err := buildRuntime(ctx, cfg, logging.Discard())
	require.NoError(t, err)
	defer rt.Close()

	m, err := rt.service.Create(ctx, duel.CreateRequest{CreatorID: "alice"})
	require.NoError(t, err)

	data, err := rt.db.KV().Get(ctx, duel.MirrorKey)
	require.NoError(t, err)
	assert.Contains(t, string(data), m.ID)
}

func TestBuildRuntime_RedisTransportAndStore(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := testConfig(t)
	cfg.Transport.Kind = config.TransportRedis
	cfg.Transport.RedisURL = "redis://" + mr.Addr()
	cfg.Store.Kind = config.StoreRedis
	require.NoError(t, cfg.Validate())

	rt, err := buildRuntime(ctx, cfg, logging.Discard())
	require.NoError(t, err)
	defer rt.Close()

	assert.Equal(t, "redis", rt.transport.Name())
	assert.True(t, rt.transport.Connected())
	assert.Nil(t, rt.rdb, "the store should share the broker's client")

	m, err := rt.service.Create(ctx, duel.CreateRequest{CreatorID: "alice"})
	require.NoError(t, err)
	assert.True(t, mr.Exists(duel.MatchKey(cfg.Transport.Namespace, m.ID)))
}

func TestBuildRuntime_RedisStoreWithMockTransport(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	cfg := testConfig(t)
	cfg.Transport.RedisURL = "redis://" + mr.Addr()
	cfg.Store.Kind = config.StoreRedis
	require.NoError(t, cfg.Validate())

	rt, err := buildRuntime(ctx, cfg, logging.Discard())
	require.NoError(t, err)

	require.NotNil(t, rt.rdb)
	m, err := rt.service.Create(ctx, duel.CreateRequest{CreatorID: "alice"})
	require.NoError(t, err)
	assert.True(t, mr.Exists(duel.MatchKey(cfg.Transport.Namespace, m.ID)))

	require.NoError(t, rt.Close())
}

func TestDisconnectTimeout(t *testing.T) {
	cfg := testConfig(t)
	assert.Equal(t, config.DefaultDisconnectTimeout, disconnectTimeout(cfg))

	zero := time.Duration(0)
	cfg.Duel.DisconnectTimeout = &zero
	assert.Equal(t, time.Duration(0), disconnectTimeout(cfg))

	cfg.Duel.DisconnectTimeout = nil
	assert.Equal(t, config.DefaultDisconnectTimeout, disconnectTimeout(cfg))
}

func TestBuildRuntime_BadStorage(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.DSN = filepath.Join(t.TempDir(), "missing", "dir", "hecto.db")

	_, err := buildRuntime(context.Background(), cfg, logging.Discard())
	require.Error(t, err)
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	t.Setenv("HECTO_STORAGE_DSN", filepath.Join(t.TempDir(), "hecto.db"))
	t.Setenv("HECTO_LOG_LEVEL", "error")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := executeCommand(t, ctx, "serve", "--addr", "127.0.0.1:0")
		done <- err
	}()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop after cancellation")
	}
}

func TestServe_InvalidConfig(t *testing.T) {
	t.Setenv("HECTO_TRANSPORT", "carrier-pigeon")

	_, err := executeCommand(t, context.Background(), "serve")
	require.Error(t, err)
	assert.Equal(t, "invalid configuration", err.Error())
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/hecto/internal/puzzle"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hecto.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `version: "1.0"`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 100, cfg.Server.RateLimit.Requests)
	assert.Equal(t, time.Minute, cfg.Server.RateLimit.Window)
	assert.Equal(t, TransportMock, cfg.Transport.Kind)
	assert.Equal(t, "default", cfg.Transport.Namespace)
	assert.Nil(t, cfg.Transport.MockDelay)
	assert.Equal(t, StoreMirror, cfg.Store.Kind, "mock transport mirrors matches")
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "hecto.db", cfg.Storage.DSN)
	assert.Equal(t, puzzle.DefaultMaxNodes, cfg.Puzzle.MaxNodes)
	assert.Equal(t, puzzle.DefaultSearchTimeout, cfg.Puzzle.SearchTimeout)
	assert.Equal(t, puzzle.DefaultMaxAttempts, cfg.Puzzle.MaxAttempts)
	assert.Equal(t, time.Duration(0), cfg.Duel.Countdown)
	require.NotNil(t, cfg.Duel.DisconnectTimeout)
	assert.Equal(t, DefaultDisconnectTimeout, *cfg.Duel.DisconnectTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_StoreDefaultFollowsTransport(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"mock", "version: \"1.0\"\ntransport:\n  kind: mock\n", StoreMirror},
		{"redis", "version: \"1.0\"\ntransport:\n  kind: redis\n  redis_url: redis://localhost:6379\n", StoreMemory},
		{"explicit memory with mock", "version: \"1.0\"\nstore:\n  kind: memory\n", StoreMemory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, tt.yaml))
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Store.Kind)
		})
	}
}

func TestLoad_FullFile(t *testing.T) {
	path := writeConfig(t, `
version: "1.0"
server:
  addr: ":9090"
  cors_origins: ["https://hecto.example"]
  rate_limit:
    requests: 20
    window: 30s
transport:
  kind: redis
  redis_url: redis://localhost:6379/0
  namespace: prod
  mock_delay: 0s
store:
  kind: redis
storage:
  driver: postgres
  dsn: postgres://hecto@localhost/hecto?sslmode=disable
puzzle:
  max_nodes: 500000
  search_timeout: 100ms
  max_attempts: 5
duel:
  countdown: 3s
  disconnect_timeout: 0s
logging:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, []string{"https://hecto.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 30*time.Second, cfg.Server.RateLimit.Window)
	assert.Equal(t, TransportRedis, cfg.Transport.Kind)
	assert.Equal(t, "prod", cfg.Transport.Namespace)
	require.NotNil(t, cfg.Transport.MockDelay)
	assert.Equal(t, time.Duration(0), *cfg.Transport.MockDelay)
	assert.Equal(t, StoreRedis, cfg.Store.Kind)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, 500000, cfg.Puzzle.MaxNodes)
	assert.Equal(t, 100*time.Millisecond, cfg.Puzzle.SearchTimeout)
	assert.Equal(t, 5, cfg.Puzzle.MaxAttempts)
	assert.Equal(t, 3*time.Second, cfg.Duel.Countdown)
	require.NotNil(t, cfg.Duel.DisconnectTimeout)
	assert.Equal(t, time.Duration(0), *cfg.Duel.DisconnectTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"unsupported version", `version: "2.0"`, "unsupported version: 2.0"},
		{"unknown transport", "version: \"1.0\"\ntransport:\n  kind: pusher\n", "invalid transport.kind: pusher"},
		{"redis transport without url", "version: \"1.0\"\ntransport:\n  kind: redis\n", "transport.redis_url is required"},
		{"redis store without url", "version: \"1.0\"\nstore:\n  kind: redis\n", "store.kind 'redis' requires transport.redis_url"},
		{"unknown store", "version: \"1.0\"\nstore:\n  kind: disk\n", "invalid store.kind: disk"},
		{"unknown driver", "version: \"1.0\"\nstorage:\n  driver: mysql\n", "invalid storage.driver: mysql"},
		{"postgres without dsn", "version: \"1.0\"\nstorage:\n  driver: postgres\n", "storage.dsn is required"},
		{"namespace with colon", "version: \"1.0\"\ntransport:\n  namespace: a:b\n", "invalid transport.namespace"},
		{"zero rate limit", "version: \"1.0\"\nserver:\n  rate_limit:\n    requests: 0\n    window: 1s\n", "rate_limit.requests must be >= 1"},
		{"negative disconnect timeout", "version: \"1.0\"\nduel:\n  disconnect_timeout: -1s\n", "duel.disconnect_timeout must be >= 0"},
		{"negative countdown", "version: \"1.0\"\nduel:\n  countdown: -1s\n", "duel.countdown must be >= 0"},
		{"bad log level", "version: \"1.0\"\nlogging:\n  level: loud\n", "invalid logging.level: loud"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "version: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "1.0", cfg.Version)
	assert.Equal(t, TransportMock, cfg.Transport.Kind)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("HECTO_TRANSPORT", "redis")
	t.Setenv("HECTO_REDIS_URL", "redis://cache:6379")
	t.Setenv("HECTO_NAMESPACE", "staging")
	t.Setenv("HECTO_STORE", "mirror")
	t.Setenv("HECTO_CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("HECTO_COUNTDOWN", "2s")
	t.Setenv("HECTO_LOG_LEVEL", "warn")

	path := writeConfig(t, "version: \"1.0\"\ntransport:\n  kind: mock\n  namespace: local\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, TransportRedis, cfg.Transport.Kind)
	assert.Equal(t, "redis://cache:6379", cfg.Transport.RedisURL)
	assert.Equal(t, "staging", cfg.Transport.Namespace)
	assert.Equal(t, StoreMirror, cfg.Store.Kind)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 2*time.Second, cfg.Duel.Countdown)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestApplyEnv_InvalidDuration(t *testing.T) {
	t.Setenv("HECTO_COUNTDOWN", "soon")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env")
	assert.Contains(t, err.Error(), "HECTO_COUNTDOWN")
}

func TestApplyEnv_ExplicitZero(t *testing.T) {
	t.Setenv("HECTO_COUNTDOWN", "0")
	t.Setenv("HECTO_MOCK_DELAY", "0s")
	t.Setenv("HECTO_DISCONNECT_TIMEOUT", "0")

	path := writeConfig(t, `
version: "1.0"
transport:
  mock_delay: 250ms
duel:
  countdown: 3s
  disconnect_timeout: 90s
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, time.Duration(0), cfg.Duel.Countdown)
	require.NotNil(t, cfg.Transport.MockDelay)
	assert.Equal(t, time.Duration(0), *cfg.Transport.MockDelay)
	require.NotNil(t, cfg.Duel.DisconnectTimeout)
	assert.Equal(t, time.Duration(0), *cfg.Duel.DisconnectTimeout)
}

func TestApplyEnv_UnsetKeepsFile(t *testing.T) {
	path := writeConfig(t, `
version: "1.0"
transport:
  mock_delay: 250ms
duel:
  countdown: 3s
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.Duel.Countdown)
	require.NotNil(t, cfg.Transport.MockDelay)
	assert.Equal(t, 250*time.Millisecond, *cfg.Transport.MockDelay)
}

func TestLoadDotEnv(t *testing.T) {
	t.Run("missing file is ignored", func(t *testing.T) {
		assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
	})

	t.Run("sets unset variables only", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("HECTO_STORAGE_DSN=from-dotenv.db\nHECTO_SERVER_ADDR=:1111\n"), 0o644))
		t.Setenv("HECTO_SERVER_ADDR", ":2222")
		// Registers cleanup so the dotenv value does not leak into other tests.
		t.Setenv("HECTO_STORAGE_DSN", "")
		require.NoError(t, os.Unsetenv("HECTO_STORAGE_DSN"))

		require.NoError(t, LoadDotEnv(path))
		assert.Equal(t, "from-dotenv.db", os.Getenv("HECTO_STORAGE_DSN"))
		assert.Equal(t, ":2222", os.Getenv("HECTO_SERVER_ADDR"))
	})
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, TransportMock, cfg.Transport.Kind)
	assert.Equal(t, StoreMirror, cfg.Store.Kind)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
}

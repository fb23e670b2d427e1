package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dyluth/hecto/internal/puzzle"
)

// Transport kinds.
const (
	TransportMock  = "mock"
	TransportRedis = "redis"
)

// Store kinds.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreMirror = "mirror"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "HECTO_"

// HectoConfig represents the top-level hecto.yml configuration
type HectoConfig struct {
	Version   string           `yaml:"version"`
	Server    *ServerConfig    `yaml:"server,omitempty"`
	Transport *TransportConfig `yaml:"transport,omitempty"`
	Store     *StoreConfig     `yaml:"store,omitempty"`
	Storage   *StorageConfig   `yaml:"storage,omitempty"`
	Puzzle    *PuzzleConfig    `yaml:"puzzle,omitempty"`
	Duel      *DuelConfig      `yaml:"duel,omitempty"`
	Logging   *LoggingConfig   `yaml:"logging,omitempty"`
}

// ServerConfig configures the HTTP surface
type ServerConfig struct {
	Addr        string           `yaml:"addr"`
	CORSOrigins []string         `yaml:"cors_origins,omitempty"`
	RateLimit   *RateLimitConfig `yaml:"rate_limit,omitempty"`
}

// RateLimitConfig is a global token bucket: Requests per Window, bursting to
// Requests.
type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// TransportConfig selects the realtime channel implementation
type TransportConfig struct {
	Kind      string         `yaml:"kind"` // "mock" or "redis"
	RedisURL  string         `yaml:"redis_url,omitempty"`
	Namespace string         `yaml:"namespace,omitempty"`
	MockDelay *time.Duration `yaml:"mock_delay,omitempty"` // nil = channel.DefaultMockDelay
}

// StoreConfig selects where active matches live
type StoreConfig struct {
	Kind string `yaml:"kind"` // "memory", "redis" or "mirror"
}

// StorageConfig points at the SQL database for profiles and the match mirror
type StorageConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "postgres"
	DSN    string `yaml:"dsn"`
}

// PuzzleConfig bounds the solvability search and the generator
type PuzzleConfig struct {
	MaxNodes      int           `yaml:"max_nodes,omitempty"`
	SearchTimeout time.Duration `yaml:"search_timeout,omitempty"`
	MaxAttempts   int           `yaml:"max_attempts,omitempty"`
}

// DefaultDisconnectTimeout is how long a silent participant keeps a match.
const DefaultDisconnectTimeout = time.Minute

// DuelConfig tunes the match state machine
type DuelConfig struct {
	Countdown         time.Duration  `yaml:"countdown,omitempty"`          // 0 = start immediately
	DisconnectTimeout *time.Duration `yaml:"disconnect_timeout,omitempty"` // nil = DefaultDisconnectTimeout, 0 = never
}

// LoggingConfig selects the log level
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// envOverrides are the HECTO_* variables that win over hecto.yml.
type envOverrides struct {
	ServerAddr    string        `env:"SERVER_ADDR"`
	CORSOrigins   []string      `env:"CORS_ORIGINS" envSeparator:","`
	Transport     string        `env:"TRANSPORT"`
	RedisURL      string        `env:"REDIS_URL"`
	Namespace     string        `env:"NAMESPACE"`
	Store         string        `env:"STORE"`
	StorageDriver string        `env:"STORAGE_DRIVER"`
	StorageDSN    string        `env:"STORAGE_DSN"`
	LogLevel      string        `env:"LOG_LEVEL"`

	// Durations are read as text so an explicit "0" still applies.
	Countdown         string `env:"COUNTDOWN"`
	MockDelay         string `env:"MOCK_DELAY"`
	DisconnectTimeout string `env:"DISCONNECT_TIMEOUT"`
}

// Default returns a configuration for local play: mock transport, matches
// mirrored into a SQLite file.
func Default() *HectoConfig {
	c := &HectoConfig{Version: "1.0"}
	if err := c.Validate(); err != nil {
		panic(fmt.Sprintf("default configuration is invalid: %v", err))
	}
	return c
}

// Validate performs strict validation on the configuration and fills in
// defaults for omitted sections
func (c *HectoConfig) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if c.Server == nil {
		c.Server = &ServerConfig{}
	}
	if err := c.Server.validate(); err != nil {
		return err
	}

	if c.Transport == nil {
		c.Transport = &TransportConfig{}
	}
	if err := c.Transport.validate(); err != nil {
		return err
	}

	if c.Store == nil {
		c.Store = &StoreConfig{}
	}
	switch c.Store.Kind {
	case "":
		// The mock transport has no server holding matches, so local play
		// keeps a durable copy.
		if c.Transport.Kind == TransportMock {
			c.Store.Kind = StoreMirror
		} else {
			c.Store.Kind = StoreMemory
		}
	case StoreMemory, StoreMirror:
	case StoreRedis:
		if c.Transport.RedisURL == "" {
			return fmt.Errorf("store.kind 'redis' requires transport.redis_url")
		}
	default:
		return fmt.Errorf("invalid store.kind: %s (must be 'memory', 'redis' or 'mirror')", c.Store.Kind)
	}

	if c.Storage == nil {
		c.Storage = &StorageConfig{}
	}
	switch c.Storage.Driver {
	case "":
		c.Storage.Driver = "sqlite"
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid storage.driver: %s (must be 'sqlite' or 'postgres')", c.Storage.Driver)
	}
	if c.Storage.DSN == "" {
		if c.Storage.Driver == "postgres" {
			return fmt.Errorf("storage.dsn is required for postgres")
		}
		c.Storage.DSN = "hecto.db"
	}

	if c.Puzzle == nil {
		c.Puzzle = &PuzzleConfig{}
	}
	if c.Puzzle.MaxNodes < 0 || c.Puzzle.MaxAttempts < 0 || c.Puzzle.SearchTimeout < 0 {
		return fmt.Errorf("puzzle limits must be >= 0")
	}
	if c.Puzzle.MaxNodes == 0 {
		c.Puzzle.MaxNodes = puzzle.DefaultMaxNodes
	}
	if c.Puzzle.SearchTimeout == 0 {
		c.Puzzle.SearchTimeout = puzzle.DefaultSearchTimeout
	}
	if c.Puzzle.MaxAttempts == 0 {
		c.Puzzle.MaxAttempts = puzzle.DefaultMaxAttempts
	}

	if c.Duel == nil {
		c.Duel = &DuelConfig{}
	}
	if c.Duel.Countdown < 0 {
		return fmt.Errorf("duel.countdown must be >= 0, got %s", c.Duel.Countdown)
	}
	if c.Duel.DisconnectTimeout == nil {
		d := DefaultDisconnectTimeout
		c.Duel.DisconnectTimeout = &d
	}
	if *c.Duel.DisconnectTimeout < 0 {
		return fmt.Errorf("duel.disconnect_timeout must be >= 0, got %s", *c.Duel.DisconnectTimeout)
	}

	if c.Logging == nil {
		c.Logging = &LoggingConfig{}
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}

	return nil
}

func (s *ServerConfig) validate() error {
	if s.Addr == "" {
		s.Addr = ":8080"
	}
	if len(s.CORSOrigins) == 0 {
		s.CORSOrigins = []string{"*"}
	}
	if s.RateLimit == nil {
		s.RateLimit = &RateLimitConfig{Requests: 100, Window: time.Minute}
	}
	if s.RateLimit.Requests < 1 {
		return fmt.Errorf("server.rate_limit.requests must be >= 1, got %d", s.RateLimit.Requests)
	}
	if s.RateLimit.Window <= 0 {
		return fmt.Errorf("server.rate_limit.window must be > 0")
	}
	return nil
}

func (t *TransportConfig) validate() error {
	switch t.Kind {
	case "":
		t.Kind = TransportMock
	case TransportMock:
	case TransportRedis:
		if t.RedisURL == "" {
			return fmt.Errorf("transport.redis_url is required when transport.kind is 'redis'")
		}
	default:
		return fmt.Errorf("invalid transport.kind: %s (must be 'mock' or 'redis')", t.Kind)
	}
	if t.Namespace == "" {
		t.Namespace = "default"
	}
	if strings.ContainsAny(t.Namespace, ": ") {
		return fmt.Errorf("invalid transport.namespace: %q (must not contain ':' or spaces)", t.Namespace)
	}
	if t.MockDelay != nil && *t.MockDelay < 0 {
		return fmt.Errorf("transport.mock_delay must be >= 0")
	}
	return nil
}

// Load reads hecto.yml from path, applies .env and HECTO_* overrides, and
// validates the result. An empty path skips the file.
func Load(path string) (*HectoConfig, error) {
	config := &HectoConfig{Version: "1.0"}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// LoadDotEnv loads variables from a dotenv file into the process
// environment. A missing file is not an error; variables already set win.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from HECTO_* environment variables.
func (c *HectoConfig) ApplyEnv() error {
	var o envOverrides
	if err := env.ParseWithOptions(&o, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	if c.Server == nil {
		c.Server = &ServerConfig{}
	}
	if c.Transport == nil {
		c.Transport = &TransportConfig{}
	}
	if c.Store == nil {
		c.Store = &StoreConfig{}
	}
	if c.Storage == nil {
		c.Storage = &StorageConfig{}
	}
	if c.Duel == nil {
		c.Duel = &DuelConfig{}
	}
	if c.Logging == nil {
		c.Logging = &LoggingConfig{}
	}

	setString(&c.Server.Addr, o.ServerAddr)
	if len(o.CORSOrigins) > 0 {
		c.Server.CORSOrigins = o.CORSOrigins
	}
	setString(&c.Transport.Kind, o.Transport)
	setString(&c.Transport.RedisURL, o.RedisURL)
	setString(&c.Transport.Namespace, o.Namespace)
	setString(&c.Store.Kind, o.Store)
	setString(&c.Storage.Driver, o.StorageDriver)
	setString(&c.Storage.DSN, o.StorageDSN)
	setString(&c.Logging.Level, o.LogLevel)

	if d, err := parseDuration("COUNTDOWN", o.Countdown); err != nil {
		return err
	} else if d != nil {
		c.Duel.Countdown = *d
	}
	if d, err := parseDuration("MOCK_DELAY", o.MockDelay); err != nil {
		return err
	} else if d != nil {
		c.Transport.MockDelay = d
	}
	if d, err := parseDuration("DISCONNECT_TIMEOUT", o.DisconnectTimeout); err != nil {
		return err
	} else if d != nil {
		c.Duel.DisconnectTimeout = d
	}
	return nil
}

// parseDuration reads an optional duration override. Unset yields nil.
func parseDuration(name, v string) (*time.Duration, error) {
	if v == "" {
		return nil, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return nil, fmt.Errorf("parse env: %s%s: %w", EnvPrefix, name, err)
	}
	return &d, nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

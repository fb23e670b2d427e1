// Package storage provides SQL persistence for hecto: a key/value table used
// as the durable client-side match mirror, and participant profiles.
//
// SQLite (modernc.org/sqlite, no cgo) is the default driver; Postgres is
// available through lib/pq. Queries are written with '?' placeholders and
// rebound for the active driver.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ErrNotFound is returned when a key or profile does not exist.
var ErrNotFound = errors.New("not found")

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// DB wraps a migrated *sql.DB together with its driver dialect.
type DB struct {
	sqlDB  *sql.DB
	driver string
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS profiles (
		id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL DEFAULT '',
		rating INTEGER NOT NULL,
		current_streak INTEGER NOT NULL DEFAULT 0,
		wins INTEGER NOT NULL DEFAULT 0,
		losses INTEGER NOT NULL DEFAULT 0,
		draws INTEGER NOT NULL DEFAULT 0,
		abandoned INTEGER NOT NULL DEFAULT 0,
		level INTEGER NOT NULL DEFAULT 1,
		points INTEGER NOT NULL DEFAULT 0,
		badges TEXT NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
}

// Open connects to driver/dsn, verifies the connection and applies
// migrations.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported storage driver %q (must be 'sqlite' or 'postgres')", driver)
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("storage dsn is required")
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", driver, err)
	}
	if driver == DriverSQLite {
		// One connection: keeps ":memory:" databases shared and serializes
		// writers.
		sqlDB.SetMaxOpenConns(1)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping %s db: %w", driver, err)
	}

	db := &DB{sqlDB: sqlDB, driver: driver}
	if err := db.migrate(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}

// OpenMemory opens a private in-memory SQLite database.
func OpenMemory(ctx context.Context) (*DB, error) {
	return Open(ctx, DriverSQLite, ":memory:")
}

// Driver returns the driver name the database was opened with.
func (db *DB) Driver() string {
	return db.driver
}

// Ping checks the connection.
func (db *DB) Ping(ctx context.Context) error {
	return db.sqlDB.PingContext(ctx)
}

// Close releases the connection pool.
func (db *DB) Close() error {
	if db == nil || db.sqlDB == nil {
		return nil
	}
	return db.sqlDB.Close()
}

func (db *DB) migrate(ctx context.Context) error {
	for _, query := range migrations {
		if _, err := db.sqlDB.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}
	return nil
}

// rebind converts '?' placeholders to '$n' for Postgres.
func (db *DB) rebind(query string) string {
	if db.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// forUpdate returns the row-locking suffix for SELECTs inside a transaction.
// SQLite has no row locks; its single connection already serializes.
func (db *DB) forUpdate() string {
	if db.driver == DriverPostgres {
		return " FOR UPDATE"
	}
	return ""
}

// inTx runs fn in a transaction, committing on success.
func (db *DB) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

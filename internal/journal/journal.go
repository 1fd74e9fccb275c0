// Package journal records every command the gateway answers in SQLite.
//
// The journal is an append-only log written from the serving goroutine
// after each reply has been sent. It never influences a reply: a failed
// write is logged by the caller and the command stands.
//
// # Ordering
//
//   - seq is the gateway's logical receive order, never wall time
//   - queries order by seq, then id COLLATE BINARY
//
// # Parameters
//
// Parameters are stored as canonical JSON (sorted keys, NFC strings) with a
// SHA-256 digest, so identical commands can be grouped regardless of the
// key order a client sent.
//
// # Database Configuration
//
//   - WAL mode: history can be read while the gateway writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema
// 1 - Added index on commands.kind
const currentSchemaVersion = 1

// Journal is a SQLite command journal. It is safe for concurrent use.
type Journal struct {
	db  *sql.DB
	ids IDGenerator
	now func() time.Time
}

// Option configures a Journal.
type Option func(*Journal)

// WithIDGenerator replaces the UUIDv7 id source.
func WithIDGenerator(g IDGenerator) Option {
	return func(j *Journal) { j.ids = g }
}

// WithNow replaces the wall clock used for received_at.
func WithNow(now func() time.Time) Option {
	return func(j *Journal) { j.now = now }
}

// Open creates or opens a journal database at path, applying pragmas and
// migrations. Safe to call on an existing journal.
func Open(path string, opts ...Option) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to journal: %w", err)
	}

	// SQLite has one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	j := &Journal{db: db, ids: UUIDv7Generator{}, now: time.Now}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// runMigrations applies incremental migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// migrateToV1 indexes kind for `history --kind`.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_commands_kind ON commands(kind)`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// pragma reads a pragma value. Used by tests.
func (j *Journal) pragma(ctx context.Context, name string) (string, error) {
	var v string
	if err := j.db.QueryRowContext(ctx, "PRAGMA "+name).Scan(&v); err != nil {
		return "", fmt.Errorf("query %s: %w", name, err)
	}
	return v, nil
}

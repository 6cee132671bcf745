package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // Registers the "pgx" driver
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Dialect selects the SQL backend.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Options tunes the connection pool. Zero values keep the driver defaults.
type Options struct {
	MaxOpenConns int
	MaxIdleConns int
}

// DB wraps a connection with its dialect.
type DB struct {
	conn    *sqlx.DB
	dialect Dialect
}

// Open connects to the database and creates the schema.
// dsn is a file path for sqlite and a connection URL for postgres.
func Open(ctx context.Context, dialect Dialect, dsn string, opts Options) (*DB, error) {
	var (
		conn *sqlx.DB
		err  error
	)
	switch dialect {
	case DialectSQLite:
		conn, err = openSQLite(dsn)
	case DialectPostgres:
		conn, err = sqlx.Open("pgx", dsn)
		if err == nil {
			if opts.MaxOpenConns > 0 {
				conn.SetMaxOpenConns(opts.MaxOpenConns)
			}
			if opts.MaxIdleConns > 0 {
				conn.SetMaxIdleConns(opts.MaxIdleConns)
			}
		}
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping %s database: %w", dialect, err)
	}

	db := &DB{conn: conn, dialect: dialect}
	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// openSQLite opens the local database file, creating its directory first.
func openSQLite(path string) (*sqlx.DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	conn, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// One writer avoids SQLITE_BUSY under the async event write-through.
	conn.SetMaxOpenConns(1)
	return conn, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Dialect reports the backend in use.
func (db *DB) Dialect() Dialect {
	return db.dialect
}

func (db *DB) migrate(ctx context.Context) error {
	schemas := sqliteSchemas
	if db.dialect == DialectPostgres {
		schemas = postgresSchemas
	}
	for _, query := range schemas {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

var sqliteSchemas = []string{
	`CREATE TABLE IF NOT EXISTS nation_events (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		nation_id TEXT NOT NULL,
		timestamp_ms INTEGER NOT NULL,
		event_type TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		stage_index INTEGER NOT NULL,
		payload TEXT NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_nation_events_nation ON nation_events(nation_id, seq);`,
	`CREATE TABLE IF NOT EXISTS nation_snapshots (
		nation_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		stage_index INTEGER NOT NULL,
		total_messages INTEGER NOT NULL,
		food INTEGER NOT NULL,
		materials INTEGER NOT NULL,
		population INTEGER NOT NULL,
		military_power INTEGER NOT NULL,
		defense_level INTEGER NOT NULL,
		territory_size INTEGER NOT NULL,
		is_decaying INTEGER NOT NULL DEFAULT 0,
		last_message_ms INTEGER NOT NULL,
		history TEXT NOT NULL,
		updated_ms INTEGER NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS profiles (
		user_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		bio TEXT NOT NULL,
		activities TEXT NOT NULL,
		goals TEXT NOT NULL,
		values_text TEXT NOT NULL,
		survey TEXT NOT NULL,
		created_ms INTEGER NOT NULL
	);`,
}

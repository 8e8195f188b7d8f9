// Package sqlite implements repository.ImageRepository on a single SQLite
// file using the pure Go driver modernc.org/sqlite.
//
// dbPath examples:
//   - "data/gallery.db" → file-based database (persistent)
//   - ":memory:"        → in-memory database (tests, lost on close)
//
// The pool is limited to one open connection. SQLite allows a single writer
// at a time anyway, and an in-memory database exists per connection, so one
// connection keeps both file and memory databases consistent and serializes
// writes at the store.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// pragmas run once when the connection is opened.
var pragmas = []string{
	"PRAGMA journal_mode=WAL",   // readers do not block on the writer
	"PRAGMA synchronous=NORMAL", // safe with WAL
	"PRAGMA busy_timeout=5000",  // wait up to 5s if another process holds the lock
}

// DB wraps a sql.DB connection pool and implements repository.ImageRepository.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and ensures the schema
// exists. It never drops or rewrites existing data.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	// sql.Open is lazy; Ping surfaces a bad path or permissions now.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: setting pragma %q: %w", pragma, err)
		}
	}

	db := &DB{conn: conn}

	if err := db.Initialize(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: initializing schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: ping: %w", err)
	}
	return nil
}

// Initialize creates the images table and its index if they are missing.
// It is safe to call on every start.
//
// AUTOINCREMENT (rather than a plain INTEGER PRIMARY KEY) makes SQLite track
// the highest id ever issued in sqlite_sequence, so ids of deleted rows are
// never handed out again.
func (db *DB) Initialize(ctx context.Context) error {
	_, err := db.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS images (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			url         TEXT NOT NULL,
			title       TEXT,
			description TEXT,
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_images_created_at ON images(created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating images table: %w", err)
	}
	return nil
}

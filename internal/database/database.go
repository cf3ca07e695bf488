// Package database persists crawl state: transcriber cursor rows, found
// transcriptions with their engagement counters, and the append-only log
// of gamma changes. Everything lives in a single SQLite file.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB is a handle on the stats database.
type DB struct {
	conn *sql.DB
	path string
}

// Pragmas applied to every fresh connection. WAL lets the dashboard read
// while a crawl round writes; foreign keys guard the transcriber ->
// transcription/gamma_event links.
var connectionPragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA foreign_keys=ON",
}

// Open opens the database file at dbPath, creating it (and its directory)
// on first use and bringing the schema up to date.
func Open(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	for _, pragma := range connectionPragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return &DB{conn: conn, path: dbPath}, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Exec runs a raw statement against the database. Intended for maintenance
// and test fixtures, not for regular call sites.
func (db *DB) Exec(query string, args ...any) (sql.Result, error) {
	return db.conn.Exec(query, args...)
}

package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS transcribers (
    name TEXT COLLATE NOCASE PRIMARY KEY,
    start_comment TEXT,
    end_comment TEXT,
    forwards INTEGER NOT NULL DEFAULT 0,
    reference_comment TEXT,
    valid INTEGER NOT NULL DEFAULT 1,
    official_gamma_count INTEGER,
    counted_comments INTEGER NOT NULL DEFAULT 0,
    discord_id TEXT
);

CREATE TABLE IF NOT EXISTS transcriptions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    comment_id TEXT UNIQUE NOT NULL,
    transcriber TEXT NOT NULL REFERENCES transcribers(name),
    content TEXT NOT NULL,
    subreddit TEXT,
    found TEXT DEFAULT (datetime('now')),
    created TEXT,
    good_bot INTEGER NOT NULL DEFAULT 0,
    bad_bot INTEGER NOT NULL DEFAULT 0,
    good_human INTEGER NOT NULL DEFAULT 0,
    bad_human INTEGER NOT NULL DEFAULT 0,
    comment_count INTEGER NOT NULL DEFAULT 0,
    upvotes INTEGER NOT NULL DEFAULT 0,
    last_checked TEXT,
    error INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS gamma_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    transcriber TEXT NOT NULL REFERENCES transcribers(name),
    old_gamma INTEGER,
    new_gamma INTEGER NOT NULL,
    time TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_transcriptions_transcriber ON transcriptions(transcriber);
CREATE INDEX IF NOT EXISTS idx_transcriptions_last_checked ON transcriptions(last_checked);
CREATE INDEX IF NOT EXISTS idx_transcriptions_found ON transcriptions(found);
CREATE INDEX IF NOT EXISTS idx_gamma_events_transcriber ON gamma_events(transcriber);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	latest := 0
	for _, m := range migrations {
		if m.Version > latest {
			latest = m.Version
		}
	}
	return latest
}

package database

import (
	"database/sql"
	"fmt"
)

// EnsureTranscriber creates a transcriber row if one does not exist yet.
// Returns true when a new row was created.
func (db *DB) EnsureTranscriber(name string) (bool, error) {
	result, err := db.conn.Exec(
		"INSERT INTO transcribers (name) VALUES (?) ON CONFLICT(name) DO NOTHING", name,
	)
	if err != nil {
		return false, fmt.Errorf("inserting transcriber: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

const transcriberColumns = `name, start_comment, end_comment, forwards, reference_comment,
	valid, official_gamma_count, counted_comments, discord_id`

// GetTranscriber returns a transcriber by name, or nil if unknown.
// Names are compared case-insensitively.
func (db *DB) GetTranscriber(name string) (*Transcriber, error) {
	row := db.conn.QueryRow(
		`SELECT `+transcriberColumns+` FROM transcribers WHERE name = ? COLLATE NOCASE`, name,
	)
	t, err := scanTranscriber(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ListTranscribers returns all transcribers ordered by name.
func (db *DB) ListTranscribers() ([]Transcriber, error) {
	rows, err := db.conn.Query(
		`SELECT ` + transcriberColumns + ` FROM transcribers ORDER BY name ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transcriber
	for rows.Next() {
		var t Transcriber
		var forwards, valid int
		if err := rows.Scan(&t.Name, &t.StartComment, &t.EndComment, &forwards,
			&t.ReferenceComment, &valid, &t.OfficialGammaCount, &t.CountedComments,
			&t.DiscordID); err != nil {
			return nil, err
		}
		t.Forwards = forwards != 0
		t.Valid = valid != 0
		out = append(out, t)
	}
	return out, rows.Err()
}

// SetValid flips the validity flag for a transcriber.
func (db *DB) SetValid(name string, valid bool) error {
	_, err := db.conn.Exec("UPDATE transcribers SET valid = ? WHERE name = ?", boolInt(valid), name)
	return err
}

// SetDiscordID records the Discord account to mention in announcements.
func (db *DB) SetDiscordID(name, discordID string) error {
	_, err := db.conn.Exec("UPDATE transcribers SET discord_id = ? WHERE name = ?", discordID, name)
	return err
}

// ClearReference unbinds the reference comment, typically after its flair
// disappeared. The next scan round will look for a new one.
func (db *DB) ClearReference(name string) error {
	_, err := db.conn.Exec("UPDATE transcribers SET reference_comment = NULL WHERE name = ?", name)
	return err
}

// NewTranscription is one classified transcription pending insertion.
type NewTranscription struct {
	CommentID string
	Content   string
	Subreddit string
	Created   string
}

// ScanBatch is the full set of effects of one processed crawl batch. It is
// applied in a single transaction so a partially-advanced cursor can never
// be observed without its classification results.
type ScanBatch struct {
	Transcriber    string
	Transcriptions []NewTranscription
	Counted        int

	// Cursor updates; nil fields are left untouched.
	NewStart      *string
	NewEnd        *string
	SetForwards   *bool
	BindReference *string
}

// ApplyScanBatch applies the batch atomically and returns the number of
// transcriptions that were actually new (not already known).
func (db *DB) ApplyScanBatch(b *ScanBatch) (int, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin scan batch: %w", err)
	}
	defer tx.Rollback()

	inserted := 0
	for _, tr := range b.Transcriptions {
		result, err := tx.Exec(
			`INSERT INTO transcriptions (comment_id, transcriber, content, subreddit, created)
			VALUES (?, ?, ?, ?, ?) ON CONFLICT(comment_id) DO NOTHING`,
			tr.CommentID, b.Transcriber, tr.Content, tr.Subreddit, tr.Created,
		)
		if err != nil {
			return 0, fmt.Errorf("inserting transcription %s: %w", tr.CommentID, err)
		}
		if n, _ := result.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if b.Counted > 0 {
		if _, err := tx.Exec(
			"UPDATE transcribers SET counted_comments = counted_comments + ? WHERE name = ?",
			b.Counted, b.Transcriber,
		); err != nil {
			return 0, fmt.Errorf("counting comments: %w", err)
		}
	}

	if b.NewStart != nil {
		if _, err := tx.Exec(
			"UPDATE transcribers SET start_comment = ? WHERE name = ?", *b.NewStart, b.Transcriber,
		); err != nil {
			return 0, fmt.Errorf("advancing start comment: %w", err)
		}
	}
	if b.NewEnd != nil {
		if _, err := tx.Exec(
			"UPDATE transcribers SET end_comment = ? WHERE name = ?", *b.NewEnd, b.Transcriber,
		); err != nil {
			return 0, fmt.Errorf("advancing end comment: %w", err)
		}
	}
	if b.SetForwards != nil {
		if _, err := tx.Exec(
			"UPDATE transcribers SET forwards = ? WHERE name = ?", boolInt(*b.SetForwards), b.Transcriber,
		); err != nil {
			return 0, fmt.Errorf("setting direction: %w", err)
		}
	}
	if b.BindReference != nil {
		if _, err := tx.Exec(
			"UPDATE transcribers SET reference_comment = ? WHERE name = ?", *b.BindReference, b.Transcriber,
		); err != nil {
			return 0, fmt.Errorf("binding reference comment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit scan batch: %w", err)
	}
	return inserted, nil
}

// RecordGammaChange appends a gamma event and updates the stored count in
// one transaction.
func (db *DB) RecordGammaChange(name string, oldGamma *int64, newGamma int64) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin gamma change: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"INSERT INTO gamma_events (transcriber, old_gamma, new_gamma) VALUES (?, ?, ?)",
		name, oldGamma, newGamma,
	); err != nil {
		return fmt.Errorf("appending gamma event: %w", err)
	}
	if _, err := tx.Exec(
		"UPDATE transcribers SET official_gamma_count = ? WHERE name = ?", newGamma, name,
	); err != nil {
		return fmt.Errorf("updating gamma count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit gamma change: %w", err)
	}
	return nil
}

func scanTranscriber(row *sql.Row) (*Transcriber, error) {
	var t Transcriber
	var forwards, valid int
	if err := row.Scan(&t.Name, &t.StartComment, &t.EndComment, &forwards,
		&t.ReferenceComment, &valid, &t.OfficialGammaCount, &t.CountedComments,
		&t.DiscordID); err != nil {
		return nil, err
	}
	t.Forwards = forwards != 0
	t.Valid = valid != 0
	return &t, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

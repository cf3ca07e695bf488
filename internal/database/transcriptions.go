package database

import (
	"database/sql"
	"fmt"
)

const transcriptionColumns = `id, comment_id, transcriber, content, subreddit, found, created,
	good_bot, bad_bot, good_human, bad_human, comment_count, upvotes, last_checked, error`

// GetTranscription returns a transcription by comment id, or nil if unknown.
func (db *DB) GetTranscription(commentID string) (*Transcription, error) {
	row := db.conn.QueryRow(
		`SELECT `+transcriptionColumns+` FROM transcriptions WHERE comment_id = ?`, commentID,
	)
	t, err := scanTranscription(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetTranscriptionsForTranscriber returns the most recently found
// transcriptions for one transcriber.
func (db *DB) GetTranscriptionsForTranscriber(name string, limit int) ([]Transcription, error) {
	rows, err := db.conn.Query(
		`SELECT `+transcriptionColumns+` FROM transcriptions
		WHERE transcriber = ? COLLATE NOCASE ORDER BY found DESC LIMIT ?`, name, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTranscriptions(rows)
}

// GetTranscriptionsNeedingRefresh returns comment ids whose engagement
// counters are due: found within the recency window, or never checked.
// Oldest-checked first so stale rows catch up before fresh ones.
func (db *DB) GetTranscriptionsNeedingRefresh(windowHours int) ([]string, error) {
	modifier := fmt.Sprintf("-%d hours", windowHours)
	rows, err := db.conn.Query(
		`SELECT comment_id FROM transcriptions
		WHERE found >= datetime('now', ?) OR last_checked IS NULL
		ORDER BY last_checked IS NOT NULL, last_checked ASC`, modifier,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Engagement holds refreshed engagement counters for one transcription.
type Engagement struct {
	GoodBot      int
	BadBot       int
	GoodHuman    int
	BadHuman     int
	CommentCount int
	Upvotes      int
}

// UpdateEngagement writes refreshed counters and clears the error flag.
func (db *DB) UpdateEngagement(commentID string, e Engagement) error {
	_, err := db.conn.Exec(
		`UPDATE transcriptions
		SET good_bot = ?, bad_bot = ?, good_human = ?, bad_human = ?,
			comment_count = ?, upvotes = ?, last_checked = datetime('now'), error = 0
		WHERE comment_id = ?`,
		e.GoodBot, e.BadBot, e.GoodHuman, e.BadHuman, e.CommentCount, e.Upvotes, commentID,
	)
	return err
}

// MarkEngagementError zeroes all counters and sets the error flag, the
// explicit signal that the row's stats are unusable rather than absent.
func (db *DB) MarkEngagementError(commentID string) error {
	_, err := db.conn.Exec(
		`UPDATE transcriptions
		SET good_bot = 0, bad_bot = 0, good_human = 0, bad_human = 0,
			comment_count = 0, upvotes = 0, last_checked = datetime('now'), error = 1
		WHERE comment_id = ?`, commentID,
	)
	return err
}

func scanTranscriptions(rows *sql.Rows) ([]Transcription, error) {
	var out []Transcription
	for rows.Next() {
		var t Transcription
		var errFlag int
		if err := rows.Scan(&t.ID, &t.CommentID, &t.Transcriber, &t.Content, &t.Subreddit,
			&t.Found, &t.Created, &t.GoodBot, &t.BadBot, &t.GoodHuman, &t.BadHuman,
			&t.CommentCount, &t.Upvotes, &t.LastChecked, &errFlag); err != nil {
			return nil, err
		}
		t.Error = errFlag != 0
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTranscription(row *sql.Row) (*Transcription, error) {
	var t Transcription
	var errFlag int
	if err := row.Scan(&t.ID, &t.CommentID, &t.Transcriber, &t.Content, &t.Subreddit,
		&t.Found, &t.Created, &t.GoodBot, &t.BadBot, &t.GoodHuman, &t.BadHuman,
		&t.CommentCount, &t.Upvotes, &t.LastChecked, &errFlag); err != nil {
		return nil, err
	}
	t.Error = errFlag != 0
	return &t, nil
}

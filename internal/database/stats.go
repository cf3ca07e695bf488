package database

// GetStats returns aggregate counts for the status command.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}

	err := db.conn.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(valid), 0), COALESCE(SUM(counted_comments), 0)
		FROM transcribers`,
	).Scan(&s.Transcribers, &s.ValidTranscribers, &s.CountedComments)
	if err != nil {
		return nil, err
	}

	err = db.conn.QueryRow(
		"SELECT COUNT(*), COALESCE(SUM(error), 0) FROM transcriptions",
	).Scan(&s.Transcriptions, &s.TranscriptionErrors)
	if err != nil {
		return nil, err
	}

	if err := db.conn.QueryRow("SELECT COUNT(*) FROM gamma_events").Scan(&s.GammaEvents); err != nil {
		return nil, err
	}

	return s, nil
}

// Leaderboard returns transcribers ordered by gamma count descending.
func (db *DB) Leaderboard(limit int) ([]LeaderboardEntry, error) {
	rows, err := db.conn.Query(
		`SELECT t.name, COALESCE(t.official_gamma_count, 0), t.valid,
			(SELECT COUNT(*) FROM transcriptions tr WHERE tr.transcriber = t.name)
		FROM transcribers t
		ORDER BY COALESCE(t.official_gamma_count, 0) DESC, t.name ASC
		LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LeaderboardEntry
	for rows.Next() {
		var e LeaderboardEntry
		var valid int
		if err := rows.Scan(&e.Name, &e.Gamma, &valid, &e.Transcriptions); err != nil {
			return nil, err
		}
		e.Valid = valid != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

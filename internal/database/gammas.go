package database

// GetGammaHistory returns the gamma events for a transcriber, newest first.
func (db *DB) GetGammaHistory(name string, limit int) ([]GammaEvent, error) {
	rows, err := db.conn.Query(
		`SELECT id, transcriber, old_gamma, new_gamma, time FROM gamma_events
		WHERE transcriber = ? COLLATE NOCASE ORDER BY id DESC LIMIT ?`, name, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GammaEvent
	for rows.Next() {
		var e GammaEvent
		if err := rows.Scan(&e.ID, &e.Transcriber, &e.OldGamma, &e.NewGamma, &e.Time); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

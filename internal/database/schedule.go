package database

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/TobiSchelling/postplanner/internal/scheduler"
)

// SaveResult inserts or replaces the committed result for its content ID.
// The full result is kept as JSON; indexed columns support listing by time.
func (db *DB) SaveResult(r scheduler.Result) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding result %s: %w", r.ID(), err)
	}
	_, err = db.conn.Exec(
		`INSERT OR REPLACE INTO scheduled_content
		(content_id, platform, scheduled_time, confidence, conflict_count, payload, committed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID(), string(r.Item.Platform), formatTime(r.ScheduledTime), r.Confidence,
		len(r.Conflicts), string(payload), formatTime(r.CommittedAt),
	)
	if err != nil {
		return fmt.Errorf("saving result %s: %w", r.ID(), err)
	}
	return nil
}

// DeleteResult removes the result for contentID. Deleting a missing ID is not an error.
func (db *DB) DeleteResult(contentID string) error {
	if _, err := db.conn.Exec("DELETE FROM scheduled_content WHERE content_id = ?", contentID); err != nil {
		return fmt.Errorf("deleting result %s: %w", contentID, err)
	}
	return nil
}

// ClearResults removes every stored result.
func (db *DB) ClearResults() error {
	if _, err := db.conn.Exec("DELETE FROM scheduled_content"); err != nil {
		return fmt.Errorf("clearing results: %w", err)
	}
	return nil
}

// LoadResults returns every stored result in ascending scheduled time.
func (db *DB) LoadResults() ([]scheduler.Result, error) {
	rows, err := db.conn.Query(
		"SELECT content_id, payload FROM scheduled_content ORDER BY scheduled_time, content_id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanResults(rows)
}

func scanResults(rows *sql.Rows) ([]scheduler.Result, error) {
	var results []scheduler.Result
	for rows.Next() {
		var id, payload string
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}
		var r scheduler.Result
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			return nil, fmt.Errorf("decoding result %s: %w", id, err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

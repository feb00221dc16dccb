package database

import (
	"database/sql"
	"fmt"
)

// InsertRun records a completed plan run.
func (db *DB) InsertRun(r PlanRun) error {
	_, err := db.conn.Exec(
		`INSERT INTO plan_runs (id, started_at, collected, scheduled, failed, conflicts)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, formatTime(r.StartedAt), r.Collected, r.Scheduled, r.Failed, r.Conflicts,
	)
	if err != nil {
		return fmt.Errorf("recording run %s: %w", r.ID, err)
	}
	return nil
}

// GetRecentRuns returns up to limit runs, newest first.
func (db *DB) GetRecentRuns(limit int) ([]PlanRun, error) {
	rows, err := db.conn.Query(
		`SELECT id, started_at, collected, scheduled, failed, conflicts
		FROM plan_runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []PlanRun
	for rows.Next() {
		var (
			r       PlanRun
			started string
		)
		if err := rows.Scan(&r.ID, &started, &r.Collected, &r.Scheduled, &r.Failed, &r.Conflicts); err != nil {
			return nil, err
		}
		ts, err := parseTime(started)
		if err != nil {
			return nil, err
		}
		r.StartedAt = ts
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetStats returns aggregate counts across all tables.
func (db *DB) GetStats() (*Stats, error) {
	var s Stats
	counts := []struct {
		query string
		args  []any
		dst   *int
	}{
		{"SELECT COUNT(*) FROM scheduled_content", nil, &s.ScheduledItems},
		{"SELECT COUNT(*) FROM content_queue WHERE status = ?", []any{StatusPending}, &s.PendingItems},
		{"SELECT COUNT(*) FROM content_queue WHERE status = ?", []any{StatusFailed}, &s.FailedItems},
		{"SELECT COUNT(*) FROM performance_data", nil, &s.DataPoints},
		{"SELECT COUNT(*) FROM plan_runs", nil, &s.Runs},
	}
	for _, c := range counts {
		if err := db.conn.QueryRow(c.query, c.args...).Scan(c.dst); err != nil {
			return nil, err
		}
	}

	var last sql.NullString
	if err := db.conn.QueryRow("SELECT MAX(started_at) FROM plan_runs").Scan(&last); err != nil {
		return nil, err
	}
	if last.Valid {
		ts, err := parseTime(last.String)
		if err != nil {
			return nil, err
		}
		s.LastRunAt = &ts
	}
	return &s, nil
}

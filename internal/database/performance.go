package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/TobiSchelling/postplanner/internal/content"
	"github.com/TobiSchelling/postplanner/internal/planner"
)

// InsertDataPoints stores performance observations in a single transaction.
func (db *DB) InsertDataPoints(points []planner.DataPoint) (int, error) {
	if len(points) == 0 {
		return 0, nil
	}
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin insert: %w", err)
	}
	stmt, err := tx.Prepare(
		`INSERT INTO performance_data
		(observed_at, platform, content_type, engagement, reach, clicks, conversions)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		var typ *string
		if p.ContentType != "" {
			s := string(p.ContentType)
			typ = &s
		}
		if _, err := stmt.Exec(formatTime(p.Timestamp), string(p.Platform), typ,
			p.Engagement, p.Reach, p.Clicks, p.Conversions); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("inserting data point: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert: %w", err)
	}
	return len(points), nil
}

// GetDataPoints returns observations at or after since in ascending time.
// A zero since returns the full history.
func (db *DB) GetDataPoints(since time.Time) ([]planner.DataPoint, error) {
	query := `SELECT observed_at, platform, content_type, engagement, reach, clicks, conversions
		FROM performance_data`
	var args []any
	if !since.IsZero() {
		query += " WHERE observed_at >= ?"
		args = append(args, formatTime(since))
	}
	query += " ORDER BY observed_at, id"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDataPoints(rows)
}

// CountDataPoints returns the number of stored observations.
func (db *DB) CountDataPoints() (int, error) {
	var n int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM performance_data").Scan(&n)
	return n, err
}

func scanDataPoints(rows *sql.Rows) ([]planner.DataPoint, error) {
	var points []planner.DataPoint
	for rows.Next() {
		var (
			p        planner.DataPoint
			observed string
			platform string
			typ      *string
		)
		if err := rows.Scan(&observed, &platform, &typ, &p.Engagement, &p.Reach,
			&p.Clicks, &p.Conversions); err != nil {
			return nil, err
		}
		ts, err := parseTime(observed)
		if err != nil {
			return nil, err
		}
		p.Timestamp = ts
		p.Platform = content.Platform(platform)
		if typ != nil {
			p.ContentType = content.ContentType(*typ)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

package database

import (
	"database/sql"
	"fmt"

	"github.com/TobiSchelling/postplanner/internal/content"
)

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// EnqueueItem adds a collected item to the pending queue. It returns false when
// an item with the same ID or source URL is already queued.
func (db *DB) EnqueueItem(item content.Item) (bool, error) {
	var deadline *string
	if item.Deadline != nil {
		s := formatTime(*item.Deadline)
		deadline = &s
	}
	res, err := db.conn.Exec(
		`INSERT OR IGNORE INTO content_queue
		(id, title, body, platform, content_type, urgency, business_goal, source_url, created_at, deadline)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Title, item.Body, string(item.Platform),
		nullable(string(item.ContentType)), nullable(string(item.Urgency)),
		nullable(string(item.BusinessGoal)), nullable(item.SourceURL),
		formatTime(item.CreatedAt), deadline,
	)
	if err != nil {
		return false, fmt.Errorf("queueing %s: %w", item.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetQueuedItems returns items with the given status, oldest first.
func (db *DB) GetQueuedItems(status string) ([]content.Item, error) {
	rows, err := db.conn.Query(
		`SELECT id, title, body, platform, content_type, urgency, business_goal, source_url, created_at, deadline
		FROM content_queue WHERE status = ? ORDER BY created_at, id`, status,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItems(rows)
}

// UpdateItemBody replaces the body of a queued item after extraction.
func (db *DB) UpdateItemBody(id, body string) error {
	_, err := db.conn.Exec("UPDATE content_queue SET body = ? WHERE id = ?", body, id)
	return err
}

// SetQueueStatus moves a queued item to status.
func (db *DB) SetQueueStatus(id, status string) error {
	res, err := db.conn.Exec("UPDATE content_queue SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return fmt.Errorf("updating status of %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("queued item %s not found", id)
	}
	return nil
}

func scanItems(rows *sql.Rows) ([]content.Item, error) {
	var items []content.Item
	for rows.Next() {
		var (
			it                           content.Item
			platform, created            string
			typ, urgency, goal, src, due *string
		)
		if err := rows.Scan(&it.ID, &it.Title, &it.Body, &platform, &typ, &urgency,
			&goal, &src, &created, &due); err != nil {
			return nil, err
		}
		it.Platform = content.Platform(platform)
		if typ != nil {
			it.ContentType = content.ContentType(*typ)
		}
		if urgency != nil {
			it.Urgency = content.Urgency(*urgency)
		}
		if goal != nil {
			it.BusinessGoal = content.BusinessGoal(*goal)
		}
		if src != nil {
			it.SourceURL = *src
		}
		ts, err := parseTime(created)
		if err != nil {
			return nil, err
		}
		it.CreatedAt = ts
		if due != nil {
			d, err := parseTime(*due)
			if err != nil {
				return nil, err
			}
			it.Deadline = &d
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

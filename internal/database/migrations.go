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
		Description: "schedule store",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS scheduled_content (
    content_id TEXT PRIMARY KEY,
    platform TEXT NOT NULL,
    scheduled_time TEXT NOT NULL,
    confidence REAL NOT NULL DEFAULT 0,
    conflict_count INTEGER NOT NULL DEFAULT 0,
    payload TEXT NOT NULL,
    committed_at TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_scheduled_content_time ON scheduled_content(scheduled_time);
CREATE INDEX IF NOT EXISTS idx_scheduled_content_platform ON scheduled_content(platform, scheduled_time);
`)
			return err
		},
	},
	{
		Version:     2,
		Description: "performance history and content queue",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS performance_data (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    observed_at TEXT NOT NULL,
    platform TEXT NOT NULL,
    content_type TEXT,
    engagement REAL NOT NULL DEFAULT 0,
    reach REAL NOT NULL DEFAULT 0,
    clicks REAL NOT NULL DEFAULT 0,
    conversions REAL NOT NULL DEFAULT 0,
    imported_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS content_queue (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    body TEXT NOT NULL DEFAULT '',
    platform TEXT NOT NULL,
    content_type TEXT,
    urgency TEXT,
    business_goal TEXT,
    source_url TEXT UNIQUE,
    created_at TEXT NOT NULL,
    deadline TEXT,
    status TEXT NOT NULL DEFAULT 'pending' CHECK(status IN ('pending', 'scheduled', 'failed')),
    queued_at TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_performance_observed ON performance_data(observed_at);
CREATE INDEX IF NOT EXISTS idx_content_queue_status ON content_queue(status);
`)
			return err
		},
	},
	{
		Version:     3,
		Description: "plan runs",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS plan_runs (
    id TEXT PRIMARY KEY,
    started_at TEXT NOT NULL,
    collected INTEGER DEFAULT 0,
    scheduled INTEGER DEFAULT 0,
    failed INTEGER DEFAULT 0,
    conflicts INTEGER DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_plan_runs_started ON plan_runs(started_at);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}

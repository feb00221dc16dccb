package database

import "time"

// Queue statuses for collected content.
const (
	StatusPending   = "pending"
	StatusScheduled = "scheduled"
	StatusFailed    = "failed"
)

// PlanRun holds metadata about a pipeline run.
type PlanRun struct {
	ID        string
	StartedAt time.Time
	Collected int
	Scheduled int
	Failed    int
	Conflicts int
}

// Stats contains aggregate database statistics.
type Stats struct {
	ScheduledItems int
	PendingItems   int
	FailedItems    int
	DataPoints     int
	Runs           int
	LastRunAt      *time.Time
}

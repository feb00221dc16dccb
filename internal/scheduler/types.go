package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/TobiSchelling/postplanner/internal/classify"
	"github.com/TobiSchelling/postplanner/internal/content"
	"github.com/TobiSchelling/postplanner/internal/planner"
)

const (
	defaultMinimumGapHours = 2
	defaultMaxPerDay       = 5
	timeOverloadThreshold  = 3
)

// PlatformLimits caps the volume of content per platform.
type PlatformLimits struct {
	MaxPerDay    int   `json:"max_per_day"`
	MaxPerHour   int   `json:"max_per_hour"`
	OptimalTimes []int `json:"optimal_times"`
}

// Config holds the defaults every request is merged onto.
type Config struct {
	Audience  planner.Audience
	Strategy  planner.Strategy
	Goals     planner.Goals
	Platforms map[content.Platform]PlatformLimits
}

// DefaultConfig returns a weekday business-hours audience in UTC.
func DefaultConfig() Config {
	platforms := make(map[content.Platform]PlatformLimits, len(content.Platforms))
	for _, p := range content.Platforms {
		platforms[p] = PlatformLimits{MaxPerDay: defaultMaxPerDay}
	}
	return Config{
		Audience: planner.Audience{
			Timezone:      "UTC",
			WorkingHours:  planner.HourRange{Start: 9, End: 17},
			PeakHours:     []int{9, 12, 15, 18},
			PreferredDays: []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		},
		Strategy:  planner.Strategy{PostsPerWeek: 10, MinimumGapHours: defaultMinimumGapHours},
		Platforms: platforms,
	}
}

func (c Config) limits(p content.Platform) PlatformLimits {
	l := c.Platforms[p]
	if l.MaxPerDay <= 0 {
		l.MaxPerDay = defaultMaxPerDay
	}
	return l
}

// Priority is the caller's explicit batch priority.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

var priorityWeights = map[Priority]float64{
	PriorityUrgent: 40,
	PriorityHigh:   30,
	PriorityMedium: 20,
	PriorityLow:    10,
}

// Weight is the explicit weight added to batch ordering.
func (p Priority) Weight() float64 {
	return priorityWeights[p]
}

// ParsePriority validates a priority name. Empty input is allowed and means
// "infer from the classification" in batch runs.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if p == "" {
		return p, nil
	}
	if _, ok := priorityWeights[p]; !ok {
		return "", fmt.Errorf("%w: unknown priority %q", ErrInvalidRequest, s)
	}
	return p, nil
}

// InferPriority derives a priority from the sum of urgency and priority scores.
func InferPriority(cl classify.Classification) Priority {
	sum := cl.UrgencyScore + cl.PriorityScore
	switch {
	case sum > 150:
		return PriorityUrgent
	case sum > 120:
		return PriorityHigh
	case sum > 80:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Constraints are per-request scheduling limits.
type Constraints struct {
	ExcludedDays           []time.Weekday `json:"excluded_days"`
	ExcludedHours          []int          `json:"excluded_hours"`
	MinimumGapBetweenPosts int            `json:"minimum_gap_between_posts"`
}

func (c Constraints) gap() time.Duration {
	hours := c.MinimumGapBetweenPosts
	if hours <= 0 {
		hours = defaultMinimumGapHours
	}
	return time.Duration(hours) * time.Hour
}

// Request asks MasterControl to schedule one item.
type Request struct {
	Item        content.Item
	Priority    Priority
	Constraints Constraints

	// Audience, Strategy and Goals override the configured defaults field by field.
	Audience *planner.Audience
	Strategy *planner.Strategy
	Goals    *planner.Goals

	// PreferredTime is the earliest acceptable slot. With Force it is used as is,
	// even when it lies in the past.
	PreferredTime *time.Time
	Force         bool
}

// Result is a committed scheduling decision. The schedule store holds at most
// one Result per content ID.
type Result struct {
	Item              content.Item            `json:"item"`
	Classification    classify.Classification `json:"classification"`
	Recommendation    planner.Recommendation  `json:"recommendation"`
	ScheduledTime     time.Time               `json:"scheduled_time"`
	Confidence        float64                 `json:"confidence"`
	Reasoning         string                  `json:"reasoning"`
	OptimizationNotes []string                `json:"optimization_notes"`
	Conflicts         []Conflict              `json:"conflicts"`
	Priority          Priority                `json:"priority"`
	Constraints       Constraints             `json:"constraints"`
	CommittedAt       time.Time               `json:"committed_at"`
}

// ID returns the content ID the result is keyed by.
func (r Result) ID() string {
	return r.Item.ID
}

// ConflictType classifies a detected conflict.
type ConflictType string

const (
	ConflictTimeOverload     ConflictType = "time_overload"
	ConflictPlatformOverload ConflictType = "platform_overload"
	ConflictTime             ConflictType = "time_conflict"
	ConflictExcludedDay      ConflictType = "excluded_day"
	ConflictExcludedHour     ConflictType = "excluded_hour"
)

// Conflict is a spacing, volume or exclusion violation. Conflicts are reported,
// never resolved automatically.
type Conflict struct {
	Type        ConflictType `json:"type"`
	Description string       `json:"description"`
	ContentIDs  []string     `json:"content_ids"`
	Suggestions []string     `json:"suggestions"`
}

// Timeframe bounds a query. Zero bounds are open.
type Timeframe struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t lies in [Start, End].
func (tf *Timeframe) Contains(t time.Time) bool {
	if tf == nil {
		return true
	}
	if !tf.Start.IsZero() && t.Before(tf.Start) {
		return false
	}
	if !tf.End.IsZero() && t.After(tf.End) {
		return false
	}
	return true
}

// Filter narrows GetScheduledContent.
type Filter struct {
	Platform content.Platform
	From     time.Time
	To       time.Time
}

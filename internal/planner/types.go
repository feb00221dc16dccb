package planner

import (
	"fmt"
	"slices"
	"time"

	"github.com/TobiSchelling/postplanner/internal/content"
)

// DataPoint is one observed post performance from the engagement feed.
type DataPoint struct {
	Timestamp   time.Time           `json:"timestamp"`
	Platform    content.Platform    `json:"platform"`
	ContentType content.ContentType `json:"content_type"`
	Engagement  float64             `json:"engagement"`
	Reach       float64             `json:"reach"`
	Clicks      float64             `json:"clicks"`
	Conversions float64             `json:"conversions"`
}

// HourRange is a half-open [Start, End) range of hours. Start > End wraps midnight.
type HourRange struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Contains reports whether hour h falls inside the range.
func (r HourRange) Contains(h int) bool {
	if r.Start <= r.End {
		return h >= r.Start && h < r.End
	}
	return h >= r.Start || h < r.End
}

// Audience describes when the audience is reachable.
type Audience struct {
	Timezone      string         `json:"timezone"`
	WorkingHours  HourRange      `json:"working_hours"`
	PeakHours     []int          `json:"peak_hours"`
	PreferredDays []time.Weekday `json:"preferred_days"`
}

// Location resolves the audience timezone. An empty timezone means UTC.
func (a Audience) Location() (*time.Location, error) {
	if a.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC, fmt.Errorf("loading timezone %q: %w", a.Timezone, err)
	}
	return loc, nil
}

// IsPeak reports whether h is one of the audience peak hours.
func (a Audience) IsPeak(h int) bool {
	return slices.Contains(a.PeakHours, h)
}

// Prefers reports whether d is one of the preferred publishing days.
func (a Audience) Prefers(d time.Weekday) bool {
	return slices.Contains(a.PreferredDays, d)
}

// Strategy is the content strategy applied while searching for slots.
type Strategy struct {
	PostsPerWeek    int                             `json:"posts_per_week"`
	MinimumGapHours int                             `json:"minimum_gap_hours"`
	ContentMix      map[content.ContentType]float64 `json:"content_mix"`
}

// Goals carries the business-goal priority and target metric thresholds.
type Goals struct {
	Priority         content.BusinessGoal `json:"priority"`
	TargetEngagement float64              `json:"target_engagement"`
	TargetReach      float64              `json:"target_reach"`
	TargetConversion float64              `json:"target_conversion"`
}

// Context is everything the algorithm needs besides the queue itself.
type Context struct {
	Audience Audience `json:"audience"`
	Strategy Strategy `json:"strategy"`
	Goals    Goals    `json:"goals"`

	// Start is the earliest acceptable slot. Zero means the algorithm clock.
	Start time.Time `json:"-"`
	// Skip rejects candidate slots, e.g. ones already taken on the same platform.
	Skip func(at time.Time) bool `json:"-"`
}

// QueueItem is an item waiting for a recommendation.
type QueueItem struct {
	Item        content.Item
	ContentType content.ContentType
}

// Reasoning explains a recommendation.
type Reasoning struct {
	Factors         []string `json:"factors"`
	HistoricalBasis string   `json:"historical_basis"`
	AudienceInsight string   `json:"audience_insight"`
}

// Recommendation is a proposed slot for one item.
//
// PredictedReach and PredictedConversion come from a deterministic ratio model
// (see predict) and are estimates, not forecasts.
type Recommendation struct {
	ContentID           string              `json:"content_id"`
	Time                time.Time           `json:"time"`
	Platform            content.Platform    `json:"platform"`
	ContentType         content.ContentType `json:"content_type"`
	Confidence          float64             `json:"confidence"`
	PredictedEngagement float64             `json:"predicted_engagement"`
	PredictedReach      float64             `json:"predicted_reach"`
	PredictedConversion float64             `json:"predicted_conversion"`
	Reasoning           Reasoning           `json:"reasoning"`
}

// Patterns is a read-only snapshot of the historical model.
type Patterns struct {
	Samples        int                                  `json:"samples"`
	Hourly         map[int]float64                      `json:"hourly"`
	Daily          map[time.Weekday]float64             `json:"daily"`
	PlatformHourly map[content.Platform]map[int]float64 `json:"platform_hourly"`
}

// BestHours returns up to n hours with the highest average engagement, best first.
func (p Patterns) BestHours(n int) []int {
	hours := make([]int, 0, len(p.Hourly))
	for h := range p.Hourly {
		hours = append(hours, h)
	}
	slices.SortFunc(hours, func(a, b int) int {
		switch {
		case p.Hourly[a] > p.Hourly[b]:
			return -1
		case p.Hourly[a] < p.Hourly[b]:
			return 1
		}
		return a - b
	})
	if len(hours) > n {
		hours = hours[:n]
	}
	return hours
}

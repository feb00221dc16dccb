package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/TobiSchelling/postplanner/internal/content"
)

var analyticsPeakHours = []int{9, 12, 15, 18}

// Analytics summarizes the schedule over a period.
type Analytics struct {
	TotalScheduled          int                         `json:"total_scheduled"`
	PlatformDistribution    map[content.Platform]int    `json:"platform_distribution"`
	HourDistribution        map[int]int                 `json:"hour_distribution"`
	ContentTypeDistribution map[content.ContentType]int `json:"content_type_distribution"`
	CategoryDistribution    map[string]int              `json:"category_distribution"`
	AverageConfidence       float64                     `json:"average_confidence"`
	ConflictRate            float64                     `json:"conflict_rate"`
	DetectedConflicts       int                         `json:"detected_conflicts"`
	Opportunities           []string                    `json:"opportunities"`
}

// GetSchedulingAnalytics computes distributions, mean confidence, the share of
// results carrying conflicts (percent) and optimization opportunities.
func (c *Controller) GetSchedulingAnalytics(period *Timeframe) Analytics {
	var results []Result
	for _, r := range c.GetScheduledContent(Filter{}) {
		if period.Contains(r.ScheduledTime) {
			results = append(results, r)
		}
	}

	a := Analytics{
		TotalScheduled:          len(results),
		PlatformDistribution:    make(map[content.Platform]int),
		HourDistribution:        make(map[int]int),
		ContentTypeDistribution: make(map[content.ContentType]int),
		CategoryDistribution:    make(map[string]int),
	}
	if len(results) == 0 {
		a.Opportunities = []string{"No content scheduled in this period"}
		return a
	}

	withConflicts := 0
	for _, r := range results {
		a.PlatformDistribution[r.Item.Platform]++
		a.HourDistribution[r.ScheduledTime.In(c.loc).Hour()]++
		a.ContentTypeDistribution[r.Classification.ContentType]++
		if top, ok := r.Classification.TopCategory(); ok {
			a.CategoryDistribution[top.CategoryID]++
		}
		if len(r.Conflicts) > 0 {
			withConflicts++
		}
	}
	a.AverageConfidence = meanConfidence(results)
	a.ConflictRate = float64(withConflicts) / float64(len(results)) * 100
	a.DetectedConflicts = len(c.detect(results))
	a.Opportunities = opportunities(a)
	return a
}

func opportunities(a Analytics) []string {
	var out []string
	for _, h := range analyticsPeakHours {
		if a.HourDistribution[h] == 0 {
			out = append(out, fmt.Sprintf("Peak hour %02d:00 is unused; consider moving content there", h))
		}
	}

	var (
		maxP, minP content.Platform
		maxN, minN int
	)
	for _, p := range content.Platforms {
		n := a.PlatformDistribution[p]
		if n == 0 {
			continue
		}
		if maxP == "" || n > maxN {
			maxP, maxN = p, n
		}
		if minP == "" || n < minN {
			minP, minN = p, n
		}
	}
	if minN > 0 && maxN > 2*minN {
		out = append(out, fmt.Sprintf("Platform imbalance: %s has %d posts while %s has %d", maxP, maxN, minP, minN))
	}
	return out
}

func meanConfidence(results []Result) float64 {
	if len(results) == 0 {
		return 0
	}
	var sum float64
	for _, r := range results {
		sum += r.Confidence
	}
	return sum / float64(len(results))
}

// conflictCount counts conflicts attached to results plus schedule-wide ones.
func (c *Controller) conflictCount(results []Result) int {
	n := len(c.detect(results))
	for _, r := range results {
		n += len(r.Conflicts)
	}
	return n
}

// OptimizationReport compares the schedule before and after OptimizeSchedule.
type OptimizationReport struct {
	Total            int           `json:"total"`
	Rescheduled      int           `json:"rescheduled"`
	Restored         []string      `json:"restored"`
	ConfidenceBefore float64       `json:"confidence_before"`
	ConfidenceAfter  float64       `json:"confidence_after"`
	ConfidenceDelta  float64       `json:"confidence_delta"`
	ConflictsBefore  int           `json:"conflicts_before"`
	ConflictsAfter   int           `json:"conflicts_after"`
	ConflictDelta    int           `json:"conflict_delta"`
	Duration         time.Duration `json:"duration"`
}

// OptimizeSchedule re-plans every stored item from scratch. Priorities are
// inferred from the stored classifications. Items that fail to re-plan get
// their previous result back.
func (c *Controller) OptimizeSchedule() (OptimizationReport, error) {
	c.optimizeMu.Lock()
	defer c.optimizeMu.Unlock()

	started := c.now()
	before := c.GetScheduledContent(Filter{})
	rep := OptimizationReport{
		Total:            len(before),
		ConfidenceBefore: meanConfidence(before),
		ConflictsBefore:  c.conflictCount(before),
	}
	if len(before) == 0 {
		return rep, nil
	}

	if err := c.Clear(); err != nil {
		return rep, err
	}

	originals := make(map[string]Result, len(before))
	reqs := make([]Request, len(before))
	for i, r := range before {
		originals[r.ID()] = r
		reqs[i] = Request{
			Item:        r.Item,
			Priority:    InferPriority(r.Classification),
			Constraints: r.Constraints,
		}
	}

	scheduled, failures := c.ScheduleMultipleContent(reqs)
	rep.Rescheduled = len(scheduled)

	var restoreErr error
	for _, err := range failures {
		var sf *SchedulingFailedError
		if !errors.As(err, &sf) {
			continue
		}
		orig, ok := originals[sf.ContentID]
		if !ok {
			continue
		}
		c.mu.Lock()
		cerr := c.commitLocked(orig)
		c.mu.Unlock()
		if cerr != nil {
			restoreErr = errors.Join(restoreErr, fmt.Errorf("restoring %s: %w", sf.ContentID, cerr))
			continue
		}
		rep.Restored = append(rep.Restored, sf.ContentID)
	}

	after := c.GetScheduledContent(Filter{})
	rep.ConfidenceAfter = meanConfidence(after)
	rep.ConflictsAfter = c.conflictCount(after)
	rep.ConfidenceDelta = rep.ConfidenceAfter - rep.ConfidenceBefore
	rep.ConflictDelta = rep.ConflictsAfter - rep.ConflictsBefore
	rep.Duration = c.now().Sub(started)

	c.log.Info().
		Int("rescheduled", rep.Rescheduled).
		Int("restored", len(rep.Restored)).
		Float64("confidence_delta", rep.ConfidenceDelta).
		Int("conflict_delta", rep.ConflictDelta).
		Msg("schedule optimized")
	return rep, restoreErr
}


package scheduler

import (
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/TobiSchelling/postplanner/internal/content"
)

// validateLocked checks a proposed time against the request constraints and the
// store. Days and hours are read in loc, the request's audience timezone. Every rule is evaluated; all violations are returned. Must be called
// with mu held.
func (c *Controller) validateLocked(cons Constraints, item content.Item, at time.Time, loc *time.Location) []Conflict {
	var conflicts []Conflict
	self := item.ID
	local := at.In(loc)

	if slices.Contains(cons.ExcludedDays, local.Weekday()) {
		conflicts = append(conflicts, Conflict{
			Type:        ConflictExcludedDay,
			Description: fmt.Sprintf("%s is excluded for %s", local.Weekday(), self),
			ContentIDs:  []string{self},
			Suggestions: []string{"Move the item to a permitted day"},
		})
	}
	if slices.Contains(cons.ExcludedHours, local.Hour()) {
		conflicts = append(conflicts, Conflict{
			Type:        ConflictExcludedHour,
			Description: fmt.Sprintf("%02d:00 is excluded for %s", local.Hour(), self),
			ContentIDs:  []string{self},
			Suggestions: []string{"Move the item to a permitted hour"},
		})
	}

	gap := cons.gap()
	var sameDay, sameHour int
	for _, r := range c.sortedLocked() {
		if r.ID() == self || r.Item.Platform != item.Platform {
			continue
		}
		if d := absDuration(r.ScheduledTime.Sub(at)); d < gap {
			conflicts = append(conflicts, Conflict{
				Type: ConflictTime,
				Description: fmt.Sprintf("%s is %s from %s on %s; minimum gap is %s",
					self, d, r.ID(), item.Platform, gap),
				ContentIDs:  []string{r.ID(), self},
				Suggestions: []string{fmt.Sprintf("Move at least %s away from %s", gap, r.ScheduledTime.In(loc).Format("Jan 02 15:04"))},
			})
		}
		if sameDate(r.ScheduledTime.In(loc), local) {
			sameDay++
		}
		if r.ScheduledTime.Truncate(time.Hour).Equal(at.Truncate(time.Hour)) {
			sameHour++
		}
	}

	limits := c.cfg.limits(item.Platform)
	if sameDay+1 > limits.MaxPerDay {
		conflicts = append(conflicts, Conflict{
			Type:        ConflictPlatformOverload,
			Description: fmt.Sprintf("%s would carry %d items on %s; limit is %d", item.Platform, sameDay+1, local.Format("2006-01-02"), limits.MaxPerDay),
			ContentIDs:  []string{self},
			Suggestions: []string{"Move the item to a less busy day"},
		})
	}
	if limits.MaxPerHour > 0 && sameHour+1 > limits.MaxPerHour {
		conflicts = append(conflicts, Conflict{
			Type:        ConflictPlatformOverload,
			Description: fmt.Sprintf("%s would carry %d items in the %02d:00 hour; limit is %d", item.Platform, sameHour+1, local.Hour(), limits.MaxPerHour),
			ContentIDs:  []string{self},
			Suggestions: []string{"Spread items across neighbouring hours"},
		})
	}
	return conflicts
}

// sortedLocked returns store values in ascending scheduled time. Must be called
// with mu held.
func (c *Controller) sortedLocked() []Result {
	out := make([]Result, 0, len(c.store))
	for _, r := range c.store {
		out = append(out, r)
	}
	sortResults(out)
	return out
}

// DetectConflicts scans the schedule, optionally bounded by tf, for hours with
// more than three items across platforms and for platform days over their cap.
func (c *Controller) DetectConflicts(tf *Timeframe) []Conflict {
	var results []Result
	for _, r := range c.GetScheduledContent(Filter{}) {
		if tf.Contains(r.ScheduledTime) {
			results = append(results, r)
		}
	}
	return c.detect(results)
}

type platformDay struct {
	day      string
	platform content.Platform
}

// detect expects results in ascending scheduled time.
func (c *Controller) detect(results []Result) []Conflict {
	var conflicts []Conflict

	var hours []time.Time
	byHour := make(map[time.Time][]string)
	for _, r := range results {
		h := r.ScheduledTime.UTC().Truncate(time.Hour)
		if _, seen := byHour[h]; !seen {
			hours = append(hours, h)
		}
		byHour[h] = append(byHour[h], r.ID())
	}
	for _, h := range hours {
		ids := byHour[h]
		if len(ids) <= timeOverloadThreshold {
			continue
		}
		local := h.In(c.loc)
		conflicts = append(conflicts, Conflict{
			Type: ConflictTimeOverload,
			Description: fmt.Sprintf("%d items scheduled between %s and %s",
				len(ids), local.Format("Jan 02 15:04"), local.Add(time.Hour).Format("15:04")),
			ContentIDs:  ids,
			Suggestions: []string{"Spread items across adjacent hours", "Run optimize to rebalance the schedule"},
		})
	}

	var days []platformDay
	byDay := make(map[platformDay][]string)
	for _, r := range results {
		key := platformDay{day: r.ScheduledTime.In(c.loc).Format("2006-01-02"), platform: r.Item.Platform}
		if _, seen := byDay[key]; !seen {
			days = append(days, key)
		}
		byDay[key] = append(byDay[key], r.ID())
	}
	sort.SliceStable(days, func(i, j int) bool {
		if days[i].day != days[j].day {
			return days[i].day < days[j].day
		}
		return slices.Index(content.Platforms, days[i].platform) < slices.Index(content.Platforms, days[j].platform)
	})
	for _, key := range days {
		ids := byDay[key]
		limit := c.cfg.limits(key.platform).MaxPerDay
		if len(ids) <= limit {
			continue
		}
		conflicts = append(conflicts, Conflict{
			Type:        ConflictPlatformOverload,
			Description: fmt.Sprintf("%d %s items on %s exceed the daily limit of %d", len(ids), key.platform, key.day, limit),
			ContentIDs:  ids,
			Suggestions: []string{fmt.Sprintf("Move %d item(s) to another day", len(ids)-limit)},
		})
	}
	return conflicts
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// Package report renders the schedule and its analytics as Markdown.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/TobiSchelling/postplanner/internal/content"
	"github.com/TobiSchelling/postplanner/internal/scheduler"
)

// Source is the read side of the controller the report needs.
type Source interface {
	GetScheduledContent(f scheduler.Filter) []scheduler.Result
	GetSchedulingAnalytics(period *scheduler.Timeframe) scheduler.Analytics
	DetectConflicts(tf *scheduler.Timeframe) []scheduler.Conflict
	Location() *time.Location
}

// Report is a rendered snapshot of the schedule.
type Report struct {
	Title       string
	GeneratedAt time.Time
	Summary     string
	Body        string
}

// Markdown returns the full document.
func (r Report) Markdown() string {
	return fmt.Sprintf("# %s\n\n_Generated %s_\n\n%s\n\n---\n\n%s\n",
		r.Title, r.GeneratedAt.Format("Mon Jan 02 15:04 MST"), r.Summary, r.Body)
}

// Compose builds a report over the schedule from now onwards.
func Compose(src Source, now time.Time) Report {
	loc := src.Location()
	period := &scheduler.Timeframe{Start: now}
	results := src.GetScheduledContent(scheduler.Filter{From: now})
	a := src.GetSchedulingAnalytics(period)
	conflicts := src.DetectConflicts(period)

	return Report{
		Title:       "Content schedule",
		GeneratedAt: now.In(loc),
		Summary:     summary(a, len(conflicts)),
		Body:        assembleBody(results, a, conflicts, loc, now),
	}
}

func summary(a scheduler.Analytics, conflicts int) string {
	if a.TotalScheduled == 0 {
		return "- Nothing is scheduled yet."
	}
	bullets := []string{
		fmt.Sprintf("- %d items scheduled", a.TotalScheduled),
		fmt.Sprintf("- Average confidence %.1f", a.AverageConfidence),
		fmt.Sprintf("- %.0f%% of items carry validation conflicts", a.ConflictRate),
	}
	if conflicts > 0 {
		bullets = append(bullets, fmt.Sprintf("- %d schedule-wide conflicts need attention", conflicts))
	}
	return strings.Join(bullets, "\n")
}

func assembleBody(results []scheduler.Result, a scheduler.Analytics, conflicts []scheduler.Conflict, loc *time.Location, now time.Time) string {
	var sections []string

	if len(results) > 0 {
		rows := []string{
			"| When | Platform | Title | Confidence | Category |",
			"|---|---|---|---|---|",
		}
		for _, r := range results {
			category := "-"
			if top, ok := r.Classification.TopCategory(); ok {
				category = top.Name
			}
			when := fmt.Sprintf("%s (%s)", r.ScheduledTime.In(loc).Format("Mon Jan 02 15:04"),
				humanize.RelTime(r.ScheduledTime, now, "ago", "from now"))
			rows = append(rows, fmt.Sprintf("| %s | %s | %s | %.1f | %s |",
				when, r.Item.Platform, cell(r.Item.Title), r.Confidence, category))
		}
		sections = append(sections, "## Upcoming\n\n"+strings.Join(rows, "\n"))
	}

	if len(a.PlatformDistribution) > 0 {
		var lines []string
		for _, p := range content.Platforms {
			if n := a.PlatformDistribution[p]; n > 0 {
				lines = append(lines, fmt.Sprintf("- %s: %d", p, n))
			}
		}
		sections = append(sections, "## Platforms\n\n"+strings.Join(lines, "\n"))
	}

	if len(a.CategoryDistribution) > 0 {
		ids := make([]string, 0, len(a.CategoryDistribution))
		for id := range a.CategoryDistribution {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		lines := make([]string, len(ids))
		for i, id := range ids {
			lines[i] = fmt.Sprintf("- %s: %d", id, a.CategoryDistribution[id])
		}
		sections = append(sections, "## Categories\n\n"+strings.Join(lines, "\n"))
	}

	if len(conflicts) > 0 {
		var lines []string
		for _, c := range conflicts {
			line := fmt.Sprintf("- **%s**: %s", c.Type, c.Description)
			if len(c.Suggestions) > 0 {
				line += " (" + strings.Join(c.Suggestions, "; ") + ")"
			}
			lines = append(lines, line)
		}
		sections = append(sections, "## Conflicts\n\n"+strings.Join(lines, "\n"))
	}

	if len(a.Opportunities) > 0 {
		lines := make([]string, len(a.Opportunities))
		for i, o := range a.Opportunities {
			lines[i] = "- " + o
		}
		sections = append(sections, "## Opportunities\n\n"+strings.Join(lines, "\n"))
	}

	return strings.Join(sections, "\n\n---\n\n")
}

// cell escapes text for a Markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}

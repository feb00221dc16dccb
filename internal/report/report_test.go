package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/postplanner/internal/classify"
	"github.com/TobiSchelling/postplanner/internal/content"
	"github.com/TobiSchelling/postplanner/internal/planner"
	"github.com/TobiSchelling/postplanner/internal/scheduler"
)

// Monday 08:00 UTC.
var fixedNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func newController() *scheduler.Controller {
	clock := func() time.Time { return fixedNow }
	return scheduler.New(scheduler.DefaultConfig(),
		classify.New(content.NewCatalog(content.DefaultCategories()), classify.WithClock(clock)),
		planner.New(planner.WithClock(clock)),
		scheduler.WithClock(clock))
}

func TestComposeEmptySchedule(t *testing.T) {
	r := Compose(newController(), fixedNow)
	md := r.Markdown()
	assert.Contains(t, md, "# Content schedule")
	assert.Contains(t, md, "- Nothing is scheduled yet.")
	assert.Contains(t, md, "No content scheduled in this period")
}

func TestComposeSchedule(t *testing.T) {
	ctl := newController()
	_, err := ctl.ScheduleContent(scheduler.Request{Item: content.Item{
		ID: "a", Title: "AI marketing guide | part 1", Platform: content.PlatformLinkedIn,
		BusinessGoal: content.GoalLeadGeneration, CreatedAt: fixedNow,
	}})
	require.NoError(t, err)
	when := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	_, err = ctl.ScheduleContent(scheduler.Request{
		Item:          content.Item{ID: "b", Title: "Follow-up", Platform: content.PlatformLinkedIn, CreatedAt: fixedNow},
		PreferredTime: &when,
		Force:         true,
	})
	require.NoError(t, err)

	md := Compose(ctl, fixedNow).Markdown()

	assert.Contains(t, md, "- 2 items scheduled")
	assert.Contains(t, md, "- 50% of items carry validation conflicts")
	assert.Contains(t, md, "## Upcoming")
	assert.Contains(t, md, `AI marketing guide \| part 1`)
	assert.Contains(t, md, "Mon Mar 02 09:00 (1 hour from now)")
	assert.Contains(t, md, "| Marketing Tips |")
	assert.Contains(t, md, "- linkedin: 2")
	assert.Contains(t, md, "- marketing-tips: 1")
	assert.Contains(t, md, "## Opportunities")

	// Sections are separated by rules, in a fixed order.
	upcoming := strings.Index(md, "## Upcoming")
	platforms := strings.Index(md, "## Platforms")
	assert.Less(t, upcoming, platforms)
}

func TestCell(t *testing.T) {
	assert.Equal(t, `a \| b c`, cell("a | b\n c"))
}
